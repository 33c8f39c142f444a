package testutils

import (
	"encoding/json"
	"fmt"

	"github.com/mcuadros/go-defaults"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// PresencePlaceholder in expected JSON matches any actual value.
const PresencePlaceholder = "<<PRESENCE>>"

func MustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

type JSONAssertOptions struct {
	IgnoreExtraKeys          bool `default:"true"`
	AllowPresencePlaceholder bool `default:"true"`
}

// Option is a functional option for configuring JSONAsserter
type Option func(*JSONAssertOptions)

// JSONAsserter compares JSON documents structurally.
type JSONAsserter struct {
	t       TestingT
	options JSONAssertOptions
}

func NewJSONAsserter(t TestingT) *JSONAsserter {
	opts := JSONAssertOptions{}
	defaults.SetDefaults(&opts)
	return &JSONAsserter{t: t, options: opts}
}

func (ja *JSONAsserter) WithOptions(opts ...Option) *JSONAsserter {
	for _, opt := range opts {
		opt(&ja.options)
	}
	return ja
}

// Assert compares actualJSON against expectedJSON
func (ja *JSONAsserter) Assert(actualJSON, expectedJSON string) bool {
	if diff := ja.Diff(actualJSON, expectedJSON); diff != "" {
		ja.t.Errorf("JSON assertion failed:\n%s", diff)
		return false
	}
	return true
}

// Diff returns an ASCII diff, or "" when the documents match.
func (ja *JSONAsserter) Diff(actualJSON, expectedJSON string) string {
	var expected, actual interface{}
	if err := json.Unmarshal([]byte(expectedJSON), &expected); err != nil {
		return fmt.Sprintf("invalid expected JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(actualJSON), &actual); err != nil {
		return fmt.Sprintf("invalid actual JSON: %v", err)
	}

	// gojsondiff only compares objects at the root.
	if _, ok := expected.([]interface{}); ok {
		expected = map[string]interface{}{"array": expected}
		actual = map[string]interface{}{"array": actual}
	}

	if ja.options.AllowPresencePlaceholder {
		replacePresence(expected, actual)
	}
	if ja.options.IgnoreExtraKeys {
		pruneExtraKeys(actual, expected)
	}

	expectedBytes, _ := json.Marshal(expected)
	actualBytes, _ := json.Marshal(actual)

	diff, err := gojsondiff.New().Compare(expectedBytes, actualBytes)
	if err != nil {
		return fmt.Sprintf("JSON comparison failed: %v", err)
	}
	if !diff.Modified() {
		return ""
	}

	f := formatter.NewAsciiFormatter(expected, formatter.AsciiFormatterConfig{ShowArrayIndex: true})
	out, _ := f.Format(diff)
	return out
}

func replacePresence(expected, actual interface{}) {
	switch exp := expected.(type) {
	case map[string]interface{}:
		act, ok := actual.(map[string]interface{})
		if !ok {
			return
		}
		for k, v := range exp {
			if s, ok := v.(string); ok && s == PresencePlaceholder {
				if av, present := act[k]; present {
					exp[k] = av
				}
				continue
			}
			replacePresence(v, act[k])
		}
	case []interface{}:
		act, ok := actual.([]interface{})
		if !ok {
			return
		}
		for i := range exp {
			if i < len(act) {
				replacePresence(exp[i], act[i])
			}
		}
	}
}

func pruneExtraKeys(actual, expected interface{}) {
	switch act := actual.(type) {
	case map[string]interface{}:
		exp, ok := expected.(map[string]interface{})
		if !ok {
			return
		}
		for k, v := range act {
			ev, present := exp[k]
			if !present {
				delete(act, k)
				continue
			}
			pruneExtraKeys(v, ev)
		}
	case []interface{}:
		exp, ok := expected.([]interface{})
		if !ok {
			return
		}
		for i := range act {
			if i < len(exp) {
				pruneExtraKeys(act[i], exp[i])
			}
		}
	}
}

func WithIgnoreExtraKeys(ignore bool) Option {
	return func(o *JSONAssertOptions) { o.IgnoreExtraKeys = ignore }
}

func WithAllowPresencePlaceholder(allow bool) Option {
	return func(o *JSONAssertOptions) { o.AllowPresencePlaceholder = allow }
}
