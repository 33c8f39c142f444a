package testutils

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/mcuadros/go-defaults"
)

// TestingT is the part of testing.T the asserters need.
type TestingT interface {
	Errorf(format string, args ...interface{})
}

type TextAssertOptions struct {
	IgnoreTrailingWhitespace bool `default:"true"`
	IgnoreEmptyLines         bool `default:"false"`
	TrimSpace                bool `default:"true"`
	EnableColors             bool `default:"false"`
}

// TextOption is a functional option for configuring TextAsserter
type TextOption func(*TextAssertOptions)

// TextAsserter compares command output line by line and reports a unified diff.
type TextAsserter struct {
	t       TestingT
	options TextAssertOptions
}

func NewTextAsserter(t TestingT) *TextAsserter {
	opts := TextAssertOptions{}
	defaults.SetDefaults(&opts)
	return &TextAsserter{t: t, options: opts}
}

func (ta *TextAsserter) WithOptions(opts ...TextOption) *TextAsserter {
	for _, opt := range opts {
		opt(&ta.options)
	}
	return ta
}

// Assert compares actual text against expected text
func (ta *TextAsserter) Assert(actual, expected string) bool {
	if diff := ta.Diff(actual, expected); diff != "" {
		ta.t.Errorf("Text assertion failed - unified diff:\n%s", diff)
		return false
	}
	return true
}

// Diff returns the colourised unified diff, or "" when the texts match.
func (ta *TextAsserter) Diff(actual, expected string) string {
	a := ta.normalize(actual)
	e := ta.normalize(expected)
	if a == e {
		return ""
	}

	edits := myers.ComputeEdits("", e, a)
	unified := fmt.Sprint(gotextdiff.ToUnified("expected", "actual", e, edits))
	if !ta.options.EnableColors {
		return unified
	}

	red := color.New(color.FgRed)
	red.EnableColor()
	green := color.New(color.FgGreen)
	green.EnableColor()
	cyan := color.New(color.FgCyan)
	cyan.EnableColor()

	lines := strings.Split(unified, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "@@"):
			lines[i] = cyan.Sprint(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = red.Sprint(strings.ReplaceAll(line, " ", "·"))
		case strings.HasPrefix(line, "+"):
			lines[i] = green.Sprint(strings.ReplaceAll(line, " ", "·"))
		}
	}
	return strings.Join(lines, "\n")
}

func (ta *TextAsserter) normalize(text string) string {
	if ta.options.TrimSpace {
		text = strings.TrimSpace(text)
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if ta.options.IgnoreTrailingWhitespace {
			line = strings.TrimRight(line, " \t\r")
		}
		if ta.options.IgnoreEmptyLines && line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func WithIgnoreTrailingWhitespace(ignore bool) TextOption {
	return func(o *TextAssertOptions) { o.IgnoreTrailingWhitespace = ignore }
}

func WithIgnoreEmptyLines(ignore bool) TextOption {
	return func(o *TextAssertOptions) { o.IgnoreEmptyLines = ignore }
}

func WithTrimSpace(trim bool) TextOption {
	return func(o *TextAssertOptions) { o.TrimSpace = trim }
}

func WithEnableColors(enable bool) TextOption {
	return func(o *TextAssertOptions) { o.EnableColors = enable }
}
