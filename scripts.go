// Package botlink ships the example Lua scripts of the botlink CLI.
package botlink

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed examples/*.lua
var exampleScripts embed.FS

// ExampleScript returns the embedded script called name, without the .lua
// suffix.
func ExampleScript(name string) (string, error) {
	data, err := exampleScripts.ReadFile("examples/" + strings.TrimSuffix(name, ".lua") + ".lua")
	if err != nil {
		return "", fmt.Errorf("unknown example script %q (available: %s)", name, strings.Join(ExampleScripts(), ", "))
	}
	return string(data), nil
}

// ExampleScripts lists the embedded script names.
func ExampleScripts() []string {
	entries, err := fs.ReadDir(exampleScripts, "examples")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".lua"))
	}
	sort.Strings(names)
	return names
}
