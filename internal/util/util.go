// Package util provides argument parsing helpers for host bridge commands.
package util

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/runtimeeditor/history/pkg/core"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArg trims surrounding quotes and unescapes doubled quotes.
func CleanArg(s string) string {
	return FixEscapeQuotes(TrimQuotes(strings.TrimSpace(s)))
}

// ParseStringArray parses a stringified array of quoted strings.
// Input format: ["a","b","c"]. A bare value without brackets is returned as
// a single element.
func ParseStringArray(s string) []string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		if s == "" {
			return nil
		}
		return []string{CleanArg(s)}
	}

	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return nil
	}
	parts := strings.Split(inner, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := CleanArg(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ParseHandles flattens bridge args into entity handles. Each arg may be a
// single handle or a stringified array of handles.
func ParseHandles(args []string) []core.EntityHandle {
	var out []core.EntityHandle
	for _, a := range args {
		for _, v := range ParseStringArray(a) {
			out = append(out, core.EntityHandle(v))
		}
	}
	return out
}

// ParseVec3 parses a position array of three numbers.
// Input format: [x,y,z]
func ParseVec3(s string) (core.Vec3, error) {
	s = strings.TrimSpace(CleanArg(s))
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return core.Vec3{}, fmt.Errorf("invalid vector %q", s)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 3 {
		return core.Vec3{}, fmt.Errorf("invalid vector %q: want 3 components, got %d", s, len(parts))
	}
	var v core.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return core.Vec3{}, fmt.Errorf("invalid vector %q: %w", s, err)
		}
		v[i] = f
	}
	return v, nil
}
