package dsl

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind classifies a script error.
type Kind int

const (
	// KindParse is bad control-flow nesting, an unknown command or a
	// malformed statement. Fatal to the enclosing script.
	KindParse Kind = iota
	// KindResolution is a reference that could not be mapped inside the
	// prompts root, or a missing file. Fatal to the single placeholder or
	// directive.
	KindResolution
	// KindTagNotFound is a LOAD naming a tag section absent from its file.
	KindTagNotFound
	// KindEval is an expression failure that survived both auto-repair
	// strategies.
	KindEval
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindResolution:
		return "resolution"
	case KindTagNotFound:
		return "tag not found"
	case KindEval:
		return "evaluation"
	}
	return "unknown"
}

// Error is a script-level error carrying the location that produced it.
// Errors never propagate past the smallest enclosing unit; the script
// boundary converts them to inline text markers.
type Error struct {
	Kind     Kind
	Msg      string
	File     string // resolved id or relative path
	Line     int
	LineText string
	Cause    error
}

func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s error: %s", e.Kind, e.Msg)
	if e.File != "" {
		fmt.Fprintf(&sb, " (file %q", filepath.Base(e.File))
		if e.Line > 0 {
			fmt.Fprintf(&sb, ", line %d", e.Line)
		}
		sb.WriteString(")")
	}
	if e.LineText != "" {
		fmt.Fprintf(&sb, "\n  line: %q", strings.TrimSpace(e.LineText))
	}
	if e.Cause != nil {
		fmt.Fprintf(&sb, "\n  caused by: %v", e.Cause)
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// ErrorMarker renders the inline marker a broken script degrades to.
func ErrorMarker(file string) string {
	return fmt.Sprintf("[DSL ERROR IN %s]", filepath.Base(file))
}
