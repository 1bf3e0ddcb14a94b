package ast

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kayz/charscript/internal/dsl/expr"
)

// Issue is one finding from a static script check.
type Issue struct {
	Severity string // "error" or "warning"
	Msg      string
	Line     int
	LineText string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: line %d: %s", i.Severity, i.Line, i.Msg)
}

// Check statically lints script text without executing it: structural parse
// errors, malformed expressions and unreachable statements after a
// top-level RETURN.
func Check(text string) []Issue {
	script, parseErrs := Parse(text)

	var issues []Issue
	for _, pe := range parseErrs {
		issues = append(issues, Issue{Severity: "error", Msg: pe.Msg, Line: pe.Line, LineText: pe.LineText})
	}

	checkBlock(script.Body, &issues)

	seenReturn := false
	for _, node := range script.Body {
		if seenReturn {
			issues = append(issues, Issue{
				Severity: "warning",
				Msg:      "statement is unreachable: a RETURN precedes it at top level",
				Line:     nodeLine(node),
			})
		}
		if _, ok := node.(*Return); ok {
			seenReturn = true
		}
	}
	return issues
}

// checkBlock validates every expression in a body, recursing into IF
// branches. LOAD directives are skipped: they are expanded before
// evaluation, so their surrounding text is not a standalone expression.
func checkBlock(body []Node, issues *[]Issue) {
	for _, node := range body {
		switch n := node.(type) {
		case *Set:
			checkExpr(n.Expr, n.Line, issues)
		case *Log:
			checkExpr(n.Expr, n.Line, issues)
		case *AddSystemInfo:
			if !isLoadDirective(n.Expr) {
				checkExpr(n.Expr, n.Line, issues)
			}
		case *Return:
			if !isLoadDirective(n.Expr) {
				checkExpr(n.Expr, n.Line, issues)
			}
		case *If:
			for _, br := range n.Branches {
				checkExpr(br.Cond, br.Line, issues)
				checkBlock(br.Body, issues)
			}
			checkBlock(n.Else, issues)
		}
	}
}

func checkExpr(src string, line int, issues *[]Issue) {
	if strings.TrimSpace(src) == "" {
		return
	}
	if hasInlineLoad(src) {
		// inline LOADs are substituted with string literals before parsing;
		// a syntactic stand-in keeps the remaining expression checkable
		src = inlineLoadPlaceholder(src)
	}
	if _, err := expr.Parse(src); err != nil {
		*issues = append(*issues, Issue{Severity: "error", Msg: err.Error(), Line: line})
	}
}

var (
	inlineLoadRe    = regexp.MustCompile(`(?i)\bLOAD(?:\s+[A-Z0-9_]+)?\s+FROM\s+['"][^'"]+['"]`)
	inlineLoadRelRe = regexp.MustCompile(`(?i)\bLOAD_?REL\s+['"][^'"]+['"]`)
)

func hasInlineLoad(src string) bool {
	return inlineLoadRe.MatchString(src) || inlineLoadRelRe.MatchString(src)
}

func inlineLoadPlaceholder(src string) string {
	src = inlineLoadRelRe.ReplaceAllString(src, `""`)
	return inlineLoadRe.ReplaceAllString(src, `""`)
}

func isLoadDirective(arg string) bool {
	upper := strings.ToUpper(strings.TrimSpace(arg))
	return strings.HasPrefix(upper, "LOAD ") ||
		strings.HasPrefix(upper, "LOAD_REL ") ||
		strings.HasPrefix(upper, "LOADREL ")
}

func nodeLine(n Node) int {
	switch t := n.(type) {
	case *Set:
		return t.Line
	case *Log:
		return t.Line
	case *AddSystemInfo:
		return t.Line
	case *Return:
		return t.Line
	case *If:
		return t.Line
	}
	return 0
}
