package ast

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kayz/charscript/internal/dsl"
)

// ParseError is one problem found while parsing a script into a tree.
// Parsing collects errors instead of stopping at the first one so an editor
// can show all of them.
type ParseError struct {
	Msg      string
	Line     int
	LineText string
}

func (e ParseError) String() string {
	return fmt.Sprintf("line %d: %q - %s", e.Line, strings.TrimSpace(e.LineText), e.Msg)
}

var varNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Parse builds a Script tree from script text, collecting parse errors.
func Parse(text string) (*Script, []ParseError) {
	script := &Script{ID: NewID()}
	var errs []ParseError

	lines, err := dsl.SplitLogicalLines(text)
	if err != nil {
		return script, []ParseError{{Msg: err.Error(), Line: 0, LineText: text}}
	}

	bodyStack := []*[]Node{&script.Body}
	var ifStack []*If
	addNode := func(n Node) {
		top := bodyStack[len(bodyStack)-1]
		*top = append(*top, n)
	}

	for idx, raw := range lines {
		num := idx + 1
		stripped := strings.TrimSpace(raw)
		if stripped == "" || strings.HasPrefix(stripped, "//") {
			continue
		}
		commandPart := strings.TrimSpace(strings.SplitN(stripped, "//", 2)[0])
		if commandPart == "" {
			continue
		}
		fields := strings.SplitN(commandPart, " ", 2)
		command := strings.ToUpper(strings.TrimSpace(fields[0]))
		args := ""
		if len(fields) > 1 {
			args = strings.TrimSpace(fields[1])
		}

		switch command {
		case "IF":
			node := &If{ID: NewID(), Line: num, Branches: []IfBranch{{Cond: stripThen(args), Line: num}}}
			addNode(node)
			ifStack = append(ifStack, node)
			bodyStack = append(bodyStack, &node.Branches[0].Body)

		case "ELSEIF":
			if len(ifStack) == 0 {
				errs = append(errs, ParseError{Msg: "ELSEIF without IF", Line: num, LineText: raw})
				continue
			}
			node := ifStack[len(ifStack)-1]
			bodyStack = bodyStack[:len(bodyStack)-1]
			node.Branches = append(node.Branches, IfBranch{Cond: stripThen(args), Line: num})
			bodyStack = append(bodyStack, &node.Branches[len(node.Branches)-1].Body)

		case "ELSE":
			if len(ifStack) == 0 {
				errs = append(errs, ParseError{Msg: "ELSE without IF", Line: num, LineText: raw})
				continue
			}
			if args != "" {
				errs = append(errs, ParseError{Msg: "ELSE takes no arguments", Line: num, LineText: raw})
			}
			node := ifStack[len(ifStack)-1]
			bodyStack = bodyStack[:len(bodyStack)-1]
			node.EnsureElse()
			bodyStack = append(bodyStack, &node.Else)

		case "ENDIF":
			if len(ifStack) == 0 {
				errs = append(errs, ParseError{Msg: "ENDIF without IF", Line: num, LineText: raw})
				continue
			}
			if args != "" {
				errs = append(errs, ParseError{Msg: "ENDIF takes no arguments", Line: num, LineText: raw})
			}
			bodyStack = bodyStack[:len(bodyStack)-1]
			ifStack = ifStack[:len(ifStack)-1]

		case "SET":
			local := false
			rest := args
			if f := strings.SplitN(rest, " ", 2); len(f) > 1 && strings.EqualFold(strings.TrimSpace(f[0]), "LOCAL") {
				local = true
				rest = strings.TrimSpace(f[1])
			}
			eq := strings.Index(rest, "=")
			if eq < 0 {
				errs = append(errs, ParseError{Msg: "SET requires '='", Line: num, LineText: raw})
				continue
			}
			name := strings.TrimSpace(rest[:eq])
			if !varNameRe.MatchString(name) {
				errs = append(errs, ParseError{Msg: fmt.Sprintf("invalid variable name %q", name), Line: num, LineText: raw})
			}
			addNode(&Set{ID: NewID(), Var: name, Expr: strings.TrimSpace(rest[eq+1:]), Local: local, Line: num})

		case "LOG":
			addNode(&Log{ID: NewID(), Expr: args, Line: num})

		case "ADD_SYSTEM_INFO":
			if args == "" {
				errs = append(errs, ParseError{Msg: "ADD_SYSTEM_INFO requires an argument", Line: num, LineText: raw})
			}
			addNode(&AddSystemInfo{ID: NewID(), Expr: args, Line: num})

		case "RETURN":
			if args == "" {
				errs = append(errs, ParseError{Msg: "RETURN requires an argument", Line: num, LineText: raw})
			}
			addNode(&Return{ID: NewID(), Expr: args, Line: num})

		default:
			errs = append(errs, ParseError{Msg: fmt.Sprintf("unknown command %q", command), Line: num, LineText: raw})
		}
	}

	if len(ifStack) > 0 {
		last := ""
		if len(lines) > 0 {
			last = lines[len(lines)-1]
		}
		errs = append(errs, ParseError{Msg: "unterminated IF block(s)", Line: len(lines), LineText: last})
	}
	return script, errs
}

func stripThen(args string) string {
	cond := strings.TrimSpace(args)
	if strings.HasSuffix(strings.ToUpper(cond), " THEN") {
		cond = strings.TrimSpace(cond[:len(cond)-len(" THEN")])
	}
	return cond
}
