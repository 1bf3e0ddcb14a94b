package ast

import (
	"fmt"
	"strings"
)

const indent = "    "

// Generate renders a Script tree back to canonical script text.
func Generate(script *Script) string {
	var out []string
	genBlock(script.Body, 0, &out)
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}

func genBlock(body []Node, depth int, out *[]string) {
	pad := strings.Repeat(indent, depth)
	for _, node := range body {
		switch n := node.(type) {
		case *Set:
			prefix := pad + "SET "
			if n.Local {
				prefix += "LOCAL "
			}
			*out = append(*out, fmt.Sprintf("%s%s = %s", prefix, n.Var, n.Expr))
		case *Log:
			*out = append(*out, pad+"LOG "+n.Expr)
		case *AddSystemInfo:
			*out = append(*out, pad+"ADD_SYSTEM_INFO "+n.Expr)
		case *Return:
			*out = append(*out, pad+"RETURN "+n.Expr)
		case *If:
			genIf(n, depth, out)
		default:
			*out = append(*out, fmt.Sprintf("%s// [UNKNOWN NODE %T]", pad, node))
		}
	}
}

func genIf(node *If, depth int, out *[]string) {
	pad := strings.Repeat(indent, depth)
	if len(node.Branches) == 0 {
		*out = append(*out, pad+"// IF without branches")
		return
	}
	*out = append(*out, fmt.Sprintf("%sIF %s THEN", pad, node.Branches[0].Cond))
	genBlock(node.Branches[0].Body, depth+1, out)
	for _, br := range node.Branches[1:] {
		*out = append(*out, fmt.Sprintf("%sELSEIF %s THEN", pad, br.Cond))
		genBlock(br.Body, depth+1, out)
	}
	if node.HasElse {
		*out = append(*out, pad+"ELSE")
		genBlock(node.Else, depth+1, out)
	}
	*out = append(*out, pad+"ENDIF")
}
