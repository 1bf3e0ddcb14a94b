package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Eval parses and evaluates an expression against a scope.
func Eval(src string, scope Scope) (Value, error) {
	node, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return Evaluate(node, scope)
}

// Evaluate walks a parsed expression tree.
func Evaluate(node Node, scope Scope) (Value, error) {
	switch n := node.(type) {
	case *literalNode:
		return n.val, nil
	case *identNode:
		v, ok := scope.Lookup(n.name)
		if !ok {
			return nil, &UndefinedNameError{Name: n.name}
		}
		return v, nil
	case *unaryNode:
		return evalUnary(n, scope)
	case *binaryNode:
		return evalBinary(n, scope)
	case *callNode:
		return evalCall(n, scope)
	}
	return nil, fmt.Errorf("unknown expression node %T", node)
}

func evalUnary(n *unaryNode, scope Scope) (Value, error) {
	x, err := Evaluate(n.x, scope)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "not":
		return !Truthy(x), nil
	case "-":
		switch t := x.(type) {
		case int64:
			return -t, nil
		case float64:
			return -t, nil
		case bool:
			i, _ := asInt(t)
			return -i, nil
		}
		return nil, &TypeMismatchError{Op: "-", Left: TypeName(x)}
	}
	return nil, fmt.Errorf("unknown unary operator %q", n.op)
}

func evalBinary(n *binaryNode, scope Scope) (Value, error) {
	// and/or short-circuit and yield an operand, not a bool, so
	// "name OR 'fallback'" works as authors expect.
	if n.op == "and" || n.op == "or" {
		l, err := Evaluate(n.l, scope)
		if err != nil {
			return nil, err
		}
		if n.op == "and" && !Truthy(l) {
			return l, nil
		}
		if n.op == "or" && Truthy(l) {
			return l, nil
		}
		return Evaluate(n.r, scope)
	}

	l, err := Evaluate(n.l, scope)
	if err != nil {
		return nil, err
	}
	r, err := Evaluate(n.r, scope)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "+":
		return evalAdd(l, r)
	case "-", "*", "/", "%":
		return evalArith(n.op, l, r)
	case "==":
		return valuesEqual(l, r), nil
	case "!=":
		return !valuesEqual(l, r), nil
	case "<", "<=", ">", ">=":
		return evalOrdered(n.op, l, r)
	}
	return nil, fmt.Errorf("unknown binary operator %q", n.op)
}

func evalAdd(l, r Value) (Value, error) {
	ls, lIsStr := l.(string)
	rs, rIsStr := r.(string)
	if lIsStr && rIsStr {
		return ls + rs, nil
	}
	if lIsStr || rIsStr {
		return nil, &TypeMismatchError{Op: "+", Left: TypeName(l), Right: TypeName(r), Concat: true}
	}
	if li, ok := asInt(l); ok {
		if ri, ok := asInt(r); ok {
			return li + ri, nil
		}
	}
	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if lok && rok {
		return lf + rf, nil
	}
	return nil, &TypeMismatchError{Op: "+", Left: TypeName(l), Right: TypeName(r)}
}

func evalArith(op string, l, r Value) (Value, error) {
	li, lIsInt := asInt(l)
	ri, rIsInt := asInt(r)
	if lIsInt && rIsInt {
		// "/" is excluded: true division always yields a float,
		// even when both operands are ints and the result is exact
		switch op {
		case "-":
			return li - ri, nil
		case "*":
			return li * ri, nil
		case "%":
			if ri == 0 {
				return nil, &TypeMismatchError{Op: "%", Left: "division", Right: "zero"}
			}
			return li % ri, nil
		}
	}
	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if !lok || !rok {
		return nil, &TypeMismatchError{Op: op, Left: TypeName(l), Right: TypeName(r)}
	}
	switch op {
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, &TypeMismatchError{Op: "/", Left: "division", Right: "zero"}
		}
		return lf / rf, nil
	case "%":
		if rf == 0 {
			return nil, &TypeMismatchError{Op: "%", Left: "division", Right: "zero"}
		}
		return math.Mod(lf, rf), nil
	}
	return nil, fmt.Errorf("unknown arithmetic operator %q", op)
}

func valuesEqual(l, r Value) bool {
	if l == nil || r == nil {
		return l == nil && r == nil
	}
	ls, lIsStr := l.(string)
	rs, rIsStr := r.(string)
	if lIsStr || rIsStr {
		return lIsStr && rIsStr && ls == rs
	}
	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if lok && rok {
		return lf == rf
	}
	return false
}

func evalOrdered(op string, l, r Value) (Value, error) {
	var c int
	ls, lIsStr := l.(string)
	rs, rIsStr := r.(string)
	switch {
	case lIsStr && rIsStr:
		c = strings.Compare(ls, rs)
	default:
		lf, lok := asFloat(l)
		rf, rok := asFloat(r)
		if !lok || !rok {
			return nil, &TypeMismatchError{Op: op, Left: TypeName(l), Right: TypeName(r)}
		}
		switch {
		case lf < rf:
			c = -1
		case lf > rf:
			c = 1
		}
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return nil, fmt.Errorf("unknown comparison operator %q", op)
}

func evalCall(n *callNode, scope Scope) (Value, error) {
	args := make([]Value, len(n.args))
	for i, a := range n.args {
		v, err := Evaluate(a, scope)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch n.name {
	case "str":
		if len(args) != 1 {
			return nil, &FuncError{Name: "str", Msg: "expected 1 argument"}
		}
		return ToString(args[0]), nil
	case "int":
		return fnInt(args)
	case "float":
		return fnFloat(args)
	case "len":
		if len(args) != 1 {
			return nil, &FuncError{Name: "len", Msg: "expected 1 argument"}
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, &FuncError{Name: "len", Msg: "argument must be a string, got " + TypeName(args[0])}
		}
		return int64(utf8.RuneCountInString(s)), nil
	case "round":
		return fnRound(args)
	case "abs":
		if len(args) != 1 {
			return nil, &FuncError{Name: "abs", Msg: "expected 1 argument"}
		}
		switch t := args[0].(type) {
		case int64:
			if t < 0 {
				return -t, nil
			}
			return t, nil
		case float64:
			return math.Abs(t), nil
		}
		return nil, &FuncError{Name: "abs", Msg: "argument must be a number, got " + TypeName(args[0])}
	case "min":
		return fnMinMax("min", args)
	case "max":
		return fnMinMax("max", args)
	}
	return nil, &FuncError{Name: n.name, Msg: "unknown function"}
}

func fnInt(args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, &FuncError{Name: "int", Msg: "expected 1 argument"}
	}
	switch t := args[0].(type) {
	case bool:
		i, _ := asInt(t)
		return i, nil
	case int64:
		return t, nil
	case float64:
		return int64(math.Trunc(t)), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return nil, &FuncError{Name: "int", Msg: "cannot convert " + strconv.Quote(t)}
		}
		return i, nil
	}
	return nil, &FuncError{Name: "int", Msg: "cannot convert " + TypeName(args[0])}
}

func fnFloat(args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, &FuncError{Name: "float", Msg: "expected 1 argument"}
	}
	switch t := args[0].(type) {
	case bool:
		f, _ := asFloat(t)
		return f, nil
	case int64:
		return float64(t), nil
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, &FuncError{Name: "float", Msg: "cannot convert " + strconv.Quote(t)}
		}
		return f, nil
	}
	return nil, &FuncError{Name: "float", Msg: "cannot convert " + TypeName(args[0])}
}

func fnRound(args []Value) (Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, &FuncError{Name: "round", Msg: "expected 1 or 2 arguments"}
	}
	f, ok := asFloat(args[0])
	if !ok {
		return nil, &FuncError{Name: "round", Msg: "argument must be a number, got " + TypeName(args[0])}
	}
	if len(args) == 1 {
		return int64(math.RoundToEven(f)), nil
	}
	digits, ok := asInt(args[1])
	if !ok {
		return nil, &FuncError{Name: "round", Msg: "digits must be an integer, got " + TypeName(args[1])}
	}
	scale := math.Pow(10, float64(digits))
	return math.RoundToEven(f*scale) / scale, nil
}

func fnMinMax(name string, args []Value) (Value, error) {
	if len(args) == 0 {
		return nil, &FuncError{Name: name, Msg: "expected at least 1 argument"}
	}
	best := args[0]
	for _, v := range args[1:] {
		op := ">"
		if name == "min" {
			op = "<"
		}
		wins, err := evalOrdered(op, v, best)
		if err != nil {
			return nil, &FuncError{Name: name, Msg: err.Error()}
		}
		if wins.(bool) {
			best = v
		}
	}
	return best, nil
}
