package expr

import (
	"errors"
	"testing"
)

func TestEvalArithmetic(t *testing.T) {
	scope := MapScope{}
	cases := []struct {
		src  string
		want Value
	}{
		{"1 + 2", int64(3)},
		{"10 - 4 * 2", int64(2)},
		{"(10 - 4) * 2", int64(12)},
		{"7 % 3", int64(1)},
		{"-5 + 2", int64(-3)},
		{"1.5 + 2", float64(3.5)},
		{"2 * 3.0", float64(6)},
		{"10 / 2", float64(5)},
		{"10 / 4", float64(2.5)},
		{"true + 1", int64(2)},
	}
	for _, c := range cases {
		got, err := Eval(c.src, scope)
		if err != nil {
			t.Fatalf("Eval(%q): %v", c.src, err)
		}
		if got != c.want {
			t.Fatalf("Eval(%q) = %#v, want %#v", c.src, got, c.want)
		}
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	for _, src := range []string{"1 / 0", "1 % 0", "1.0 / 0"} {
		if _, err := Eval(src, MapScope{}); err == nil {
			t.Fatalf("Eval(%q): expected error", src)
		}
	}
}

func TestEvalStrings(t *testing.T) {
	scope := MapScope{"name": "Alice"}
	cases := []struct {
		src  string
		want Value
	}{
		{`"a" + "b"`, "ab"},
		{`'single' + " " + "double"`, "single double"},
		{`"line\nbreak"`, "line\nbreak"},
		{`name + "!"`, "Alice!"},
		{`"abc" < "abd"`, true},
		{`"x" == "x"`, true},
		{`"x" != "y"`, true},
	}
	for _, c := range cases {
		got, err := Eval(c.src, scope)
		if err != nil {
			t.Fatalf("Eval(%q): %v", c.src, err)
		}
		if got != c.want {
			t.Fatalf("Eval(%q) = %#v, want %#v", c.src, got, c.want)
		}
	}
}

func TestEvalConcatMismatchIsTyped(t *testing.T) {
	_, err := Eval(`"count: " + 3`, MapScope{})
	var mismatch *TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
	if !mismatch.Concat {
		t.Fatalf("expected Concat flag on string+number mismatch")
	}
}

func TestEvalUndefinedNameIsTyped(t *testing.T) {
	_, err := Eval("missing + 1", MapScope{})
	var undef *UndefinedNameError
	if !errors.As(err, &undef) {
		t.Fatalf("expected UndefinedNameError, got %v", err)
	}
	if undef.Name != "missing" {
		t.Fatalf("unexpected name %q", undef.Name)
	}
}

func TestEvalComparisons(t *testing.T) {
	scope := MapScope{"attitude": int64(60), "stress": float64(5)}
	cases := []struct {
		src  string
		want bool
	}{
		{"attitude > 50", true},
		{"attitude >= 60", true},
		{"stress < 5", false},
		{"stress <= 5", true},
		{"attitude == 60", true},
		{"attitude == 60.0", true},
		{"attitude != 61", true},
		{"none == none", true},
		{"none == 0", false},
		{"true == 1", true},
	}
	for _, c := range cases {
		got, err := Eval(c.src, scope)
		if err != nil {
			t.Fatalf("Eval(%q): %v", c.src, err)
		}
		if got != c.want {
			t.Fatalf("Eval(%q) = %#v, want %v", c.src, got, c.want)
		}
	}
}

func TestEvalBooleanOperatorsReturnOperands(t *testing.T) {
	scope := MapScope{"name": "", "fallback": "Player"}

	got, err := Eval(`name or fallback`, scope)
	if err != nil {
		t.Fatalf("or: %v", err)
	}
	if got != "Player" {
		t.Fatalf("or returned %#v, want fallback operand", got)
	}

	got, err = Eval(`fallback and 7`, scope)
	if err != nil {
		t.Fatalf("and: %v", err)
	}
	if got != int64(7) {
		t.Fatalf("and returned %#v, want right operand", got)
	}

	got, err = Eval(`name and 7`, scope)
	if err != nil {
		t.Fatalf("and short-circuit: %v", err)
	}
	if got != "" {
		t.Fatalf("and returned %#v, want falsy left operand", got)
	}
}

func TestEvalShortCircuitSkipsUndefined(t *testing.T) {
	// the right side never evaluates, so the undefined name is not an error
	got, err := Eval(`1 or missing`, MapScope{})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != int64(1) {
		t.Fatalf("got %#v, want 1", got)
	}
}

func TestEvalNot(t *testing.T) {
	cases := []struct {
		src  string
		want bool
	}{
		{"not true", false},
		{"not 0", true},
		{`not ""`, true},
		{"not none", true},
		{"!false", true},
	}
	for _, c := range cases {
		got, err := Eval(c.src, MapScope{})
		if err != nil {
			t.Fatalf("Eval(%q): %v", c.src, err)
		}
		if got != c.want {
			t.Fatalf("Eval(%q) = %#v, want %v", c.src, got, c.want)
		}
	}
}

func TestEvalFunctions(t *testing.T) {
	cases := []struct {
		src  string
		want Value
	}{
		{`str(42)`, "42"},
		{`str(10 / 2)`, "5.0"},
		{`str(true)`, "True"},
		{`int("17")`, int64(17)},
		{`int(3.9)`, int64(3)},
		{`float("2.5")`, float64(2.5)},
		{`len("héllo")`, int64(5)},
		{`round(2.5)`, int64(2)},
		{`round(3.5)`, int64(4)},
		{`round(1.25, 1)`, float64(1.2)},
		{`abs(-3)`, int64(3)},
		{`min(3, 1, 2)`, int64(1)},
		{`max(3, 1, 2)`, int64(3)},
		{`MIN(2, 5)`, int64(2)},
	}
	for _, c := range cases {
		got, err := Eval(c.src, MapScope{})
		if err != nil {
			t.Fatalf("Eval(%q): %v", c.src, err)
		}
		if got != c.want {
			t.Fatalf("Eval(%q) = %#v, want %#v", c.src, got, c.want)
		}
	}
}

func TestEvalUnknownFunction(t *testing.T) {
	_, err := Eval("open('/etc/passwd')", MapScope{})
	if err == nil {
		t.Fatalf("expected unknown function to fail")
	}
	var fe *FuncError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FuncError, got %v", err)
	}
}

func TestEvalSyntaxErrors(t *testing.T) {
	for _, src := range []string{"", "1 +", "(1 + 2", `"unterminated`, "1 2"} {
		_, err := Eval(src, MapScope{})
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Fatalf("Eval(%q): expected SyntaxError, got %v", src, err)
		}
	}
}

func TestToString(t *testing.T) {
	cases := []struct {
		in   Value
		want string
	}{
		{nil, "None"},
		{true, "True"},
		{false, "False"},
		{int64(42), "42"},
		{float64(2), "2.0"},
		{float64(2.5), "2.5"},
		{"plain", "plain"},
	}
	for _, c := range cases {
		if got := ToString(c.in); got != c.want {
			t.Fatalf("ToString(%#v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTruthy(t *testing.T) {
	truthy := []Value{true, int64(1), float64(0.5), "x"}
	falsy := []Value{nil, false, int64(0), float64(0), ""}
	for _, v := range truthy {
		if !Truthy(v) {
			t.Fatalf("Truthy(%#v) = false", v)
		}
	}
	for _, v := range falsy {
		if Truthy(v) {
			t.Fatalf("Truthy(%#v) = true", v)
		}
	}
}
