package ast

import "testing"

func TestGenerateCanonicalForm(t *testing.T) {
	src := `set a=1
if a > 0 then
log "positive"
elseif a < 0 then
set LOCAL b = a * -1
else
add_system_info "zero seen"
endif
return str(a)`

	script, errs := Parse(src)
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	want := `SET a = 1
IF a > 0 THEN
    LOG "positive"
ELSEIF a < 0 THEN
    SET LOCAL b = a * -1
ELSE
    ADD_SYSTEM_INFO "zero seen"
ENDIF
RETURN str(a)
`
	if got := Generate(script); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestGenerateNestedIndent(t *testing.T) {
	script, errs := Parse(`IF a THEN
IF b THEN
SET x = 1
ENDIF
ENDIF`)
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	want := `IF a THEN
    IF b THEN
        SET x = 1
    ENDIF
ENDIF
`
	if got := Generate(script); got != want {
		t.Fatalf("got:\n%s", got)
	}
}

func TestGenerateEmptyScript(t *testing.T) {
	script, _ := Parse("// nothing but comments\n")
	if got := Generate(script); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestGenerateRoundTripIsStable(t *testing.T) {
	src := `SET a = 1
IF a THEN
    RETURN "yes"
ENDIF
RETURN "no"
`
	script, errs := Parse(src)
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	once := Generate(script)
	again, errs := Parse(once)
	if len(errs) != 0 {
		t.Fatalf("reparse errors: %v", errs)
	}
	if twice := Generate(again); twice != once {
		t.Fatalf("unstable: first\n%s\nsecond\n%s", once, twice)
	}
}
