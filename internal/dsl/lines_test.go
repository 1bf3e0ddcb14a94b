package dsl

import (
	"errors"
	"reflect"
	"testing"
)

func TestSplitLogicalLines(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "plain lines",
			in:   "SET a = 1\nLOG a\n",
			want: []string{"SET a = 1", "LOG a"},
		},
		{
			name: "no trailing newline",
			in:   "SET a = 1",
			want: []string{"SET a = 1"},
		},
		{
			name: "multiline block is atomic",
			in:   "SET msg = \"\"\"first\nsecond\"\"\"\nLOG msg",
			want: []string{"SET msg = \"\"\"first\nsecond\"\"\"", "LOG msg"},
		},
		{
			name: "two blocks on separate lines",
			in:   "SET a = \"\"\"x\"\"\"\nSET b = \"\"\"y\nz\"\"\"",
			want: []string{"SET a = \"\"\"x\"\"\"", "SET b = \"\"\"y\nz\"\"\""},
		},
		{
			name: "empty input",
			in:   "",
			want: nil,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := SplitLogicalLines(c.in)
			if err != nil {
				t.Fatalf("SplitLogicalLines: %v", err)
			}
			if !reflect.DeepEqual(got, c.want) {
				t.Fatalf("got %#v, want %#v", got, c.want)
			}
		})
	}
}

func TestSplitLogicalLinesUnterminatedBlock(t *testing.T) {
	_, err := SplitLogicalLines("SET msg = \"\"\"never closed\nLOG msg")
	var de *Error
	if !errors.As(err, &de) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if de.Kind != KindParse {
		t.Fatalf("expected parse error, got %v", de.Kind)
	}
}
