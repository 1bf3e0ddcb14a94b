package dsl

import "strings"

// MultilineDelim delimits multi-line string literals in scripts.
const MultilineDelim = `"""`

// SplitLogicalLines splits script text into logical lines. A """..."""
// span is atomic: newlines inside it do not end the line. An unterminated
// span at end of input is a parse error.
func SplitLogicalLines(text string) ([]string, error) {
	var lines []string
	var buff strings.Builder
	insideTriple := false

	for i := 0; i < len(text); {
		if strings.HasPrefix(text[i:], MultilineDelim) {
			buff.WriteString(MultilineDelim)
			insideTriple = !insideTriple
			i += len(MultilineDelim)
			continue
		}
		c := text[i]
		if c == '\n' && !insideTriple {
			lines = append(lines, buff.String())
			buff.Reset()
			i++
			continue
		}
		buff.WriteByte(c)
		i++
	}
	if buff.Len() > 0 {
		lines = append(lines, buff.String())
	}
	if insideTriple {
		return nil, &Error{Kind: KindParse, Msg: `unterminated multiline block (""" not closed)`}
	}
	return lines, nil
}
