package expr

import (
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokInt
	tokFloat
	tokString
	tokIdent
	tokOp
)

type token struct {
	kind tokenKind
	pos  int
	text string // operator or identifier text
	i    int64
	f    float64
	s    string
}

type lexer struct {
	src  string
	pos  int
	toks []token
}

// tokenize splits an expression into tokens. Strings may use single, double
// or triple-double quotes with the usual backslash escapes.
func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src}
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		lx.toks = append(lx.toks, tok)
		if tok.kind == tokEOF {
			return lx.toks, nil
		}
	}
}

func (lx *lexer) next() (token, error) {
	for lx.pos < len(lx.src) && isSpace(lx.src[lx.pos]) {
		lx.pos++
	}
	if lx.pos >= len(lx.src) {
		return token{kind: tokEOF, pos: lx.pos}, nil
	}
	start := lx.pos
	c := lx.src[lx.pos]

	switch {
	case c == '"' || c == '\'':
		return lx.lexString(start)
	case c >= '0' && c <= '9':
		return lx.lexNumber(start)
	case c == '.' && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1]):
		return lx.lexNumber(start)
	case isIdentStart(rune(c)):
		return lx.lexIdent(start)
	}

	two := ""
	if lx.pos+1 < len(lx.src) {
		two = lx.src[lx.pos : lx.pos+2]
	}
	switch two {
	case "==", "!=", "<=", ">=", "&&", "||":
		lx.pos += 2
		return token{kind: tokOp, pos: start, text: two}, nil
	}
	switch c {
	case '+', '-', '*', '/', '%', '<', '>', '(', ')', ',', '!':
		lx.pos++
		return token{kind: tokOp, pos: start, text: string(c)}, nil
	}
	return token{}, &SyntaxError{Pos: start, Msg: "unexpected character " + strconv.Quote(string(c))}
}

func (lx *lexer) lexString(start int) (token, error) {
	quote := lx.src[lx.pos]
	delim := string(quote)
	if quote == '"' && strings.HasPrefix(lx.src[lx.pos:], `"""`) {
		delim = `"""`
	}
	lx.pos += len(delim)

	var sb strings.Builder
	for lx.pos < len(lx.src) {
		if strings.HasPrefix(lx.src[lx.pos:], delim) {
			lx.pos += len(delim)
			return token{kind: tokString, pos: start, s: sb.String()}, nil
		}
		c := lx.src[lx.pos]
		if c == '\\' && lx.pos+1 < len(lx.src) {
			lx.pos++
			switch lx.src[lx.pos] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '\'':
				sb.WriteByte('\'')
			case '"':
				sb.WriteByte('"')
			default:
				sb.WriteByte('\\')
				sb.WriteByte(lx.src[lx.pos])
			}
			lx.pos++
			continue
		}
		sb.WriteByte(c)
		lx.pos++
	}
	return token{}, &SyntaxError{Pos: start, Msg: "unterminated string literal"}
}

func (lx *lexer) lexNumber(start int) (token, error) {
	sawDot := false
	sawExp := false
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case isDigit(c):
			lx.pos++
		case c == '.' && !sawDot && !sawExp:
			sawDot = true
			lx.pos++
		case (c == 'e' || c == 'E') && !sawExp && lx.pos > start:
			sawExp = true
			lx.pos++
			if lx.pos < len(lx.src) && (lx.src[lx.pos] == '+' || lx.src[lx.pos] == '-') {
				lx.pos++
			}
		default:
			goto done
		}
	}
done:
	text := lx.src[start:lx.pos]
	if !sawDot && !sawExp {
		i, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			return token{kind: tokInt, pos: start, i: i}, nil
		}
		// overflow falls through to float
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, &SyntaxError{Pos: start, Msg: "malformed number " + strconv.Quote(text)}
	}
	return token{kind: tokFloat, pos: start, f: f}, nil
}

func (lx *lexer) lexIdent(start int) (token, error) {
	for lx.pos < len(lx.src) && isIdentPart(rune(lx.src[lx.pos])) {
		lx.pos++
	}
	return token{kind: tokIdent, pos: start, text: lx.src[start:lx.pos]}, nil
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\r' || c == '\n' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
