package token

import (
	"fmt"
	"strings"

	"github.com/mimecast/logrok/internal/errs"
)

// Tokenize scans a full query string into tokens. Whitespace is a
// separator only. Unknown input produces a syntax error that reports
// position and a caret line.
func Tokenize(query string) ([]Token, error) {
	l := &lexer{src: query}
	var tokens []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == EOF {
			break
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

type lexer struct {
	src string
	pos int
}

func (l *lexer) next() (Token, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Pos: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]

	switch {
	case c == '*':
		l.pos++
		return Token{Type: STAR, Value: "*", Pos: start}, nil
	case c == '(':
		l.pos++
		return Token{Type: LPAREN, Value: "(", Pos: start}, nil
	case c == ')':
		l.pos++
		return Token{Type: RPAREN, Value: ")", Pos: start}, nil
	case c == ',':
		l.pos++
		return Token{Type: COMMA, Value: ",", Pos: start}, nil
	case c == ';':
		l.pos++
		return l.next() // trailing statement terminator, not a token
	case c == '=' || c == '<' || c == '>':
		return l.operator(), nil
	case c == '"' || c == '\'':
		return l.stringLit()
	case c >= '0' && c <= '9':
		return l.integer(), nil
	case isIdentStart(c):
		return l.identifier(), nil
	default:
		return Token{}, errs.NewSyntaxError(l.src, l.pos, fmt.Sprintf("unexpected character %q", c))
	}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			l.pos++
			continue
		}
		break
	}
}

func (l *lexer) operator() Token {
	start := l.pos
	two := ""
	if l.pos+1 < len(l.src) {
		two = l.src[l.pos : l.pos+2]
	}
	switch two {
	case "<>", "<=", ">=":
		l.pos += 2
		return Token{Type: OPERATOR, Value: two, Pos: start}
	}
	one := string(l.src[l.pos])
	l.pos++
	return Token{Type: OPERATOR, Value: one, Pos: start}
}

func (l *lexer) integer() Token {
	start := l.pos
	for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
		l.pos++
	}
	return Token{Type: INTEGER, Value: l.src[start:l.pos], Pos: start}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '.' || c == '-'
}

func (l *lexer) identifier() Token {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) && isIdentCont(l.src[l.pos]) {
		l.pos++
	}
	text := l.src[start:l.pos]
	typ, isKeyword := keywords[strings.ToLower(text)]
	if !isKeyword {
		typ = IDENTIFIER
	}
	return Token{Type: typ, Value: text, Pos: start}
}

// stringLit scans a single- or double-quoted string with \n, \t and
// \<quote> escapes.
func (l *lexer) stringLit() (Token, error) {
	start := l.pos
	quote := l.src[l.pos]
	l.pos++

	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return Token{}, errs.NewNoTokenError(l.src, "unterminated string literal")
		}
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			return Token{Type: STRING, Value: sb.String(), Pos: start}, nil
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			next := l.src[l.pos+1]
			switch next {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case quote:
				sb.WriteByte(quote)
			case '\\':
				sb.WriteByte('\\')
			default:
				sb.WriteByte(next)
			}
			l.pos += 2
			continue
		}
		sb.WriteByte(c)
		l.pos++
	}
}
