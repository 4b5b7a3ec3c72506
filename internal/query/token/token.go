// Package token tokenises a LoGrok query string: keywords, punctuation,
// operators, literals and identifiers, each carrying a byte offset so a
// syntax error can point a caret at the offending position.
package token

import "fmt"

// Type enumerates the token classes the lexer produces.
type Type int

const (
	EOF Type = iota
	SELECT
	FROM
	WHERE
	BETWEEN
	GROUP
	ORDER
	BY
	LIMIT
	AND
	OR
	IN
	ASC
	DESC
	AVG
	MAX
	MIN
	COUNT
	STAR
	LPAREN
	RPAREN
	COMMA
	OPERATOR
	INTEGER
	STRING
	IDENTIFIER
)

var names = map[Type]string{
	EOF: "EOF", SELECT: "SELECT", FROM: "FROM", WHERE: "WHERE",
	BETWEEN: "BETWEEN", GROUP: "GROUP", ORDER: "ORDER", BY: "BY",
	LIMIT: "LIMIT", AND: "AND", OR: "OR", IN: "IN", ASC: "ASC", DESC: "DESC",
	AVG: "AVG", MAX: "MAX", MIN: "MIN", COUNT: "COUNT", STAR: "STAR",
	LPAREN: "LPAREN", RPAREN: "RPAREN", COMMA: "COMMA", OPERATOR: "OPERATOR",
	INTEGER: "INTEGER", STRING: "STRING", IDENTIFIER: "IDENTIFIER",
}

func (t Type) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// keywords is case-insensitive; identifiers retain their original case.
var keywords = map[string]Type{
	"select": SELECT, "from": FROM, "where": WHERE, "between": BETWEEN,
	"group": GROUP, "order": ORDER, "by": BY, "limit": LIMIT,
	"and": AND, "or": OR, "in": IN, "asc": ASC, "desc": DESC,
	"avg": AVG, "max": MAX, "min": MIN, "count": COUNT,
}

// Token is one lexical unit plus its byte offset in the source query, used
// to render a caret under a syntax error.
type Token struct {
	Type  Type
	Value string
	Pos   int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Type, t.Value, t.Pos)
}
