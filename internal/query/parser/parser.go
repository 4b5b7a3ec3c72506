// Package parser implements a recursive descent parser over the token
// stream from package token, producing the typed query tree of package
// ast. The parser builds a plain data tree that package exec walks
// directly; no host code is ever compiled or evaluated against a row.
package parser

import (
	"strconv"

	"github.com/mimecast/logrok/internal/errs"
	"github.com/mimecast/logrok/internal/query/ast"
	"github.com/mimecast/logrok/internal/query/token"
)

// Parse tokenises and parses a full query string into a Statement.
func Parse(query string) (*ast.Statement, error) {
	toks, err := token.Tokenize(query)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, raw: query}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, p.syntaxErrorAt(p.pos, "unexpected trailing input")
	}
	return stmt, nil
}

type parser struct {
	toks []token.Token
	pos  int
	raw  string
}

func (p *parser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() (token.Token, bool) {
	if p.atEnd() {
		return token.Token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) peekType() token.Type {
	if p.atEnd() {
		return token.EOF
	}
	return p.toks[p.pos].Type
}

func (p *parser) advance() token.Token {
	t := p.toks[p.pos]
	p.pos++
	return t
}

func (p *parser) accept(t token.Type) (token.Token, bool) {
	if p.peekType() == t {
		return p.advance(), true
	}
	return token.Token{}, false
}

func (p *parser) expect(t token.Type, what string) (token.Token, error) {
	if tok, ok := p.accept(t); ok {
		return tok, nil
	}
	if p.atEnd() {
		return token.Token{}, errs.NewNoTokenError(p.raw, "expected "+what+" but query ended")
	}
	tok, _ := p.peek()
	return token.Token{}, p.syntaxErrorAt(tok.Pos, "expected "+what)
}

func (p *parser) syntaxErrorAt(pos int, msg string) error {
	return errs.NewSyntaxError(p.raw, pos, msg)
}

// parseStatement implements:
//
//	statement := [SELECT] fields [FROM ident] [WHERE wherelist]
//	             [GROUP BY identlist] [ORDER BY identlist [ASC|DESC]]
//	             [LIMIT INT [, INT]]
func (p *parser) parseStatement() (*ast.Statement, error) {
	p.accept(token.SELECT)

	fields, err := p.parseFieldList()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errs.NewSemanticError("", "expected at least one field in select clause but got none")
	}

	stmt := &ast.Statement{Fields: fields, RawQuery: p.raw}

	if _, ok := p.accept(token.FROM); ok {
		ident, err := p.expect(token.IDENTIFIER, "table name after 'from'")
		if err != nil {
			return nil, err
		}
		stmt.From = ident.Value
	}

	if _, ok := p.accept(token.WHERE); ok {
		where, err := p.parseWhereList()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	if _, ok := p.accept(token.GROUP); ok {
		if _, err := p.expect(token.BY, "'by' after 'group'"); err != nil {
			return nil, err
		}
		groupBy, err := p.parseIdentList()
		if err != nil {
			return nil, err
		}
		stmt.GroupBy = groupBy
	}

	if _, ok := p.accept(token.ORDER); ok {
		if _, err := p.expect(token.BY, "'by' after 'order'"); err != nil {
			return nil, err
		}
		fields, err := p.parseIdentList()
		if err != nil {
			return nil, err
		}
		dir := ast.Asc
		if _, ok := p.accept(token.DESC); ok {
			dir = ast.Desc
		} else {
			p.accept(token.ASC)
		}
		stmt.OrderBy = &ast.OrderBy{Fields: fields, Direction: dir}
	}

	if _, ok := p.accept(token.LIMIT); ok {
		first, err := p.expect(token.INTEGER, "integer after 'limit'")
		if err != nil {
			return nil, err
		}
		n1, _ := strconv.Atoi(first.Value)
		if _, ok := p.accept(token.COMMA); ok {
			second, err := p.expect(token.INTEGER, "integer after ',' in 'limit'")
			if err != nil {
				return nil, err
			}
			n2, _ := strconv.Atoi(second.Value)
			stmt.Limit = &ast.Limit{Offset: n1, Count: n2}
		} else {
			stmt.Limit = &ast.Limit{Offset: 0, Count: n1}
		}
	}

	return stmt, nil
}

// parseFieldList implements `fields := field ("," field)*`.
func (p *parser) parseFieldList() ([]ast.Projection, error) {
	var fields []ast.Projection
	for {
		// Stop before any clause keyword or end of input.
		switch p.peekType() {
		case token.EOF, token.FROM, token.WHERE, token.GROUP, token.ORDER, token.LIMIT:
			return fields, nil
		}
		f, err := p.parseField()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
		if _, ok := p.accept(token.COMMA); !ok {
			return fields, nil
		}
	}
}

// parseField implements:
//
//	field    := STAR | IDENT | INT | STRING | function
//	function := IDENT "(" field ("," field)* ")"
func (p *parser) parseField() (ast.Projection, error) {
	tok, ok := p.peek()
	if !ok {
		return ast.Projection{}, errs.NewNoTokenError(p.raw, "expected a field")
	}

	switch tok.Type {
	case token.STAR:
		p.advance()
		return ast.Projection{Kind: ast.ProjStar}, nil
	case token.INTEGER:
		p.advance()
		n, _ := strconv.ParseInt(tok.Value, 10, 64)
		return ast.Projection{Kind: ast.ProjIntLit, IntVal: n}, nil
	case token.STRING:
		p.advance()
		return ast.Projection{Kind: ast.ProjStrLit, StrVal: tok.Value}, nil
	case token.IDENTIFIER, token.AVG, token.MAX, token.MIN, token.COUNT:
		p.advance()
		if _, ok := p.accept(token.LPAREN); ok {
			return p.parseFunctionCall(tok.Value)
		}
		return ast.Projection{Kind: ast.ProjField, Field: tok.Value}, nil
	default:
		return ast.Projection{}, p.syntaxErrorAt(tok.Pos, "expected a field")
	}
}

func (p *parser) parseFunctionCall(name string) (ast.Projection, error) {
	var args []ast.Projection
	if p.peekType() != token.RPAREN {
		for {
			arg, err := p.parseField()
			if err != nil {
				return ast.Projection{}, err
			}
			args = append(args, arg)
			if _, ok := p.accept(token.COMMA); !ok {
				break
			}
		}
	}
	if _, err := p.expect(token.RPAREN, "')' to close function call"); err != nil {
		return ast.Projection{}, err
	}
	return ast.Projection{Kind: ast.ProjFunc, FuncName: name, Args: args}, nil
}

// parseWhereList implements `wherelist := wherexpr ( (AND|OR) wherexpr )*`,
// left-associative with AND and OR at equal precedence.
func (p *parser) parseWhereList() (ast.Predicate, error) {
	left, err := p.parseWhereExpr()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peekType() {
		case token.AND:
			p.advance()
			right, err := p.parseWhereExpr()
			if err != nil {
				return nil, err
			}
			left = ast.And{Left: left, Right: right}
		case token.OR:
			p.advance()
			right, err := p.parseWhereExpr()
			if err != nil {
				return nil, err
			}
			left = ast.Or{Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

// parseWhereExpr implements:
//
//	wherexpr := whereval OPERATOR whereval
//	          | whereval IN "(" item ("," item)* ")"
//	          | whereval BETWEEN whereval AND whereval
//	          | "(" wherelist ")"
func (p *parser) parseWhereExpr() (ast.Predicate, error) {
	if _, ok := p.accept(token.LPAREN); ok {
		inner, err := p.parseWhereList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN, "')' to close grouped expression"); err != nil {
			return nil, err
		}
		return inner, nil
	}

	val, err := p.parseWhereVal()
	if err != nil {
		return nil, err
	}

	switch p.peekType() {
	case token.BETWEEN:
		p.advance()
		lo, err := p.parseWhereVal()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.AND, "'and' in 'between'"); err != nil {
			return nil, err
		}
		hi, err := p.parseWhereVal()
		if err != nil {
			return nil, err
		}
		return ast.Between{Val: val, Lo: lo, Hi: hi}, nil
	case token.IN:
		p.advance()
		if _, err := p.expect(token.LPAREN, "'(' after 'in'"); err != nil {
			return nil, err
		}
		var items []ast.Operand
		for {
			item, err := p.parseWhereVal()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			if _, ok := p.accept(token.COMMA); !ok {
				break
			}
		}
		if _, err := p.expect(token.RPAREN, "')' to close 'in' list"); err != nil {
			return nil, err
		}
		return ast.In{Val: val, Items: items}, nil
	case token.OPERATOR:
		opTok := p.advance()
		op, ok := ast.ParseCompareOp(opTok.Value)
		if !ok {
			return nil, p.syntaxErrorAt(opTok.Pos, "unknown operator "+opTok.Value)
		}
		right, err := p.parseWhereVal()
		if err != nil {
			return nil, err
		}
		return ast.Compare{Left: val, Right: right, Op: op}, nil
	default:
		if p.atEnd() {
			return nil, errs.NewNoTokenError(p.raw, "expected an operator, 'between' or 'in'")
		}
		tok, _ := p.peek()
		return nil, p.syntaxErrorAt(tok.Pos, "expected an operator, 'between' or 'in'")
	}
}

// parseWhereVal implements `whereval := IDENT | INT | STRING`.
func (p *parser) parseWhereVal() (ast.Operand, error) {
	tok, ok := p.peek()
	if !ok {
		return ast.Operand{}, errs.NewNoTokenError(p.raw, "expected a value")
	}
	switch tok.Type {
	case token.IDENTIFIER, token.AVG, token.MAX, token.MIN, token.COUNT:
		p.advance()
		return ast.FieldOperand(tok.Value), nil
	case token.INTEGER:
		p.advance()
		n, _ := strconv.ParseInt(tok.Value, 10, 64)
		return ast.IntOperand(n), nil
	case token.STRING:
		p.advance()
		return ast.StrOperand(tok.Value), nil
	default:
		return ast.Operand{}, p.syntaxErrorAt(tok.Pos, "expected an identifier, integer or string")
	}
}

// parseIdentList implements `identlist := IDENT ("," IDENT)*`, used for
// GROUP BY and ORDER BY.
func (p *parser) parseIdentList() ([]string, error) {
	first, err := p.expect(token.IDENTIFIER, "an identifier")
	if err != nil {
		return nil, err
	}
	idents := []string{first.Value}
	for {
		if _, ok := p.accept(token.COMMA); !ok {
			return idents, nil
		}
		next, err := p.expect(token.IDENTIFIER, "an identifier after ','")
		if err != nil {
			return nil, err
		}
		idents = append(idents, next.Value)
	}
}
