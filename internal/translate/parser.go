package translate

import (
	"fmt"
	"strings"

	"github.com/x2s-labs/x2s/pkg/ir"
)

// Operator precedence levels, lowest first.
const (
	precLowest = iota
	precOr
	precAnd
	precNot
	precCompare // = != < > <= >= IN LIKE IS
	precAdd     // + - ||
	precMul     // * / %
	precUnary
)

// niladicKeywords are bare identifiers that are SQL expressions in
// their own right and must not be quoted as column references.
var niladicKeywords = map[string]bool{
	"CURRENT_DATE":         true,
	"CURRENT_TIME":         true,
	"CURRENT_TIMESTAMP":    true,
	"CURRENT_UTCDATE":      true,
	"CURRENT_UTCTIMESTAMP": true,
	"SYSUUID":              true,
}

var precedences = map[TokenType]int{
	TOKEN_OR:      precOr,
	TOKEN_AND:     precAnd,
	TOKEN_EQ:      precCompare,
	TOKEN_NE:      precCompare,
	TOKEN_LT:      precCompare,
	TOKEN_GT:      precCompare,
	TOKEN_LE:      precCompare,
	TOKEN_GE:      precCompare,
	TOKEN_IN:      precCompare,
	TOKEN_LIKE:    precCompare,
	TOKEN_IS:      precCompare,
	TOKEN_PLUS:    precAdd,
	TOKEN_MINUS:   precAdd,
	TOKEN_DPIPE:   precAdd,
	TOKEN_STAR:    precMul,
	TOKEN_SLASH:   precMul,
	TOKEN_PERCENT: precMul,
}

// Parser builds an expression tree from formula tokens.
type Parser struct {
	lexer *Lexer
	cur   Token
	peek  Token
}

// NewParser creates a parser over the given formula text.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	p.next()
	p.next()
	return p
}

// ParseFormula parses a complete formula into an expression tree.
func ParseFormula(input string) (*ir.Expression, error) {
	p := NewParser(input)
	expr, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	if p.cur.Type != TOKEN_EOF {
		return nil, &FormulaError{
			Formula: input,
			Pos:     p.cur.Pos,
			Message: fmt.Sprintf("unexpected %q after expression", p.cur.Literal),
		}
	}
	return expr, nil
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) parseExpression(minPrec int) (*ir.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		prec, ok := precedences[p.cur.Type]
		if !ok || prec <= minPrec {
			return left, nil
		}

		switch p.cur.Type {
		case TOKEN_IS:
			left, err = p.parseIsNull(left)
		case TOKEN_IN:
			left, err = p.parseInList(left)
		default:
			op := p.cur
			p.next()
			var right *ir.Expression
			right, err = p.parseExpression(prec)
			if err != nil {
				return nil, err
			}
			left = ir.Op(operatorSymbol(op), left, right)
		}
		if err != nil {
			return nil, err
		}
	}
}

func (p *Parser) parseUnary() (*ir.Expression, error) {
	switch p.cur.Type {
	case TOKEN_NOT:
		p.next()
		arg, err := p.parseExpression(precNot)
		if err != nil {
			return nil, err
		}
		return &ir.Expression{Kind: ir.ExprOperator, Value: "NOT", Args: []*ir.Expression{arg}}, nil
	case TOKEN_MINUS:
		p.next()
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ir.Expression{Kind: ir.ExprOperator, Value: "NEG", Args: []*ir.Expression{arg}}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (*ir.Expression, error) {
	switch p.cur.Type {
	case TOKEN_NUMBER:
		lit := ir.Lit(p.cur.Literal)
		p.next()
		return lit, nil

	case TOKEN_STRING:
		// Keep the quotes: quoted source literals stay quoted in the
		// output even when they look numeric, so values like '007'
		// never lose their leading zeros.
		lit := ir.Lit("'" + strings.ReplaceAll(p.cur.Literal, "'", "''") + "'")
		p.next()
		return lit, nil

	case TOKEN_NULL:
		p.next()
		return ir.Lit("NULL"), nil
	case TOKEN_TRUE:
		p.next()
		return ir.Lit("TRUE"), nil
	case TOKEN_FALSE:
		p.next()
		return ir.Lit("FALSE"), nil

	case TOKEN_LPAREN:
		p.next()
		expr, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		if p.cur.Type != TOKEN_RPAREN {
			return nil, p.errorf("expected ')', got %q", p.cur.Literal)
		}
		p.next()
		return expr, nil

	case TOKEN_IDENT:
		name := p.cur.Literal
		quoted := p.cur.Quoted
		if p.peek.Type == TOKEN_LPAREN && !quoted {
			return p.parseCall(name)
		}
		p.next()
		if !quoted {
			if upper := strings.ToUpper(name); niladicKeywords[upper] {
				return ir.Raw(upper), nil
			}
		}
		return ir.Col(name), nil

	case TOKEN_IN:
		// function-style IN(col, v1, v2) at expression start
		if p.peek.Type == TOKEN_LPAREN {
			return p.parseCall("IN")
		}
		return nil, p.errorf("unexpected IN")

	default:
		return nil, p.errorf("unexpected %q", p.cur.Literal)
	}
}

func (p *Parser) parseCall(name string) (*ir.Expression, error) {
	p.next() // onto '('
	p.next() // past '('

	var args []*ir.Expression
	if p.cur.Type != TOKEN_RPAREN {
		for {
			arg, err := p.parseExpression(precLowest)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur.Type != TOKEN_COMMA {
				break
			}
			p.next()
		}
	}
	if p.cur.Type != TOKEN_RPAREN {
		return nil, p.errorf("expected ')' closing %s(), got %q", name, p.cur.Literal)
	}
	p.next()
	return ir.Fn(name, args...), nil
}

// parseIsNull handles the postfix IS [NOT] NULL test.
func (p *Parser) parseIsNull(left *ir.Expression) (*ir.Expression, error) {
	p.next() // past IS
	negated := false
	if p.cur.Type == TOKEN_NOT {
		negated = true
		p.next()
	}
	if p.cur.Type != TOKEN_NULL {
		return nil, p.errorf("expected NULL after IS, got %q", p.cur.Literal)
	}
	p.next()
	op := "IS NULL"
	if negated {
		op = "IS NOT NULL"
	}
	return &ir.Expression{Kind: ir.ExprOperator, Value: op, Args: []*ir.Expression{left}}, nil
}

// parseInList handles operator-style membership: expr IN (v1, v2).
// The result is the same function node the catalog's in_list handler
// matches, so both spellings translate identically.
func (p *Parser) parseInList(left *ir.Expression) (*ir.Expression, error) {
	p.next() // past IN
	if p.cur.Type != TOKEN_LPAREN {
		return nil, p.errorf("expected '(' after IN, got %q", p.cur.Literal)
	}
	p.next()

	args := []*ir.Expression{left}
	for {
		arg, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur.Type != TOKEN_COMMA {
			break
		}
		p.next()
	}
	if p.cur.Type != TOKEN_RPAREN {
		return nil, p.errorf("expected ')' closing IN list, got %q", p.cur.Literal)
	}
	p.next()
	return ir.Fn("IN", args...), nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return &FormulaError{
		Formula: p.lexer.input,
		Pos:     p.cur.Pos,
		Message: fmt.Sprintf(format, args...),
	}
}

func operatorSymbol(tok Token) string {
	switch tok.Type {
	case TOKEN_AND:
		return "AND"
	case TOKEN_OR:
		return "OR"
	case TOKEN_LIKE:
		return "LIKE"
	default:
		return tok.Literal
	}
}
