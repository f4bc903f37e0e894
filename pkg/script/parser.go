package script

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrIncomplete reports that the input ends in the middle of a construct
// that could still become valid with more text. Streaming callers treat
// it as "keep buffering"; strict callers treat it as a truncated script.
var ErrIncomplete = errors.New("incomplete script")

// Parser converts Action Script source into a Program.
type Parser struct{}

// NewParser creates a parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse parses src. The returned Program is always non-nil and carries
// the statements completed so far plus every call target seen, even when
// err is non-nil. err is nil for a complete program, ErrIncomplete when
// the tail is cut off, and a descriptive error on a definite syntax
// violation.
func (p *Parser) Parse(src string) (*Program, error) {
	r := &run{lex: newLexer(src), prog: &Program{}}
	if err := r.advance(); err != nil {
		return r.prog, err
	}

	for {
		if err := r.skipSeparators(); err != nil {
			return r.prog, err
		}
		if r.tok.kind == tokEOF {
			return r.prog, nil
		}

		call, err := r.parseStatement()
		if err != nil {
			return r.prog, err
		}
		r.prog.Statements = append(r.prog.Statements, call)

		switch r.tok.kind {
		case tokNewline, tokSemi, tokEOF:
		default:
			return r.prog, r.failExpect("statement separator")
		}
	}
}

type run struct {
	lex  *lexer
	prog *Program
	tok  token
}

func (r *run) advance() error {
	t, err := r.lex.next()
	if err != nil {
		return err
	}
	r.tok = t
	return nil
}

// skipSeparators consumes newlines and semicolons between statements.
func (r *run) skipSeparators() error {
	for r.tok.kind == tokNewline || r.tok.kind == tokSemi {
		if err := r.advance(); err != nil {
			return err
		}
	}
	return nil
}

// skipNewlines consumes newlines inside bracketed contexts, where they
// are not significant.
func (r *run) skipNewlines() error {
	for r.tok.kind == tokNewline {
		if err := r.advance(); err != nil {
			return err
		}
	}
	return nil
}

// failExpect builds the error for an unexpected token. End of input is
// never definite: the missing piece may arrive with the next token.
func (r *run) failExpect(want string) error {
	if r.tok.kind == tokEOF {
		return ErrIncomplete
	}
	return fmt.Errorf("expected %s, found %q at offset %d", want, r.tok.text, r.tok.pos)
}

func (r *run) parseStatement() (*Call, error) {
	if r.tok.kind != tokIdent {
		return nil, r.failExpect("capability call")
	}
	name := r.tok.text
	pos := r.tok.pos
	if err := r.advance(); err != nil {
		return nil, err
	}
	if r.tok.kind != tokLParen {
		return nil, r.failExpect(fmt.Sprintf("'(' after %q", name))
	}
	return r.parseCallBody(name, pos)
}

// parseCallBody parses the argument list. The call is recorded in
// prog.Calls before the arguments are parsed, so the allow-list check
// can fire as soon as the target name is known.
func (r *run) parseCallBody(name string, pos int) (*Call, error) {
	call := &Call{Name: name, Pos: pos}
	r.prog.Calls = append(r.prog.Calls, call)

	if err := r.advance(); err != nil { // consume '('
		return nil, err
	}
	if err := r.skipNewlines(); err != nil {
		return nil, err
	}
	if r.tok.kind == tokRParen {
		return call, r.advance()
	}

	for {
		arg, err := r.parseArg()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		if err := r.skipNewlines(); err != nil {
			return nil, err
		}
		switch r.tok.kind {
		case tokComma:
			if err := r.advance(); err != nil {
				return nil, err
			}
			if err := r.skipNewlines(); err != nil {
				return nil, err
			}
			if r.tok.kind == tokRParen { // trailing comma
				return call, r.advance()
			}
		case tokRParen:
			return call, r.advance()
		default:
			return nil, r.failExpect("',' or ')'")
		}
	}
}

func (r *run) parseArg() (Arg, error) {
	if r.tok.kind == tokIdent {
		name := r.tok.text
		pos := r.tok.pos
		if err := r.advance(); err != nil {
			return Arg{}, err
		}
		if r.tok.kind == tokAssign {
			if err := r.advance(); err != nil {
				return Arg{}, err
			}
			if err := r.skipNewlines(); err != nil {
				return Arg{}, err
			}
			value, err := r.parseExpr()
			if err != nil {
				return Arg{}, err
			}
			return Arg{Name: name, Value: value}, nil
		}
		// Not a named argument: the identifier starts an expression.
		value, err := r.parseIdentExpr(name, pos)
		if err != nil {
			return Arg{}, err
		}
		return Arg{Value: value}, nil
	}

	value, err := r.parseExpr()
	if err != nil {
		return Arg{}, err
	}
	return Arg{Value: value}, nil
}

func (r *run) parseExpr() (Expr, error) {
	switch r.tok.kind {
	case tokString:
		lit := &StringLit{Value: r.tok.text}
		return lit, r.advance()
	case tokNumber:
		lit, err := parseNumber(r.tok.text)
		if err != nil {
			return nil, fmt.Errorf("%s at offset %d", err, r.tok.pos)
		}
		return lit, r.advance()
	case tokIdent:
		name := r.tok.text
		pos := r.tok.pos
		if err := r.advance(); err != nil {
			return nil, err
		}
		return r.parseIdentExpr(name, pos)
	case tokLBracket:
		return r.parseList()
	case tokLBrace:
		return r.parseMap()
	default:
		return nil, r.failExpect("expression")
	}
}

// parseIdentExpr resolves an identifier whose token has already been
// consumed: a keyword literal or a nested capability call.
func (r *run) parseIdentExpr(name string, pos int) (Expr, error) {
	switch name {
	case "true", "True":
		return &BoolLit{Value: true}, nil
	case "false", "False":
		return &BoolLit{Value: false}, nil
	case "None", "null":
		return &NullLit{}, nil
	}
	if r.tok.kind == tokLParen {
		return r.parseCallBody(name, pos)
	}
	if r.tok.kind == tokEOF {
		// "foo" may still become "foo(" with the next token.
		return nil, ErrIncomplete
	}
	return nil, fmt.Errorf("bare identifier %q is not a valid expression at offset %d", name, pos)
}

func (r *run) parseList() (Expr, error) {
	list := &ListLit{}
	if err := r.advance(); err != nil { // consume '['
		return nil, err
	}
	if err := r.skipNewlines(); err != nil {
		return nil, err
	}
	if r.tok.kind == tokRBracket {
		return list, r.advance()
	}

	for {
		item, err := r.parseExpr()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)

		if err := r.skipNewlines(); err != nil {
			return nil, err
		}
		switch r.tok.kind {
		case tokComma:
			if err := r.advance(); err != nil {
				return nil, err
			}
			if err := r.skipNewlines(); err != nil {
				return nil, err
			}
			if r.tok.kind == tokRBracket {
				return list, r.advance()
			}
		case tokRBracket:
			return list, r.advance()
		default:
			return nil, r.failExpect("',' or ']'")
		}
	}
}

func (r *run) parseMap() (Expr, error) {
	m := &MapLit{}
	if err := r.advance(); err != nil { // consume '{'
		return nil, err
	}
	if err := r.skipNewlines(); err != nil {
		return nil, err
	}
	if r.tok.kind == tokRBrace {
		return m, r.advance()
	}

	for {
		key, err := r.parseExpr()
		if err != nil {
			return nil, err
		}
		if r.tok.kind != tokColon {
			return nil, r.failExpect("':'")
		}
		if err := r.advance(); err != nil {
			return nil, err
		}
		if err := r.skipNewlines(); err != nil {
			return nil, err
		}
		value, err := r.parseExpr()
		if err != nil {
			return nil, err
		}
		m.Entries = append(m.Entries, MapEntry{Key: key, Value: value})

		if err := r.skipNewlines(); err != nil {
			return nil, err
		}
		switch r.tok.kind {
		case tokComma:
			if err := r.advance(); err != nil {
				return nil, err
			}
			if err := r.skipNewlines(); err != nil {
				return nil, err
			}
			if r.tok.kind == tokRBrace {
				return m, r.advance()
			}
		case tokRBrace:
			return m, r.advance()
		default:
			return nil, r.failExpect("',' or '}'")
		}
	}
}

func parseNumber(text string) (*NumberLit, error) {
	if strings.Contains(text, ".") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed number %q", text)
		}
		return &NumberLit{Float: f}, nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed number %q", text)
	}
	return &NumberLit{IsInt: true, Int: i}, nil
}
