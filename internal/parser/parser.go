// Package parser builds an ast.Script from pipeline script text.
//
// The parser is a recursive descent over the lexer's tokens. Every statement
// starts with a keyword and runs until the next keyword or the end of input.
// The first error aborts parsing; there is no recovery.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/luma-ml/luma/internal/ast"
	"github.com/luma-ml/luma/internal/lexer"
)

// ParseError reports a token that does not fit the grammar.
type ParseError struct {
	Expected string
	Found    lexer.Token
	Pos      lexer.Pos
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("ParseError at %s: expected %s, found %s", e.Pos, e.Expected, e.Found)
}

// Parse lexes and parses src. Lexer errors are returned unchanged.
func Parse(src string) (*ast.Script, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return ParseTokens(toks)
}

// ParseTokens parses a token slice. A missing trailing EOF token is implied.
func ParseTokens(toks []lexer.Token) (*ast.Script, error) {
	if len(toks) == 0 || toks[len(toks)-1].Kind != lexer.EOF {
		var end lexer.Pos
		if len(toks) > 0 {
			end = toks[len(toks)-1].Pos
		}
		toks = append(toks[:len(toks):len(toks)], lexer.Token{Kind: lexer.EOF, Pos: end})
	}
	p := &parser{toks: toks}
	return p.script()
}

type parser struct {
	toks []lexer.Token
	i    int
}

func (p *parser) peek() lexer.Token { return p.peekN(0) }

func (p *parser) peekN(n int) lexer.Token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) next() lexer.Token {
	tok := p.peek()
	if tok.Kind != lexer.EOF {
		p.i++
	}
	return tok
}

func (p *parser) errorf(expected string, args ...any) error {
	tok := p.peek()
	return &ParseError{Expected: fmt.Sprintf(expected, args...), Found: tok, Pos: tok.Pos}
}

// is reports whether the next token has the given kind and text.
func (p *parser) is(kind lexer.Kind, text string) bool {
	return p.peek().Is(kind, text)
}

func (p *parser) match(kind lexer.Kind, text string) bool {
	if p.is(kind, text) {
		p.i++
		return true
	}
	return false
}

func (p *parser) need(kind lexer.Kind, text string) (lexer.Token, error) {
	if !p.is(kind, text) {
		return lexer.Token{}, p.errorf("%q", text)
	}
	return p.next(), nil
}

// word consumes a contextual word such as "dataset" or "on".
func (p *parser) word(w string) error {
	if !p.is(lexer.Ident, w) {
		return p.errorf("%q", w)
	}
	p.next()
	return nil
}

func (p *parser) ident(what string) (*ast.Ident, error) {
	tok := p.peek()
	if tok.Kind != lexer.Ident {
		return nil, p.errorf("%s", what)
	}
	p.next()
	return &ast.Ident{Pos: tok.Pos, Name: tok.Text}, nil
}

func (p *parser) str(what string) (*ast.Literal, error) {
	tok := p.peek()
	if tok.Kind != lexer.String {
		return nil, p.errorf("%s", what)
	}
	p.next()
	return &ast.Literal{Pos: tok.Pos, Kind: ast.String, Str: tok.Text}, nil
}

// atStatementEnd reports whether the current statement has no more tokens.
// A keyword followed by '=' is a parameter key such as train=NAME, not the
// start of the next command.
func (p *parser) atStatementEnd() bool {
	switch p.peek().Kind {
	case lexer.EOF:
		return true
	case lexer.Keyword:
		return !p.atParam()
	}
	return false
}

// atParam reports whether the next tokens are KEY '=', where KEY is an
// identifier or a keyword.
func (p *parser) atParam() bool {
	k := p.peek().Kind
	return (k == lexer.Ident || k == lexer.Keyword) && p.peekN(1).Is(lexer.Operator, "=")
}

func (p *parser) script() (*ast.Script, error) {
	s := &ast.Script{}
	for p.peek().Kind != lexer.EOF {
		cmd, err := p.command()
		if err != nil {
			return nil, err
		}
		s.Commands = append(s.Commands, cmd)
	}
	return s, nil
}

func (p *parser) command() (*ast.Command, error) {
	tok := p.peek()
	if tok.Kind != lexer.Keyword {
		return nil, p.errorf("command keyword")
	}
	p.next()
	cmd := &ast.Command{Pos: tok.Pos, Verb: tok.Text}

	var err error
	switch tok.Text {
	case "load":
		err = p.load(cmd)
	case "create":
		err = p.create(cmd)
	case "preprocess", "augment":
		err = p.transform(cmd)
	case "split", "visualize":
		err = p.nameThenParams(cmd, false)
	case "train", "evaluate", "save":
		err = p.modelCommand(cmd)
	case "print":
		var e ast.Expr
		if e, err = p.expr(); err == nil {
			cmd.Args = []ast.Expr{e}
		}
	case "list":
	case "clear":
		if p.peek().Kind == lexer.Ident {
			id, _ := p.ident("name")
			cmd.Args = []ast.Expr{id}
		}
	default:
		// exit and help are session commands handled before parsing.
		return nil, &ParseError{Expected: "pipeline command", Found: tok, Pos: tok.Pos}
	}
	if err != nil {
		return nil, err
	}
	if !p.atStatementEnd() {
		if cmd.Params != nil || p.peek().Kind == lexer.Ident {
			return nil, p.errorf("parameter or end of statement")
		}
		return nil, p.errorf("end of statement")
	}
	return cmd, nil
}

// load dataset STRING as IDENT params
func (p *parser) load(cmd *ast.Command) error {
	if err := p.word("dataset"); err != nil {
		return err
	}
	cmd.Noun = "dataset"
	path, err := p.str("dataset path string")
	if err != nil {
		return err
	}
	cmd.Args = []ast.Expr{path}
	if err := p.params(cmd, true); err != nil {
		return err
	}
	if cmd.As == "" {
		return p.errorf(`"as"`)
	}
	return nil
}

// create model IDENT params '{' layer* '}'
// create tensor IDENT params
func (p *parser) create(cmd *ast.Command) error {
	switch {
	case p.is(lexer.Ident, "model"):
		p.next()
		cmd.Noun = "model"
		name, err := p.ident("model name")
		if err != nil {
			return err
		}
		cmd.Args = []ast.Expr{name}
		if err := p.params(cmd, false); err != nil {
			return err
		}
		if _, err := p.need(lexer.Punct, "{"); err != nil {
			return err
		}
		for p.is(lexer.Ident, "layer") {
			layer, err := p.layer()
			if err != nil {
				return err
			}
			cmd.Layers = append(cmd.Layers, layer)
		}
		if !p.is(lexer.Punct, "}") {
			return p.errorf(`"layer" or "}"`)
		}
		p.next()
		return nil
	case p.is(lexer.Ident, "tensor"):
		p.next()
		cmd.Noun = "tensor"
		return p.nameThenParams(cmd, false)
	}
	return p.errorf(`"model" or "tensor"`)
}

// layer IDENT params
func (p *parser) layer() (*ast.Layer, error) {
	tok := p.next() // "layer"
	kind, err := p.ident("layer kind")
	if err != nil {
		return nil, err
	}
	layer := &ast.Layer{Pos: tok.Pos, Kind: kind.Name}
	seen := map[string]bool{}
	for p.atParam() {
		param, err := p.param(seen)
		if err != nil {
			return nil, err
		}
		layer.Params = append(layer.Params, param)
	}
	return layer, nil
}

// preprocess|augment IDENT params [as IDENT]
func (p *parser) transform(cmd *ast.Command) error {
	return p.nameThenParams(cmd, true)
}

// nameThenParams parses IDENT params, with an optional "as" clause.
func (p *parser) nameThenParams(cmd *ast.Command, allowAs bool) error {
	name, err := p.ident("name")
	if err != nil {
		return err
	}
	cmd.Args = []ast.Expr{name}
	return p.params(cmd, allowAs)
}

// train    model IDENT on IDENT [with] params
// evaluate model IDENT on IDENT params [as IDENT]
// save     model IDENT to STRING params
func (p *parser) modelCommand(cmd *ast.Command) error {
	if err := p.word("model"); err != nil {
		return err
	}
	cmd.Noun = "model"
	name, err := p.ident("model name")
	if err != nil {
		return err
	}

	var target ast.Expr
	if cmd.Verb == "save" {
		if err := p.word("to"); err != nil {
			return err
		}
		if target, err = p.str("output path string"); err != nil {
			return err
		}
	} else {
		if err := p.word("on"); err != nil {
			return err
		}
		if target, err = p.ident("dataset name"); err != nil {
			return err
		}
	}
	cmd.Args = []ast.Expr{name, target}

	if cmd.Verb == "train" && p.is(lexer.Ident, "with") && !p.atParam() {
		p.next()
	}
	return p.params(cmd, cmd.Verb == "evaluate")
}

// params parses key=value pairs, and a single "as IDENT" clause when allowAs.
// Once a parameter has been read, any other token ends the section.
func (p *parser) params(cmd *ast.Command, allowAs bool) error {
	seen := map[string]bool{}
	for {
		switch {
		case p.atParam():
			param, err := p.param(seen)
			if err != nil {
				return err
			}
			cmd.Params = append(cmd.Params, param)
		case allowAs && cmd.As == "" && p.is(lexer.Ident, "as"):
			p.next()
			id, err := p.ident("name after \"as\"")
			if err != nil {
				return err
			}
			cmd.As = id.Name
		default:
			return nil
		}
	}
}

// param := IDENT '=' expr
func (p *parser) param(seen map[string]bool) (*ast.Param, error) {
	key := p.next()
	if seen[key.Text] {
		return nil, &ParseError{Expected: "unique parameter name", Found: key, Pos: key.Pos}
	}
	seen[key.Text] = true
	p.next() // '='
	value, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &ast.Param{Pos: key.Pos, Key: key.Text, Value: value}, nil
}

// expr := term (('+'|'-') term)*
func (p *parser) expr() (ast.Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.is(lexer.Operator, "+") || p.is(lexer.Operator, "-") {
		op := p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Pos: op.Pos, Op: op.Text, Left: left, Right: right}
	}
	return left, nil
}

// term := unary (('*'|'/') unary)*
func (p *parser) term() (ast.Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.is(lexer.Operator, "*") || p.is(lexer.Operator, "/") {
		op := p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Pos: op.Pos, Op: op.Text, Left: left, Right: right}
	}
	return left, nil
}

// unary := '-' unary | primary
func (p *parser) unary() (ast.Expr, error) {
	if p.is(lexer.Operator, "-") {
		op := p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Pos: op.Pos, Op: "-", X: x}, nil
	}
	return p.primary()
}

// primary := NUMBER | STRING | IDENT | IDENT '(' [exprs] ')' | '[' [exprs] ']' | '(' expr ')'
func (p *parser) primary() (ast.Expr, error) {
	tok := p.peek()
	switch tok.Kind {
	case lexer.Number:
		p.next()
		v, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, &ParseError{Expected: "finite number", Found: tok, Pos: tok.Pos}
		}
		return &ast.Literal{Pos: tok.Pos, Kind: ast.Number, Num: v}, nil

	case lexer.String:
		p.next()
		return &ast.Literal{Pos: tok.Pos, Kind: ast.String, Str: tok.Text}, nil

	case lexer.Ident:
		p.next()
		if p.is(lexer.Punct, "(") {
			p.next()
			args, err := p.exprList(")")
			if err != nil {
				return nil, err
			}
			return &ast.Call{Pos: tok.Pos, Fn: tok.Text, Args: args}, nil
		}
		switch strings.ToLower(tok.Text) {
		case "true":
			return &ast.Literal{Pos: tok.Pos, Kind: ast.Bool, Bool: true}, nil
		case "false":
			return &ast.Literal{Pos: tok.Pos, Kind: ast.Bool, Bool: false}, nil
		}
		return &ast.Ident{Pos: tok.Pos, Name: tok.Text}, nil

	case lexer.Punct:
		switch tok.Text {
		case "[":
			p.next()
			elems, err := p.exprList("]")
			if err != nil {
				return nil, err
			}
			return &ast.List{Pos: tok.Pos, Elems: elems}, nil
		case "(":
			p.next()
			e, err := p.expr()
			if err != nil {
				return nil, err
			}
			if _, err := p.need(lexer.Punct, ")"); err != nil {
				return nil, err
			}
			return e, nil
		}
	}
	return nil, p.errorf("expression")
}

// exprList parses [expr (',' expr)*] close. The opening bracket has been
// consumed.
func (p *parser) exprList(closer string) ([]ast.Expr, error) {
	var out []ast.Expr
	if p.match(lexer.Punct, closer) {
		return out, nil
	}
	for {
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if p.match(lexer.Punct, closer) {
			return out, nil
		}
		if !p.match(lexer.Punct, ",") {
			return nil, p.errorf(`"," or %q`, closer)
		}
	}
}
