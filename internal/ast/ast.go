// Package ast declares the syntax tree of pipeline scripts.
//
// A Script is an ordered list of Commands. Commands carry a verb, the object
// noun for verbs that take one ("dataset", "model", "tensor"), positional
// arguments, named parameters, an optional "as" target and, for model
// definitions, a list of layers. Nodes are not modified after parsing.
package ast

import "github.com/luma-ml/luma/internal/lexer"

// Pos is a source position.
type Pos = lexer.Pos

// Expr is a value expression. The set of implementations is closed.
type Expr interface {
	Position() Pos
	exprNode()
}

// LitKind is the kind of a literal.
type LitKind int

const (
	Number LitKind = iota
	String
	Bool
)

// Literal is a number, string or boolean constant.
type Literal struct {
	Pos  Pos
	Kind LitKind
	Num  float64
	Str  string
	Bool bool
}

// Ident is a bare name.
type Ident struct {
	Pos  Pos
	Name string
}

// Unary is a prefix operation. Op is "-".
type Unary struct {
	Pos Pos
	Op  string
	X   Expr
}

// Binary is an infix arithmetic operation. Op is one of + - * /.
type Binary struct {
	Pos   Pos
	Op    string
	Left  Expr
	Right Expr
}

// Call applies a named function, e.g. noise(0.1).
type Call struct {
	Pos  Pos
	Fn   string
	Args []Expr
}

// List is a bracketed list, e.g. [1, 2, 3].
type List struct {
	Pos   Pos
	Elems []Expr
}

func (x *Literal) Position() Pos { return x.Pos }
func (x *Ident) Position() Pos   { return x.Pos }
func (x *Unary) Position() Pos   { return x.Pos }
func (x *Binary) Position() Pos  { return x.Pos }
func (x *Call) Position() Pos    { return x.Pos }
func (x *List) Position() Pos    { return x.Pos }

func (*Literal) exprNode() {}
func (*Ident) exprNode()   {}
func (*Unary) exprNode()   {}
func (*Binary) exprNode()  {}
func (*Call) exprNode()    {}
func (*List) exprNode()    {}

// NumberLit returns a number literal.
func NumberLit(v float64) *Literal { return &Literal{Kind: Number, Num: v} }

// StringLit returns a string literal.
func StringLit(s string) *Literal { return &Literal{Kind: String, Str: s} }

// BoolLit returns a boolean literal.
func BoolLit(b bool) *Literal { return &Literal{Kind: Bool, Bool: b} }

// Param is a key=value pair.
type Param struct {
	Pos   Pos
	Key   string
	Value Expr
}

// Layer is one "layer <kind> params" line of a model definition.
type Layer struct {
	Pos    Pos
	Kind   string
	Params []*Param
}

// Param returns the parameter named key, or nil.
func (l *Layer) Param(key string) *Param {
	return findParam(l.Params, key)
}

// Command is one top-level statement.
type Command struct {
	Pos    Pos
	Verb   string
	Noun   string // "dataset", "model", "tensor" or empty
	Args   []Expr
	Params []*Param // Keys are unique
	As     string
	Layers []*Layer
}

// Param returns the parameter named key, or nil.
func (c *Command) Param(key string) *Param {
	return findParam(c.Params, key)
}

// Arg returns the i-th positional argument, or nil.
func (c *Command) Arg(i int) Expr {
	if i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

func findParam(params []*Param, key string) *Param {
	for _, p := range params {
		if p.Key == key {
			return p
		}
	}
	return nil
}

// Script is a parsed program.
type Script struct {
	Commands []*Command
}
