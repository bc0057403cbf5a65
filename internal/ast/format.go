package ast

import (
	"strconv"
	"strings"
)

// Format renders s in canonical form, one command per line. Parsing the
// result yields a script Equal to s.
func Format(s *Script) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range s.Commands {
		b.WriteString(c.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// String renders the command in canonical form.
func (c *Command) String() string {
	var b strings.Builder
	b.WriteString(c.Verb)
	if c.Noun != "" {
		b.WriteByte(' ')
		b.WriteString(c.Noun)
	}

	switch c.Verb {
	case "load":
		writeArgs(&b, c.Args)
		writeAs(&b, c.As)
		writeParams(&b, c.Params)
	case "train", "evaluate", "save":
		// <verb> model N on|to X
		joiner := "on"
		if c.Verb == "save" {
			joiner = "to"
		}
		for i, arg := range c.Args {
			if i == 1 {
				b.WriteByte(' ')
				b.WriteString(joiner)
			}
			b.WriteByte(' ')
			b.WriteString(ExprString(arg))
		}
		if c.Verb == "train" && len(c.Params) > 0 {
			b.WriteString(" with")
		}
		writeParams(&b, c.Params)
		writeAs(&b, c.As)
	default:
		writeArgs(&b, c.Args)
		writeParams(&b, c.Params)
		writeAs(&b, c.As)
	}

	if c.Verb == "create" && c.Noun == "model" {
		b.WriteString(" {\n")
		for _, l := range c.Layers {
			b.WriteString("    layer ")
			b.WriteString(l.Kind)
			writeParams(&b, l.Params)
			b.WriteByte('\n')
		}
		b.WriteByte('}')
	}
	return b.String()
}

func writeArgs(b *strings.Builder, args []Expr) {
	for _, arg := range args {
		b.WriteByte(' ')
		b.WriteString(ExprString(arg))
	}
}

func writeParams(b *strings.Builder, params []*Param) {
	for _, p := range params {
		b.WriteByte(' ')
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(ExprString(p.Value))
	}
}

func writeAs(b *strings.Builder, name string) {
	if name != "" {
		b.WriteString(" as ")
		b.WriteString(name)
	}
}

var quoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)

// Operator precedence: higher binds tighter.
func precedence(op string) int {
	switch op {
	case "+", "-":
		return 1
	case "*", "/":
		return 2
	}
	return 0
}

// ExprString renders an expression with the minimum parentheses needed to
// preserve its structure.
func ExprString(e Expr) string {
	var b strings.Builder
	writeExpr(&b, e)
	return b.String()
}

func writeExpr(b *strings.Builder, e Expr) {
	switch x := e.(type) {
	case *Literal:
		switch x.Kind {
		case Number:
			b.WriteString(strconv.FormatFloat(x.Num, 'g', -1, 64))
		case String:
			b.WriteByte('"')
			b.WriteString(quoter.Replace(x.Str))
			b.WriteByte('"')
		case Bool:
			b.WriteString(strconv.FormatBool(x.Bool))
		}
	case *Ident:
		b.WriteString(x.Name)
	case *Unary:
		b.WriteString(x.Op)
		if _, ok := x.X.(*Binary); ok {
			b.WriteByte('(')
			writeExpr(b, x.X)
			b.WriteByte(')')
		} else {
			writeExpr(b, x.X)
		}
	case *Binary:
		p := precedence(x.Op)
		writeOperand(b, x.Left, p, false)
		b.WriteByte(' ')
		b.WriteString(x.Op)
		b.WriteByte(' ')
		writeOperand(b, x.Right, p, true)
	case *Call:
		b.WriteString(x.Fn)
		b.WriteByte('(')
		writeList(b, x.Args)
		b.WriteByte(')')
	case *List:
		b.WriteByte('[')
		writeList(b, x.Elems)
		b.WriteByte(']')
	}
}

// writeOperand parenthesizes binary operands that bind looser than their
// parent, and right operands of equal precedence (operators associate left).
func writeOperand(b *strings.Builder, e Expr, parent int, right bool) {
	if bin, ok := e.(*Binary); ok {
		p := precedence(bin.Op)
		if p < parent || (right && p == parent) {
			b.WriteByte('(')
			writeExpr(b, e)
			b.WriteByte(')')
			return
		}
	}
	writeExpr(b, e)
}

func writeList(b *strings.Builder, elems []Expr) {
	for i, e := range elems {
		if i > 0 {
			b.WriteString(", ")
		}
		writeExpr(b, e)
	}
}
