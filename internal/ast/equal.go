package ast

// Equal reports whether a and b have the same structure. Positions are
// ignored.
func Equal(a, b *Script) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Commands) != len(b.Commands) {
		return false
	}
	for i := range a.Commands {
		if !EqualCommand(a.Commands[i], b.Commands[i]) {
			return false
		}
	}
	return true
}

// EqualCommand reports whether two commands have the same structure.
func EqualCommand(a, b *Command) bool {
	if a.Verb != b.Verb || a.Noun != b.Noun || a.As != b.As {
		return false
	}
	if !equalExprs(a.Args, b.Args) || !equalParams(a.Params, b.Params) {
		return false
	}
	if len(a.Layers) != len(b.Layers) {
		return false
	}
	for i := range a.Layers {
		if a.Layers[i].Kind != b.Layers[i].Kind || !equalParams(a.Layers[i].Params, b.Layers[i].Params) {
			return false
		}
	}
	return true
}

func equalParams(a, b []*Param) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key || !EqualExpr(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

func equalExprs(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !EqualExpr(a[i], b[i]) {
			return false
		}
	}
	return true
}

// EqualExpr reports whether two expressions have the same structure.
func EqualExpr(a, b Expr) bool {
	switch x := a.(type) {
	case *Literal:
		y, ok := b.(*Literal)
		return ok && x.Kind == y.Kind && x.Num == y.Num && x.Str == y.Str && x.Bool == y.Bool
	case *Ident:
		y, ok := b.(*Ident)
		return ok && x.Name == y.Name
	case *Unary:
		y, ok := b.(*Unary)
		return ok && x.Op == y.Op && EqualExpr(x.X, y.X)
	case *Binary:
		y, ok := b.(*Binary)
		return ok && x.Op == y.Op && EqualExpr(x.Left, y.Left) && EqualExpr(x.Right, y.Right)
	case *Call:
		y, ok := b.(*Call)
		return ok && x.Fn == y.Fn && equalExprs(x.Args, y.Args)
	case *List:
		y, ok := b.(*List)
		return ok && equalExprs(x.Elems, y.Elems)
	case nil:
		return b == nil
	}
	return false
}
