package interp

import (
	"context"
	"fmt"

	"github.com/luma-ml/luma/internal/ast"
	"github.com/luma-ml/luma/internal/tensor"
)

// eval evaluates an expression. Tensor arithmetic is recorded on the
// evaluator's tape so that backward() can differentiate it within the same
// command.
func (ev *Evaluator) eval(ctx context.Context, e ast.Expr) (Value, error) {
	switch x := e.(type) {
	case *ast.Literal:
		switch x.Kind {
		case ast.String:
			return TextValue(x.Str), nil
		case ast.Bool:
			if x.Bool {
				return ScalarValue(1), nil
			}
			return ScalarValue(0), nil
		default:
			return ScalarValue(x.Num), nil
		}

	case *ast.Ident:
		v, ok := ev.env.Get(x.Name)
		if !ok {
			return nil, &NameError{Name: x.Name, Pos: x.Pos}
		}
		return v, nil

	case *ast.Unary:
		v, err := ev.eval(ctx, x.X)
		if err != nil {
			return nil, err
		}
		switch v := v.(type) {
		case ScalarValue:
			return -v, nil
		case *TensorValue:
			out, err := ev.tape.Scale(v.T, -1)
			if err != nil {
				return nil, err
			}
			return &TensorValue{T: out}, nil
		}
		return nil, &TypeError{Name: ast.ExprString(x.X), Want: "tensor or scalar", Got: KindOf(v), Pos: x.Pos}

	case *ast.Binary:
		l, err := ev.eval(ctx, x.Left)
		if err != nil {
			return nil, err
		}
		r, err := ev.eval(ctx, x.Right)
		if err != nil {
			return nil, err
		}
		return ev.arith(x, l, r)

	case *ast.List:
		t, err := ev.listTensor(ctx, x)
		if err != nil {
			return nil, err
		}
		return &TensorValue{T: t}, nil

	case *ast.Call:
		args := make([]Value, len(x.Args))
		for i, arg := range x.Args {
			v, err := ev.eval(ctx, arg)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return ev.call(x, args)
	}
	return nil, fmt.Errorf("unsupported expression %T", e)
}

func (ev *Evaluator) arith(x *ast.Binary, l, r Value) (Value, error) {
	ls, lok := l.(ScalarValue)
	rs, rok := r.(ScalarValue)
	if lok && rok {
		switch x.Op {
		case "+":
			return ls + rs, nil
		case "-":
			return ls - rs, nil
		case "*":
			return ls * rs, nil
		case "/":
			if rs == 0 {
				return nil, &tensor.NumericError{Op: "div", Msg: "division by zero"}
			}
			return ls / rs, nil
		}
	}

	if lt, ok := l.(TextValue); ok {
		if rt, ok := r.(TextValue); ok && x.Op == "+" {
			return lt + rt, nil
		}
	}

	a, err := operand(x.Left, l)
	if err != nil {
		return nil, err
	}
	b, err := operand(x.Right, r)
	if err != nil {
		return nil, err
	}

	var out *tensor.Tensor
	switch x.Op {
	case "+":
		out, err = ev.tape.Add(a, b)
	case "-":
		out, err = ev.tape.Sub(a, b)
	case "*":
		out, err = ev.tape.Mul(a, b)
	case "/":
		out, err = ev.tape.Div(a, b)
	default:
		return nil, fmt.Errorf("unknown operator %q", x.Op)
	}
	if err != nil {
		return nil, err
	}
	return &TensorValue{T: out}, nil
}

// operand converts a tensor or scalar to a tensor.
func operand(e ast.Expr, v Value) (*tensor.Tensor, error) {
	switch v := v.(type) {
	case *TensorValue:
		return v.T, nil
	case ScalarValue:
		return tensor.Scalar(float64(v)), nil
	}
	return nil, &TypeError{Name: ast.ExprString(e), Want: "tensor or scalar", Got: KindOf(v), Pos: e.Position()}
}

// listTensor builds a tensor from a (nested) list literal. Elements may be
// scalars, tensors or lists; siblings must have the same shape.
func (ev *Evaluator) listTensor(ctx context.Context, l *ast.List) (*tensor.Tensor, error) {
	values, shape, err := ev.listData(ctx, l)
	if err != nil {
		return nil, err
	}
	return tensor.New(values, shape)
}

func (ev *Evaluator) listData(ctx context.Context, e ast.Expr) ([]float64, tensor.Shape, error) {
	l, ok := e.(*ast.List)
	if !ok {
		v, err := ev.eval(ctx, e)
		if err != nil {
			return nil, nil, err
		}
		switch v := v.(type) {
		case ScalarValue:
			return []float64{float64(v)}, tensor.Shape{}, nil
		case *TensorValue:
			values := make([]float64, v.T.NumElements())
			copy(values, v.T.Data())
			return values, v.T.Shape().Clone(), nil
		}
		return nil, nil, &TypeError{Name: ast.ExprString(e), Want: "number", Got: KindOf(v), Pos: e.Position()}
	}

	if len(l.Elems) == 0 {
		return nil, nil, &ValueError{Msg: "empty list cannot form a tensor", Pos: l.Pos}
	}
	var (
		values []float64
		inner  tensor.Shape
	)
	for i, elem := range l.Elems {
		d, s, err := ev.listData(ctx, elem)
		if err != nil {
			return nil, nil, err
		}
		if i == 0 {
			inner = s
		} else if !s.Equal(inner) {
			return nil, nil, &ValueError{
				Msg: fmt.Sprintf("ragged list: element %d has shape %v, want %v", i, s, inner),
				Pos: elem.Position(),
			}
		}
		values = append(values, d...)
	}
	return values, append(tensor.Shape{len(l.Elems)}, inner...), nil
}
