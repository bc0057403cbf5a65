package interp

import (
	"fmt"
	"sort"

	"github.com/luma-ml/luma/internal/ast"
	"github.com/luma-ml/luma/internal/autodiff"
	"github.com/luma-ml/luma/internal/tensor"
)

// builtin is a function callable from expressions.
type builtin struct {
	arity int
	fn    func(ev *Evaluator, call *ast.Call, args []Value) (Value, error)
}

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"sum":       unaryTensor((*autodiff.Tape).Sum),
		"mean":      unaryTensor((*autodiff.Tape).Mean),
		"relu":      unaryTensor((*autodiff.Tape).ReLU),
		"sigmoid":   unaryTensor((*autodiff.Tape).Sigmoid),
		"tanh":      unaryTensor((*autodiff.Tape).Tanh),
		"softmax":   unaryTensor((*autodiff.Tape).Softmax),
		"exp":       unaryTensor((*autodiff.Tape).Exp),
		"log":       unaryTensor((*autodiff.Tape).Log),
		"transpose": {arity: 1, fn: transposeBuiltin},
		"matmul":    {arity: 2, fn: matmulBuiltin},
		"shape":     {arity: 1, fn: shapeBuiltin},
		"grad":      {arity: 1, fn: gradBuiltin},
		"backward":  {arity: 1, fn: backwardBuiltin},
	}
}

// Builtins returns the names of the expression functions.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (ev *Evaluator) call(call *ast.Call, args []Value) (Value, error) {
	b, ok := builtins[call.Fn]
	if !ok {
		return nil, &NameError{Name: call.Fn, Pos: call.Pos}
	}
	if len(args) != b.arity {
		return nil, &ValueError{
			Param: call.Fn,
			Msg:   fmt.Sprintf("takes %d argument(s), got %d", b.arity, len(args)),
			Pos:   call.Pos,
		}
	}
	return b.fn(ev, call, args)
}

func unaryTensor(op func(*autodiff.Tape, *tensor.Tensor) (*tensor.Tensor, error)) builtin {
	return builtin{arity: 1, fn: func(ev *Evaluator, call *ast.Call, args []Value) (Value, error) {
		x, err := operand(call.Args[0], args[0])
		if err != nil {
			return nil, err
		}
		out, err := op(ev.tape, x)
		if err != nil {
			return nil, err
		}
		return &TensorValue{T: out}, nil
	}}
}

func transposeBuiltin(ev *Evaluator, call *ast.Call, args []Value) (Value, error) {
	x, err := operand(call.Args[0], args[0])
	if err != nil {
		return nil, err
	}
	if x.Rank() != 2 {
		return nil, &tensor.ShapeError{Op: "transpose", Shapes: []tensor.Shape{x.Shape()}, Msg: "want a 2-D tensor"}
	}
	out, err := ev.tape.Transpose(x)
	if err != nil {
		return nil, err
	}
	return &TensorValue{T: out}, nil
}

func matmulBuiltin(ev *Evaluator, call *ast.Call, args []Value) (Value, error) {
	a, err := operand(call.Args[0], args[0])
	if err != nil {
		return nil, err
	}
	b, err := operand(call.Args[1], args[1])
	if err != nil {
		return nil, err
	}
	out, err := ev.tape.MatMul(a, b)
	if err != nil {
		return nil, err
	}
	return &TensorValue{T: out}, nil
}

func shapeBuiltin(_ *Evaluator, call *ast.Call, args []Value) (Value, error) {
	switch v := args[0].(type) {
	case *TensorValue:
		return TextValue(v.T.Shape().String()), nil
	case ScalarValue:
		return TextValue(tensor.Shape{}.String()), nil
	case *DatasetValue:
		return TextValue(tensor.Shape{v.D.Size(), v.D.FeatureCount()}.String()), nil
	}
	return nil, &TypeError{Name: ast.ExprString(call.Args[0]), Want: "tensor or dataset", Got: KindOf(args[0]), Pos: call.Pos}
}

// gradBuiltin returns the gradient of a tensor: its accumulated buffer plus
// anything backward() produced earlier in the same command, or zeros.
func gradBuiltin(ev *Evaluator, call *ast.Call, args []Value) (Value, error) {
	v, ok := args[0].(*TensorValue)
	if !ok {
		return nil, &TypeError{Name: ast.ExprString(call.Args[0]), Want: KindTensor, Got: KindOf(args[0]), Pos: call.Pos}
	}
	staged, err := ev.stagedGrad(v.T)
	if err != nil {
		return nil, err
	}
	buf := v.T.Grad()
	switch {
	case staged == nil && buf == nil:
		return &TensorValue{T: tensor.ZerosLike(v.T)}, nil
	case staged == nil:
		return &TensorValue{T: buf.Clone()}, nil
	case buf == nil:
		return &TensorValue{T: staged.Clone()}, nil
	}
	sum, err := ev.cfg.Backend.Add(buf, staged)
	if err != nil {
		return nil, err
	}
	return &TensorValue{T: sum}, nil
}

// backwardBuiltin runs the backward pass from a scalar expression and
// returns its value. The gradients are added to every contributing tensor
// that requires them once the command succeeds.
func backwardBuiltin(ev *Evaluator, call *ast.Call, args []Value) (Value, error) {
	x, err := operand(call.Args[0], args[0])
	if err != nil {
		return nil, err
	}
	grads, err := ev.tape.Gradients(x)
	if err != nil {
		return nil, err
	}
	ev.pending = append(ev.pending, grads)
	return ScalarValue(x.Data()[0]), nil
}
