package interp

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/luma-ml/luma/internal/ast"
)

// params reads the named parameters of one command or layer.
type params struct {
	ev   *Evaluator
	ctx  context.Context
	list []*ast.Param
	pos  ast.Pos
}

func (ev *Evaluator) params(ctx context.Context, list []*ast.Param, pos ast.Pos) *params {
	return &params{ev: ev, ctx: ctx, list: list, pos: pos}
}

func (p *params) get(key string) *ast.Param {
	for _, param := range p.list {
		if param.Key == key {
			return param
		}
	}
	return nil
}

func (p *params) has(key string) bool {
	return p.get(key) != nil
}

func (p *params) errorf(param *ast.Param, format string, args ...any) error {
	return &ValueError{Param: param.Key, Msg: fmt.Sprintf(format, args...), Pos: param.Pos}
}

// only rejects parameters outside allowed.
func (p *params) only(allowed ...string) error {
	for _, param := range p.list {
		if !slices.Contains(allowed, param.Key) {
			return p.errorf(param, "unknown parameter (want one of %s)", strings.Join(allowed, ", "))
		}
	}
	return nil
}

// number evaluates a numeric parameter. Identifiers bound to scalars are
// allowed.
func (p *params) number(key string, def float64) (float64, error) {
	param := p.get(key)
	if param == nil {
		return def, nil
	}
	v, err := p.ev.eval(p.ctx, param.Value)
	if err != nil {
		return 0, err
	}
	f, ok := scalarOf(v)
	if !ok {
		return 0, p.errorf(param, "must be a number, got %s", KindOf(v))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, p.errorf(param, "must be finite, got %v", f)
	}
	return f, nil
}

// positive evaluates a number that must be > 0.
func (p *params) positive(key string, def float64) (float64, error) {
	f, err := p.number(key, def)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, p.errorf(p.get(key), "must be positive, got %v", f)
	}
	return f, nil
}

// fraction evaluates a number in [0, 1).
func (p *params) fraction(key string, def float64) (float64, error) {
	f, err := p.number(key, def)
	if err != nil {
		return 0, err
	}
	if f < 0 || f >= 1 {
		return 0, p.errorf(p.get(key), "must be in [0, 1), got %v", f)
	}
	return f, nil
}

// integer evaluates a whole number >= min.
func (p *params) integer(key string, def, lo int) (int, error) {
	param := p.get(key)
	if param == nil {
		return def, nil
	}
	f, err := p.number(key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f < float64(lo) || f > math.MaxInt32 {
		return 0, p.errorf(param, "must be an integer >= %d, got %v", lo, f)
	}
	return int(f), nil
}

// boolean reads true/false. Numbers are true when non-zero.
func (p *params) boolean(key string, def bool) (bool, error) {
	param := p.get(key)
	if param == nil {
		return def, nil
	}
	if lit, ok := param.Value.(*ast.Literal); ok && lit.Kind == ast.Bool {
		return lit.Bool, nil
	}
	v, err := p.ev.eval(p.ctx, param.Value)
	if err != nil {
		return false, err
	}
	f, ok := scalarOf(v)
	if !ok {
		return false, p.errorf(param, "must be true or false, got %s", KindOf(v))
	}
	return f != 0, nil
}

// name reads a bare word or string, e.g. loss=mse or label="species".
// Numbers are accepted in their literal spelling, e.g. label=2.
func (p *params) name(key, def string) (string, error) {
	param := p.get(key)
	if param == nil {
		return def, nil
	}
	switch v := param.Value.(type) {
	case *ast.Ident:
		return v.Name, nil
	case *ast.Literal:
		switch v.Kind {
		case ast.String:
			return v.Str, nil
		case ast.Number:
			return ast.ExprString(v), nil
		}
	}
	return "", p.errorf(param, "must be a name or string, got %s", ast.ExprString(param.Value))
}

// choice reads a name that must be one of options.
func (p *params) choice(key, def string, options ...string) (string, error) {
	s, err := p.name(key, def)
	if err != nil {
		return "", err
	}
	s = strings.ToLower(s)
	if !slices.Contains(options, s) {
		return "", p.errorf(p.get(key), "unknown value %q (want one of %s)", s, strings.Join(options, ", "))
	}
	return s, nil
}

// method reads method=<name> or method=<name>(<numbers>).
func (p *params) method(key string) (string, []float64, error) {
	param := p.get(key)
	if param == nil {
		return "", nil, &ValueError{Param: key, Msg: "required", Pos: p.pos}
	}
	call, ok := param.Value.(*ast.Call)
	if !ok {
		name, err := p.name(key, "")
		return name, nil, err
	}
	args := make([]float64, len(call.Args))
	for i, arg := range call.Args {
		v, err := p.ev.eval(p.ctx, arg)
		if err != nil {
			return "", nil, err
		}
		f, ok := scalarOf(v)
		if !ok {
			return "", nil, p.errorf(param, "argument %d of %s must be a number, got %s", i+1, call.Fn, KindOf(v))
		}
		args[i] = f
	}
	return call.Fn, args, nil
}

// literal converts a parameter expression to a Go value for layer specs:
// float64 for numbers, bool for booleans and string for names and strings.
func (p *params) literal(param *ast.Param) (any, error) {
	switch v := param.Value.(type) {
	case *ast.Ident:
		return v.Name, nil
	case *ast.Literal:
		switch v.Kind {
		case ast.Bool:
			return v.Bool, nil
		case ast.String:
			return v.Str, nil
		}
	}
	f, err := p.number(param.Key, 0)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// scalarOf extracts a number from a scalar or a single-element tensor.
func scalarOf(v Value) (float64, bool) {
	switch v := v.(type) {
	case ScalarValue:
		return float64(v), true
	case *TensorValue:
		if v.T.NumElements() == 1 {
			return v.T.Data()[0], true
		}
	}
	return 0, false
}

// seed reads a whole-number seed.
func (p *params) seed(key string, def int64) (int64, error) {
	param := p.get(key)
	if param == nil {
		return def, nil
	}
	f, err := p.number(key, 0)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, p.errorf(param, "must be an integer, got %v", f)
	}
	return int64(f), nil
}
