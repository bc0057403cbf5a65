package interp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/luma-ml/luma/internal/ast"
	"github.com/luma-ml/luma/internal/autodiff"
	"github.com/luma-ml/luma/internal/lexer"
	"github.com/luma-ml/luma/internal/parser"
	"github.com/luma-ml/luma/internal/tensor"
)

// NameError reports a name with no binding.
type NameError struct {
	Name string
	Pos  ast.Pos
}

func (e *NameError) Error() string {
	return fmt.Sprintf("NameError: name %q is not defined", e.Name)
}

// TypeError reports a binding of the wrong kind for an operation.
type TypeError struct {
	Name string
	Want string
	Got  string
	Pos  ast.Pos
}

func (e *TypeError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("TypeError: got %s, want %s", e.Got, e.Want)
	}
	return fmt.Sprintf("TypeError: %q is a %s, want %s", e.Name, e.Got, e.Want)
}

// ValueError reports an invalid parameter value.
type ValueError struct {
	Param string
	Msg   string
	Pos   ast.Pos
}

func (e *ValueError) Error() string {
	if e.Param == "" {
		return "ValueError: " + e.Msg
	}
	return fmt.Sprintf("ValueError: %s: %s", e.Param, e.Msg)
}

// CommandError attaches the source position of the failing command to an
// error. It unwraps to the underlying error.
type CommandError struct {
	Verb string
	Pos  ast.Pos
	Err  error
}

func (e *CommandError) Error() string {
	msg := e.Err.Error()
	if kind := Kind(e.Err); !strings.Contains(msg, kind+":") {
		msg = kind + ": " + msg
	}
	return fmt.Sprintf("%s (line %d, col %d)", msg, e.Pos.Line, e.Pos.Col)
}

func (e *CommandError) Unwrap() error { return e.Err }

// errPos returns the position carried by err, if any.
func errPos(err error) (ast.Pos, bool) {
	var nameErr *NameError
	var typeErr *TypeError
	var valueErr *ValueError
	switch {
	case errors.As(err, &nameErr):
		return nameErr.Pos, true
	case errors.As(err, &typeErr):
		return typeErr.Pos, true
	case errors.As(err, &valueErr):
		return valueErr.Pos, true
	}
	return ast.Pos{}, false
}

// Kind names the error category of err: LexError, ParseError, NameError,
// TypeError, ValueError, ShapeError, NumericError, GradientError, or Error
// for anything else, such as I/O failures.
func Kind(err error) string {
	var (
		lexErr      *lexer.LexError
		parseErr    *parser.ParseError
		nameErr     *NameError
		typeErr     *TypeError
		valueErr    *ValueError
		shapeErr    *tensor.ShapeError
		numericErr  *tensor.NumericError
		gradientErr *autodiff.GradientError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &lexErr):
		return "LexError"
	case errors.As(err, &parseErr):
		return "ParseError"
	case errors.As(err, &nameErr):
		return "NameError"
	case errors.As(err, &typeErr):
		return "TypeError"
	case errors.As(err, &valueErr):
		return "ValueError"
	case errors.As(err, &shapeErr):
		return "ShapeError"
	case errors.As(err, &numericErr):
		return "NumericError"
	case errors.As(err, &gradientErr):
		return "GradientError"
	}
	return "Error"
}
