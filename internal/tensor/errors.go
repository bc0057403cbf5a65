package tensor

import (
	"fmt"
	"strings"
)

// ShapeError reports tensors whose shapes cannot participate in an operation.
type ShapeError struct {
	Op     string  // Operation that rejected the shapes (e.g. "add", "matmul")
	Shapes []Shape // Offending operand shapes
	Msg    string  // Additional detail
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	if len(e.Shapes) == 0 {
		return fmt.Sprintf("ShapeError: %s: %s", e.Op, e.Msg)
	}
	parts := make([]string, len(e.Shapes))
	for i, s := range e.Shapes {
		parts[i] = s.String()
	}
	msg := fmt.Sprintf("ShapeError: %s: incompatible shapes %s", e.Op, strings.Join(parts, " and "))
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	return msg
}

// NumericError reports an argument outside the domain of a numeric function,
// such as log(0) or division by zero, or a non-finite value that would
// otherwise propagate silently.
type NumericError struct {
	Op  string
	Msg string
}

// Error implements the error interface.
func (e *NumericError) Error() string {
	return fmt.Sprintf("NumericError: %s: %s", e.Op, e.Msg)
}
