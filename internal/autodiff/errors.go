package autodiff

// GradientError reports an invalid gradient request, such as calling
// Backward on a non-scalar tensor or on a tensor that does not require
// gradients.
type GradientError struct {
	Msg string
}

// Error implements the error interface.
func (e *GradientError) Error() string {
	return "GradientError: " + e.Msg
}
