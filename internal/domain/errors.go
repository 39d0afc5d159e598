package domain

import "errors"

var (
	ErrValidation            = errors.New("validation error")
	ErrNotFound              = errors.New("not found")
	ErrUnsupportedOutputType = errors.New("unsupported output type")
	ErrApplicationSuspended  = errors.New("application suspended")
)
