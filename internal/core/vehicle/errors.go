package vehicle

import "errors"

var (
	ErrActionSize      = errors.New("action must have exactly 3 components")
	ErrInvalidSettings = errors.New("invalid vehicle settings")
)
