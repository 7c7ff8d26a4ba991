package env

import "errors"

var (
	ErrNilCourse   = errors.New("environment requires a course")
	ErrInvalidTick = errors.New("environment tick must be positive")
)
