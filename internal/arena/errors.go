package arena

import "errors"

var (
	ErrInvalidConfig = errors.New("invalid arena configuration")
	ErrNilFactory    = errors.New("arena requires a policy factory")
)
