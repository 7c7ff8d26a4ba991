package config

import "errors"

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrUnknownPolicy = errors.New("unknown arena policy")
)
