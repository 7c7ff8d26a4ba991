package world

import "errors"

var (
	ErrNilBody      = errors.New("world requires a body")
	ErrNilFeed      = errors.New("world requires an event feed")
	ErrInvalidWall  = errors.New("wall box min must not exceed max")
	ErrInvalidShape = errors.New("radius must not be negative")
)
