package storage

import "errors"

var (
	ErrUnknownDriver     = errors.New("unknown storage driver")
	ErrEmptyDSN          = errors.New("storage dsn is empty")
	ErrUnexpectedPayload = errors.New("episode.ended event without a result payload")
)
