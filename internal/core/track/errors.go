package track

import "errors"

var (
	ErrNoCheckpoints  = errors.New("course has no checkpoints")
	ErrDuplicateLabel = errors.New("duplicate checkpoint label")
	ErrInvalidRadius  = errors.New("checkpoint radius must not be negative")
	ErrCourseComplete = errors.New("course is complete, there is no next checkpoint")
	ErrUnknownPolicy  = errors.New("unknown advance policy")
	ErrUnknownLabel   = errors.New("unknown checkpoint label")
)
