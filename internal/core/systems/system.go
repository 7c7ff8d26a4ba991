package systems

import (
	"errors"
	"fmt"
	"time"
)

// System is a fixed-step simulation processor. Systems run in registration
// order once per tick and keep their own state between ticks.
type System interface {
	Name() string
	FixedUpdate(dt time.Duration) error
	Reset() error
}

// Pipeline runs an ordered list of systems.
type Pipeline struct {
	systems []System
}

// NewPipeline creates a pipeline over the given systems.
func NewPipeline(systems ...System) *Pipeline {
	return &Pipeline{systems: systems}
}

// FixedUpdate runs every system once. The first failing system stops the pass.
func (p *Pipeline) FixedUpdate(dt time.Duration) error {
	for _, s := range p.systems {
		if err := s.FixedUpdate(dt); err != nil {
			return fmt.Errorf("system %s: %w", s.Name(), err)
		}
	}
	return nil
}

// Reset resets every system and joins their errors.
func (p *Pipeline) Reset() error {
	var all error
	for _, s := range p.systems {
		if err := s.Reset(); err != nil {
			all = errors.Join(all, fmt.Errorf("system %s: %w", s.Name(), err))
		}
	}
	return all
}
