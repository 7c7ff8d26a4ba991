package env

import (
	"context"
	"fmt"

	"github.com/zeusync/racer/internal/core/episode"
)

// Rollout resets the environment and drives it with the policy until the
// episode ends, the context is cancelled or maxSteps ticks have run. Zero
// maxSteps means no limit. A run cut short by the step limit is reported as
// interrupted.
func Rollout(ctx context.Context, e *Environment, p Policy, maxSteps int) (episode.Result, error) {
	obs, err := e.Reset()
	if err != nil {
		return episode.Result{}, err
	}

	for step := 0; maxSteps == 0 || step < maxSteps; step++ {
		if step%256 == 0 {
			if err := ctx.Err(); err != nil {
				return episode.Result{}, err
			}
		}
		res, err := e.Step(p.Act(obs))
		if err != nil {
			return episode.Result{}, fmt.Errorf("step %d: %w", step, err)
		}
		if res.Done {
			last, _ := e.sup.LastResult()
			return last, nil
		}
		obs = res.Observation
	}

	e.sup.Interrupt()
	e.acc.Drain()
	last, _ := e.sup.LastResult()
	return last, nil
}
