package server

import (
	"encoding/json"
	"fmt"

	"github.com/zeusync/racer/internal/core/vehicle"
	"github.com/zeusync/racer/internal/env"
)

// Ops of the remote environment protocol. Every frame is a JSON text message.
const (
	OpSpec  = "spec"
	OpReset = "reset"
	OpStep  = "step"
	OpError = "error"
	// OpHello authenticates a QUIC session and must be its first frame
	// when the server has a token.
	OpHello = "hello"
)

// Request is sent by the trainer.
type Request struct {
	Op     string    `json:"op"`
	Action []float64 `json:"action,omitempty"` // [steer, throttle, brake], step only
	Token  string    `json:"token,omitempty"`  // hello only
}

type HelloResponse struct {
	Op        string `json:"op"`
	SessionID string `json:"session_id"`
}

type SpecResponse struct {
	Op              string `json:"op"`
	ObservationSize int    `json:"observation_size"`
	ActionSize      int    `json:"action_size"`
	Mode            string `json:"mode"`
}

type ResetResponse struct {
	Op          string    `json:"op"`
	Observation []float64 `json:"observation"`
}

type StepResponse struct {
	Op          string    `json:"op"`
	Observation []float64 `json:"observation"`
	Reward      float64   `json:"reward"`
	Done        bool      `json:"done"`
	Outcome     string    `json:"outcome,omitempty"` // set once done
}

type ErrorResponse struct {
	Op    string `json:"op"`
	Error string `json:"error"`
}

func errorResponse(err error) ErrorResponse {
	return ErrorResponse{Op: OpError, Error: err.Error()}
}

// handleFrame decodes one request, applies it to the session environment and
// returns the response to write back. Protocol errors become error responses
// and leave the session usable.
func handleFrame(e *env.Environment, frame []byte) any {
	var req Request
	if err := json.Unmarshal(frame, &req); err != nil {
		return errorResponse(fmt.Errorf("%w: %v", ErrInvalidMessage, err))
	}

	switch req.Op {
	case OpSpec:
		spec := e.Spec()
		return SpecResponse{
			Op:              OpSpec,
			ObservationSize: spec.ObservationSize,
			ActionSize:      spec.ActionSize,
			Mode:            string(spec.Mode),
		}

	case OpReset:
		obs, err := e.Reset()
		if err != nil {
			return errorResponse(err)
		}
		return ResetResponse{Op: OpReset, Observation: obs}

	case OpStep:
		action, err := vehicle.ActionFromSlice(req.Action)
		if err != nil {
			return errorResponse(err)
		}
		res, err := e.Step(action)
		if err != nil {
			return errorResponse(err)
		}
		resp := StepResponse{Op: OpStep, Observation: res.Observation, Reward: res.Reward, Done: res.Done}
		if res.Done {
			resp.Outcome = res.Outcome.String()
		}
		return resp

	default:
		return errorResponse(fmt.Errorf("%w: %q", ErrUnknownOp, req.Op))
	}
}
