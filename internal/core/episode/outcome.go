package episode

import (
	"time"
)

// State of the episode state machine.
type State uint8

const (
	StateIdle State = iota
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "idle"
	}
}

// Outcome is why an episode ended. Outcomes are normal control flow.
type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomeCompleted
	OutcomeTimeout
	OutcomeWrongCheckpoint
	OutcomeWallCollision
	// OutcomeInterrupted marks an episode abandoned by Begin while running
	// or cut short by Interrupt.
	OutcomeInterrupted
)

var outcomeNames = map[Outcome]string{
	OutcomeNone:            "none",
	OutcomeCompleted:       "completed",
	OutcomeTimeout:         "timeout",
	OutcomeWrongCheckpoint: "wrong_checkpoint",
	OutcomeWallCollision:   "wall_collision",
	OutcomeInterrupted:     "interrupted",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Outcomes lists every terminal outcome.
func Outcomes() []Outcome {
	return []Outcome{OutcomeCompleted, OutcomeTimeout, OutcomeWrongCheckpoint, OutcomeWallCollision, OutcomeInterrupted}
}

// Reward reasons.
const (
	ReasonTime            = "time"
	ReasonThrottle        = "throttle"
	ReasonCheckpoint      = "checkpoint"
	ReasonLap             = "lap"
	ReasonCompletion      = "completion"
	ReasonTimeout         = "timeout"
	ReasonWrongCheckpoint = "wrong_checkpoint"
	ReasonWall            = "wall"
)

// Result summarises one finished episode.
type Result struct {
	EpisodeID          string        `json:"episode_id"`
	AgentID            string        `json:"agent_id"`
	Outcome            Outcome       `json:"outcome"`
	Reward             float64       `json:"reward"`
	Ticks              uint64        `json:"ticks"`
	Elapsed            time.Duration `json:"elapsed"`
	CheckpointsReached int           `json:"checkpoints_reached"`
	Laps               int           `json:"laps"`
	CourseFingerprint  uint64        `json:"course_fingerprint"`
}

// Event payloads.
type (
	BegunPayload struct {
		EpisodeID string
		AgentID   string
	}
	RewardPayload struct {
		EpisodeID string
		Reason    string
		Delta     float64
		Tick      uint64
	}
)
