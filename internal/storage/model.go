package storage

import (
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/zeusync/racer/internal/core/episode"
)

// EpisodeRecord is one finished episode.
type EpisodeRecord struct {
	gorm.Model
	EpisodeID          string    `json:"episodeId" gorm:"size:36;uniqueIndex"`
	AgentID            string    `json:"agentId" gorm:"size:64;index:idx_episode_agent"`
	Outcome            string    `json:"outcome" gorm:"size:32"`
	Reward             float64   `json:"reward"`
	Ticks              uint64    `json:"ticks"`
	ElapsedMillis      int64     `json:"elapsedMs"`
	CheckpointsReached int       `json:"checkpointsReached"`
	Laps               int       `json:"laps"`
	CourseFingerprint  string    `json:"courseFingerprint" gorm:"size:16;index:idx_episode_course"` // hex, uint64 does not fit a signed column
	EndedAt            time.Time `json:"endedAt" gorm:"index:idx_episode_ended"`
}

func (EpisodeRecord) TableName() string { return "episodes" }

// FingerprintKey formats a course fingerprint the way it is stored.
func FingerprintKey(fp uint64) string { return strconv.FormatUint(fp, 16) }

func recordFromResult(res episode.Result, endedAt time.Time) EpisodeRecord {
	return EpisodeRecord{
		EpisodeID:          res.EpisodeID,
		AgentID:            res.AgentID,
		Outcome:            res.Outcome.String(),
		Reward:             res.Reward,
		Ticks:              res.Ticks,
		ElapsedMillis:      res.Elapsed.Milliseconds(),
		CheckpointsReached: res.CheckpointsReached,
		Laps:               res.Laps,
		CourseFingerprint:  FingerprintKey(res.CourseFingerprint),
		EndedAt:            endedAt.UTC(),
	}
}

// Summary aggregates the episodes recorded for one course.
type Summary struct {
	CourseFingerprint string
	Episodes          int64
	Outcomes          map[string]int64
	MeanReward        float64
	BestReward        float64
}
