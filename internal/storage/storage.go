// Package storage persists episode results with GORM, on SQLite or PostgreSQL.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/zeusync/racer/internal/core/episode"
	"github.com/zeusync/racer/internal/core/events"
	"github.com/zeusync/racer/internal/core/events/bus"
	"github.com/zeusync/racer/internal/core/observability/log"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the database.
type Config struct {
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`
}

func DefaultConfig() Config {
	return Config{Driver: DriverSQLite, DSN: "racer.db"}
}

// Store reads and writes episode records.
type Store struct {
	db     *gorm.DB
	logger log.Log
	mu     sync.Mutex // serialises writes, SQLite allows one writer
}

// Open connects to the configured database and migrates the schema.
func Open(cfg Config, logger log.Log) (*Store, error) {
	if cfg.DSN == "" {
		return nil, ErrEmptyDSN
	}
	gcfg := &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case DriverSQLite, "":
		db, err = gorm.Open(sqlite.Open(cfg.DSN), gcfg)
		if err == nil {
			err = tuneSQLite(db)
		}
	case DriverPostgres:
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  cfg.DSN,
			PreferSimpleProtocol: true,
		}), gcfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	return New(db, logger)
}

func tuneSQLite(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA temp_store = MEMORY;",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return nil
}

// New wraps an open connection and migrates the schema.
func New(db *gorm.DB, logger log.Log) (*Store, error) {
	if err := db.AutoMigrate(&EpisodeRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, logger: log.OrNop(logger)}, nil
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save stores one result.
func (s *Store) Save(ctx context.Context, res episode.Result, endedAt time.Time) error {
	rec := recordFromResult(res, endedAt)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("save episode %s: %w", res.EpisodeID, err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]EpisodeRecord, error) {
	var out []EpisodeRecord
	err := s.db.WithContext(ctx).
		Order("ended_at DESC").Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("recent episodes: %w", err)
	}
	return out, nil
}

// Summary aggregates outcomes and rewards for one course.
func (s *Store) Summary(ctx context.Context, courseFingerprint uint64) (Summary, error) {
	key := FingerprintKey(courseFingerprint)
	var rows []struct {
		Outcome string
		Count   int64
		Total   float64
		Best    float64
	}
	err := s.db.WithContext(ctx).Model(&EpisodeRecord{}).
		Select("outcome, COUNT(*) AS count, SUM(reward) AS total, MAX(reward) AS best").
		Where("course_fingerprint = ?", key).
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return Summary{}, fmt.Errorf("summary %s: %w", key, err)
	}

	sum := Summary{CourseFingerprint: key, Outcomes: make(map[string]int64, len(rows))}
	total := 0.0
	for i, r := range rows {
		sum.Outcomes[r.Outcome] = r.Count
		sum.Episodes += r.Count
		total += r.Total
		if i == 0 || r.Best > sum.BestReward {
			sum.BestReward = r.Best
		}
	}
	if sum.Episodes > 0 {
		sum.MeanReward = total / float64(sum.Episodes)
	}
	return sum, nil
}

// Handler records every episode.ended event. Failures are logged and returned
// to the bus, never to the agent.
func (s *Store) Handler() bus.EventHandler {
	return func(e events.Event) error {
		res, ok := e.Data.(episode.Result)
		if !ok {
			return ErrUnexpectedPayload
		}
		if err := s.Save(context.Background(), res, e.Timestamp); err != nil {
			s.logger.Warn("Failed to record episode", log.String("episode_id", res.EpisodeID), log.Error(err))
			return err
		}
		return nil
	}
}

// Attach subscribes the store to episode.ended on b.
func (s *Store) Attach(b bus.EventBus) (bus.Subscription, error) {
	return b.Subscribe(events.EpisodeEnded, s.Handler())
}
