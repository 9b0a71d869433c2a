package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"moul.io/zapgorm2"

	"github.com/shiftlayer/codenames-validator/internal/clock"
)

// Store is the durable ledger of finished games, selection events, and the
// mirrored global results feed. A single lock serializes every read and
// write; sqlite runs in WAL mode so a crash mid-write never corrupts the
// file.
type Store struct {
	db    *gorm.DB
	mu    sync.Mutex
	log   *zap.SugaredLogger
	clock clock.Clock
}

// Open opens the ledger at path and runs migrations. When DATABASE_URL is
// set it connects to postgres instead, matching how the serving stack is
// deployed elsewhere.
func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	gormLog := zapgorm2.New(log.Desugar())
	gormLog.LogLevel = 3 // warn
	config := &gorm.Config{Logger: gormLog}

	var db *gorm.DB
	var err error
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		db, err = gorm.Open(postgres.Open(dbURL), config)
	} else {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("could not create ledger directory: %w", err)
			}
		}
		dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", path)
		db, err = gorm.Open(sqlite.Open(dsn), config)
	}
	if err != nil {
		return nil, fmt.Errorf("could not open ledger: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to run auto-migration: %w", err)
	}

	return &Store{db: db, log: log, clock: clock.New()}, nil
}

// NewStore wraps an already-open database, for tests and embedding.
func NewStore(db *gorm.DB, log *zap.SugaredLogger, clk clock.Clock) *Store {
	return &Store{db: db, log: log, clock: clk}
}

// RecordGame upserts a finished game by room id. Any update clears
// SyncedAt so the row is pushed again on the next sync cycle.
func (s *Store) RecordGame(result GameResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result.SyncedAt = nil
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "room_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"rs", "ro", "bs", "bo", "winner",
			"started_at", "ended_at",
			"score_rs", "score_ro", "score_bs", "score_bo",
			"reason", "synced_at",
		}),
	}).Create(&result).Error
}

// Pending returns unsynced games, oldest first.
func (s *Store) Pending() ([]GameResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []GameResult
	err := s.db.Where("synced_at IS NULL").Order("ended_at ASC").Find(&rows).Error
	return rows, err
}

// MarkSynced stamps a game as acknowledged by the backend.
func (s *Store) MarkSynced(roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().Unix()
	return s.db.Model(&GameResult{}).Where("room_id = ?", roomID).Update("synced_at", now).Error
}

// GameByRoom looks up one of this validator's games.
func (s *Store) GameByRoom(roomID string) (*GameResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row GameResult
	if err := s.db.Where("room_id = ?", roomID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// RecentGames returns the latest finished games, newest first.
func (s *Store) RecentGames(limit int) ([]GameResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	var rows []GameResult
	err := s.db.Order("ended_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// WindowScores sums each hotkey's per-seat score contributions across all
// mirrored games ending at or after since. One hotkey can contribute under
// any of the four seat columns in different games.
func (s *Store) WindowScores(since int64) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []MirrorResult
	if err := s.db.Where("ended_at >= ?", since).Find(&rows).Error; err != nil {
		return nil, err
	}

	totals := map[string]float64{}
	for _, row := range rows {
		if row.RS != "" {
			totals[row.RS] += row.ScoreRS
		}
		if row.RO != "" {
			totals[row.RO] += row.ScoreRO
		}
		if row.BS != "" {
			totals[row.BS] += row.ScoreBS
		}
		if row.BO != "" {
			totals[row.BO] += row.ScoreBO
		}
	}
	return totals, nil
}

// RecordSelection appends a selection event for the identity.
func (s *Store) RecordSelection(hotkey string, uid int64) error {
	if hotkey == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	event := SelectionEvent{
		Hotkey: hotkey,
		UID:    uid,
		TS:     s.clock.Now().Unix(),
	}
	return s.db.Create(&event).Error
}

// SelectionCountsSince counts selection events per hotkey since the
// timestamp.
func (s *Store) SelectionCountsSince(since int64) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []struct {
		Hotkey string
		N      int
	}
	err := s.db.Model(&SelectionEvent{}).
		Select("hotkey, count(*) as n").
		Where("ts >= ?", since).
		Group("hotkey").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, row := range rows {
		counts[row.Hotkey] = row.N
	}
	return counts, nil
}

// SeedSelections inserts one event for every hotkey that has never been
// selected, so newcomers enter the fairness window at count one rather
// than starving the minimum.
func (s *Store) SeedSelections(hotkeys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().Unix()
	for uid, hotkey := range hotkeys {
		if hotkey == "" {
			continue
		}
		var n int64
		if err := s.db.Model(&SelectionEvent{}).Where("hotkey = ?", hotkey).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		event := SelectionEvent{Hotkey: hotkey, UID: int64(uid), TS: now}
		if err := s.db.Create(&event).Error; err != nil {
			return err
		}
	}
	return nil
}

// MaxMirrorID returns the highest feed row id seen locally, the cursor the
// next pull resumes from.
func (s *Store) MaxMirrorID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var max *int64
	if err := s.db.Model(&MirrorResult{}).Select("max(id)").Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// LatestMirrorTimestamp returns the newest ended_at in the mirror table.
func (s *Store) LatestMirrorTimestamp() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var max *int64
	if err := s.db.Model(&MirrorResult{}).Select("max(ended_at)").Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// GamesInWindow counts mirrored games ending at or after since, falling
// back to the local table when the mirror is empty.
func (s *Store) GamesInWindow(since int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	if err := s.db.Model(&MirrorResult{}).Where("ended_at >= ?", since).Count(&n).Error; err != nil {
		return 0, err
	}
	if n > 0 {
		return n, nil
	}
	if err := s.db.Model(&GameResult{}).Where("ended_at >= ?", since).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// UpsertMirror writes feed rows into the mirror table, keyed by
// (room_id, validator).
func (s *Store) UpsertMirror(rows []MirrorResult) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().Unix()
	for i := range rows {
		rows[i].ID = 0
		rows[i].SyncedAt = now
	}

	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "room_id"}, {Name: "validator"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"rs", "ro", "bs", "bo", "winner",
			"started_at", "ended_at",
			"score_rs", "score_ro", "score_bs", "score_bo",
			"reason", "synced_at",
		}),
	}).Create(&rows).Error
}
