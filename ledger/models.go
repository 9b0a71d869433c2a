package ledger

import "gorm.io/gorm"

// GameResult is one finished game as recorded by this validator. RS/RO and
// BS/BO are the hotkeys seated as red/blue spymaster and operative. A NULL
// SyncedAt marks the row as not yet pushed to the backend; every update
// through RecordGame clears it again.
type GameResult struct {
	ID        int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID    string  `gorm:"type:text;uniqueIndex;not null" json:"room_id"`
	RS        string  `gorm:"type:text;not null" json:"rs"`
	RO        string  `gorm:"type:text;not null" json:"ro"`
	BS        string  `gorm:"type:text;not null" json:"bs"`
	BO        string  `gorm:"type:text;not null" json:"bo"`
	Winner    *string `gorm:"type:text" json:"winner"`
	StartedAt int64   `gorm:"not null" json:"started_at"`
	EndedAt   int64   `gorm:"not null;index" json:"ended_at"`
	ScoreRS   float64 `gorm:"not null" json:"score_rs"`
	ScoreRO   float64 `gorm:"not null" json:"score_ro"`
	ScoreBS   float64 `gorm:"not null" json:"score_bs"`
	ScoreBO   float64 `gorm:"not null" json:"score_bo"`
	Reason    string  `gorm:"type:text" json:"reason"`
	SyncedAt  *int64  `json:"synced_at,omitempty"`
}

// TableName keeps the table the backend tooling expects.
func (GameResult) TableName() string {
	return "scores"
}

// SelectionEvent is one append-only fairness-counting record: the identity
// was considered for a roster at TS.
type SelectionEvent struct {
	ID     int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Hotkey string `gorm:"type:text;not null;index" json:"hotkey"`
	UID    int64  `gorm:"not null" json:"uid"`
	TS     int64  `gorm:"not null;index" json:"ts"`
}

// TableName for SelectionEvent.
func (SelectionEvent) TableName() string {
	return "selection_events"
}

// MirrorResult is a row pulled from the global cross-validator results
// feed. The same room can appear once per reporting validator.
type MirrorResult struct {
	ID        int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID    string  `gorm:"type:text;not null;uniqueIndex:idx_scores_all_room_validator" json:"room_id"`
	Validator string  `gorm:"type:text;not null;uniqueIndex:idx_scores_all_room_validator" json:"validator"`
	RS        string  `gorm:"type:text;not null" json:"rs"`
	RO        string  `gorm:"type:text;not null" json:"ro"`
	BS        string  `gorm:"type:text;not null" json:"bs"`
	BO        string  `gorm:"type:text;not null" json:"bo"`
	Winner    *string `gorm:"type:text" json:"winner"`
	StartedAt int64   `gorm:"not null" json:"started_at"`
	EndedAt   int64   `gorm:"not null;index" json:"ended_at"`
	ScoreRS   float64 `gorm:"not null" json:"score_rs"`
	ScoreRO   float64 `gorm:"not null" json:"score_ro"`
	ScoreBS   float64 `gorm:"not null" json:"score_bs"`
	ScoreBO   float64 `gorm:"not null" json:"score_bo"`
	Reason    string  `gorm:"type:text" json:"reason"`
	SyncedAt  int64   `json:"synced_at"`
}

// TableName for MirrorResult.
func (MirrorResult) TableName() string {
	return "scores_all"
}

// AutoMigrate runs the database migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&GameResult{}, &SelectionEvent{}, &MirrorResult{})
}
