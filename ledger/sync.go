package ledger

import (
	"context"
)

// SeatScore is one identity's score for a seat in a game.
type SeatScore struct {
	Hotkey string  `json:"hotkey"`
	Score  float64 `json:"score"`
}

// TeamScores holds both seats of one team.
type TeamScores struct {
	Spymaster SeatScore `json:"spymaster"`
	Operative SeatScore `json:"operative"`
}

// PatchPayload is the per-room score document pushed to the backend. The
// backend treats the PATCH as idempotent by room id.
type PatchPayload struct {
	Red    TeamScores `json:"red"`
	Blue   TeamScores `json:"blue"`
	Reason string     `json:"reason"`
}

// FeedMeta is the pagination envelope of the global results feed.
type FeedMeta struct {
	Count       int   `json:"count"`
	Total       int   `json:"total"`
	HasMore     bool  `json:"has_more"`
	NextSinceID int64 `json:"next_since_id"`
}

// FeedPage is one page of the global results feed.
type FeedPage struct {
	Data []MirrorResult `json:"data"`
	Meta FeedMeta       `json:"meta"`
}

// Sink pushes one finished game's scores to the backend.
type Sink interface {
	Patch(ctx context.Context, roomID string, payload PatchPayload) error
}

// Feed serves paginated pages of the global results feed.
type Feed interface {
	Get(ctx context.Context, sinceID int64, limit int) (FeedPage, error)
}

const pullPageSize = 100

// SyncPending pushes every unsynced game to the sink and marks each one
// synced only after the backend acknowledged it. A push that fails leaves
// its row pending, so the next cycle retries it; the sink must be
// idempotent by room id. Returns the number of rows marked synced.
func (s *Store) SyncPending(ctx context.Context, sink Sink) (int, error) {
	pending, err := s.Pending()
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	synced := 0
	for _, row := range pending {
		payload := PatchPayload{
			Red: TeamScores{
				Spymaster: SeatScore{Hotkey: row.RS, Score: row.ScoreRS},
				Operative: SeatScore{Hotkey: row.RO, Score: row.ScoreRO},
			},
			Blue: TeamScores{
				Spymaster: SeatScore{Hotkey: row.BS, Score: row.ScoreBS},
				Operative: SeatScore{Hotkey: row.BO, Score: row.ScoreBO},
			},
			Reason: row.Reason,
		}

		if err := sink.Patch(ctx, row.RoomID, payload); err != nil {
			s.log.Errorw("failed to sync score", "room_id", row.RoomID, "error", err)
			continue
		}

		if err := s.MarkSynced(row.RoomID); err != nil {
			s.log.Errorw("failed to mark score synced", "room_id", row.RoomID, "error", err)
			continue
		}
		synced++
	}

	s.log.Infow("uploaded scores", "synced", synced, "pending", len(pending))
	return synced, nil
}

// PullMirror pages through the global results feed from the last locally
// seen cursor and upserts every row into the mirror table. Returns the
// number of rows upserted.
func (s *Store) PullMirror(ctx context.Context, feed Feed) (int, error) {
	sinceID, err := s.MaxMirrorID()
	if err != nil {
		return 0, err
	}

	pulled := 0
	for {
		page, err := feed.Get(ctx, sinceID, pullPageSize)
		if err != nil {
			return pulled, err
		}

		if err := s.UpsertMirror(page.Data); err != nil {
			return pulled, err
		}
		pulled += len(page.Data)
		s.log.Infow("synced mirror page", "count", page.Meta.Count, "total", page.Meta.Total)

		if !page.Meta.HasMore {
			return pulled, nil
		}
		sinceID = page.Meta.NextSinceID
	}
}
