package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shiftlayer/codenames-validator/ledger"
)

// ScoreClient pushes finished-game scores to the backend and pulls the
// global cross-validator results feed. It satisfies both ledger.Sink and
// ledger.Feed.
type ScoreClient struct {
	pushURL      string
	fetchURL     string
	validatorKey string
	http         *http.Client
	log          *zap.SugaredLogger
}

// NewScoreClient creates a ScoreClient. pushURL is the per-room score
// endpoint prefix; fetchURL serves the paginated global feed. Either may
// be empty to disable that direction.
func NewScoreClient(pushURL, fetchURL, validatorKey string, log *zap.SugaredLogger) *ScoreClient {
	return &ScoreClient{
		pushURL:      pushURL,
		fetchURL:     fetchURL,
		validatorKey: validatorKey,
		http:         &http.Client{Timeout: 15 * time.Second},
		log:          log,
	}
}

// Patch uploads one room's scores. The backend upserts by room id, so
// replays of the same room are harmless.
func (c *ScoreClient) Patch(ctx context.Context, roomID string, payload ledger.PatchPayload) error {
	if c.pushURL == "" {
		return fmt.Errorf("no score backend configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode score payload: %w", err)
	}

	url := c.pushURL + "/" + roomID
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.validatorKey != "" {
		req.Header.Set("X-Validator-Key", c.validatorKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return nil
	default:
		text, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("score push returned status %d: %s", resp.StatusCode, text)
	}
}

// feedRow matches one feed entry. Timestamps arrive as unix numbers from
// some backends and RFC 3339 strings from others.
type feedRow struct {
	ID        int64    `json:"id"`
	RoomID    string   `json:"room_id"`
	Validator string   `json:"validator"`
	RS        string   `json:"rs"`
	RO        string   `json:"ro"`
	BS        string   `json:"bs"`
	BO        string   `json:"bo"`
	Winner    *string  `json:"winner"`
	StartedAt unixTime `json:"started_at"`
	EndedAt   unixTime `json:"ended_at"`
	ScoreRS   float64  `json:"score_rs"`
	ScoreRO   float64  `json:"score_ro"`
	ScoreBS   float64  `json:"score_bs"`
	ScoreBO   float64  `json:"score_bo"`
	Reason    string   `json:"reason"`
}

type feedPage struct {
	Data []feedRow       `json:"data"`
	Meta ledger.FeedMeta `json:"meta"`
}

// Get fetches one page of the global results feed.
func (c *ScoreClient) Get(ctx context.Context, sinceID int64, limit int) (ledger.FeedPage, error) {
	if c.fetchURL == "" {
		return ledger.FeedPage{}, fmt.Errorf("no score feed configured")
	}

	url := fmt.Sprintf("%s?since_id=%d&limit=%d", c.fetchURL, sinceID, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ledger.FeedPage{}, err
	}
	if c.validatorKey != "" {
		req.Header.Set("X-Validator-Key", c.validatorKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return ledger.FeedPage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(resp.Body)
		return ledger.FeedPage{}, fmt.Errorf("score feed returned status %d: %s", resp.StatusCode, text)
	}

	var raw feedPage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return ledger.FeedPage{}, fmt.Errorf("failed to decode score feed page: %w", err)
	}
	c.log.Debugw("fetched score feed page", "since_id", sinceID, "count", raw.Meta.Count, "total", raw.Meta.Total)

	page := ledger.FeedPage{Meta: raw.Meta}
	for _, row := range raw.Data {
		page.Data = append(page.Data, ledger.MirrorResult{
			ID:        row.ID,
			RoomID:    row.RoomID,
			Validator: row.Validator,
			RS:        row.RS,
			RO:        row.RO,
			BS:        row.BS,
			BO:        row.BO,
			Winner:    row.Winner,
			StartedAt: int64(row.StartedAt),
			EndedAt:   int64(row.EndedAt),
			ScoreRS:   row.ScoreRS,
			ScoreRO:   row.ScoreRO,
			ScoreBS:   row.ScoreBS,
			ScoreBO:   row.ScoreBO,
			Reason:    row.Reason,
		})
	}
	return page, nil
}

// unixTime decodes a timestamp that may arrive as a unix number, a numeric
// string, or an RFC 3339 string. Unparseable values decode to zero.
type unixTime int64

func (t *unixTime) UnmarshalJSON(data []byte) error {
	text := strings.Trim(string(data), `"`)
	if text == "" || text == "null" {
		*t = 0
		return nil
	}

	if f, err := strconv.ParseFloat(text, 64); err == nil {
		*t = unixTime(f)
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, text); err == nil {
		*t = unixTime(ts.Unix())
		return nil
	}

	*t = 0
	return nil
}
