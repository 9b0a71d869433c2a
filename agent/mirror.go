package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ifo/sanic"
	"go.uber.org/zap"

	codenames "github.com/shiftlayer/codenames-validator"
)

// Mirror keeps a backend room in step with a running game so spectators
// can watch it. Every call is best effort: a backend outage is logged and
// the match carries on. When the backend cannot assign a room id, Create
// mints a local one so the game still has a stable key in the ledger.
type Mirror struct {
	base         string
	validatorKey string
	http         *http.Client
	worker       *sanic.Worker
	log          *zap.SugaredLogger
}

// NewMirror creates a Mirror for the backend at base, e.g.
// "https://game.example.com".
func NewMirror(base, validatorKey string, log *zap.SugaredLogger) *Mirror {
	return &Mirror{
		base:         base,
		validatorKey: validatorKey,
		http:         &http.Client{Timeout: 10 * time.Second},
		worker:       sanic.NewWorker7(),
		log:          log,
	}
}

type roomEnvelope struct {
	ValidatorKey string `json:"validatorKey"`
	*codenames.Game
}

type createRoomResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Create registers a new room for the game and returns its id. A failed
// request or an id-less response falls back to a locally minted id.
func (m *Mirror) Create(ctx context.Context, g *codenames.Game) string {
	url := m.base + "/api/v1/rooms/create"
	body, err := m.do(ctx, http.MethodPost, url, roomEnvelope{ValidatorKey: m.validatorKey, Game: g})
	if err != nil {
		m.log.Errorw("failed to create room", "error", err)
		return m.localID()
	}

	var out createRoomResponse
	if err := json.Unmarshal(body, &out); err != nil || out.Data.ID == "" {
		m.log.Errorw("failed to parse room creation response", "error", err)
		return m.localID()
	}

	m.log.Infow("room created", "room_id", out.Data.ID)
	return out.Data.ID
}

// Update pushes the current game state to the room.
func (m *Mirror) Update(ctx context.Context, roomID string, g *codenames.Game) {
	url := fmt.Sprintf("%s/api/v1/rooms/%s", m.base, roomID)
	if _, err := m.do(ctx, http.MethodPatch, url, roomEnvelope{ValidatorKey: m.validatorKey, Game: g}); err != nil {
		m.log.Errorw("failed to update room", "room_id", roomID, "error", err)
	}
}

// Delete removes the room from the backend.
func (m *Mirror) Delete(ctx context.Context, roomID string) {
	url := fmt.Sprintf("%s/api/v1/rooms/%s", m.base, roomID)
	if _, err := m.do(ctx, http.MethodDelete, url, nil); err != nil {
		m.log.Errorw("failed to delete room", "room_id", roomID, "error", err)
	}
}

func (m *Mirror) do(ctx context.Context, method, url string, payload interface{}) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode room payload: %w", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}
	return body, nil
}

func (m *Mirror) localID() string {
	id := m.worker.IDString(m.worker.NextID())
	m.log.Warnw("using locally minted room id", "room_id", id)
	return id
}
