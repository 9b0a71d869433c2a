// Package agent holds the HTTP clients the validator uses to talk to the
// outside world: playing agents, the clue rule service, and the score
// backend.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	codenames "github.com/shiftlayer/codenames-validator"
)

// RoleClueValidator asks a spymaster agent to judge an opposing clue
// instead of producing a move.
const RoleClueValidator = "clue_validator"

const (
	moveTimeout  = 10 * time.Second
	moveAttempts = 3
)

// MoveRequest is the role-scoped view of the game sent to an agent. Cards
// carry colors only for spymasters; operatives get them stripped.
type MoveRequest struct {
	YourTeam      codenames.Team    `json:"your_team"`
	YourRole      string            `json:"your_role"`
	RemainingRed  int               `json:"remaining_red"`
	RemainingBlue int               `json:"remaining_blue"`
	YourClue      *string           `json:"your_clue"`
	YourNumber    *int              `json:"your_number"`
	Cards         []*codenames.Card `json:"cards"`
}

// MoveResponse is what an agent answers with. Spymasters fill ClueText and
// Number, operatives fill Guesses, clue validators fill ClueValidity.
type MoveResponse struct {
	ClueText     *string  `json:"clue_text"`
	Number       *int     `json:"number"`
	Guesses      []string `json:"guesses"`
	Reasoning    string   `json:"reasoning,omitempty"`
	ClueValidity *bool    `json:"clue_validity,omitempty"`
}

// Client queries playing agents over HTTP.
type Client struct {
	http *http.Client
	log  *zap.SugaredLogger
}

// NewClient creates a Client.
func NewClient(log *zap.SugaredLogger) *Client {
	return &Client{
		http: &http.Client{Timeout: moveTimeout},
		log:  log,
	}
}

// Move POSTs the request to the agent at addr and decodes its answer. Each
// attempt gets its own timeout; failed attempts are retried with backoff up
// to three in total.
func (c *Client) Move(ctx context.Context, addr string, req MoveRequest) (*MoveResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode move request: %w", err)
	}
	url := fmt.Sprintf("http://%s/move", addr)

	var out *MoveResponse
	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			c.log.Infow("retrying agent query", "addr", addr, "attempt", attempt)
		}
		resp, err := c.post(ctx, url, body)
		if err != nil {
			return err
		}
		out = resp
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), moveAttempts-1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("agent at %s did not answer: %w", addr, err)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) (*MoveResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out MoveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode move response: %w", err)
	}
	return &out, nil
}
