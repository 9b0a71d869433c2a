package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RuleChecker judges whether a clue is legal for the given board. The
// reason string explains a rejection.
type RuleChecker interface {
	Validate(ctx context.Context, clue string, number int, boardWords []string) (bool, string, error)
}

// RuleService asks an external rule endpoint to judge a clue. It is the
// second opinion consulted after a peer spymaster flags a clue.
type RuleService struct {
	url  string
	http *http.Client
	log  *zap.SugaredLogger
}

// NewRuleService creates a RuleService for the given endpoint URL.
func NewRuleService(url string, log *zap.SugaredLogger) *RuleService {
	return &RuleService{
		url:  url,
		http: &http.Client{Timeout: 30 * time.Second},
		log:  log,
	}
}

type ruleRequest struct {
	Clue       string   `json:"clue"`
	Number     int      `json:"number"`
	BoardWords []string `json:"board_words"`
}

type ruleResponse struct {
	Valid     bool   `json:"valid"`
	Reasoning string `json:"reasoning"`
}

// Validate submits the clue and the unrevealed board words for judgement.
func (s *RuleService) Validate(ctx context.Context, clue string, number int, boardWords []string) (bool, string, error) {
	body, err := json.Marshal(ruleRequest{Clue: clue, Number: number, BoardWords: boardWords})
	if err != nil {
		return false, "", fmt.Errorf("failed to encode rule request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return false, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return false, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, "", fmt.Errorf("rule service returned status %d", resp.StatusCode)
	}

	var out ruleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, "", fmt.Errorf("failed to decode rule response: %w", err)
	}
	if !out.Valid {
		s.log.Infow("clue ruled invalid", "clue", clue, "reason", out.Reasoning)
	}
	return out.Valid, out.Reasoning, nil
}
