package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/shiftlayer/codenames-validator/ledger"
)

func TestScoreClientPatch(t *testing.T) {
	var gotPath string
	var gotPayload ledger.PatchPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("Expected PATCH, got %s", r.Method)
		}
		if r.Header.Get("X-Validator-Key") != "vk-1" {
			t.Errorf("Missing validator key header")
		}
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Fatalf("Failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewScoreClient(srv.URL+"/api/v1/scores", "", "vk-1", zap.NewNop().Sugar())
	payload := ledger.PatchPayload{
		Red: ledger.TeamScores{
			Spymaster: ledger.SeatScore{Hotkey: "hk-rs", Score: 1},
			Operative: ledger.SeatScore{Hotkey: "hk-ro", Score: 1},
		},
		Blue: ledger.TeamScores{
			Spymaster: ledger.SeatScore{Hotkey: "hk-bs", Score: -1},
			Operative: ledger.SeatScore{Hotkey: "hk-bo", Score: -1},
		},
		Reason: "assassin",
	}
	if err := client.Patch(context.Background(), "room-1", payload); err != nil {
		t.Fatalf("Patch failed: %v", err)
	}

	if gotPath != "/api/v1/scores/room-1" {
		t.Errorf("Unexpected path %s", gotPath)
	}
	if gotPayload.Red.Spymaster.Hotkey != "hk-rs" || gotPayload.Reason != "assassin" {
		t.Errorf("Payload mismatch: %+v", gotPayload)
	}
}

func TestScoreClientPatchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewScoreClient(srv.URL, "", "", zap.NewNop().Sugar())
	if err := client.Patch(context.Background(), "room-1", ledger.PatchPayload{}); err == nil {
		t.Fatal("Expected error for 403 response")
	}
}

func TestScoreClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("since_id"); got != "5" {
			t.Errorf("Expected since_id=5, got %s", got)
		}
		if got := r.URL.Query().Get("limit"); got != "100" {
			t.Errorf("Expected limit=100, got %s", got)
		}
		// One row with unix timestamps, one with RFC 3339 strings.
		page := map[string]interface{}{
			"data": []map[string]interface{}{
				{
					"id": 6, "room_id": "room-a", "validator": "vk-2",
					"rs": "a", "ro": "b", "bs": "c", "bo": "d",
					"winner": "red", "started_at": 1700000000, "ended_at": 1700000300,
					"score_rs": 1.0, "score_ro": 1.0, "score_bs": -1.0, "score_bo": -1.0,
					"reason": "red_all_cards",
				},
				{
					"id": 7, "room_id": "room-b", "validator": "vk-2",
					"rs": "a", "ro": "b", "bs": "c", "bo": "d",
					"winner": nil, "started_at": "2023-11-14T22:13:20Z", "ended_at": "2023-11-14T22:18:20Z",
					"score_rs": 0.0, "score_ro": 0.0, "score_bs": 0.0, "score_bo": 0.0,
					"reason": "no_response",
				},
			},
			"meta": map[string]interface{}{
				"count": 2, "total": 7, "has_more": false, "next_since_id": 7,
			},
		}
		if err := json.NewEncoder(w).Encode(page); err != nil {
			t.Fatalf("Failed to encode page: %v", err)
		}
	}))
	defer srv.Close()

	client := NewScoreClient("", srv.URL+"/api/v1/scores/all", "", zap.NewNop().Sugar())
	page, err := client.Get(context.Background(), 5, 100)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if len(page.Data) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(page.Data))
	}
	if page.Data[0].StartedAt != 1700000000 {
		t.Errorf("Numeric timestamp mismatch: %d", page.Data[0].StartedAt)
	}
	if page.Data[1].StartedAt != 1700000000 {
		t.Errorf("RFC 3339 timestamp mismatch: %d", page.Data[1].StartedAt)
	}
	if page.Data[0].Winner == nil || *page.Data[0].Winner != "red" {
		t.Errorf("Winner mismatch: %v", page.Data[0].Winner)
	}
	if page.Meta.HasMore || page.Meta.Total != 7 {
		t.Errorf("Meta mismatch: %+v", page.Meta)
	}
}

func TestScoreClientUnconfigured(t *testing.T) {
	client := NewScoreClient("", "", "", zap.NewNop().Sugar())
	if err := client.Patch(context.Background(), "room-1", ledger.PatchPayload{}); err == nil {
		t.Error("Expected error when no push URL configured")
	}
	if _, err := client.Get(context.Background(), 0, 10); err == nil {
		t.Error("Expected error when no fetch URL configured")
	}
}
