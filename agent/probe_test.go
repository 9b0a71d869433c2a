package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shiftlayer/codenames-validator/selector"
)

func TestProbePing(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ping" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
	}))
	defer up.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	candidates := []selector.Candidate{
		{UID: 1, Addr: testAddr(up)},
		{UID: 2, Addr: testAddr(broken)},
		{UID: 3, Addr: "127.0.0.1:1"},
	}

	probe := NewProbe(zap.NewNop().Sugar())
	reachable := probe.Ping(context.Background(), candidates, 5*time.Second)

	if !reachable[1] {
		t.Error("Expected UID 1 to be reachable")
	}
	if reachable[2] {
		t.Error("Expected UID 2 to be unreachable on 503")
	}
	if reachable[3] {
		t.Error("Expected UID 3 to be unreachable")
	}
}
