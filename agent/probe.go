package agent

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shiftlayer/codenames-validator/selector"
)

// Probe checks which candidate agents answer a ping before roster
// selection considers them.
type Probe struct {
	http *http.Client
	log  *zap.SugaredLogger
}

// NewProbe creates a Probe.
func NewProbe(log *zap.SugaredLogger) *Probe {
	return &Probe{
		http: &http.Client{},
		log:  log,
	}
}

// Ping fans a GET /ping out to every candidate and waits at most timeout
// for the whole batch. The returned set holds the UIDs that answered 200.
func (p *Probe) Ping(ctx context.Context, candidates []selector.Candidate, timeout time.Duration) map[int64]bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var mu sync.Mutex
	reachable := map[int64]bool{}

	var wg sync.WaitGroup
	for _, c := range candidates {
		wg.Add(1)
		go func(c selector.Candidate) {
			defer wg.Done()
			if p.ping(ctx, c.Addr) {
				mu.Lock()
				reachable[c.UID] = true
				mu.Unlock()
			}
		}(c)
	}
	wg.Wait()

	p.log.Infow("probed candidates", "total", len(candidates), "reachable", len(reachable))
	return reachable
}

func (p *Probe) ping(ctx context.Context, addr string) bool {
	url := fmt.Sprintf("http://%s/ping", addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
