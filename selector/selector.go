package selector

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/shiftlayer/codenames-validator/internal/clock"
)

// ErrSelectionShortfall is returned when fewer eligible participants were
// found than requested. Callers must not start a match on a partial roster.
var ErrSelectionShortfall = errors.New("not enough eligible participants")

// Candidate is one selectable agent identity.
type Candidate struct {
	UID     int64  `json:"uid"`
	Hotkey  string `json:"hotkey"`
	Coldkey string `json:"coldkey"`
	Addr    string `json:"addr"`
}

// Host returns the network address without its port, the granularity the
// duplicate filter works at.
func (c Candidate) Host() string {
	host, _, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return c.Addr
	}
	return host
}

// Ledger is the slice of the score ledger the selector consults.
type Ledger interface {
	WindowScores(since int64) (map[string]float64, error)
	SelectionCountsSince(since int64) (map[string]int, error)
	RecordSelection(hotkey string, uid int64) error
}

// Prober checks which candidates answer within the timeout. Absent entries
// are unreachable.
type Prober interface {
	Ping(ctx context.Context, candidates []Candidate, timeout time.Duration) map[int64]bool
}

// Defaults.
const (
	DefaultScoreFloor   = -2.0
	DefaultProbeTimeout = 30 * time.Second
	DefaultWindow       = 24 * time.Hour
)

// Config tunes a Selector. Zero values fall back to the defaults above.
type Config struct {
	Window       time.Duration
	ScoreFloor   float64
	FloorSet     bool // distinguishes an explicit 0 floor from unset
	ProbeTimeout time.Duration
	Clock        clock.Clock
	Shuffle      func(n int, swap func(i, j int))
}

// Selector builds fair four-seat rosters from a candidate pool.
type Selector struct {
	store        Ledger
	probe        Prober
	log          *zap.SugaredLogger
	clock        clock.Clock
	window       time.Duration
	scoreFloor   float64
	probeTimeout time.Duration
	shuffle      func(n int, swap func(i, j int))
}

// New creates a Selector.
func New(store Ledger, probe Prober, log *zap.SugaredLogger, cfg Config) *Selector {
	s := &Selector{
		store:        store,
		probe:        probe,
		log:          log,
		clock:        cfg.Clock,
		window:       cfg.Window,
		scoreFloor:   cfg.ScoreFloor,
		probeTimeout: cfg.ProbeTimeout,
		shuffle:      cfg.Shuffle,
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.window == 0 {
		s.window = DefaultWindow
	}
	if s.scoreFloor == 0 && !cfg.FloorSet {
		s.scoreFloor = DefaultScoreFloor
	}
	if s.probeTimeout == 0 {
		s.probeTimeout = DefaultProbeTimeout
	}
	if s.shuffle == nil {
		s.shuffle = rand.Shuffle
	}
	return s
}

// Select picks up to k candidates from the pool. Picks equalize windowed
// selection counts first (max-min fairness), then must pass a liveness
// probe, the windowed score floor, and duplicate address/coldkey checks
// against candidates already chosen in this call. Every candidate that
// clears the fairness gate gets a selection event, whether or not a later
// filter rejects it, so fairness counting stays auditable.
//
// When the eligible pool runs out early, the partial roster is returned
// together with ErrSelectionShortfall.
func (s *Selector) Select(ctx context.Context, pool []Candidate, k int, exclude []int64) ([]Candidate, error) {
	excluded := map[int64]bool{}
	for _, uid := range exclude {
		excluded[uid] = true
	}

	var available []Candidate
	for _, c := range pool {
		if !excluded[c.UID] {
			available = append(available, c)
		}
	}

	reachable := s.probe.Ping(ctx, available, s.probeTimeout)

	since := s.clock.Now().Add(-s.window).Unix()
	scores, err := s.store.WindowScores(since)
	if err != nil {
		s.log.Errorw("failed to fetch window scores", "error", err)
		scores = map[string]float64{}
	}
	counts, err := s.store.SelectionCountsSince(since)
	if err != nil {
		s.log.Errorw("failed to fetch selection counts", "error", err)
		counts = map[string]int{}
	}

	s.shuffle(len(available), func(i, j int) {
		available[i], available[j] = available[j], available[i]
	})

	var selected []Candidate
	seenHosts := map[string]bool{}
	seenColdkeys := map[string]bool{}

	for len(selected) < k && len(available) > 0 {
		minCount := poolMinimum(available, counts)

		remaining := available[:0:0]
		for _, c := range available {
			if len(selected) >= k {
				remaining = append(remaining, c)
				continue
			}

			count := counts[c.Hotkey]
			if count > minCount {
				remaining = append(remaining, c)
				continue
			}

			// The candidate cleared the fairness gate; it is counted
			// from here on even if a filter below rejects it.
			if err := s.store.RecordSelection(c.Hotkey, c.UID); err != nil {
				s.log.Errorw("failed to record selection event", "hotkey", c.Hotkey, "error", err)
			}
			counts[c.Hotkey] = count + 1

			if !reachable[c.UID] {
				s.log.Infow("skipping unreachable candidate", "uid", c.UID)
				continue
			}

			if score := scores[c.Hotkey]; score < s.scoreFloor {
				s.log.Warnw("skipping low-score candidate", "uid", c.UID, "score", score)
				continue
			}

			if seenHosts[c.Host()] {
				s.log.Infow("skipping duplicate address", "uid", c.UID, "host", c.Host())
				continue
			}
			if seenColdkeys[c.Coldkey] {
				s.log.Infow("skipping duplicate coldkey", "uid", c.UID, "coldkey", c.Coldkey)
				continue
			}

			selected = append(selected, c)
			seenHosts[c.Host()] = true
			seenColdkeys[c.Coldkey] = true
		}
		available = remaining
	}

	if len(selected) < k {
		return selected, fmt.Errorf("selected %d of %d requested participants: %w", len(selected), k, ErrSelectionShortfall)
	}

	s.log.Infow("selected participants", "uids", uids(selected))
	return selected, nil
}

// poolMinimum returns the smallest windowed selection count among the still
// unconsidered pool. A candidate absent from counts has never been picked
// and counts as zero.
func poolMinimum(pool []Candidate, counts map[string]int) int {
	min := 0
	for i, c := range pool {
		count := counts[c.Hotkey]
		if i == 0 || count < min {
			min = count
		}
	}
	return min
}

func uids(candidates []Candidate) []int64 {
	out := make([]int64, len(candidates))
	for i, c := range candidates {
		out[i] = c.UID
	}
	return out
}
