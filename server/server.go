// Package server exposes the validator's read-only status API: recent
// games, per-room results, windowed leaderboards, and metrics.
package server

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/render"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shiftlayer/codenames-validator/internal/clock"
	"github.com/shiftlayer/codenames-validator/ledger"
	"github.com/shiftlayer/codenames-validator/selector"
)

var (
	// Renderer is a renderer for all occasions. These are our preferred default options.
	Renderer = render.New(render.Options{
		Charset:    "UTF-8",
		IndentJSON: false,
	})

	ugcPolicy = bluemonday.StrictPolicy()
)

// Server serves the status API over the score ledger.
type Server struct {
	store *ledger.Store
	log   *zap.SugaredLogger
	clock clock.Clock
}

// New creates a Server. A nil clk falls back to the system clock.
func New(store *ledger.Store, log *zap.SugaredLogger, clk clock.Clock) *Server {
	if clk == nil {
		clk = clock.New()
	}
	return &Server{store: store, log: log, clock: clk}
}

// Handler builds the router.
func (s *Server) Handler(isDev bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)

	r.Use(cors.New(cors.Options{
		AllowCredentials:   true,
		OptionsPassthrough: true,
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     []string{"GET", "OPTIONS"},
		AllowedHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:     []string{"Link"},
		MaxAge:             300, // Maximum value not ignored by any of major browsers
	}).Handler)

	r.Use(secure.New(secure.Options{
		BrowserXssFilter:   true,
		ContentTypeNosniff: true,
		FrameDeny:          true,
		HostsProxyHeaders:  []string{"X-Forwarded-Host"},
		IsDevelopment:      isDev,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	}).Handler)

	r.NotFound(notFoundHandler)

	r.Get("/healthz", s.healthCheckHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/games/recent", s.recentGamesHandler)
	r.Get("/games/{room}", s.gameHandler)
	r.Get("/leaderboard", s.leaderboardHandler)
	r.Get("/selections", s.selectionsHandler)

	return r
}

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	since := s.clock.Now().Add(-selector.DefaultInterval).Unix()
	games, err := s.store.GamesInWindow(since)
	if err != nil {
		s.log.Errorw("could not count games in window", zap.Error(err))
	}
	lastSync, err := s.store.LatestMirrorTimestamp()
	if err != nil {
		s.log.Errorw("could not read last mirror sync", zap.Error(err))
	}

	if err := Renderer.JSON(w, http.StatusOK, map[string]interface{}{
		"status":           "healthy",
		"games_in_window":  games,
		"last_mirror_sync": lastSync,
	}); err != nil {
		s.log.Errorw("failed to render JSON", zap.Error(err))
	}
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	Renderer.JSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
	})
}

func (s *Server) recentGamesHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	games, err := s.store.RecentGames(limit)
	if err != nil {
		s.log.Errorw("could not list recent games", zap.Error(err))
		s.renderError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := Renderer.JSON(w, http.StatusOK, games); err != nil {
		s.log.Errorw("failed to render JSON", zap.Error(err))
	}
}

func (s *Server) gameHandler(w http.ResponseWriter, r *http.Request) {
	room := ugcPolicy.Sanitize(chi.URLParamFromCtx(r.Context(), "room"))

	game, err := s.store.GameByRoom(room)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFoundHandler(w, r)
			return
		}
		s.log.Errorw("could not get game", "room_id", room, zap.Error(err))
		s.renderError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := Renderer.JSON(w, http.StatusOK, game); err != nil {
		s.log.Errorw("failed to render JSON", zap.Error(err))
	}
}

// Standing is one identity's aggregate over the requested window.
type Standing struct {
	Hotkey string  `json:"hotkey"`
	Score  float64 `json:"score,omitempty"`
	Count  int     `json:"count,omitempty"`
}

func (s *Server) leaderboardHandler(w http.ResponseWriter, r *http.Request) {
	since := s.windowStart(r)

	scores, err := s.store.WindowScores(since)
	if err != nil {
		s.log.Errorw("could not compute window scores", zap.Error(err))
		s.renderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	standings := make([]Standing, 0, len(scores))
	for hotkey, score := range scores {
		standings = append(standings, Standing{Hotkey: hotkey, Score: score})
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Score != standings[j].Score {
			return standings[i].Score > standings[j].Score
		}
		return standings[i].Hotkey < standings[j].Hotkey
	})

	if err := Renderer.JSON(w, http.StatusOK, standings); err != nil {
		s.log.Errorw("failed to render JSON", zap.Error(err))
	}
}

func (s *Server) selectionsHandler(w http.ResponseWriter, r *http.Request) {
	since := s.windowStart(r)

	counts, err := s.store.SelectionCountsSince(since)
	if err != nil {
		s.log.Errorw("could not count selections", zap.Error(err))
		s.renderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	standings := make([]Standing, 0, len(counts))
	for hotkey, count := range counts {
		standings = append(standings, Standing{Hotkey: hotkey, Count: count})
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Count != standings[j].Count {
			return standings[i].Count > standings[j].Count
		}
		return standings[i].Hotkey < standings[j].Hotkey
	})

	if err := Renderer.JSON(w, http.StatusOK, standings); err != nil {
		s.log.Errorw("failed to render JSON", zap.Error(err))
	}
}

// windowStart derives the aggregation window start from the request's
// window query param, e.g. "24 hours" or "7d".
func (s *Server) windowStart(r *http.Request) int64 {
	window := selector.ParseInterval(ugcPolicy.Sanitize(r.URL.Query().Get("window")))
	return s.clock.Now().Add(-window).Unix()
}

func (s *Server) renderError(w http.ResponseWriter, status int, msg string) {
	if err := Renderer.JSON(w, status, map[string]string{"error": msg}); err != nil {
		s.log.Errorw("failed to render JSON", zap.Error(err))
	}
}
