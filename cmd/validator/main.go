package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/shiftlayer/codenames-validator/agent"
	"github.com/shiftlayer/codenames-validator/ledger"
	"github.com/shiftlayer/codenames-validator/orchestrator"
	"github.com/shiftlayer/codenames-validator/selector"
	"github.com/shiftlayer/codenames-validator/server"
)

var opts struct {
	DBPath        string         `long:"db" description:"SQLite database path" default:"validator.db"`
	BackendBase   string         `long:"backend" description:"Room backend base URL" default:"https://game.shiftlayer.ai"`
	RulesURL      string         `long:"rules" description:"Clue rule service URL"`
	AgentsFile    flags.Filename `long:"agents" description:"JSON file listing agent candidates" required:"true"`
	ValidatorKey  string         `long:"validator-key" description:"This validator's identity key"`
	SampleSize    int            `long:"sample-size" description:"Seats to fill per match" default:"4"`
	ScoringWindow string         `long:"scoring-window" description:"Fairness and scoring window, e.g. '24 hours'" default:"1 days"`
	Listen        string         `long:"listen" description:"Status API listen address" default:":8080"`
	Pause         time.Duration  `long:"pause" description:"Wait between matches" default:"5s"`
}

func main() {
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	log := logger.Sugar()
	defer func() { _ = log.Sync() }()

	pool, err := loadPool(string(opts.AgentsFile))
	if err != nil {
		log.Fatalw("could not load agent pool", zap.Error(err))
	}
	if len(pool) < 4 {
		log.Fatalw("agent pool too small", "size", len(pool))
	}

	store, err := ledger.Open(opts.DBPath, log)
	if err != nil {
		log.Fatalw("could not open score ledger", zap.Error(err))
	}

	window := selector.ParseInterval(opts.ScoringWindow)
	probe := agent.NewProbe(log)
	picker := selector.New(store, probe, log, selector.Config{Window: window})

	scores := agent.NewScoreClient(
		opts.BackendBase+"/api/v1/scores",
		opts.BackendBase+"/api/v1/scores/all",
		opts.ValidatorKey,
		log,
	)

	orch := orchestrator.New(orchestrator.Config{
		Pool:       pool,
		SampleSize: opts.SampleSize,
		Pause:      opts.Pause,
		Selector:   picker,
		Client:     agent.NewClient(log),
		Rules:      agent.NewRuleService(opts.RulesURL, log),
		Mirror:     agent.NewMirror(opts.BackendBase, opts.ValidatorKey, log),
		Store:      store,
		Sink:       scores,
		Feed:       scores,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	isDev := os.Getenv("NAT_ENV") != "production"
	api := &http.Server{
		Addr:    opts.Listen,
		Handler: server.New(store, log, nil).Handler(isDev),
	}
	go func() {
		log.Infow("status API listening", "addr", opts.Listen)
		if err := api.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("status API failed", zap.Error(err))
		}
	}()

	log.Infow("starting match loop", "pool", len(pool), "window", window.String())
	if err := orch.Run(ctx); err != nil && err != context.Canceled {
		log.Errorw("match loop stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		log.Errorw("status API shutdown failed", zap.Error(err))
	}
}

// loadPool reads the candidate roster from a JSON file of
// {uid, hotkey, coldkey, addr} objects.
func loadPool(path string) ([]selector.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pool []selector.Candidate
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, err
	}
	return pool, nil
}
