// Package orchestrator runs the match loop: pick a roster, play a game by
// querying the seated agents, then persist and sync the outcome.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	codenames "github.com/shiftlayer/codenames-validator"
	"github.com/shiftlayer/codenames-validator/agent"
	"github.com/shiftlayer/codenames-validator/internal/clock"
	"github.com/shiftlayer/codenames-validator/ledger"
	"github.com/shiftlayer/codenames-validator/selector"
)

// DefaultPause is the wait between consecutive matches.
const DefaultPause = 5 * time.Second

// Mover queries an agent for its next move.
type Mover interface {
	Move(ctx context.Context, addr string, req agent.MoveRequest) (*agent.MoveResponse, error)
}

// RoomMirror keeps the spectator backend in step with a running game.
type RoomMirror interface {
	Create(ctx context.Context, g *codenames.Game) string
	Update(ctx context.Context, roomID string, g *codenames.Game)
	Delete(ctx context.Context, roomID string)
}

// RosterPicker selects the four identities seated in a match.
type RosterPicker interface {
	Select(ctx context.Context, pool []selector.Candidate, k int, exclude []int64) ([]selector.Candidate, error)
}

// Ledger is the slice of the score store the orchestrator writes to.
type Ledger interface {
	RecordGame(result ledger.GameResult) error
	SeedSelections(hotkeys []string) error
	SyncPending(ctx context.Context, sink ledger.Sink) (int, error)
	PullMirror(ctx context.Context, feed ledger.Feed) (int, error)
}

// Config wires an Orchestrator.
type Config struct {
	Pool       []selector.Candidate
	SampleSize int
	Pause      time.Duration
	Clock      clock.Clock

	Selector RosterPicker
	Client   Mover
	Rules    agent.RuleChecker
	Mirror   RoomMirror
	Store    Ledger
	Sink     ledger.Sink
	Feed     ledger.Feed
}

// Orchestrator sequences matches end to end.
type Orchestrator struct {
	pool       []selector.Candidate
	sampleSize int
	pause      time.Duration
	clock      clock.Clock

	selector RosterPicker
	client   Mover
	rules    agent.RuleChecker
	mirror   RoomMirror
	store    Ledger
	sink     ledger.Sink
	feed     ledger.Feed

	log *zap.SugaredLogger
}

// New creates an Orchestrator.
func New(cfg Config, log *zap.SugaredLogger) *Orchestrator {
	o := &Orchestrator{
		pool:       cfg.Pool,
		sampleSize: cfg.SampleSize,
		pause:      cfg.Pause,
		clock:      cfg.Clock,
		selector:   cfg.Selector,
		client:     cfg.Client,
		rules:      cfg.Rules,
		mirror:     cfg.Mirror,
		store:      cfg.Store,
		sink:       cfg.Sink,
		feed:       cfg.Feed,
		log:        log,
	}
	if o.sampleSize == 0 {
		o.sampleSize = 4
	}
	if o.pause == 0 {
		o.pause = DefaultPause
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	return o
}

// Run plays matches until the context is cancelled. A failed match is
// logged and never stops the loop.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.store.SeedSelections(hotkeys(o.pool)); err != nil {
		o.log.Errorw("failed to seed selection counts", "error", err)
	}

	for {
		if err := o.RunMatch(ctx); err != nil {
			o.log.Errorw("match failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.pause):
		}
	}
}

// seats indexes the roster by position: red spymaster, red operative, blue
// spymaster, blue operative.
const (
	seatRS = iota
	seatRO
	seatBS
	seatBO
)

var seatTeams = [4]codenames.Team{codenames.TeamRed, codenames.TeamRed, codenames.TeamBlue, codenames.TeamBlue}
var seatRoles = [4]codenames.Role{codenames.RoleSpymaster, codenames.RoleOperative, codenames.RoleSpymaster, codenames.RoleOperative}

// RunMatch plays one full game. It aborts before play begins when the
// selector cannot fill all four seats.
func (o *Orchestrator) RunMatch(ctx context.Context) error {
	matchesStarted.Inc()

	roster, err := o.selector.Select(ctx, o.pool, o.sampleSize, nil)
	if err != nil {
		if errors.Is(err, selector.ErrSelectionShortfall) {
			selectionShortfalls.Inc()
		}
		return fmt.Errorf("failed to fill roster: %w", err)
	}
	if len(roster) < 4 {
		selectionShortfalls.Inc()
		return fmt.Errorf("roster has %d seats filled of 4: %w", len(roster), selector.ErrSelectionShortfall)
	}
	roster = roster[:4]

	participants := make([]codenames.Participant, 4)
	for i, c := range roster {
		participants[i] = codenames.Participant{
			Name:   fmt.Sprintf("Agent %d", c.UID),
			Hotkey: c.Hotkey,
			Team:   seatTeams[i],
			Role:   seatRoles[i],
		}
	}
	o.log.Infow("seated roster",
		"red_spymaster", roster[seatRS].UID, "red_operative", roster[seatRO].UID,
		"blue_spymaster", roster[seatBS].UID, "blue_operative", roster[seatBO].UID)

	words, err := codenames.RandomWords(codenames.DeckSize)
	if err != nil {
		return fmt.Errorf("failed to draw words: %w", err)
	}
	deck, err := codenames.NewDeck(words)
	if err != nil {
		return fmt.Errorf("failed to build deck: %w", err)
	}
	game, err := codenames.NewGame(participants, deck)
	if err != nil {
		return fmt.Errorf("failed to start game: %w", err)
	}

	startedAt := o.clock.Now().Unix()
	roomID := o.mirror.Create(ctx, game)

	for !game.Over() {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.playTurn(ctx, game, roster)
		o.mirror.Update(ctx, roomID, game)
	}

	endedAt := o.clock.Now().Unix()
	rewards := rewards(game)
	winner := winnerValue(game)

	result := ledger.GameResult{
		RoomID:    roomID,
		RS:        roster[seatRS].Hotkey,
		RO:        roster[seatRO].Hotkey,
		BS:        roster[seatBS].Hotkey,
		BO:        roster[seatBO].Hotkey,
		Winner:    winner,
		StartedAt: startedAt,
		EndedAt:   endedAt,
		ScoreRS:   rewards[seatRS],
		ScoreRO:   rewards[seatRO],
		ScoreBS:   rewards[seatBS],
		ScoreBO:   rewards[seatBO],
		Reason:    string(game.Reason),
	}
	if err := o.store.RecordGame(result); err != nil {
		// The match itself stands; the row is lost until reconciliation.
		o.log.Errorw("failed to persist game result", "room_id", roomID, "error", err)
	}

	matchesCompleted.WithLabelValues(string(game.Reason)).Inc()
	o.log.Infow("match finished", "room_id", roomID, "winner", winner, "reason", game.Reason)

	if game.Reason == codenames.EndNoResponse {
		o.mirror.Delete(ctx, roomID)
	}

	o.sync(ctx)
	return nil
}

// playTurn queries the acting agent and applies its move.
func (o *Orchestrator) playTurn(ctx context.Context, game *codenames.Game, roster []selector.Candidate) {
	team, role := game.CurrentTeam, game.CurrentRole
	addr := o.seatAddr(roster, team, role)

	var cards []codenames.Card
	if role == codenames.RoleSpymaster {
		cards = game.SpymasterView()
	} else {
		cards = game.OperativeView()
		game.ResetAnimations()
	}

	req := agent.MoveRequest{
		YourTeam:      team,
		YourRole:      string(role),
		RemainingRed:  game.RemainingRed,
		RemainingBlue: game.RemainingBlue,
		Cards:         cardPtrs(cards),
	}
	if game.CurrentClue != nil {
		req.YourClue = &game.CurrentClue.Text
		req.YourNumber = &game.CurrentClue.Number
	}

	resp, err := o.client.Move(ctx, addr, req)
	if err != nil {
		o.log.Warnw("agent did not respond", "addr", addr, "team", team, "role", role, "error", err)
		o.forfeit(game)
		return
	}

	if role == codenames.RoleSpymaster {
		o.applySpymasterMove(ctx, game, roster, resp, req)
		return
	}
	o.applyOperativeMove(game, resp)
}

func (o *Orchestrator) applySpymasterMove(ctx context.Context, game *codenames.Game, roster []selector.Candidate, resp *agent.MoveResponse, req agent.MoveRequest) {
	if resp.ClueText == nil || resp.Number == nil {
		o.log.Warnw("spymaster returned no clue", "team", game.CurrentTeam)
		if err := game.RejectClue(codenames.Clue{}, "clue or number missing", resp.Reasoning); err != nil {
			o.log.Errorw("failed to reject clue", "error", err)
		}
		return
	}
	clue := codenames.Clue{Text: *resp.ClueText, Number: *resp.Number}
	o.log.Infow("received clue", "team", game.CurrentTeam, "clue", clue.Text, "number", clue.Number)

	valid, reason := o.checkClue(ctx, game, roster, clue, req)
	if !valid {
		o.log.Infow("clue rejected", "team", game.CurrentTeam, "clue", clue.Text, "reason", reason)
		if err := game.RejectClue(clue, reason, resp.Reasoning); err != nil {
			o.log.Errorw("failed to reject clue", "error", err)
		}
		return
	}

	if err := game.ApplyClue(clue, resp.Reasoning); err != nil {
		o.log.Errorw("failed to apply clue", "error", err)
		return
	}
	game.AdvanceTurn()
}

func (o *Orchestrator) applyOperativeMove(game *codenames.Game, resp *agent.MoveResponse) {
	if resp.Guesses == nil {
		o.log.Warnw("operative returned no guesses", "team", game.CurrentTeam)
		o.forfeit(game)
		return
	}
	o.log.Infow("received guesses", "team", game.CurrentTeam, "guesses", resp.Guesses)

	if err := game.ApplyGuesses(resp.Guesses, resp.Reasoning); err != nil {
		o.log.Errorw("failed to apply guesses", "error", err)
		return
	}
	if !game.Over() {
		game.AdvanceTurn()
	}
}

// checkClue asks the opposing spymaster for a verdict and, when it flags
// the clue, gets a second opinion from the rule service. An unreachable
// judge never fails a clue: play continues on the side of the mover.
func (o *Orchestrator) checkClue(ctx context.Context, game *codenames.Game, roster []selector.Candidate, clue codenames.Clue, req agent.MoveRequest) (bool, string) {
	judgeAddr := o.seatAddr(roster, game.CurrentTeam.Opponent(), codenames.RoleSpymaster)

	peerReq := agent.MoveRequest{
		YourTeam:      game.CurrentTeam.Opponent(),
		YourRole:      agent.RoleClueValidator,
		RemainingRed:  req.RemainingRed,
		RemainingBlue: req.RemainingBlue,
		YourClue:      &clue.Text,
		YourNumber:    &clue.Number,
		Cards:         req.Cards,
	}

	peerResp, err := o.client.Move(ctx, judgeAddr, peerReq)
	if err != nil || peerResp.ClueValidity == nil || *peerResp.ClueValidity {
		return true, ""
	}
	o.log.Warnw("peer spymaster flagged clue", "clue", clue.Text, "reasoning", peerResp.Reasoning)

	valid, reason, err := o.rules.Validate(ctx, clue.Text, clue.Number, game.BoardWords())
	if err != nil {
		o.log.Errorw("rule service unavailable, keeping clue", "error", err)
		return true, ""
	}
	return valid, reason
}

func (o *Orchestrator) forfeit(game *codenames.Game) {
	if err := game.Forfeit(codenames.EndNoResponse); err != nil {
		o.log.Errorw("failed to forfeit game", "error", err)
	}
}

// sync pushes pending results and refreshes the global mirror. Failures
// are retried on the next cycle.
func (o *Orchestrator) sync(ctx context.Context) {
	pushed, err := o.store.SyncPending(ctx, o.sink)
	if err != nil {
		o.log.Errorw("failed to push scores", "error", err)
	}
	scoresPushed.Add(float64(pushed))

	pulled, err := o.store.PullMirror(ctx, o.feed)
	if err != nil {
		o.log.Errorw("failed to pull score mirror", "error", err)
	}
	mirrorRowsPulled.Add(float64(pulled))
}

func (o *Orchestrator) seatAddr(roster []selector.Candidate, team codenames.Team, role codenames.Role) string {
	for i, c := range roster {
		if seatTeams[i] == team && seatRoles[i] == role {
			return c.Addr
		}
	}
	return ""
}

// rewards is winner take all: both winning seats get 1.0. No winner means
// an all-zero vector.
func rewards(game *codenames.Game) [4]float64 {
	if game.Winner == nil {
		return [4]float64{}
	}
	if *game.Winner == codenames.TeamRed {
		return [4]float64{1, 1, 0, 0}
	}
	return [4]float64{0, 0, 1, 1}
}

func winnerValue(game *codenames.Game) *string {
	if game.Winner == nil {
		return nil
	}
	w := string(*game.Winner)
	return &w
}

func cardPtrs(cards []codenames.Card) []*codenames.Card {
	out := make([]*codenames.Card, len(cards))
	for i := range cards {
		out[i] = &cards[i]
	}
	return out
}

func hotkeys(pool []selector.Candidate) []string {
	out := make([]string, 0, len(pool))
	for _, c := range pool {
		out = append(out, c.Hotkey)
	}
	return out
}
