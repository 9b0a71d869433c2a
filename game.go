package codenames

import "fmt"

// EndReason explains why a game reached its terminal state.
type EndReason string

// End reasons.
const (
	EndCompleted    EndReason = "completed"
	EndInvalidClue  EndReason = "invalid_clue"
	EndAssassin     EndReason = "assassin"
	EndRedAllCards  EndReason = "red_all_cards"
	EndBlueAllCards EndReason = "blue_all_cards"
	EndNoResponse   EndReason = "no_response"
)

// Game is the full state of a single match. It is created once with a
// shuffled deck and a four-seat roster, mutated turn by turn, and discarded
// once Winner is set.
type Game struct {
	Cards          []*Card       `json:"cards"`
	ChatHistory    []ChatMessage `json:"chatHistory"`
	CurrentTeam    Team          `json:"currentTeam"`
	CurrentRole    Role          `json:"currentRole"`
	PreviousTeam   *Team         `json:"previousTeam"`
	PreviousRole   *Role         `json:"previousRole"`
	RemainingRed   int           `json:"remainingRed"`
	RemainingBlue  int           `json:"remainingBlue"`
	CurrentClue    *Clue         `json:"currentClue"`
	CurrentGuesses []string      `json:"currentGuesses"`
	Winner         *Team         `json:"gameWinner"`
	Reason         EndReason     `json:"-"`
	Participants   []Participant `json:"participants"`
}

// NewGame starts a game on the given deck. The roster must hold exactly
// four participants covering each (team, role) seat once. Red's spymaster
// always moves first.
func NewGame(participants []Participant, cards []*Card) (*Game, error) {
	if len(participants) != 4 {
		return nil, fmt.Errorf("a game needs exactly 4 participants, got %d", len(participants))
	}

	seats := map[Team]map[Role]bool{
		TeamRed:  {},
		TeamBlue: {},
	}
	for _, p := range participants {
		switch p.Team {
		case TeamRed, TeamBlue:
		default:
			return nil, fmt.Errorf("participant %q has unknown team %q", p.Name, p.Team)
		}
		switch p.Role {
		case RoleSpymaster, RoleOperative:
		default:
			return nil, fmt.Errorf("participant %q has unknown role %q", p.Name, p.Role)
		}
		if seats[p.Team][p.Role] {
			return nil, fmt.Errorf("seat %s/%s filled twice", p.Team, p.Role)
		}
		seats[p.Team][p.Role] = true
	}

	if len(cards) != DeckSize {
		return nil, fmt.Errorf("a game needs a %d-card deck, got %d cards", DeckSize, len(cards))
	}

	return &Game{
		Cards:         cards,
		CurrentTeam:   TeamRed,
		CurrentRole:   RoleSpymaster,
		RemainingRed:  RedCards,
		RemainingBlue: BlueCards,
		Participants:  participants,
	}, nil
}

// Over reports whether a winner has been decided.
func (g *Game) Over() bool {
	return g.Winner != nil
}

// Seat returns the participant occupying the given team and role.
func (g *Game) Seat(team Team, role Role) (Participant, error) {
	for _, p := range g.Participants {
		if p.Team == team && p.Role == role {
			return p, nil
		}
	}
	return Participant{}, fmt.Errorf("no participant seated at %s/%s", team, role)
}

// Acting returns the participant whose turn it is.
func (g *Game) Acting() (Participant, error) {
	return g.Seat(g.CurrentTeam, g.CurrentRole)
}

// BoardWords lists the words still hidden on the board.
func (g *Game) BoardWords() []string {
	var words []string
	for _, c := range g.Cards {
		if !c.Revealed {
			words = append(words, c.Word)
		}
	}
	return words
}

// ApplyClue records an accepted clue from the current spymaster. The
// operative turn it opens starts once AdvanceTurn is called.
func (g *Game) ApplyClue(clue Clue, reasoning string) error {
	if g.Over() {
		return fmt.Errorf("game is over")
	}
	if g.CurrentRole != RoleSpymaster {
		return fmt.Errorf("only a spymaster can give a clue, current role is %s", g.CurrentRole)
	}

	g.CurrentClue = &clue
	g.appendChat(ChatMessage{
		Sender:    RoleSpymaster,
		Team:      g.CurrentTeam,
		Message:   fmt.Sprintf("Gave clue '%s' with number %d", clue.Text, clue.Number),
		ClueText:  &clue.Text,
		Number:    &clue.Number,
		Reasoning: reasoning,
	})

	return nil
}

// RejectClue ends the game because the current spymaster's clue broke the
// rules. The opposing team wins and no card is touched.
func (g *Game) RejectClue(clue Clue, reason, reasoning string) error {
	if g.Over() {
		return fmt.Errorf("game is over")
	}
	if g.CurrentRole != RoleSpymaster {
		return fmt.Errorf("only a spymaster's clue can be rejected, current role is %s", g.CurrentRole)
	}

	g.end(g.CurrentTeam.Opponent(), EndInvalidClue)
	g.appendChat(ChatMessage{
		Sender:    RoleSpymaster,
		Team:      g.CurrentTeam,
		Message:   fmt.Sprintf("Gave invalid clue '%s' with number %d. Reason: %s", clue.Text, clue.Number, reason),
		ClueText:  &clue.Text,
		Number:    &clue.Number,
		Reasoning: reasoning,
	})

	return nil
}

// Forfeit ends the game against the current team, used when the acting
// agent never produced a usable move.
func (g *Game) Forfeit(reason EndReason) error {
	if g.Over() {
		return fmt.Errorf("game is over")
	}

	g.end(g.CurrentTeam.Opponent(), reason)
	g.appendChat(ChatMessage{
		Sender:    g.CurrentRole,
		Team:      g.CurrentTeam,
		Message:   "No response received. Game over.",
		Reasoning: "No response received.",
	})

	return nil
}

// end sets the terminal state. Winner is written exactly once.
func (g *Game) end(winner Team, reason EndReason) {
	if g.Winner != nil {
		return
	}
	g.Winner = &winner
	g.Reason = reason
	g.ResetAnimations()
}
