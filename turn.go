package codenames

// ChatMessage is one entry in a game's append-only event log.
type ChatMessage struct {
	Sender    Role     `json:"sender"`
	Team      Team     `json:"team"`
	Message   string   `json:"message"`
	ClueText  *string  `json:"clueText,omitempty"`
	Number    *int     `json:"number,omitempty"`
	Guesses   []string `json:"guesses,omitempty"`
	Reasoning string   `json:"reasoning,omitempty"`
}

func (g *Game) appendChat(msg ChatMessage) {
	g.ChatHistory = append(g.ChatHistory, msg)
}

// AdvanceTurn moves to the next seat after a turn ends without a terminal
// outcome. A spymaster hands over to their own operative; an operative
// hands over to the opposing spymaster.
func (g *Game) AdvanceTurn() {
	if g.Over() {
		return
	}

	team := g.CurrentTeam
	role := g.CurrentRole
	g.PreviousTeam = &team
	g.PreviousRole = &role

	switch g.CurrentRole {
	case RoleSpymaster:
		g.CurrentRole = RoleOperative
	case RoleOperative:
		g.CurrentRole = RoleSpymaster
		g.CurrentTeam = g.CurrentTeam.Opponent()
	}
}
