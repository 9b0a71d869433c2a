package codenames

import "fmt"

// Team is one of the two sides playing a game.
type Team string

// Teams.
const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// Opponent returns the other team.
func (t Team) Opponent() Team {
	if t == TeamRed {
		return TeamBlue
	}
	return TeamRed
}

// Role is the seat a participant occupies on a team.
type Role string

// Roles.
const (
	RoleSpymaster Role = "spymaster"
	RoleOperative Role = "operative"
)

// CardColor is the hidden affiliation of a card.
type CardColor string

// Card colors.
const (
	ColorRed       CardColor = "red"
	ColorBlue      CardColor = "blue"
	ColorBystander CardColor = "bystander"
	ColorAssassin  CardColor = "assassin"
)

// Card is a single word on the board. JustRevealed is a transient display
// flag cleared before each operative view.
type Card struct {
	Word         string    `json:"word"`
	Color        CardColor `json:"color,omitempty"`
	Revealed     bool      `json:"isRevealed"`
	JustRevealed bool      `json:"wasRecentlyRevealed"`
}

func (c *Card) String() string {
	state := "hidden"
	if c.Revealed {
		state = "revealed"
	}
	return fmt.Sprintf("%s(%s,%s)", c.Word, c.Color, state)
}

// Participant is one of the four fixed identities seated in a game.
type Participant struct {
	Name   string `json:"name"`
	Hotkey string `json:"hotkey"`
	Team   Team   `json:"team"`
	Role   Role   `json:"role"`
}

// Clue is a spymaster's hint: a word plus how many board words it covers.
// A number of zero means the clue carries no guess cap.
type Clue struct {
	Text   string `json:"clueText"`
	Number int    `json:"number"`
}

func (c *Clue) String() string {
	return fmt.Sprintf("%s %d", c.Text, c.Number)
}
