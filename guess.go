package codenames

import (
	"fmt"
	"strings"
)

// ApplyGuesses processes an operative's guesses strictly in submission
// order. Words that name no hidden card are skipped without effect. A
// reveal can end the game (assassin, or a team's last card) or end the
// turn (any color that is not the guessing team's); matching-color reveals
// let processing continue to the next word. No guess cap is enforced here:
// the "number plus one" convention is left to the agents.
func (g *Game) ApplyGuesses(guesses []string, reasoning string) error {
	if g.Over() {
		return fmt.Errorf("game is over")
	}
	if g.CurrentRole != RoleOperative {
		return fmt.Errorf("only an operative can guess, current role is %s", g.CurrentRole)
	}

	for _, word := range guesses {
		card := g.hiddenCard(word)
		if card == nil {
			continue
		}

		card.Revealed = true
		card.JustRevealed = true

		switch card.Color {
		case ColorRed:
			g.RemainingRed--
		case ColorBlue:
			g.RemainingBlue--
		case ColorBystander, ColorAssassin:
		}

		if card.Color == ColorAssassin {
			g.end(g.CurrentTeam.Opponent(), EndAssassin)
			g.appendChat(ChatMessage{
				Sender:    RoleOperative,
				Team:      g.CurrentTeam,
				Message:   fmt.Sprintf("Assassin card '%s' found! Game over.", card.Word),
				Guesses:   guesses,
				Reasoning: reasoning,
			})
			return nil
		}

		if g.RemainingRed == 0 {
			g.end(TeamRed, EndRedAllCards)
			g.appendChat(ChatMessage{
				Sender:    RoleOperative,
				Team:      g.CurrentTeam,
				Message:   "All red cards found! Red team wins.",
				Guesses:   guesses,
				Reasoning: reasoning,
			})
			return nil
		}
		if g.RemainingBlue == 0 {
			g.end(TeamBlue, EndBlueAllCards)
			g.appendChat(ChatMessage{
				Sender:    RoleOperative,
				Team:      g.CurrentTeam,
				Message:   "All blue cards found! Blue team wins.",
				Guesses:   guesses,
				Reasoning: reasoning,
			})
			return nil
		}

		if card.Color != CardColor(g.CurrentTeam) {
			break
		}
	}

	g.CurrentGuesses = guesses
	g.appendChat(ChatMessage{
		Sender:    RoleOperative,
		Team:      g.CurrentTeam,
		Message:   fmt.Sprintf("Guessed cards: %s", strings.Join(guesses, ", ")),
		Guesses:   guesses,
		Reasoning: reasoning,
	})

	return nil
}

// hiddenCard finds the unrevealed card with an exact word match.
func (g *Game) hiddenCard(word string) *Card {
	for _, c := range g.Cards {
		if c.Word == word && !c.Revealed {
			return c
		}
	}
	return nil
}
