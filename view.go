package codenames

// SpymasterView returns the board with every color visible.
func (g *Game) SpymasterView() []Card {
	view := make([]Card, len(g.Cards))
	for i, c := range g.Cards {
		view[i] = *c
	}
	return view
}

// OperativeView returns the board with colors stripped from unrevealed
// cards. Operatives only learn a card's color by revealing it.
func (g *Game) OperativeView() []Card {
	view := make([]Card, len(g.Cards))
	for i, c := range g.Cards {
		view[i] = *c
		if !c.Revealed {
			view[i].Color = ""
		}
	}
	return view
}

// ResetAnimations clears the just-revealed display flag on every card.
func (g *Game) ResetAnimations() {
	for _, c := range g.Cards {
		c.JustRevealed = false
	}
}
