package codenames

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"math/rand"
	"strings"
)

//go:embed words.txt
var wordList []byte

// Deck layout. Every deck has exactly 25 cards split this way.
const (
	DeckSize       = 25
	RedCards       = 9
	BlueCards      = 8
	BystanderCards = 7
	AssassinCards  = 1
)

// Words returns the packaged English word list. Blank lines are skipped.
func Words() []string {
	var words []string

	s := bufio.NewScanner(bytes.NewReader(wordList))
	for s.Scan() {
		w := strings.TrimSpace(s.Text())
		if w != "" {
			words = append(words, w)
		}
	}

	return words
}

// RandomWords picks n distinct words from the packaged list.
func RandomWords(n int) ([]string, error) {
	words := Words()
	if n > len(words) {
		return nil, fmt.Errorf("requested %d words but the list only has %d", n, len(words))
	}

	rand.Shuffle(len(words), func(i, j int) {
		words[i], words[j] = words[j], words[i]
	})

	return words[:n], nil
}

// NewDeck builds a shuffled 25-card deck from the given words: 9 red, 8
// blue, 7 bystanders, and a single assassin. Words must be unique.
func NewDeck(words []string) ([]*Card, error) {
	if len(words) != DeckSize {
		return nil, fmt.Errorf("a deck needs exactly %d words, got %d", DeckSize, len(words))
	}

	seen := map[string]bool{}
	for _, w := range words {
		if seen[w] {
			return nil, fmt.Errorf("duplicate word %q in deck", w)
		}
		seen[w] = true
	}

	var colors []CardColor
	for i := 0; i < RedCards; i++ {
		colors = append(colors, ColorRed)
	}
	for i := 0; i < BlueCards; i++ {
		colors = append(colors, ColorBlue)
	}
	for i := 0; i < BystanderCards; i++ {
		colors = append(colors, ColorBystander)
	}
	colors = append(colors, ColorAssassin)

	cards := make([]*Card, DeckSize)
	for i, w := range words {
		cards[i] = &Card{
			Word:  w,
			Color: colors[i],
		}
	}

	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})

	return cards, nil
}
