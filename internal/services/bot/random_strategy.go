package bot

import (
	"github.com/mcoot/wordbomb/internal/dependencies/random"
)

// RandomStrategy picks any playable word
type RandomStrategy struct {
	lexicon Lexicon
	random  random.Random
}

// NewRandomStrategy creates a new RandomStrategy
func NewRandomStrategy(lexicon Lexicon, rnd random.Random) *RandomStrategy {
	return &RandomStrategy{lexicon: lexicon, random: rnd}
}

// ChooseWord returns a random playable word
func (s *RandomStrategy) ChooseWord(syllable string, minLength int, used func(string) bool) (string, bool) {
	words := candidates(s.lexicon, syllable, minLength, used)
	if len(words) == 0 {
		return "", false
	}
	return random.Pick(s.random, words), true
}
