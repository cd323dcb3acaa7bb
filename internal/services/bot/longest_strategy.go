package bot

import "unicode/utf8"

// LongestStrategy plays the longest word available, since score grows
// with word length
type LongestStrategy struct {
	lexicon Lexicon
}

// NewLongestStrategy creates a new LongestStrategy
func NewLongestStrategy(lexicon Lexicon) *LongestStrategy {
	return &LongestStrategy{lexicon: lexicon}
}

// ChooseWord returns the longest playable word, alphabetically first on ties
func (s *LongestStrategy) ChooseWord(syllable string, minLength int, used func(string) bool) (string, bool) {
	best := ""
	for _, word := range candidates(s.lexicon, syllable, minLength, used) {
		if utf8.RuneCountInString(word) > utf8.RuneCountInString(best) {
			best = word
		}
	}
	return best, best != ""
}
