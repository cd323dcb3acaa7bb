package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mcoot/wordbomb/internal/dependencies/random"
	"github.com/mcoot/wordbomb/internal/model"
)

// Lexicon lists the dictionary words that contain a prompt
type Lexicon interface {
	WordsContaining(syllable string) []string
}

// Strategy defines how a bot answers a prompt
type Strategy interface {
	// ChooseWord picks a word containing syllable that is at least
	// minLength letters and not rejected by used
	ChooseWord(syllable string, minLength int, used func(string) bool) (string, bool)
}

// New returns the named strategy
func New(name string, lexicon Lexicon, rnd random.Random) (Strategy, error) {
	switch name {
	case model.BotStrategyRandom:
		return NewRandomStrategy(lexicon, rnd), nil
	case model.BotStrategyLongest:
		return NewLongestStrategy(lexicon), nil
	default:
		return nil, fmt.Errorf("unknown bot strategy %q (valid: %s)",
			name, strings.Join(model.ValidBotStrategies(), ", "))
	}
}

// candidates filters the lexicon's words for a prompt
func candidates(lexicon Lexicon, syllable string, minLength int, used func(string) bool) []string {
	var out []string
	for _, word := range lexicon.WordsContaining(syllable) {
		if utf8.RuneCountInString(word) < minLength || utf8.RuneCountInString(word) > model.MaxInputLength {
			continue
		}
		if used != nil && used(word) {
			continue
		}
		out = append(out, word)
	}
	return out
}
