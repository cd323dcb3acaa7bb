package scoring

import (
	"math"
	"sort"

	"github.com/mcoot/wordbomb/internal/model"
)

const (
	// LetterPoints is awarded per letter of an accepted word
	LetterPoints = 10
	// SpeedBonusMax is awarded for answering with the full timer remaining
	SpeedBonusMax = 50
	// LengthBonusThreshold is the word length after which extra letters earn LengthBonusPoints
	LengthBonusThreshold = 5
	LengthBonusPoints    = 5
)

// WordScore scores an accepted word of the given letter count.
// remaining is clamped into [0, max] seconds.
func WordScore(letters int, remaining, max float64) int {
	if letters < 0 {
		letters = 0
	}
	score := letters * LetterPoints

	if max > 0 {
		remaining = math.Max(0, math.Min(remaining, max))
		score += int(math.Round(SpeedBonusMax * remaining / max))
	}

	if extra := letters - LengthBonusThreshold; extra > 0 {
		score += extra * LengthBonusPoints
	}
	return score
}

// Rank orders players by score descending, ties broken by lives descending.
// Players tied on both keep their seat order.
func Rank(players []model.Player) []model.Ranking {
	rankings := make([]model.Ranking, len(players))
	for i, p := range players {
		rankings[i] = model.Ranking{
			PlayerID:       p.ID,
			Name:           p.Name,
			Score:          p.Score,
			Lives:          p.Lives,
			WordsCompleted: p.WordsCompleted,
		}
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		if rankings[i].Score != rankings[j].Score {
			return rankings[i].Score > rankings[j].Score
		}
		return rankings[i].Lives > rankings[j].Lives
	})

	for i := range rankings {
		rankings[i].Rank = i + 1
	}
	return rankings
}
