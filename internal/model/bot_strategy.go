package model

// Strategies the CLI auto player can answer turns with
const (
	BotStrategyRandom  = "random"
	BotStrategyLongest = "longest"
)

// BotStrategyDisplayName returns a label for a strategy name, or the name itself
func BotStrategyDisplayName(strategy string) string {
	switch strategy {
	case BotStrategyRandom:
		return "random word"
	case BotStrategyLongest:
		return "longest word"
	default:
		return strategy
	}
}

// ValidBotStrategies lists the names accepted by --auto
func ValidBotStrategies() []string {
	return []string{BotStrategyRandom, BotStrategyLongest}
}
