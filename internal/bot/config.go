package bot

import (
	"github.com/example/vocabmaster/internal/quiz"
	"github.com/example/vocabmaster/internal/session"
)

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Difficulty used by the menu's study button
	DefaultDifficulty session.Difficulty
	// Quiz mode offered after a study session
	QuizMode quiz.Mode
	// Rows shown by /top
	LeaderboardSize int
	// Telegram user ids allowed to run admin commands
	Admins []int64
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		DefaultDifficulty: session.Medium,
		QuizMode:          quiz.Meaning,
		LeaderboardSize:   10,
	}
}
