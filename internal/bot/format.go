package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/vocabmaster/internal/quiz"
	"github.com/example/vocabmaster/internal/session"
	"github.com/example/vocabmaster/internal/spaced_repetition"
	"github.com/example/vocabmaster/pkg/models"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates an inline keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// MainMenuButtons returns the buttons for the main menu
func (b *Bot) MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "🎯 Study", CallbackData: startCallback(session.KindStudy, b.config.DefaultDifficulty)},
			{Text: "🔁 Review", CallbackData: startCallback(session.KindReview, session.Medium)},
		},
		{
			{Text: "❌ Mistakes", CallbackData: startCallback(session.KindMistakes, session.Medium)},
			{Text: "⭐ Starred", CallbackData: startCallback(session.KindStarred, session.Medium)},
		},
		{
			{Text: "📊 Statistics", CallbackData: mustCallback(callbackShowStats)},
			{Text: "🎯 Daily plan", CallbackData: planCallback(0)},
		},
	}
}

func difficultyButtons() [][]MenuButton {
	return [][]MenuButton{{
		{Text: "Easy (5)", CallbackData: startCallback(session.KindStudy, session.Easy)},
		{Text: "Medium (10)", CallbackData: startCallback(session.KindStudy, session.Medium)},
		{Text: "Hard (20)", CallbackData: startCallback(session.KindStudy, session.Hard)},
	}}
}

// answerButtons are shown under every card
func answerButtons(word models.Word) [][]MenuButton {
	star := "☆ Star"
	if word.Starred {
		star = "★ Unstar"
	}
	return [][]MenuButton{
		{
			{Text: "😵 Forgot", CallbackData: answerCallback(word.ID, spaced_repetition.Forgot)},
			{Text: "🤔 Vague", CallbackData: answerCallback(word.ID, spaced_repetition.Vague)},
		},
		{
			{Text: "🙂 Fluent", CallbackData: answerCallback(word.ID, spaced_repetition.Fluent)},
			{Text: "😎 Perfect", CallbackData: answerCallback(word.ID, spaced_repetition.Perfect)},
		},
		{
			{Text: star, CallbackData: starCallback(word.ID)},
		},
	}
}

// libraryButtons leaves out datasets whose id does not fit in callback data;
// those stay reachable through /library <id>
func (b *Bot) libraryButtons(datasets []models.Dataset) [][]MenuButton {
	rows := make([][]MenuButton, 0, len(datasets))
	for _, ds := range datasets {
		data, err := encodeCallback(callbackLibrary, ds.ID)
		if err != nil {
			b.log.Warn("dataset left out of the library menu", "dataset", ds.ID, "error", err)
			continue
		}
		rows = append(rows, []MenuButton{{
			Text:         fmt.Sprintf("%s (%d)", ds.Name, len(ds.Words)),
			CallbackData: data,
		}})
	}
	return rows
}

// planTargets are the daily targets offered as buttons
var planTargets = []int{10, 20, 50, 100}

func planButtons() [][]MenuButton {
	row := make([]MenuButton, 0, len(planTargets))
	for _, n := range planTargets {
		row = append(row, MenuButton{Text: fmt.Sprintf("%d / day", n), CallbackData: planCallback(n)})
	}
	return [][]MenuButton{row}
}

func quizOfferButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "📝 Meaning quiz", CallbackData: mustCallback(callbackQuizStart, string(quiz.Meaning))},
			{Text: "🧩 Cloze quiz", CallbackData: mustCallback(callbackQuizStart, string(quiz.Cloze))},
		},
		{
			{Text: "🏠 Menu", CallbackData: mustCallback(callbackMainMenu)},
		},
	}
}

func quizButtons(index int, q quiz.Question) [][]MenuButton {
	rows := make([][]MenuButton, 0, len(q.Options))
	for i, opt := range q.Options {
		rows = append(rows, []MenuButton{{Text: opt, CallbackData: quizPickCallback(index, i)}})
	}
	return rows
}

// formatCard renders the item awaiting an answer; the translation stays hidden
func formatCard(word models.Word, position, total int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Card %d/%d\n\n", position+1, total)
	sb.WriteString(word.Headword)
	if word.Phonetic != "" {
		fmt.Fprintf(&sb, "  %s", word.Phonetic)
	}
	sb.WriteString("\n\nHow well do you remember it?")
	return sb.String()
}

// formatReveal shows the answer to the card just graded
func formatReveal(res session.AnswerResult, quality spaced_repetition.Quality) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", res.Word.Headword, res.Word.Translation)
	if res.Word.Example != "" {
		fmt.Fprintf(&sb, "%s\n", res.Word.Example)
	}
	fmt.Fprintf(&sb, "\n%s, next review in %d %s.", quality, res.Progress.Interval, plural(res.Progress.Interval, "day", "days"))
	if res.PointsAwarded > 0 {
		fmt.Fprintf(&sb, " +%d points!", res.PointsAwarded)
	}
	return sb.String()
}

func formatDashboard(d session.Dashboard) string {
	var sb strings.Builder
	sb.WriteString("📊 Your statistics\n\n")
	fmt.Fprintf(&sb, "🔥 Streak: %d %s\n", d.Streak, plural(d.Streak, "day", "days"))
	fmt.Fprintf(&sb, "🏆 Points: %d\n", d.Points)
	fmt.Fprintf(&sb, "%s\n", formatPlan(d.LearnedToday, d.DailyTarget))
	fmt.Fprintf(&sb, "📚 Library: %d words\n", d.LibrarySize)
	fmt.Fprintf(&sb, "   Mastered: %d · Learning: %d · New: %d\n", d.Mastered, d.Learning, d.New)
	fmt.Fprintf(&sb, "🔁 Due for review: %d\n", d.DueCount)
	fmt.Fprintf(&sb, "❌ Mistakes: %d\n", d.MistakeCount)
	fmt.Fprintf(&sb, "⭐ Starred: %d", d.StarredCount)
	return sb.String()
}

// formatPlan renders today's progress toward the daily target as a bar
func formatPlan(learned, target int) string {
	const width = 10
	filled := min(width, learned*width/max(target, 1))
	return fmt.Sprintf("🎯 Today: %d/%d words %s%s", learned, target,
		strings.Repeat("▰", filled), strings.Repeat("▱", width-filled))
}

func formatSummary(s session.Summary) string {
	return fmt.Sprintf("✅ %s session complete: %d answered, %d to revisit.\n\n%s",
		s.Kind, s.Answered, s.Weak, formatDashboard(s.Dashboard))
}

func formatEmpty(kind session.Kind) string {
	switch kind {
	case session.KindReview:
		return "Nothing is due for review right now. Come back later or study new words."
	case session.KindMistakes:
		return "No mistakes to drill. Well done!"
	case session.KindStarred:
		return "You have not starred any words yet."
	default:
		return "Your library is empty. Pick one with /library or add words with /scan."
	}
}

func formatLookup(e models.LookupEntry) string {
	var sb strings.Builder
	sb.WriteString(e.Headword)
	if e.Phonetic != "" {
		fmt.Fprintf(&sb, "  %s", e.Phonetic)
	}
	fmt.Fprintf(&sb, "\n%s\n", e.Translation)
	if e.Example != "" {
		fmt.Fprintf(&sb, "\nExample: %s\n", e.Example)
	}
	if e.Mnemonic != "" {
		fmt.Fprintf(&sb, "\nMnemonic: %s\n", e.Mnemonic)
	}
	if len(e.Etymology) > 0 {
		sb.WriteString("\nEtymology:\n")
		for _, p := range e.Etymology {
			fmt.Fprintf(&sb, "  %s (%s): %s\n", p.Part, p.Type, p.Meaning)
		}
	}
	if len(e.Cognates) > 0 {
		fmt.Fprintf(&sb, "\nRelated: %s\n", strings.Join(e.Cognates, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatLeaderboard(entries []models.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "Nobody has scored yet."
	}
	var sb strings.Builder
	sb.WriteString("🏆 Leaderboard\n")
	for i, e := range entries {
		fmt.Fprintf(&sb, "\n%d. %s: %d", i+1, e.Username, e.Points)
	}
	return sb.String()
}

func formatQuizQuestion(q quiz.Question, index, total int) string {
	ask := "What does it mean?"
	if q.Mode == quiz.Cloze {
		ask = "Which word fills the blank?"
	}
	return fmt.Sprintf("Question %d/%d\n\n%s\n\n%s", index+1, total, q.Prompt, ask)
}

func formatQuizResult(res quiz.Result, points int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Quiz finished: %d/%d correct", res.Correct, res.Total)
	if points > 0 {
		fmt.Fprintf(&sb, ", +%d points", points)
	}
	sb.WriteString(".")
	if len(res.Wrong) > 0 {
		words := make([]string, len(res.Wrong))
		for i, w := range res.Wrong {
			words[i] = w.Headword
		}
		fmt.Fprintf(&sb, "\nAdded to mistakes: %s", strings.Join(words, ", "))
	}
	return sb.String()
}

func reminderText(count int) string {
	return fmt.Sprintf("You have %d %s to review! Tap Review to start.", count, plural(count, "word", "words"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
