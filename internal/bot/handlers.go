package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/vocabmaster/internal/catalog"
	"github.com/example/vocabmaster/internal/database"
	"github.com/example/vocabmaster/internal/lookup"
	"github.com/example/vocabmaster/internal/quiz"
	"github.com/example/vocabmaster/internal/session"
	"github.com/example/vocabmaster/internal/spaced_repetition"
	"github.com/example/vocabmaster/pkg/models"
)

const helpText = `Welcome to VocabMaster! 🎓

/study [easy|medium|hard] - learn new words
/review - review words that are due
/mistakes - drill the words you got wrong
/starred - go through your starred words
/quiz [meaning|cloze] - quiz the words of your last study session
/stop - abandon the running session
/stats - your statistics
/plan [words] - show or set your daily target
/top - leaderboard
/library [id] - choose a word list
/lookup <word> - dictionary entry with a mnemonic
/scan <text> - add the words of a text to your library
/link <username> <password> - use an account created on the command line
/menu - show the main menu`

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	if message.From == nil {
		return fmt.Errorf("invalid message: required fields are missing")
	}
	chatID := message.Chat.ID
	args := strings.TrimSpace(message.CommandArguments())

	// /link must not auto-register the chat first
	if message.Command() == "link" {
		return b.handleLink(ctx, chatID, args)
	}

	user, err := b.userFor(ctx, chatID)
	if err != nil {
		return err
	}

	switch message.Command() {
	case "start", "help":
		return b.send(chatID, helpText, b.MainMenuButtons())
	case "menu":
		return b.showMainMenu(chatID)
	case "study":
		if args == "" {
			return b.send(chatID, "Choose a difficulty:", difficultyButtons())
		}
		difficulty, err := session.ParseDifficulty(args)
		if err != nil {
			return err
		}
		return b.startSession(ctx, chatID, user, session.KindStudy, difficulty)
	case "review":
		return b.startSession(ctx, chatID, user, session.KindReview, session.Medium)
	case "mistakes":
		return b.startSession(ctx, chatID, user, session.KindMistakes, session.Medium)
	case "starred":
		return b.startSession(ctx, chatID, user, session.KindStarred, session.Medium)
	case "stop":
		b.workflow.Abandon(user.Username)
		return b.send(chatID, "Session stopped. Answers so far are saved.", b.MainMenuButtons())
	case "quiz":
		mode := b.config.QuizMode
		if args != "" {
			mode = quiz.Mode(strings.ToLower(args))
		}
		return b.startQuiz(ctx, chatID, user, mode)
	case "stats":
		return b.handleStats(ctx, chatID, user)
	case "plan":
		if args == "" {
			return b.showPlan(ctx, chatID, user)
		}
		target, err := strconv.Atoi(args)
		if err != nil {
			return b.send(chatID, "Usage: /plan <words per day>", planButtons())
		}
		return b.setPlan(ctx, chatID, user, target)
	case "top":
		return b.handleLeaderboard(ctx, chatID)
	case "library":
		if args == "" {
			return b.handleLibraryMenu(chatID, user)
		}
		return b.selectLibrary(ctx, chatID, user, args)
	case "lookup":
		return b.handleLookup(ctx, chatID, args)
	case "scan":
		return b.handleScan(ctx, chatID, args)
	case "remind":
		if !b.isAdmin(message.From.ID) {
			return b.send(chatID, "This command is only available for administrators.", nil)
		}
		return b.handleRemind(ctx, chatID, user)
	case "remind_all":
		if !b.isAdmin(message.From.ID) {
			return b.send(chatID, "This command is only available for administrators.", nil)
		}
		return b.handleRemindAll(ctx, chatID)
	default:
		return b.send(chatID, "Unknown command. Use /help to see what I can do.", b.MainMenuButtons())
	}
}

// handleText treats plain text as a lookup for a single word and as a scan otherwise
func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) error {
	text := strings.TrimSpace(message.Text)
	if text == "" {
		return b.send(message.Chat.ID, "I don't understand. Use /menu to show the main menu.", b.MainMenuButtons())
	}
	if _, err := b.userFor(ctx, message.Chat.ID); err != nil {
		return err
	}
	if len(strings.Fields(text)) == 1 {
		return b.handleLookup(ctx, message.Chat.ID, text)
	}
	return b.handleScan(ctx, message.Chat.ID, text)
}

// handleCallbackQuery handles inline button presses
func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.log.Debug("failed to acknowledge callback", "error", err)
	}
	if query.Message == nil || query.Message.Chat == nil {
		return nil
	}
	chatID := query.Message.Chat.ID

	cb, err := parseCallback(query.Data)
	if err != nil {
		return err
	}
	user, err := b.userFor(ctx, chatID)
	if err != nil {
		return err
	}

	switch cb.Action {
	case callbackMainMenu:
		return b.showMainMenu(chatID)
	case callbackShowStats:
		return b.handleStats(ctx, chatID, user)
	case callbackStart:
		kind, difficulty, err := cb.session()
		if err != nil {
			return err
		}
		return b.startSession(ctx, chatID, user, kind, difficulty)
	case callbackAnswer:
		wordID, q, err := cb.answer()
		if err != nil {
			return err
		}
		return b.answer(ctx, chatID, user, wordID, q)
	case callbackStar:
		id, err := cb.wordID()
		if err != nil {
			return err
		}
		return b.toggleStar(ctx, chatID, id)
	case callbackLibrary:
		return b.selectLibrary(ctx, chatID, user, cb.Args[0])
	case callbackQuizStart:
		mode, err := cb.quizMode()
		if err != nil {
			return err
		}
		return b.startQuiz(ctx, chatID, user, mode)
	case callbackQuizPick:
		question, option, err := cb.quizPick()
		if err != nil {
			return err
		}
		return b.pickQuizOption(ctx, chatID, user, question, option)
	case callbackPlan:
		target, err := cb.target()
		if err != nil {
			return err
		}
		if target == 0 {
			return b.showPlan(ctx, chatID, user)
		}
		return b.setPlan(ctx, chatID, user, target)
	}
	return nil
}

// showMainMenu shows the main menu
func (b *Bot) showMainMenu(chatID int64) error {
	return b.send(chatID, "Main Menu - choose an option:", b.MainMenuButtons())
}

func (b *Bot) handleLink(ctx context.Context, chatID int64, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return b.send(chatID, "Usage: /link <username> <password>", nil)
	}
	user, err := b.store.Authenticate(ctx, fields[0], fields[1])
	if err != nil {
		return err
	}
	if user == nil {
		return b.send(chatID, "Wrong username or password.", nil)
	}
	if err := b.store.LinkChat(ctx, user.Username, chatID); err != nil {
		return err
	}
	if err := b.ensureLibrary(ctx, user); err != nil {
		return err
	}
	b.log.Info("chat linked", "user", user.Username)
	return b.send(chatID, fmt.Sprintf("This chat now belongs to %s.", user.Username), b.MainMenuButtons())
}

func (b *Bot) startSession(ctx context.Context, chatID int64, user *models.User, kind session.Kind, difficulty session.Difficulty) error {
	res, err := b.workflow.StartSession(ctx, user.Username, kind, difficulty)
	if err != nil {
		return err
	}
	if res.IsEmpty() {
		return b.send(chatID, formatEmpty(res.Empty.Kind), b.MainMenuButtons())
	}
	if kind == session.KindStudy {
		b.mu.Lock()
		b.studied[user.Username] = append([]models.Word(nil), res.Session.Items...)
		b.mu.Unlock()
	}
	return b.showCard(chatID, res.Session)
}

func (b *Bot) showCard(chatID int64, sess *session.Session) error {
	word, ok := sess.Current()
	if !ok {
		return session.ErrNoActiveSession
	}
	return b.send(chatID, formatCard(word, sess.Position(), len(sess.Items)), answerButtons(word))
}

func (b *Bot) answer(ctx context.Context, chatID int64, user *models.User, wordID int64, quality spaced_repetition.Quality) error {
	res, err := b.workflow.RecordAnswer(ctx, user.Username, wordID, quality)
	if err != nil {
		if res.Next == nil && res.Summary == nil {
			return err
		}
		// the answer itself was saved
		b.log.Warn("answer recorded with errors", "user", user.Username, "error", err)
	}

	if err := b.send(chatID, formatReveal(res, quality), nil); err != nil {
		return err
	}

	if res.Status == session.Advanced {
		sess := b.workflow.Active(user.Username)
		if sess == nil {
			return session.ErrNoActiveSession
		}
		return b.showCard(chatID, sess)
	}

	buttons := b.MainMenuButtons()
	if res.Summary.Kind == session.KindStudy && b.hasStudied(user.Username) {
		buttons = quizOfferButtons()
	}
	return b.send(chatID, formatSummary(*res.Summary), buttons)
}

func (b *Bot) hasStudied(username string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.studied[username]) > 0
}

func (b *Bot) toggleStar(ctx context.Context, chatID int64, wordID int64) error {
	starred, err := b.store.ToggleStar(ctx, wordID)
	if errors.Is(err, database.ErrNotFound) {
		return b.send(chatID, "That word no longer exists.", nil)
	}
	if err != nil {
		return err
	}
	if starred {
		return b.send(chatID, "⭐ Starred.", nil)
	}
	return b.send(chatID, "Star removed.", nil)
}

func (b *Bot) handleStats(ctx context.Context, chatID int64, user *models.User) error {
	dash, err := b.workflow.Dashboard(ctx, user.Username)
	if err != nil {
		return err
	}
	return b.send(chatID, formatDashboard(dash), b.MainMenuButtons())
}

func (b *Bot) showPlan(ctx context.Context, chatID int64, user *models.User) error {
	dash, err := b.workflow.Dashboard(ctx, user.Username)
	if err != nil {
		return err
	}
	return b.send(chatID, formatPlan(dash.LearnedToday, dash.DailyTarget)+"\n\nPick a new daily target:", planButtons())
}

func (b *Bot) setPlan(ctx context.Context, chatID int64, user *models.User, target int) error {
	if err := b.workflow.SetDailyTarget(ctx, user.Username, target); err != nil {
		return err
	}
	dash, err := b.workflow.Dashboard(ctx, user.Username)
	if err != nil {
		return err
	}
	return b.send(chatID, "Daily target saved.\n"+formatPlan(dash.LearnedToday, dash.DailyTarget), b.MainMenuButtons())
}

func (b *Bot) handleLeaderboard(ctx context.Context, chatID int64) error {
	entries, err := b.store.Leaderboard(ctx, b.config.LeaderboardSize)
	if err != nil {
		return err
	}
	return b.send(chatID, formatLeaderboard(entries), nil)
}

func (b *Bot) handleLibraryMenu(chatID int64, user *models.User) error {
	datasets, err := catalog.Datasets()
	if err != nil {
		return err
	}
	current := user.ActiveDataset
	if current == "" {
		current = "default"
	}
	return b.send(chatID, fmt.Sprintf("Current library: %s\nChoose a word list:", current), b.libraryButtons(datasets))
}

func (b *Bot) selectLibrary(ctx context.Context, chatID int64, user *models.User, id string) error {
	ds, ok, err := catalog.FindDataset(id)
	if err != nil {
		return err
	}
	if !ok {
		return b.send(chatID, fmt.Sprintf("There is no word list called %q. Use /library to see them.", id), nil)
	}
	seeded, err := b.catalog.EnsureDataset(ctx, ds.ID)
	if err != nil {
		return err
	}
	if err := b.store.SetActiveDataset(ctx, user.Username, ds.ID); err != nil {
		return err
	}
	b.log.Info("library selected", "user", user.Username, "dataset", ds.ID, "seeded", seeded)
	return b.send(chatID, fmt.Sprintf("Now studying %s.", ds.Name), b.MainMenuButtons())
}

func (b *Bot) handleLookup(ctx context.Context, chatID int64, word string) error {
	entry, err := b.lookup.Lookup(ctx, word)
	if errors.Is(err, lookup.ErrEmptyHeadword) {
		return b.send(chatID, "Usage: /lookup <word>", nil)
	}
	if err != nil {
		return err
	}
	if entry == nil {
		return b.send(chatID, fmt.Sprintf("No entry found for %q.", word), nil)
	}
	return b.send(chatID, formatLookup(*entry), nil)
}

func (b *Bot) handleScan(ctx context.Context, chatID int64, text string) error {
	tokens := catalog.Candidates(strings.Fields(text))
	if len(tokens) == 0 {
		return b.send(chatID, "No new words found. Usage: /scan <text>", nil)
	}

	var added, known []string
	for _, tok := range tokens {
		word, isNew, err := b.catalog.AddScanned(ctx, tok)
		if err != nil {
			return err
		}
		if isNew {
			added = append(added, word.Headword)
		} else {
			known = append(known, word.Headword)
		}
	}

	var sb strings.Builder
	if len(added) > 0 {
		fmt.Fprintf(&sb, "Added: %s\n", strings.Join(added, ", "))
	}
	if len(known) > 0 {
		fmt.Fprintf(&sb, "Already known: %s\n", strings.Join(known, ", "))
	}
	return b.send(chatID, strings.TrimSpace(sb.String()), nil)
}

func (b *Bot) startQuiz(ctx context.Context, chatID int64, user *models.User, mode quiz.Mode) error {
	if mode != quiz.Meaning && mode != quiz.Cloze {
		return b.send(chatID, "Quiz mode must be meaning or cloze.", nil)
	}
	b.mu.Lock()
	items := b.studied[user.Username]
	b.mu.Unlock()
	if len(items) == 0 {
		return b.send(chatID, "Finish a study session first, then take the quiz.", b.MainMenuButtons())
	}

	pool, err := b.store.GetFullCatalog(ctx)
	if err != nil {
		return err
	}
	state := &quizState{mode: mode, questions: quiz.Build(items, pool, mode, b.rnd)}

	b.mu.Lock()
	b.quizzes[chatID] = state
	b.mu.Unlock()

	q := state.questions[0]
	return b.send(chatID, formatQuizQuestion(q, 0, len(state.questions)), quizButtons(0, q))
}

func (b *Bot) pickQuizOption(ctx context.Context, chatID int64, user *models.User, question, option int) error {
	b.mu.Lock()
	state := b.quizzes[chatID]
	if state == nil || question != len(state.answers) || question >= len(state.questions) {
		b.mu.Unlock()
		return errBadCallback
	}
	state.answers = append(state.answers, option)
	done := len(state.answers) == len(state.questions)
	if done {
		delete(b.quizzes, chatID)
		delete(b.studied, user.Username)
	}
	b.mu.Unlock()

	q := state.questions[question]
	feedback := "✅ Correct!"
	if option != q.CorrectIndex {
		feedback = fmt.Sprintf("❌ The answer was: %s", q.Options[q.CorrectIndex])
	}

	if !done {
		next := question + 1
		nq := state.questions[next]
		text := feedback + "\n\n" + formatQuizQuestion(nq, next, len(state.questions))
		return b.send(chatID, text, quizButtons(next, nq))
	}

	res := quiz.Grade(state.questions, state.answers)
	if _, err := b.quiz.Finish(ctx, user.Username, state.mode, res, b.clock.Now()); err != nil {
		return err
	}
	return b.send(chatID, feedback+"\n\n"+formatQuizResult(res, res.Correct*quiz.PointsPerCorrect), b.MainMenuButtons())
}

func (b *Bot) handleRemind(ctx context.Context, chatID int64, user *models.User) error {
	if b.reminders == nil {
		return b.send(chatID, "Reminders are disabled.", nil)
	}
	sent, err := b.reminders.RunManualCheck(ctx, *user)
	if err != nil {
		return err
	}
	if !sent {
		return b.send(chatID, "Nothing is due, no reminder sent.", nil)
	}
	return nil
}

func (b *Bot) handleRemindAll(ctx context.Context, chatID int64) error {
	if b.reminders == nil {
		return b.send(chatID, "Reminders are disabled.", nil)
	}
	sent := b.reminders.CheckAndSendReminders(ctx)
	return b.send(chatID, fmt.Sprintf("Sent %d %s.", sent, plural(sent, "reminder", "reminders")), nil)
}
