package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/vocabmaster/internal/catalog"
	"github.com/example/vocabmaster/internal/database"
	"github.com/example/vocabmaster/internal/logger"
	"github.com/example/vocabmaster/internal/lookup"
	"github.com/example/vocabmaster/internal/quiz"
	"github.com/example/vocabmaster/internal/scheduler"
	"github.com/example/vocabmaster/internal/session"
	"github.com/example/vocabmaster/pkg/models"
)

// Sender is the part of the Telegram API the bot talks through.
// *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Store is what the bot reads and writes outside of sessions
type Store interface {
	RegisterUser(ctx context.Context, username, secret string, now time.Time) (*models.User, error)
	Authenticate(ctx context.Context, username, secret string) (*models.User, error)
	GetUser(ctx context.Context, username string) (*models.User, error)
	GetUserByChatID(ctx context.Context, chatID int64) (*models.User, error)
	LinkChat(ctx context.Context, username string, chatID int64) error
	SetActiveDataset(ctx context.Context, username, datasetID string) error
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	ToggleStar(ctx context.Context, id int64) (bool, error)
	GetFullCatalog(ctx context.Context) ([]models.Word, error)
}

// Deps are the collaborators the bot drives
type Deps struct {
	Store    Store
	Workflow *session.Workflow
	Catalog  *catalog.Catalog
	Lookup   *lookup.Service
	Quiz     *quiz.Module
	Random   quiz.Shuffler
	Clock    session.Clock
	Logger   *logger.Logger
}

// quizState is a quiz in progress in one chat
type quizState struct {
	mode      quiz.Mode
	questions []quiz.Question
	answers   []int
}

// Bot represents the Telegram bot
type Bot struct {
	api    Sender
	botAPI *tgbotapi.BotAPI
	config *BotConfig
	admins map[int64]bool

	store     Store
	workflow  *session.Workflow
	catalog   *catalog.Catalog
	lookup    *lookup.Service
	quiz      *quiz.Module
	rnd       quiz.Shuffler
	clock     session.Clock
	log       *logger.Logger
	reminders *scheduler.Scheduler

	mu      sync.Mutex
	studied map[string][]models.Word // items of each user's last study session, for the quiz offer
	quizzes map[int64]*quizState
}

// New connects to Telegram with token
func New(token string, deps Deps, config *BotConfig) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	b := newBot(botAPI, deps, config)
	b.botAPI = botAPI
	b.log.Info("authorized on account", "account", botAPI.Self.UserName)
	return b, nil
}

func newBot(api Sender, deps Deps, config *BotConfig) *Bot {
	if config == nil {
		config = DefaultConfig()
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Clock == nil {
		deps.Clock = session.SystemClock{}
	}
	if deps.Random == nil {
		deps.Random = session.NewRandom()
	}
	admins := make(map[int64]bool, len(config.Admins))
	for _, id := range config.Admins {
		admins[id] = true
	}
	return &Bot{
		api:      api,
		config:   config,
		admins:   admins,
		store:    deps.Store,
		workflow: deps.Workflow,
		catalog:  deps.Catalog,
		lookup:   deps.Lookup,
		quiz:     deps.Quiz,
		rnd:      deps.Random,
		clock:    deps.Clock,
		log:      deps.Logger.With("component", "bot"),
		studied:  make(map[string][]models.Word),
		quizzes:  make(map[int64]*quizState),
	}
}

// AttachScheduler enables the reminder admin commands
func (b *Bot) AttachScheduler(s *scheduler.Scheduler) {
	b.reminders = s
}

// Start polls Telegram for updates until ctx is done
func (b *Bot) Start(ctx context.Context) error {
	if b.botAPI == nil {
		return errors.New("bot: not connected")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.botAPI.GetUpdatesChan(updateConfig)

	b.log.Info("bot started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// Stop gracefully stops the bot
func (b *Bot) Stop() {
	if b.botAPI != nil {
		b.botAPI.StopReceivingUpdates()
	}
	b.log.Info("bot stopped")
}

// SendReminders implements the scheduler.Notifier interface
func (b *Bot) SendReminders(chatID int64, count int) error {
	msg := tgbotapi.NewMessage(chatID, reminderText(count))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{{
		{Text: "🔁 Review", CallbackData: startCallback(session.KindReview, session.Medium)},
	}})
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("error sending reminder", "chat", chatID, "error", err)
		return err
	}
	b.log.Info("sent reminder", "chat", chatID, "count", count)
	return nil
}

// isAdmin checks if a user is an admin
func (b *Bot) isAdmin(userID int64) bool {
	return b.admins[userID]
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		msg := update.Message
		if msg.IsCommand() {
			err = b.HandleCommand(ctx, msg)
		} else {
			err = b.handleText(ctx, msg)
		}
		if err != nil {
			b.replyError(msg.Chat.ID, err)
		}
	case update.CallbackQuery != nil:
		err = b.handleCallbackQuery(ctx, update.CallbackQuery)
		if err != nil && update.CallbackQuery.Message != nil {
			b.replyError(update.CallbackQuery.Message.Chat.ID, err)
		}
	}
	if err != nil {
		b.log.Warn("update failed", "update", update.UpdateID, "error", err)
	}
}

// userFor returns the user linked to chatID, registering a passwordless one
// on first contact
func (b *Bot) userFor(ctx context.Context, chatID int64) (*models.User, error) {
	user, err := b.store.GetUserByChatID(ctx, chatID)
	if err != nil || user != nil {
		return user, err
	}

	username := "tg_" + strconv.FormatInt(chatID, 10)
	user, err = b.store.RegisterUser(ctx, username, "", b.clock.Now())
	if errors.Is(err, database.ErrDuplicateUser) {
		user, err = b.store.GetUser(ctx, username)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %q vanished during registration", username)
	}
	if err := b.store.LinkChat(ctx, username, chatID); err != nil {
		return nil, err
	}
	user.ChatID = &chatID
	if err := b.ensureLibrary(ctx, user); err != nil {
		return nil, err
	}
	b.log.Info("new chat registered", "user", username)
	return user, nil
}

// ensureLibrary seeds the default dataset for a user who never picked one, so
// a first /study has words to offer
func (b *Bot) ensureLibrary(ctx context.Context, user *models.User) error {
	id := b.workflow.DefaultDataset()
	if user.ActiveDataset != "" || id == "" {
		return nil
	}
	seeded, err := b.catalog.EnsureDataset(ctx, id)
	if err != nil {
		return fmt.Errorf("seed default library: %w", err)
	}
	if seeded > 0 {
		b.log.Info("default library seeded", "user", user.Username, "dataset", id, "items", seeded)
	}
	return nil
}

func (b *Bot) send(chatID int64, text string, buttons [][]MenuButton) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if len(buttons) > 0 {
		msg.ReplyMarkup = createKeyboard(buttons)
	}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) replyError(chatID int64, err error) {
	text := "Something went wrong, please try again later."
	switch {
	case errors.Is(err, session.ErrNoActiveSession):
		text = "There is no session running. Use /menu to start one."
	case errors.Is(err, session.ErrInvalidDifficulty):
		text = "Difficulty must be easy, medium or hard."
	case errors.Is(err, errBadCallback), errors.Is(err, session.ErrStaleAnswer):
		text = "That button has expired."
	case errors.Is(err, session.ErrInvalidTarget):
		text = fmt.Sprintf("Daily target must be between %d and %d words.", session.MinDailyTarget, session.MaxDailyTarget)
	case errors.Is(err, database.ErrNotReady), errors.Is(err, database.ErrStoreUnavailable):
		text = "Storage is unavailable right now, please try again in a moment."
	}
	if sendErr := b.send(chatID, text, nil); sendErr != nil {
		b.log.Error("failed to report error", "chat", chatID, "error", sendErr)
	}
}
