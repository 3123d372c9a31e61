package bot

import (
	"context"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/vocabmaster/internal/catalog"
	"github.com/example/vocabmaster/internal/database"
	"github.com/example/vocabmaster/internal/lookup"
	"github.com/example/vocabmaster/internal/quiz"
	"github.com/example/vocabmaster/internal/session"
	"github.com/example/vocabmaster/internal/spaced_repetition"
	"github.com/example/vocabmaster/pkg/models"
)

const (
	chatID  = int64(100)
	adminID = int64(7)
	dataset = "CET4_CORE"
)

var now = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	acks int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

// answerData returns the callback data of the q button under the last card
func (f *fakeSender) answerData(t *testing.T, q spaced_repetition.Quality) string {
	t.Helper()
	msg := f.last(t)
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok, "last message has no inline keyboard: %q", msg.Text)
	suffix := ":" + strconv.Itoa(int(q))
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			data := btn.CallbackData
			if data != nil && strings.HasPrefix(*data, callbackAnswer+":") && strings.HasSuffix(*data, suffix) {
				return *data
			}
		}
	}
	t.Fatalf("no %s button under %q", q, msg.Text)
	return ""
}

type countingProvider struct {
	calls int
}

func (p *countingProvider) Lookup(ctx context.Context, headword string) (*models.LookupEntry, error) {
	p.calls++
	if headword != "serendipity" {
		return nil, nil
	}
	return &models.LookupEntry{Headword: headword, Translation: "意外发现", Mnemonic: "seren + dip: dip into luck"}, nil
}

func (p *countingProvider) QuickDefine(ctx context.Context, headword string) (*models.LookupEntry, error) {
	return nil, nil
}

type fixture struct {
	bot      *Bot
	sender   *fakeSender
	store    *database.Store
	provider *countingProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := database.Open(database.Options{DSN: filepath.Join(t.TempDir(), "bot.db")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Init(context.Background()))

	clock := &session.FixedClock{T: now}
	rnd := session.NewSeededRandom(7)
	provider := &countingProvider{}
	sender := &fakeSender{}

	config := DefaultConfig()
	config.Admins = []int64{adminID}

	b := newBot(sender, Deps{
		Store: store,
		Workflow: session.NewWorkflow(store, session.Options{
			Clock:          clock,
			Random:         rnd,
			DefaultDataset: dataset,
		}),
		Catalog: catalog.New(store, nil, nil),
		Lookup:  lookup.NewService(provider, nil, lookup.NewStoreCache(store)),
		Quiz:    quiz.NewModule(store, nil),
		Random:  rnd,
		Clock:   clock,
	}, config)
	return &fixture{bot: b, sender: sender, store: store, provider: provider}
}

func command(from int64, text string) tgbotapi.Update {
	cmd := strings.SplitN(text, " ", 2)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: from},
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func text(s string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: chatID},
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: s,
	}}
}

func press(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}}
}

func (f *fixture) do(u tgbotapi.Update) {
	f.bot.handleUpdate(context.Background(), u)
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data    string
		action  string
		wantErr bool
	}{
		{"menu", callbackMainMenu, false},
		{"go:study:EASY", callbackStart, false},
		{"ans:12:5", callbackAnswer, false},
		{"qa:2:1", callbackQuizPick, false},
		{"lib:CET4_CORE", callbackLibrary, false},
		{"plan:20", callbackPlan, false},
		{"", "", true},
		{"ans", "", true},
		{"ans:5", "", true},
		{"ans:12:5:6", "", true},
		{"nope:1", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			cb, err := parseCallback(tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, errBadCallback)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.action, cb.Action)
		})
	}
}

func TestCallbackArgs(t *testing.T) {
	cb, err := parseCallback(answerCallback(42, spaced_repetition.Fluent))
	require.NoError(t, err)
	id, q, err := cb.answer()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, spaced_repetition.Fluent, q)

	cb, err = parseCallback("ans:42:2")
	require.NoError(t, err)
	_, _, err = cb.answer()
	assert.Error(t, err, "2 is not a recall checkpoint")
	cb, err = parseCallback("ans:x:5")
	require.NoError(t, err)
	_, _, err = cb.answer()
	assert.ErrorIs(t, err, errBadCallback)

	cb, err = parseCallback(startCallback(session.KindMistakes, session.Hard))
	require.NoError(t, err)
	kind, difficulty, err := cb.session()
	require.NoError(t, err)
	assert.Equal(t, session.KindMistakes, kind)
	assert.Equal(t, session.Hard, difficulty)

	cb, err = parseCallback(quizPickCallback(3, 1))
	require.NoError(t, err)
	qi, o, err := cb.quizPick()
	require.NoError(t, err)
	assert.Equal(t, 3, qi)
	assert.Equal(t, 1, o)

	cb, err = parseCallback("qz:essay")
	require.NoError(t, err)
	_, err = cb.quizMode()
	assert.ErrorIs(t, err, errBadCallback)
}

func TestCallbackDataFitsTelegramLimit(t *testing.T) {
	f := newFixture(t)
	datasets, err := catalog.Datasets()
	require.NoError(t, err)

	groups := [][][]MenuButton{
		f.bot.MainMenuButtons(),
		difficultyButtons(),
		answerButtons(models.Word{ID: math.MaxInt64}),
		f.bot.libraryButtons(datasets),
		quizOfferButtons(),
		planButtons(),
	}
	for _, group := range groups {
		for _, row := range group {
			for _, button := range row {
				assert.LessOrEqual(t, len(button.CallbackData), maxCallbackData, button.Text)
				_, err := parseCallback(button.CallbackData)
				assert.NoError(t, err, button.Text)
			}
		}
	}
}

func TestCallbackTooLongIsRefused(t *testing.T) {
	long := strings.Repeat("X", maxCallbackData)

	_, err := encodeCallback(callbackLibrary, long)
	assert.ErrorIs(t, err, errCallbackTooLong)
	assert.Panics(t, func() { mustCallback(callbackLibrary, long) })

	f := newFixture(t)
	rows := f.bot.libraryButtons([]models.Dataset{
		{ID: long, Name: "Too long"},
		{ID: dataset, Name: "CET-4 Core"},
	})
	require.Len(t, rows, 1)
	assert.Equal(t, "lib:"+dataset, rows[0][0].CallbackData)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "You have 1 word to review! Tap Review to start.", reminderText(1))
	assert.Contains(t, reminderText(4), "4 words")

	card := formatCard(models.Word{Headword: "abandon", Phonetic: "/əˈbændən/", Translation: "放弃"}, 0, 5)
	assert.Contains(t, card, "Card 1/5")
	assert.Contains(t, card, "abandon")
	assert.NotContains(t, card, "放弃")

	dash := formatDashboard(session.Dashboard{Streak: 1, Points: 30, DueCount: 2})
	assert.Contains(t, dash, "Streak: 1 day\n")
	assert.Contains(t, dash, "Points: 30")
	assert.Contains(t, dash, "Due for review: 2")
	assert.Contains(t, dash, "🎯 Today: 0/0 words")

	assert.Equal(t, "🎯 Today: 3/10 words ▰▰▰▱▱▱▱▱▱▱", formatPlan(3, 10))
	assert.Equal(t, "🎯 Today: 25/20 words ▰▰▰▰▰▰▰▰▰▰", formatPlan(25, 20))

	entry := formatLookup(models.LookupEntry{
		Headword:    "benevolent",
		Translation: "仁慈的",
		Etymology:   []models.EtymologyPart{{Part: "bene", Type: "prefix", Meaning: "well"}},
		Cognates:    []string{"benefit", "benefactor"},
	})
	assert.Contains(t, entry, "bene (prefix): well")
	assert.Contains(t, entry, "Related: benefit, benefactor")

	assert.Equal(t, "Nobody has scored yet.", formatLeaderboard(nil))
	assert.Contains(t, formatLeaderboard([]models.LeaderboardEntry{{Username: "bob", Points: 20}}), "1. bob: 20")

	res := formatQuizResult(quiz.Result{Total: 2, Correct: 1, Wrong: []models.Word{{Headword: "vivid"}}}, 20)
	assert.Equal(t, "Quiz finished: 1/2 correct, +20 points.\nAdded to mistakes: vivid", res)
}

func TestBot_StartRegistersChat(t *testing.T) {
	f := newFixture(t)
	f.do(command(chatID, "/start"))

	assert.Contains(t, f.sender.last(t).Text, "Welcome")
	user, err := f.store.GetUserByChatID(context.Background(), chatID)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "tg_100", user.Username)

	// a second contact reuses the same user
	f.do(command(chatID, "/menu"))
	users, err := f.store.ListLinkedUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestBot_StudySessionAndQuiz(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.do(command(chatID, "/library CET4_CORE"))
	assert.Contains(t, f.sender.last(t).Text, "Now studying CET-4 Core")

	f.do(command(chatID, "/study easy"))
	assert.Contains(t, f.sender.last(t).Text, "Card 1/5")

	for i := 0; i < 5; i++ {
		f.do(press(f.sender.answerData(t, spaced_repetition.Perfect)))
	}
	done := f.sender.last(t)
	assert.Contains(t, done.Text, "study session complete: 5 answered, 0 to revisit")
	assert.Equal(t, createKeyboard(quizOfferButtons()), done.ReplyMarkup)

	user, err := f.store.GetUser(ctx, "tg_100")
	require.NoError(t, err)
	assert.Equal(t, 5*session.PerfectPoints, user.Points)

	f.do(press("qz:meaning"))
	require.Contains(t, f.bot.quizzes, chatID)
	questions := f.bot.quizzes[chatID].questions
	require.Len(t, questions, 5)
	assert.Contains(t, f.sender.last(t).Text, "Question 1/5")

	for i, q := range questions {
		f.do(press(quizPickCallback(i, q.CorrectIndex)))
	}
	assert.Contains(t, f.sender.last(t).Text, "Quiz finished: 5/5 correct, +100 points.")
	assert.NotContains(t, f.bot.quizzes, chatID)

	user, err = f.store.GetUser(ctx, "tg_100")
	require.NoError(t, err)
	assert.Equal(t, 5*session.PerfectPoints+5*quiz.PointsPerCorrect, user.Points)

	results, err := f.store.ListQuizResults(ctx, "tg_100")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 5, results[0].Correct)
}

func TestBot_WeakQuizAnswersBecomeMistakes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.do(command(chatID, "/library CET4_CORE"))
	f.do(command(chatID, "/study easy"))
	for i := 0; i < 5; i++ {
		f.do(press(f.sender.answerData(t, spaced_repetition.Fluent)))
	}

	f.do(command(chatID, "/quiz meaning"))
	questions := f.bot.quizzes[chatID].questions
	wrong := (questions[0].CorrectIndex + 1) % len(questions[0].Options)
	f.do(press(quizPickCallback(0, wrong)))
	assert.Contains(t, f.sender.last(t).Text, "The answer was:")

	// a replayed button is stale
	f.do(press(quizPickCallback(0, 0)))
	assert.Equal(t, "That button has expired.", f.sender.last(t).Text)

	for i := 1; i < len(questions); i++ {
		f.do(press(quizPickCallback(i, questions[i].CorrectIndex)))
	}
	ids, err := f.store.GetMistakeIDs(ctx, "tg_100")
	require.NoError(t, err)
	assert.Equal(t, []int64{questions[0].Word.ID}, ids)
}

func TestBot_EmptyOutcomesAndStaleButtons(t *testing.T) {
	f := newFixture(t)

	f.do(command(chatID, "/review"))
	assert.Contains(t, f.sender.last(t).Text, "Nothing is due")

	f.do(command(chatID, "/study"))
	assert.Equal(t, createKeyboard(difficultyButtons()), f.sender.last(t).ReplyMarkup)

	f.do(command(chatID, "/mistakes"))
	assert.Contains(t, f.sender.last(t).Text, "No mistakes to drill")

	f.do(press(answerCallback(1, spaced_repetition.Perfect)))
	assert.Contains(t, f.sender.last(t).Text, "no session running")

	f.do(press("ans:5"))
	assert.Equal(t, "That button has expired.", f.sender.last(t).Text)

	f.do(press("garbage"))
	assert.Equal(t, "That button has expired.", f.sender.last(t).Text)

	f.do(command(chatID, "/study impossible"))
	assert.Equal(t, "Difficulty must be easy, medium or hard.", f.sender.last(t).Text)

	f.do(command(chatID, "/quiz"))
	assert.Contains(t, f.sender.last(t).Text, "Finish a study session first")
}

func TestBot_FreshChatStudiesDefaultLibrary(t *testing.T) {
	f := newFixture(t)

	f.do(command(chatID, "/study easy"))
	assert.Contains(t, f.sender.last(t).Text, "Card 1/5")

	words, err := f.store.GetFullCatalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, words, 40)

	// a second contact does not seed again
	f.do(command(chatID, "/stop"))
	words, err = f.store.GetFullCatalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, words, 40)
}

func TestBot_RepeatedAnswerButtonScoresOneCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.do(command(chatID, "/study easy"))
	forgot := f.sender.answerData(t, spaced_repetition.Forgot)

	f.do(press(forgot))
	assert.Contains(t, f.sender.last(t).Text, "Card 2/5")
	f.do(press(forgot))
	assert.Equal(t, "That button has expired.", f.sender.last(t).Text)

	ids, err := f.store.GetMistakeIDs(ctx, "tg_100")
	require.NoError(t, err)
	assert.Len(t, ids, 1)
	all, err := f.store.GetAllProgress(ctx, "tg_100")
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, 1, f.bot.workflow.Active("tg_100").Position())

	// a button from an abandoned session does not score anything either
	f.do(command(chatID, "/stop"))
	f.do(press(forgot))
	assert.Contains(t, f.sender.last(t).Text, "no session running")
	all, err = f.store.GetAllProgress(ctx, "tg_100")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestBot_DailyPlan(t *testing.T) {
	f := newFixture(t)

	f.do(command(chatID, "/plan"))
	msg := f.sender.last(t)
	assert.Contains(t, msg.Text, "🎯 Today: 0/20 words")
	assert.Equal(t, createKeyboard(planButtons()), msg.ReplyMarkup)

	f.do(press(planCallback(10)))
	assert.Contains(t, f.sender.last(t).Text, "Daily target saved.\n🎯 Today: 0/10 words")

	f.do(command(chatID, "/study easy"))
	f.do(press(f.sender.answerData(t, spaced_repetition.Perfect)))
	f.do(press(f.sender.answerData(t, spaced_repetition.Vague)))
	f.do(press(f.sender.answerData(t, spaced_repetition.Perfect)))

	f.do(command(chatID, "/stats"))
	assert.Contains(t, f.sender.last(t).Text, "🎯 Today: 2/10 words ▰▰▱▱▱▱▱▱▱▱")

	f.do(command(chatID, "/plan 0"))
	assert.Equal(t, "Daily target must be between 1 and 500 words.", f.sender.last(t).Text)
	f.do(command(chatID, "/plan lots"))
	assert.Equal(t, "Usage: /plan <words per day>", f.sender.last(t).Text)
}

func TestBot_StarToggle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.do(command(chatID, "/library CET4_CORE"))

	words, err := f.store.GetFullCatalog(ctx)
	require.NoError(t, err)
	id := words[0].ID

	f.do(press(starCallback(id)))
	assert.Equal(t, "⭐ Starred.", f.sender.last(t).Text)
	f.do(command(chatID, "/starred"))
	assert.Contains(t, f.sender.last(t).Text, "Card 1/1")

	f.do(press(starCallback(id)))
	assert.Equal(t, "Star removed.", f.sender.last(t).Text)
	f.do(press(starCallback(99999)))
	assert.Equal(t, "That word no longer exists.", f.sender.last(t).Text)
}

func TestBot_LinkAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.RegisterUser(ctx, "alice", "s3cret", now)
	require.NoError(t, err)

	f.do(command(chatID, "/link alice wrong"))
	assert.Equal(t, "Wrong username or password.", f.sender.last(t).Text)

	f.do(command(chatID, "/link alice s3cret"))
	assert.Contains(t, f.sender.last(t).Text, "belongs to alice")

	user, err := f.store.GetUserByChatID(ctx, chatID)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)
}

func TestBot_LookupAndScan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.do(text("Serendipity"))
	assert.Contains(t, f.sender.last(t).Text, "意外发现")
	f.do(command(chatID, "/lookup serendipity"))
	assert.Contains(t, f.sender.last(t).Text, "Mnemonic: seren + dip")
	assert.Equal(t, 1, f.provider.calls, "second lookup is served from the cache")

	f.do(command(chatID, "/lookup qwzx"))
	assert.Contains(t, f.sender.last(t).Text, "No entry found")

	f.do(command(chatID, "/scan The quick brown fox, the QUICK one"))
	assert.Equal(t, "Added: quick, brown, fox, one", f.sender.last(t).Text)

	f.do(text("brown fox jumps"))
	assert.Equal(t, "Added: jumps\nAlready known: brown, fox", f.sender.last(t).Text)

	word, err := f.store.FindByHeadword(ctx, "jumps")
	require.NoError(t, err)
	require.NotNil(t, word)
	assert.True(t, word.Tags.Has(models.TagScanned))
}

func TestBot_AdminCommands(t *testing.T) {
	f := newFixture(t)

	f.do(command(chatID, "/remind_all"))
	assert.Contains(t, f.sender.last(t).Text, "only available for administrators")

	f.do(command(adminID, "/remind_all"))
	assert.Equal(t, "Reminders are disabled.", f.sender.last(t).Text)
}

func TestBot_SendReminders(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.bot.SendReminders(42, 3))

	msg := f.sender.last(t)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "You have 3 words to review! Tap Review to start.", msg.Text)
}

func TestBot_Leaderboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.RegisterUser(ctx, "bob", "", now)
	require.NoError(t, err)
	_, err = f.store.AddPoints(ctx, "bob", 40)
	require.NoError(t, err)

	f.do(command(chatID, "/top"))
	assert.Equal(t, "🏆 Leaderboard\n\n1. bob: 40\n2. tg_100: 0", f.sender.last(t).Text)
}
