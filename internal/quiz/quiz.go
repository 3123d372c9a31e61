package quiz

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/vocabmaster/internal/database"
	"github.com/example/vocabmaster/internal/logger"
	"github.com/example/vocabmaster/pkg/models"
)

// Mode represents different types of quiz questions
type Mode string

const (
	// Meaning shows the headword and asks for its translation
	Meaning Mode = "meaning"
	// Cloze shows the example sentence with the headword blanked out
	Cloze Mode = "cloze"
)

// PointsPerCorrect is awarded for every correct quiz answer
const PointsPerCorrect = 20

// Distractors is the number of wrong options per question
const Distractors = 3

const blank = "_______"

// Shuffler permutes n elements through swap. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Question represents a single quiz question
type Question struct {
	Word         models.Word
	Mode         Mode
	Prompt       string
	Options      []string
	CorrectIndex int
}

// Result is the graded outcome of a quiz
type Result struct {
	Total   int
	Correct int
	Wrong   []models.Word
}

// Build creates one question per item. Distractors come from pool and never
// share the item's headword or answer text.
func Build(items, pool []models.Word, mode Mode, rnd Shuffler) []Question {
	questions := make([]Question, 0, len(items))
	for _, word := range items {
		q := Question{Word: word, Mode: mode}

		var correct string
		switch mode {
		case Cloze:
			q.Prompt = blankOut(word.Example, word.Headword)
			correct = word.Headword
		default:
			q.Mode = Meaning
			q.Prompt = word.Headword
			correct = word.Translation
		}

		options := append(distractors(word, pool, q.Mode, rnd), correct)
		correctIndex := len(options) - 1

		rnd.Shuffle(len(options), func(i, j int) {
			if i == correctIndex {
				correctIndex = j
			} else if j == correctIndex {
				correctIndex = i
			}
			options[i], options[j] = options[j], options[i]
		})

		q.Options = options
		q.CorrectIndex = correctIndex
		questions = append(questions, q)
	}
	return questions
}

// distractors picks up to Distractors wrong answers for word
func distractors(word models.Word, pool []models.Word, mode Mode, rnd Shuffler) []string {
	candidates := make([]models.Word, 0, len(pool))
	for _, w := range pool {
		if w.NormalizedHeadword() != word.NormalizedHeadword() {
			candidates = append(candidates, w)
		}
	}
	rnd.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	answer := func(w models.Word) string {
		if mode == Cloze {
			return w.Headword
		}
		return w.Translation
	}

	seen := map[string]bool{strings.ToLower(answer(word)): true}
	options := make([]string, 0, Distractors)
	for _, w := range candidates {
		if len(options) == Distractors {
			break
		}
		opt := strings.TrimSpace(answer(w))
		if opt == "" || seen[strings.ToLower(opt)] {
			continue
		}
		seen[strings.ToLower(opt)] = true
		options = append(options, opt)
	}
	return options
}

// blankOut replaces the first occurrence of headword, including an inflected
// tail such as "-ed" or "-s", with a blank. A sentence without the word gets a
// generic one.
func blankOut(sentence, headword string) string {
	if strings.TrimSpace(sentence) == "" {
		return "This is a sentence with the word " + blank + "."
	}
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(headword) + `\w*`)
	if err != nil {
		return sentence + " " + blank
	}
	loc := re.FindStringIndex(sentence)
	if loc == nil {
		return sentence + " " + blank
	}
	return sentence[:loc[0]] + blank + sentence[loc[1]:]
}

// Grade scores answers, one option index per question. Missing answers count as wrong.
func Grade(questions []Question, answers []int) Result {
	res := Result{Total: len(questions)}
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.CorrectIndex {
			res.Correct++
			continue
		}
		res.Wrong = append(res.Wrong, q.Word)
	}
	return res
}

// Store is what finishing a quiz writes to
type Store interface {
	AddMistake(ctx context.Context, userID string, wordID int64) error
	AddPoints(ctx context.Context, username string, delta int) (int, error)
	SaveQuizResult(ctx context.Context, userID string, r models.QuizResult) error
}

// Module persists quiz outcomes
type Module struct {
	store Store
	log   *logger.Logger
}

// NewModule creates a new quiz module
func NewModule(store Store, log *logger.Logger) *Module {
	if log == nil {
		log = logger.Nop()
	}
	return &Module{store: store, log: log.With("component", "quiz")}
}

// Finish queues every wrong item for mistake review, awards points for the
// correct ones and records the result
func (m *Module) Finish(ctx context.Context, userID string, mode Mode, res Result, now time.Time) (models.QuizResult, error) {
	for _, w := range res.Wrong {
		if err := m.store.AddMistake(ctx, userID, w.ID); err != nil {
			return models.QuizResult{}, fmt.Errorf("failed to flag %q: %w", w.Headword, err)
		}
	}

	if res.Correct > 0 {
		_, err := m.store.AddPoints(ctx, userID, res.Correct*PointsPerCorrect)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return models.QuizResult{}, err
		}
	}

	record := models.QuizResult{
		ID:      uuid.NewString(),
		UserID:  userID,
		Mode:    string(mode),
		Total:   res.Total,
		Correct: res.Correct,
		TakenAt: now,
	}
	if err := m.store.SaveQuizResult(ctx, userID, record); err != nil {
		return models.QuizResult{}, err
	}
	m.log.Info("quiz finished", "user", userID, "mode", mode, "correct", res.Correct, "total", res.Total)
	return record, nil
}
