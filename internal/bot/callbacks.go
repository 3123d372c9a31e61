package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/vocabmaster/internal/quiz"
	"github.com/example/vocabmaster/internal/session"
	"github.com/example/vocabmaster/internal/spaced_repetition"
)

// Constants for callback data
const (
	callbackMainMenu  = "menu"
	callbackShowStats = "stats"
	callbackStart     = "go"   // go:<kind>:<difficulty>
	callbackAnswer    = "ans"  // ans:<word id>:<quality>
	callbackStar      = "star" // star:<word id>
	callbackLibrary   = "lib"  // lib:<dataset id>
	callbackQuizStart = "qz"   // qz:<mode>
	callbackQuizPick  = "qa"   // qa:<question>:<option>
	callbackPlan      = "plan" // plan:<words per day>
)

// Telegram rejects callback data longer than this
const maxCallbackData = 64

var (
	errBadCallback     = errors.New("bot: malformed callback data")
	errCallbackTooLong = errors.New("bot: callback data too long")
)

// callback is decoded inline-button data
type callback struct {
	Action string
	Args   []string
}

// encodeCallback rejects data longer than Telegram accepts
func encodeCallback(action string, args ...string) (string, error) {
	data := strings.Join(append([]string{action}, args...), ":")
	if len(data) > maxCallbackData {
		return "", fmt.Errorf("%w: %d bytes for %q", errCallbackTooLong, len(data), action)
	}
	return data, nil
}

// mustCallback is for data whose length is bounded by construction
func mustCallback(action string, args ...string) string {
	data, err := encodeCallback(action, args...)
	if err != nil {
		panic(err)
	}
	return data
}

func parseCallback(data string) (callback, error) {
	parts := strings.Split(data, ":")
	if parts[0] == "" {
		return callback{}, errBadCallback
	}
	cb := callback{Action: parts[0], Args: parts[1:]}

	want := map[string]int{
		callbackMainMenu:  0,
		callbackShowStats: 0,
		callbackStart:     2,
		callbackAnswer:    2,
		callbackStar:      1,
		callbackLibrary:   1,
		callbackQuizStart: 1,
		callbackQuizPick:  2,
		callbackPlan:      1,
	}
	n, ok := want[cb.Action]
	if !ok {
		return callback{}, fmt.Errorf("%w: unknown action %q", errBadCallback, cb.Action)
	}
	if len(cb.Args) != n {
		return callback{}, fmt.Errorf("%w: %q", errBadCallback, data)
	}
	return cb, nil
}

func startCallback(kind session.Kind, difficulty session.Difficulty) string {
	return mustCallback(callbackStart, string(kind), string(difficulty))
}

// answerCallback ties q to the card it was shown under
func answerCallback(wordID int64, q spaced_repetition.Quality) string {
	return mustCallback(callbackAnswer, strconv.FormatInt(wordID, 10), strconv.Itoa(int(q)))
}

func starCallback(wordID int64) string {
	return mustCallback(callbackStar, strconv.FormatInt(wordID, 10))
}

func quizPickCallback(question, option int) string {
	return mustCallback(callbackQuizPick, strconv.Itoa(question), strconv.Itoa(option))
}

func planCallback(target int) string {
	return mustCallback(callbackPlan, strconv.Itoa(target))
}

// answer decodes ans:<word id>:<quality>
func (cb callback) answer() (int64, spaced_repetition.Quality, error) {
	id, err := strconv.ParseInt(cb.Args[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", errBadCallback, err)
	}
	v, err := strconv.Atoi(cb.Args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", errBadCallback, err)
	}
	q, err := spaced_repetition.ParseQuality(v)
	if err != nil {
		return 0, 0, err
	}
	return id, q, nil
}

func (cb callback) target() (int, error) {
	n, err := strconv.Atoi(cb.Args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errBadCallback, err)
	}
	return n, nil
}

func (cb callback) wordID() (int64, error) {
	id, err := strconv.ParseInt(cb.Args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errBadCallback, err)
	}
	return id, nil
}

func (cb callback) session() (session.Kind, session.Difficulty, error) {
	kind, err := session.ParseKind(cb.Args[0])
	if err != nil {
		return "", "", err
	}
	difficulty, err := session.ParseDifficulty(cb.Args[1])
	if err != nil {
		return "", "", err
	}
	return kind, difficulty, nil
}

func (cb callback) quizMode() (quiz.Mode, error) {
	switch m := quiz.Mode(cb.Args[0]); m {
	case quiz.Meaning, quiz.Cloze:
		return m, nil
	}
	return "", fmt.Errorf("%w: quiz mode %q", errBadCallback, cb.Args[0])
}

func (cb callback) quizPick() (question, option int, err error) {
	question, err = strconv.Atoi(cb.Args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", errBadCallback, err)
	}
	option, err = strconv.Atoi(cb.Args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", errBadCallback, err)
	}
	return question, option, nil
}
