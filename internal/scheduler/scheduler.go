package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/vocabmaster/internal/logger"
	"github.com/example/vocabmaster/internal/session"
	"github.com/example/vocabmaster/pkg/models"
)

// Default reminder window, in UTC hours
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 21
)

// Notifier interface for sending notifications
type Notifier interface {
	SendReminders(chatID int64, count int) error
}

// Users lists the users that can be reminded
type Users interface {
	ListLinkedUsers(ctx context.Context) ([]models.User, error)
}

// Dashboards computes a user's aggregates; *session.Workflow implements it
type Dashboards interface {
	Dashboard(ctx context.Context, userID string) (session.Dashboard, error)
}

// Options configures the reminder window
type Options struct {
	StartHour int
	EndHour   int
	Clock     session.Clock
	Logger    *logger.Logger
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler  *gocron.Scheduler
	notifier   Notifier
	users      Users
	dashboards Dashboards
	startHour  int
	endHour    int
	clock      session.Clock
	log        *logger.Logger
}

// New creates a new scheduler instance
func New(notifier Notifier, users Users, dashboards Dashboards, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = session.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.StartHour == 0 && opts.EndHour == 0 {
		opts.StartHour, opts.EndHour = DefaultNotificationStartHour, DefaultNotificationEndHour
	}
	return &Scheduler{
		scheduler:  gocron.NewScheduler(time.UTC),
		notifier:   notifier,
		users:      users,
		dashboards: dashboards,
		startHour:  opts.StartHour,
		endHour:    opts.EndHour,
		clock:      opts.Clock,
		log:        opts.Logger.With("component", "scheduler"),
	}
}

// Start begins running all scheduled tasks. ctx bounds every run.
func (s *Scheduler) Start(ctx context.Context) error {
	// Schedule hourly check for users who need notifications
	_, err := s.scheduler.Every(1).Hour().Do(func() {
		sent := s.CheckAndSendReminders(ctx)
		s.log.Debug("reminder run finished", "sent", sent)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// InWindow reports whether reminders may be sent at t
func (s *Scheduler) InWindow(t time.Time) bool {
	h := t.UTC().Hour()
	return h >= s.startHour && h <= s.endHour
}

// CheckAndSendReminders notifies every linked user with due reviews and returns
// how many reminders went out. Failures for one user do not stop the others.
func (s *Scheduler) CheckAndSendReminders(ctx context.Context) int {
	now := s.clock.Now()
	if !s.InWindow(now) {
		s.log.Debug("outside notification hours, skipping reminders",
			"hour", now.UTC().Hour(), "start", s.startHour, "end", s.endHour)
		return 0
	}

	users, err := s.users.ListLinkedUsers(ctx)
	if err != nil {
		s.log.Error("failed to list users for reminders", "error", err)
		return 0
	}

	sent := 0
	for _, user := range users {
		if user.ChatID == nil {
			continue
		}
		ok, err := s.remind(ctx, user)
		if err != nil {
			s.log.Warn("reminder failed", "user", user.Username, "error", err)
			continue
		}
		if ok {
			sent++
		}
	}
	return sent
}

// RunManualCheck forces a check for a specific user, ignoring the window
func (s *Scheduler) RunManualCheck(ctx context.Context, user models.User) (bool, error) {
	if user.ChatID == nil {
		return false, fmt.Errorf("user %q has no linked chat", user.Username)
	}
	return s.remind(ctx, user)
}

func (s *Scheduler) remind(ctx context.Context, user models.User) (bool, error) {
	dash, err := s.dashboards.Dashboard(ctx, user.Username)
	if err != nil {
		return false, err
	}
	if dash.DueCount == 0 {
		return false, nil
	}
	if err := s.notifier.SendReminders(*user.ChatID, dash.DueCount); err != nil {
		return false, err
	}
	return true, nil
}
