package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/vocabmaster/internal/bot"
	"github.com/example/vocabmaster/internal/scheduler"
	"github.com/example/vocabmaster/internal/session"
)

// NewBotCommand creates the bot command.
func NewBotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		Long: `Run the Telegram bot until interrupted.

The token is read from telegram.token (VOCAB_TELEGRAM_TOKEN or TELEGRAM_BOT_TOKEN).
Hourly review reminders are sent when reminders.enabled is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBot(ctx, cmd)
		},
	}
}

func runBot(ctx context.Context, cmd *cobra.Command) error {
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Telegram.Token == "" {
		return errors.New("telegram token is not set")
	}

	svc, err := a.lookupService(ctx)
	if err != nil {
		return err
	}
	workflow := a.workflow()

	config := bot.DefaultConfig()
	config.Admins = a.cfg.Telegram.Admins

	b, err := bot.New(a.cfg.Telegram.Token, bot.Deps{
		Store:    a.store,
		Workflow: workflow,
		Catalog:  a.catalog(svc),
		Lookup:   svc,
		Quiz:     a.quiz(),
		Random:   session.NewRandom(),
		Logger:   a.log,
	}, config)
	if err != nil {
		return err
	}

	if a.cfg.Reminders.Enabled {
		reminders := scheduler.New(b, a.store, workflow, scheduler.Options{
			StartHour: a.cfg.Reminders.StartHour,
			EndHour:   a.cfg.Reminders.EndHour,
			Logger:    a.log,
		})
		if err := reminders.Start(ctx); err != nil {
			return err
		}
		defer reminders.Stop()
		b.AttachScheduler(reminders)
	}

	err = b.Start(ctx)
	b.Stop()
	return err
}
