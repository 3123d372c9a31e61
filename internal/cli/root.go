package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/vocabmaster/internal/config"
)

// NewRootCommand creates the root command for the vocabmaster CLI.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocabmaster",
		Short: "Spaced-repetition vocabulary trainer",
		Long: `VocabMaster schedules vocabulary reviews with SM-2 and serves them
through a Telegram bot. Settings come from a YAML file (--config), VOCAB_*
environment variables and the flags below, in increasing priority.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewBotCommand())
	cmd.AddCommand(NewMigrateCommand())
	cmd.AddCommand(NewSeedCommand())
	cmd.AddCommand(NewImportCommand())
	cmd.AddCommand(NewExportCommand())
	cmd.AddCommand(NewRegisterCommand())
	cmd.AddCommand(NewStatsCommand())
	cmd.AddCommand(NewPlanCommand())
	cmd.AddCommand(NewLookupCommand())
	cmd.AddCommand(NewWipeCommand())

	return cmd
}

// Execute runs the root command with os.Args
func Execute() error {
	return NewRootCommand().Execute()
}
