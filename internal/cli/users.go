package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/example/vocabmaster/internal/database"
	"github.com/example/vocabmaster/internal/lookup"
)

// NewRegisterCommand creates the register command.
func NewRegisterCommand() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create a user account",
		Long: `Create a user account. With --password the account can be attached to a
Telegram chat later with /link <username> <password>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.store.RegisterUser(cmd.Context(), args[0], password, a.clock.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password for /link")
	return cmd
}

// NewStatsCommand creates the stats command.
func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <username>",
		Short: "Print a user's dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.store.GetUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("no user named %q", args[0])
			}
			d, err := a.workflow().Dashboard(cmd.Context(), user.Username)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "user:      %s\n", user.Username)
			fmt.Fprintf(out, "points:    %d\n", d.Points)
			fmt.Fprintf(out, "streak:    %d\n", d.Streak)
			fmt.Fprintf(out, "today:     %d/%d learned\n", d.LearnedToday, d.DailyTarget)
			fmt.Fprintf(out, "library:   %d (mastered %d, learning %d, new %d)\n", d.LibrarySize, d.Mastered, d.Learning, d.New)
			fmt.Fprintf(out, "due:       %d\n", d.DueCount)
			fmt.Fprintf(out, "mistakes:  %d\n", d.MistakeCount)
			fmt.Fprintf(out, "starred:   %d\n", d.StarredCount)
			return nil
		},
	}
}

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <username> <words-per-day>",
		Short: "Set a user's daily study target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("words-per-day must be a number: %w", err)
			}
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			err = a.workflow().SetDailyTarget(cmd.Context(), args[0], target)
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("no user named %q", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now plans %d words a day\n", args[0], target)
			return nil
		},
	}
}

// NewLookupCommand creates the lookup command.
func NewLookupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <word>",
		Short: "Print the dictionary entry for a word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			svc, err := a.lookupService(cmd.Context())
			if err != nil {
				return err
			}
			entry, err := svc.Lookup(cmd.Context(), args[0])
			if errors.Is(err, lookup.ErrEmptyHeadword) {
				return errors.New("word must not be empty")
			}
			if err != nil {
				return err
			}
			if entry == nil {
				return fmt.Errorf("no entry found for %q", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n%s\n", entry.Headword, entry.Phonetic, entry.Translation)
			if entry.Example != "" {
				fmt.Fprintf(out, "example:  %s\n", entry.Example)
			}
			if entry.Mnemonic != "" {
				fmt.Fprintf(out, "mnemonic: %s\n", entry.Mnemonic)
			}
			return nil
		},
	}
}
