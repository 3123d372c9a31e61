package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/vocabmaster/internal/catalog"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the store schema up to date and print collection versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			versions, err := a.store.SchemaVersions(cmd.Context())
			if err != nil {
				return err
			}
			names := make([]string, 0, len(versions))
			for name := range versions {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s v%d\n", name, versions[name])
			}
			return nil
		},
	}
}

// NewSeedCommand creates the seed command.
func NewSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [dataset]",
		Short: "Load a built-in word list into the catalog",
		Long: `Load a built-in word list into the catalog. Without an argument the
configured library.dataset is seeded. Seeding twice is a no-op.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			id := a.cfg.Library.Dataset
			if len(args) == 1 {
				id = args[0]
			}
			if _, ok, _ := catalog.FindDataset(id); !ok {
				return fmt.Errorf("unknown dataset %q, available: %s", id, strings.Join(datasetIDs(), ", "))
			}
			n, err := a.catalog(nil).EnsureDataset(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d words from %s\n", n, id)
			return nil
		},
	}
}

// NewWipeCommand creates the wipe command.
func NewWipeCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every user, word and progress record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to wipe without --yes")
			}
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.WipeAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "store wiped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the wipe")
	return cmd
}

// datasetIDs lists the built-in word lists for help output
func datasetIDs() []string {
	all, err := catalog.Datasets()
	if err != nil {
		return nil
	}
	ids := make([]string, len(all))
	for i, ds := range all {
		ids[i] = ds.ID
	}
	return ids
}
