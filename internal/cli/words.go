package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/vocabmaster/internal/excel"
	"github.com/example/vocabmaster/pkg/models"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	Sheet             string
	StartRow          int
	WordColumn        string
	PhoneticColumn    string
	TranslationColumn string
	ExampleColumn     string
}

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	def := excel.DefaultImportConfig("")
	opts := &ImportOptions{
		StartRow:          def.StartRow,
		WordColumn:        def.WordColumn,
		PhoneticColumn:    def.PhoneticColumn,
		TranslationColumn: def.TranslationColumn,
		ExampleColumn:     def.ExampleColumn,
	}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Add words from an .xlsx, .csv or .txt file to the catalog",
		Long: `Add words from a file to the catalog, tagged imported.

Spreadsheets and CSV files hold one word per row (word, phonetic, translation,
example by default). Text files hold one "word/phonetic/translation/example"
line per word. Words already in the catalog are skipped.

Example:
  vocabmaster import words.xlsx --sheet Unit1
  vocabmaster import words.csv --start-row 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := excel.ImportConfig{
				FilePath:          args[0],
				SheetName:         opts.Sheet,
				StartRow:          opts.StartRow,
				WordColumn:        opts.WordColumn,
				PhoneticColumn:    opts.PhoneticColumn,
				TranslationColumn: opts.TranslationColumn,
				ExampleColumn:     opts.ExampleColumn,
			}
			parsed, err := excel.ImportWords(cfg)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			added, err := a.catalog(nil).Import(cmd.Context(), parsed.Words)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, msg := range parsed.Errors {
				fmt.Fprintf(out, "warning: %s\n", msg)
			}
			fmt.Fprintf(out, "imported %d new words (%d rows read, %d skipped, %d already known)\n",
				len(added), parsed.TotalProcessed, parsed.Skipped, len(parsed.Words)-len(added))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Sheet, "sheet", "", "sheet to read (default: first sheet)")
	cmd.Flags().IntVar(&opts.StartRow, "start-row", opts.StartRow, "first row to read, 1-based")
	cmd.Flags().StringVar(&opts.WordColumn, "word-col", opts.WordColumn, "column holding the word")
	cmd.Flags().StringVar(&opts.PhoneticColumn, "phonetic-col", opts.PhoneticColumn, "column holding the phonetic transcription")
	cmd.Flags().StringVar(&opts.TranslationColumn, "translation-col", opts.TranslationColumn, "column holding the translation")
	cmd.Flags().StringVar(&opts.ExampleColumn, "example-col", opts.ExampleColumn, "column holding the example sentence")

	return cmd
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write imported and scanned words to an .xlsx or .txt file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			words, err := a.store.GetFullCatalog(cmd.Context())
			if err != nil {
				return err
			}
			if !all {
				words = userAdded(words)
			}
			if err := excel.ExportWords(args[0], words); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d words to %s\n", len(words), args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "export the whole catalog, seed datasets included")
	return cmd
}

// userAdded keeps the words learners brought in themselves
func userAdded(words []models.Word) []models.Word {
	out := make([]models.Word, 0, len(words))
	for _, w := range words {
		if w.Tags.Has(models.TagImported) || w.Tags.Has(models.TagScanned) {
			out = append(out, w)
		}
	}
	return out
}
