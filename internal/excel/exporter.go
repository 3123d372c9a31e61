package excel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/vocabmaster/pkg/models"
)

// NewFile starts with this sheet
const exportSheet = "Sheet1"

// ExportWords writes words to path. A .txt path gets the slash-separated line
// format ImportWords reads back; anything else gets an .xlsx workbook with a header row.
func ExportWords(path string, words []models.Word) error {
	if strings.ToLower(filepath.Ext(path)) == ".txt" {
		return exportText(path, words)
	}

	f := excelize.NewFile()
	defer f.Close()

	header := []interface{}{"Word", "Phonetic", "Translation", "Example", "Tags", "Starred"}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, w := range words {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{w.Headword, w.Phonetic, w.Translation, w.Example, strings.Join(w.Tags, ","), w.Starred}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func exportText(path string, words []models.Word) error {
	var b strings.Builder
	for _, w := range words {
		fmt.Fprintf(&b, "%s/%s/%s/%s\n", w.Headword, w.Phonetic, w.Translation, w.Example)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
