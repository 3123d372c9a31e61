package excel

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/example/vocabmaster/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath          string // Path to the .xlsx, .csv or .txt file
	WordColumn        string // Column with the word
	PhoneticColumn    string // Column with the phonetic transcription
	TranslationColumn string // Column with the translation
	ExampleColumn     string // Column with the example sentence
	SheetName         string // Name of the sheet to import; empty means the first sheet
	StartRow          int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig(path string) ImportConfig {
	return ImportConfig{
		FilePath:          path,
		WordColumn:        "A",
		PhoneticColumn:    "B",
		TranslationColumn: "C",
		ExampleColumn:     "D",
		StartRow:          2, // skip header
	}
}

// ImportResult holds the result of an import operation. Words are parsed but not
// yet stored or de-duplicated against the catalog.
type ImportResult struct {
	TotalProcessed int
	Skipped        int
	Words          []models.Word
	Errors         []string
}

// ErrNoWords is returned when a file yields nothing importable
var ErrNoWords = errors.New("no words found; expected word/phonetic/translation/example")

// ImportWords reads words from a spreadsheet, CSV or slash-separated text file.
// Every word is tagged imported.
func ImportWords(config ImportConfig) (*ImportResult, error) {
	var (
		result *ImportResult
		err    error
	)
	switch strings.ToLower(filepath.Ext(config.FilePath)) {
	case ".csv":
		result, err = importFromCSV(config)
	case ".txt":
		result, err = importFromText(config)
	default:
		result, err = importFromExcel(config)
	}
	if err != nil {
		return nil, err
	}
	if len(result.Words) == 0 {
		return result, ErrNoWords
	}
	return result, nil
}

// importFromExcel imports words from an Excel file
func importFromExcel(config ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := config.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	result := &ImportResult{}
	for i, row := range rows {
		if i < config.StartRow-1 {
			continue
		}
		processRow(row, config, result, i+1)
	}
	return result, nil
}

// importFromCSV imports words from a CSV file laid out like the spreadsheet
func importFromCSV(config ImportConfig) (*ImportResult, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	result := &ImportResult{}
	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rowNum++
		if rowNum < config.StartRow {
			continue
		}
		processRow(row, config, result, rowNum)
	}
	return result, nil
}

// importFromText reads one word per line: word/phonetic/translation/example.
// Lines with fewer than two parts are skipped.
func importFromText(config ImportConfig) (*ImportResult, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open text file: %w", err)
	}
	defer file.Close()

	result := &ImportResult{}
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		result.TotalProcessed++

		parts := strings.Split(line, "/")
		if len(parts) < 2 {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Line %d: expected at least word/phonetic", lineNum))
			continue
		}
		for len(parts) < 4 {
			parts = append(parts, "")
		}
		addWord(result, parts[0], parts[1], parts[2], strings.Join(parts[3:], "/"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading text file: %w", err)
	}
	return result, nil
}

// processRow processes a single spreadsheet or CSV row
func processRow(row []string, config ImportConfig, result *ImportResult, rowNum int) {
	cell := func(column string) string {
		if column == "" {
			return ""
		}
		if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
			return row[idx]
		}
		return ""
	}

	result.TotalProcessed++
	word := sanitize(cell(config.WordColumn))
	if word == "" {
		result.Skipped++
		result.Errors = append(result.Errors, fmt.Sprintf("Row %d: empty word", rowNum))
		return
	}
	addWord(result, word, cell(config.PhoneticColumn), cell(config.TranslationColumn), cell(config.ExampleColumn))
}

func addWord(result *ImportResult, word, phonetic, translation, example string) {
	result.Words = append(result.Words, models.Word{
		Headword:    sanitize(word),
		Phonetic:    sanitize(phonetic),
		Translation: sanitize(translation),
		Example:     sanitize(example),
		Tags:        models.Tags{models.TagImported},
	})
}

// sanitize strips control characters and surrounding whitespace
func sanitize(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s))
}

// columnToIndex converts a column letter (A, B, ..., AA) to a zero-based index
func columnToIndex(column string) int {
	column = strings.ToUpper(strings.TrimSpace(column))
	idx := 0
	for _, r := range column {
		if r < 'A' || r > 'Z' {
			return -1
		}
		idx = idx*26 + int(r-'A'+1)
	}
	return idx - 1
}
