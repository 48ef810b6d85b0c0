// Package table reads the chapter table (CSV or XLSX) and writes the
// geocoded JSON artifact.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/chapter-geocoder/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Column headers. Matching is case-insensitive and ignores surrounding space.
const (
	ColChapterName       = "ChapterName"
	ColCity              = "City"
	ColStateRegion       = "StateRegion"
	ColCountry           = "Country"
	ColPresidentName     = "PresidentName"
	ColPresidentCell     = "PresidentCell"
	ColVicePresidentName = "VicePresidentName"
	ColVicePresidentCell = "VicePresidentCell"
	ColLatOverride       = "LatOverride"
	ColLngOverride       = "LngOverride"
)

var requiredColumns = []string{ColChapterName, ColCity, ColStateRegion, ColCountry}

// ReadChapters loads every data row of the table at path. Files ending in
// .xlsx are read from their first sheet; anything else is parsed as CSV.
// Every data row yields one record, blank rows included, so record ids stay
// aligned with the source table. Cell values are passed through untrimmed.
// A missing file or a missing required column is reported as a
// *domain.InputFormatError.
func ReadChapters(path string) ([]domain.ChapterRecord, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err = readXLSX(path)
	} else {
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, &domain.InputFormatError{Path: path, Err: err}
	}
	return parseRows(path, rows)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("no sheets found in workbook")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func parseRows(path string, rows [][]string) ([]domain.ChapterRecord, error) {
	if len(rows) == 0 {
		return nil, &domain.InputFormatError{Path: path, Missing: requiredColumns}
	}

	index := headerIndex(rows[0])
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[strings.ToLower(col)]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.InputFormatError{Path: path, Missing: missing}
	}

	records := make([]domain.ChapterRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		get := func(col string) string {
			i, ok := index[strings.ToLower(col)]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}
		records = append(records, domain.ChapterRecord{
			ChapterName:       get(ColChapterName),
			City:              get(ColCity),
			StateRegion:       get(ColStateRegion),
			Country:           get(ColCountry),
			PresidentName:     get(ColPresidentName),
			PresidentCell:     get(ColPresidentCell),
			VicePresidentName: get(ColVicePresidentName),
			VicePresidentCell: get(ColVicePresidentCell),
			LatOverride:       get(ColLatOverride),
			LngOverride:       get(ColLngOverride),
		})
	}
	return records, nil
}

// headerIndex maps lower-cased header names to column positions. The first
// occurrence of a duplicated header wins.
func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if h == "" {
			continue
		}
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	return index
}
