// Package roster turns registration exports into participants and merges
// them into a competition's participant list.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"wedstrijd-bot/internal/models"
)

// Column names of the registration export.
const (
	ColName     = "Name"
	ColHorse    = "Sport name 1"
	ColClass    = "Class"
	ColCategory = "Pony category"
	ColRemarks  = "Remarks"
	ColPhone    = "Mobile phone 0"
)

const Delimiter = ';'

var ErrNoHeader = errors.New("registration file has no header row")

type ParseResult struct {
	Participants []models.Participant
	Rows         int // data rows read, header excluded
	Skipped      int // rows without a name or horse
	Malformed    int // rows whose name is only whitespace
}

// FirstName returns the first whitespace separated token of the trimmed full
// name. ok is false when there is none.
func FirstName(fullName string) (string, bool) {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}

// Parse reads a semicolon separated registration export with a header row.
// Rows missing the Name or Sport name 1 cell are skipped; missing optional
// columns become empty strings.
func Parse(r io.Reader) (ParseResult, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.UTF8BOM.NewDecoder()))
	cr.Comma = Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return ParseResult{}, ErrNoHeader
	}
	if err != nil {
		return ParseResult{}, fmt.Errorf("read header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}

	res := ParseResult{Participants: []models.Participant{}}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ParseResult{}, fmt.Errorf("read row %d: %w", res.Rows+1, err)
		}
		res.Rows++

		name, hasName := cell(row, cols, ColName)
		horse, hasHorse := cell(row, cols, ColHorse)
		if !hasName || !hasHorse {
			res.Skipped++
			continue
		}
		name = strings.TrimSpace(name)
		first, ok := FirstName(name)
		if !ok {
			res.Malformed++
			continue
		}

		res.Participants = append(res.Participants, models.Participant{
			FullName:  name,
			FirstName: first,
			HorseName: strings.TrimSpace(horse),
			Class:     optional(row, cols, ColClass),
			Category:  optional(row, cols, ColCategory),
			Remarks:   optional(row, cols, ColRemarks),
			Phone:     optional(row, cols, ColPhone),
		})
	}
	return res, nil
}

// cell reports ok=false when the column or the value is missing.
func cell(row []string, cols map[string]int, col string) (string, bool) {
	idx, found := cols[col]
	if !found || idx >= len(row) || row[idx] == "" {
		return "", false
	}
	return row[idx], true
}

func optional(row []string, cols map[string]int, col string) string {
	v, _ := cell(row, cols, col)
	return strings.TrimSpace(v)
}
