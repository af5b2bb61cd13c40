// Package review reads and writes the CSV files a human reviewer works with.
package review

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/opencookbook/mortar/pkg/models"
)

var suggestionHeader = []string{
	"canonical_id",
	"canonical_key",
	"alias_id",
	"alias_key",
	"score",
	"used_count_canonical",
	"used_count_alias",
	"reason",
	"decision",
	"approved",
}

// WriteSuggestions writes suggestions as a review CSV. Rows classified as
// auto_approve come pre-marked with "Y" so the reviewer only has to touch the
// rest. A positive limit caps the number of rows written.
func WriteSuggestions(w io.Writer, suggestions []models.Suggestion, limit int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(suggestionHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for i, s := range suggestions {
		if limit > 0 && i >= limit {
			break
		}

		approved := ""
		if s.Decision == models.DecisionAutoApprove {
			approved = "Y"
		}

		record := []string{
			strconv.FormatInt(s.CanonicalID, 10),
			s.CanonicalKey,
			strconv.FormatInt(s.AliasID, 10),
			s.AliasKey,
			fmt.Sprintf("%.4f", s.Score),
			strconv.FormatInt(s.UsedCanonical, 10),
			strconv.FormatInt(s.UsedAlias, 10),
			s.Reason,
			s.Decision,
			approved,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadApproved loads the reviewed suggestion CSV and returns only the rows the
// reviewer approved. Accepted approval markers are y, yes, 1 and true in any
// case.
func ReadApproved(r io.Reader) ([]models.Suggestion, error) {
	rows, header, err := readAll(r)
	if err != nil {
		return nil, err
	}

	var approved []models.Suggestion
	for _, row := range rows {
		if !isApproved(field(row, header, "approved")) {
			continue
		}

		canonicalID, err := strconv.ParseInt(strings.TrimSpace(field(row, header, "canonical_id")), 10, 64)
		if err != nil {
			continue
		}
		aliasID, err := strconv.ParseInt(strings.TrimSpace(field(row, header, "alias_id")), 10, 64)
		if err != nil {
			continue
		}

		score, _ := strconv.ParseFloat(strings.TrimSpace(field(row, header, "score")), 64)

		approved = append(approved, models.Suggestion{
			CanonicalID:  canonicalID,
			CanonicalKey: field(row, header, "canonical_key"),
			AliasID:      aliasID,
			AliasKey:     field(row, header, "alias_key"),
			Score:        score,
			Reason:       field(row, header, "reason"),
			Decision:     field(row, header, "decision"),
			Approved:     true,
		})
	}

	return approved, nil
}

// ReadCollisionDirectives loads the reviewed collision CSV. Expected columns
// are alias_norm, canonical_id, canonical_key, decision and notes.
func ReadCollisionDirectives(r io.Reader) ([]models.CollisionDirective, error) {
	rows, header, err := readAll(r)
	if err != nil {
		return nil, err
	}

	var directives []models.CollisionDirective
	for _, row := range rows {
		canonicalID, _ := strconv.ParseInt(strings.TrimSpace(field(row, header, "canonical_id")), 10, 64)

		directives = append(directives, models.CollisionDirective{
			AliasNorm:    strings.TrimSpace(field(row, header, "alias_norm")),
			CanonicalID:  canonicalID,
			CanonicalKey: strings.TrimSpace(field(row, header, "canonical_key")),
			Decision:     strings.TrimSpace(field(row, header, "decision")),
			Notes:        field(row, header, "notes"),
		})
	}

	return directives, nil
}

// readAll parses a CSV into rows plus a column index built from the header.
// A UTF-8 byte order mark on the first cell is stripped, spreadsheet exports
// on Windows tend to carry one.
func readAll(r io.Reader) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, map[string]int{}, nil
	}

	headerRow := records[0]
	if len(headerRow) > 0 {
		headerRow[0] = strings.TrimPrefix(headerRow[0], "\uFEFF")
	}

	header := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}

	return records[1:], header, nil
}

func field(row []string, header map[string]int, name string) string {
	idx, ok := header[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isApproved(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "y", "yes", "1", "true":
		return true
	}
	return false
}
