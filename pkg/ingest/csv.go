// Package ingest parses uploaded player batches into records for screening.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/normalizers"
)

// headerAliases maps recognized CSV header spellings to record fields. Export
// files disagree on header style, so both the display form and snake_case are
// accepted.
var headerAliases = map[string]string{
	"first name":    "first_name",
	"first_name":    "first_name",
	"firstname":     "first_name",
	"last name":     "last_name",
	"last_name":     "last_name",
	"lastname":      "last_name",
	"surname":       "last_name",
	"postcode":      "postcode",
	"post code":     "postcode",
	"dob":           "dob",
	"date of birth": "dob",
	"date_of_birth": "dob",
	"mobile":        "mobile",
	"phone":         "mobile",
	"email":         "email",
	"casino":        "casino",
	"network id":    "network_id",
	"network_id":    "network_id",
	"player id":     "player_id",
	"player_id":     "player_id",
}

// Result is a parsed batch: accepted records in file order plus the rows that
// failed validation.
type Result struct {
	Records  []models.PlayerRecord
	Rejected []models.RejectedRecord
}

// ParseCSV reads a player CSV file. The first row is the header; column order
// is free. Rows missing a player ID are rejected rather than failing the
// whole file.
func ParseCSV(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "file is empty")
	}
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("failed to read header: %s", err))
	}

	fields := make([]string, len(header))
	known := 0
	for i, h := range header {
		key := normalizers.ApplyChain(h, "trim", "lowercase")
		if field, ok := headerAliases[key]; ok {
			fields[i] = field
			known++
		}
	}
	if known == 0 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "no recognized columns in header")
	}

	result := &Result{}
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Rejected = append(result.Rejected, models.RejectedRecord{
				Line:   line,
				Reason: fmt.Sprintf("malformed row: %s", err),
			})
			continue
		}

		rec := recordFromRow(fields, row)
		if reason, ok := validate(rec); !ok {
			result.Rejected = append(result.Rejected, models.RejectedRecord{
				Line:   line,
				Reason: reason,
				Record: rec,
			})
			continue
		}

		result.Records = append(result.Records, rec)
	}

	return result, nil
}

// ValidateRecords applies the same row validation to an inline batch, e.g.
// one arriving over the API or the intake topic.
func ValidateRecords(records []models.PlayerRecord) *Result {
	result := &Result{}
	for i, rec := range records {
		if reason, ok := validate(rec); !ok {
			result.Rejected = append(result.Rejected, models.RejectedRecord{
				Line:   i + 1,
				Reason: reason,
				Record: rec,
			})
			continue
		}
		result.Records = append(result.Records, rec)
	}
	return result
}

func recordFromRow(fields []string, row []string) models.PlayerRecord {
	var rec models.PlayerRecord
	for i, field := range fields {
		if field == "" || i >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[i])
		switch field {
		case "player_id":
			rec.PlayerID = value
		case "first_name":
			rec.FirstName = value
		case "last_name":
			rec.LastName = value
		case "postcode":
			rec.Postcode = value
		case "dob":
			rec.DOB = value
		case "mobile":
			rec.Mobile = value
		case "email":
			rec.Email = value
		case "casino":
			rec.Casino = value
		case "network_id":
			rec.NetworkID = value
		}
	}
	return rec
}

func validate(rec models.PlayerRecord) (string, bool) {
	if strings.TrimSpace(rec.PlayerID) == "" {
		return "missing player id", false
	}
	if strings.TrimSpace(rec.FirstName) == "" && strings.TrimSpace(rec.LastName) == "" {
		return "missing name", false
	}
	return "", true
}
