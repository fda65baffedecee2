package audit

import (
	"bytes"
	"encoding/csv"
	"time"

	"github.com/google/uuid"
)

var csvHeader = []string{"created_at", "user_id", "parish_id", "action_type", "table_name", "record_id", "ip_address", "new_values"}

// WriteCSV renders entries as CSV with a header row.
func WriteCSV(entries []Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	if err := writer.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, e := range entries {
		row := []string{
			e.CreatedAt.UTC().Format(time.RFC3339),
			idText(e.UserID),
			idText(e.ParishID),
			e.ActionType,
			text(e.TableName),
			idText(e.RecordID),
			text(e.IPAddress),
			string(e.NewValues),
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func idText(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
