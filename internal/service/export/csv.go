package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/mamadbah2/farmbook/internal/domain/models"
)

// WriteCSV writes the records of a category as CSV. The header comes from
// the first record: id, createdAt, then its fields in declared order.
func WriteCSV(w io.Writer, category models.Category, records []models.Record) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: %s has no records to export", models.ErrNoData, category)
	}

	keys := models.OrderedKeys(category, records[0].Fields)
	header := append([]string{models.FieldID, models.FieldCreatedAt}, keys...)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, record := range records {
		row := make([]string, 0, len(header))
		row = append(row, record.ID)
		if record.CreatedAt.IsZero() {
			row = append(row, "")
		} else {
			row = append(row, record.CreatedAt.UTC().Format(time.RFC3339))
		}
		for _, key := range keys {
			row = append(row, record.Fields.String(key))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", record.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Filename returns the download name for a category export.
func Filename(category models.Category, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", category, now.Format(models.DateLayout))
}
