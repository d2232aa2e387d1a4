package merge

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/spice-budget/internal/model"
)

// dateLayouts are the layouts accepted for secondary-feed dates, tried in order.
var dateLayouts = []string{
	model.DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
}

// ParseDate parses a secondary-feed date string into a calendar day (UTC midnight).
func ParseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// syntheticID builds the stable identifier for a secondary record at position index.
func syntheticID(rec model.ImportedTransaction, index int, date time.Time) string {
	if rec.ID != nil {
		return fmt.Sprintf("csv-%d-%d", *rec.ID, index)
	}
	return fmt.Sprintf("csv-generated-%d-%s-%s", index, date.Format(model.DateLayout), rec.TransactionAmount.StringFixed(2))
}

// ImportedID recovers the stored row id of a secondary record from its transaction ID.
// Records that had no row id when converted report false.
func ImportedID(transactionID string) (int64, bool) {
	rest, ok := strings.CutPrefix(transactionID, "csv-")
	if !ok {
		return 0, false
	}
	idPart, _, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Convert maps a secondary-feed record onto the unified transaction shape.
// It fails only when the record's date cannot be parsed.
func Convert(rec model.ImportedTransaction, index int) (model.Transaction, error) {
	date, err := ParseDate(rec.TransactionDate)
	if err != nil {
		return model.Transaction{}, err
	}

	category := strings.TrimSpace(rec.Category)
	if category == "" {
		category = model.UncategorizedCategory
	}

	return model.Transaction{
		ID:                  syntheticID(rec, index, date),
		AccountID:           rec.AccountID,
		Amount:              rec.TransactionAmount,
		PostedDate:          &date,
		MerchantName:        rec.MerchantName,
		Description:         rec.TransactionDescription,
		ExtendedDescription: rec.ExtendedDescription,
		Categories:          []string{category},
		Source:              model.SourceSecondary,
		Pending:             false,
	}, nil
}
