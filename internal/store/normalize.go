package store

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/carvalue/internal/model"
)

// Normalize folds a make or model to the stored form: trimmed and lowercased.
func Normalize(s string) string {
	// Casers carry state; build one per call.
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// listingRow flattens l into listingColumns order with a fresh row id.
func listingRow(l model.Listing) []any {
	return []any{
		uuid.New().String(),
		strings.TrimSpace(l.VIN),
		l.Year,
		Normalize(l.Make),
		Normalize(l.Model),
		strings.TrimSpace(l.City),
		strings.TrimSpace(l.State),
		l.Price,
		l.Mileage,
	}
}

func listingRows(listings []model.Listing) [][]any {
	rows := make([][]any, len(listings))
	for i, l := range listings {
		rows[i] = listingRow(l)
	}
	return rows
}
