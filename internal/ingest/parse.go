package ingest

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/carvalue/internal/model"
	"github.com/sells-group/carvalue/internal/store"
)

// Feed column names.
const (
	ColVIN     = "vin"
	ColYear    = "year"
	ColMake    = "make"
	ColModel   = "model"
	ColPrice   = "listing_price"
	ColMileage = "listing_mileage"
	ColCity    = "dealer_city"
	ColState   = "dealer_state"
)

var requiredColumns = []string{ColVIN, ColYear, ColMake, ColModel}

// Header maps lowercased column names to their index in a feed row.
type Header map[string]int

// ParseHeader indexes a header row. It fails when a required column is missing.
func ParseHeader(record []string) (Header, error) {
	h := make(Header, len(record))
	for i, name := range record {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := h[col]; !ok {
			return nil, eris.Errorf("ingest: feed header missing column %q", col)
		}
	}
	return h, nil
}

func (h Header) field(record []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ParseRow builds a listing from one feed row. It reports false when vin,
// year, make or model is blank or year is not an integer. A price or mileage
// that does not parse is left nil.
func (h Header) ParseRow(record []string) (model.Listing, bool) {
	vin := h.field(record, ColVIN)
	yearStr := h.field(record, ColYear)
	if vin == "" || yearStr == "" {
		return model.Listing{}, false
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return model.Listing{}, false
	}

	carMake := store.Normalize(h.field(record, ColMake))
	carModel := store.Normalize(h.field(record, ColModel))
	if carMake == "" || carModel == "" {
		return model.Listing{}, false
	}

	return model.Listing{
		VIN:     vin,
		Year:    year,
		Make:    carMake,
		Model:   carModel,
		City:    h.field(record, ColCity),
		State:   h.field(record, ColState),
		Price:   parsePrice(h.field(record, ColPrice)),
		Mileage: parseMileage(h.field(record, ColMileage)),
	}, true
}

func parsePrice(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return model.Float64(v)
}

func parseMileage(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return model.Int(v)
}
