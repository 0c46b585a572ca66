// Package validate checks raw year/make/model/mileage input against the
// configured bounds before it reaches the listing store or the estimator.
package validate

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/sells-group/carvalue/internal/config"
)

// Kind classifies a validation failure.
type Kind string

const (
	MissingField  Kind = "missing_field"
	InvalidFormat Kind = "invalid_format"
	OutOfRange    Kind = "out_of_range"
)

// Error is a user-facing validation failure. It is returned, never panicked,
// so callers can re-render the form with the submitted values intact.
type Error struct {
	Kind    Kind   `json:"kind"`
	Field   string `json:"field"`
	Message string `json:"error"`
}

func (e *Error) Error() string {
	return e.Message
}

// SearchQuery is a validated year/make/model triple.
type SearchQuery struct {
	Year  int
	Make  string
	Model string
}

// Validator checks search input. It is immutable and safe for concurrent use.
type Validator struct {
	minYear    int
	maxYear    int
	maxMileage int
}

// New creates a Validator using the bounds in cfg.
func New(cfg config.EstimatorConfig) *Validator {
	return &Validator{
		minYear:    cfg.MinYear,
		maxYear:    cfg.MaxYear,
		maxMileage: cfg.MaxMileage,
	}
}

// ValidateSearchInput checks required fields in year, make, model order, then
// the year's format and range. The first failure wins.
func (v *Validator) ValidateSearchInput(year, carMake, carModel string) (SearchQuery, error) {
	year = strings.TrimSpace(year)
	carMake = strings.TrimSpace(carMake)
	carModel = strings.TrimSpace(carModel)

	switch {
	case year == "":
		return SearchQuery{}, &Error{Kind: MissingField, Field: "year", Message: "Year is required"}
	case carMake == "":
		return SearchQuery{}, &Error{Kind: MissingField, Field: "make", Message: "Make is required"}
	case carModel == "":
		return SearchQuery{}, &Error{Kind: MissingField, Field: "model", Message: "Model is required"}
	}

	y, err := strconv.Atoi(year)
	if err != nil {
		return SearchQuery{}, &Error{Kind: InvalidFormat, Field: "year", Message: "Year must be a valid number"}
	}

	if y < v.minYear || y > v.maxYear {
		return SearchQuery{}, &Error{
			Kind:    OutOfRange,
			Field:   "year",
			Message: fmt.Sprintf("Year must be between %d and %d", v.minYear, v.maxYear),
		}
	}

	return SearchQuery{Year: y, Make: carMake, Model: carModel}, nil
}

// ValidateMileage parses a mileage such as "150,000". It reports false for
// blank, malformed, negative or over-limit input.
func (v *Validator) ValidateMileage(raw string) (int, bool) {
	if strings.TrimSpace(raw) == "" {
		return 0, false
	}

	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	mileage, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, false
	}
	if mileage < 0 || mileage > v.maxMileage {
		return 0, false
	}

	return mileage, true
}
