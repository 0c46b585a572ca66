package estimate

import (
	"math"

	"github.com/sells-group/carvalue/internal/model"
)

// Predicate reports whether a listing should be kept.
type Predicate func(model.Listing) bool

// HasPrice keeps listings with a known, finite price.
func HasPrice(l model.Listing) bool {
	return l.Price != nil && !math.IsNaN(*l.Price) && !math.IsInf(*l.Price, 0)
}

// HasMileage keeps listings with a known mileage.
func HasMileage(l model.Listing) bool { return l.Mileage != nil }

// Filter returns the listings that satisfy every predicate. The input is not modified.
func Filter(listings []model.Listing, keep ...Predicate) []model.Listing {
	out := make([]model.Listing, 0, len(listings))
next:
	for _, l := range listings {
		for _, p := range keep {
			if !p(l) {
				continue next
			}
		}
		out = append(out, l)
	}
	return out
}
