package search

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/carvalue/internal/estimate"
	"github.com/sells-group/carvalue/internal/model"
)

// Statistics summarizes listings. Ranges are nil when no listing has the value.
func Statistics(listings []model.Listing) model.VehicleStats {
	priced := estimate.Filter(listings, estimate.HasPrice)
	withMileage := estimate.Filter(listings, estimate.HasMileage)

	prices := make([]float64, len(priced))
	for i, l := range priced {
		prices[i] = *l.Price
	}
	mileages := make([]float64, len(withMileage))
	for i, l := range withMileage {
		mileages[i] = float64(*l.Mileage)
	}

	return model.VehicleStats{
		TotalVehicles:       len(listings),
		VehiclesWithPrices:  len(priced),
		VehiclesWithMileage: len(withMileage),
		PriceRange:          summarize(prices),
		MileageRange:        summarize(mileages),
	}
}

func summarize(v []float64) *model.Range {
	if len(v) == 0 {
		return nil
	}
	return &model.Range{
		Min: floats.Min(v),
		Max: floats.Max(v),
		Avg: stat.Mean(v, nil),
	}
}
