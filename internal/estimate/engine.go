// Package estimate computes vehicle price estimates from matched listings,
// using either the mean listing price or a price-on-mileage regression.
package estimate

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/carvalue/internal/config"
	"github.com/sells-group/carvalue/internal/model"
)

// Engine estimates prices. It holds only its configuration and is safe for
// concurrent use.
type Engine struct {
	minRegressionVehicles int
	roundingFactor        int
}

// NewEngine creates an Engine from cfg. It fails if the regression threshold
// is below 1 or the rounding factor is not positive.
func NewEngine(cfg config.EstimatorConfig) (*Engine, error) {
	if cfg.MinVehiclesForRegression < 1 {
		return nil, eris.Errorf("estimate: min vehicles for regression must be at least 1, got %d", cfg.MinVehiclesForRegression)
	}
	if cfg.PriceRoundingFactor <= 0 {
		return nil, eris.Errorf("estimate: price rounding factor must be positive, got %d", cfg.PriceRoundingFactor)
	}
	return &Engine{
		minRegressionVehicles: cfg.MinVehiclesForRegression,
		roundingFactor:        cfg.PriceRoundingFactor,
	}, nil
}

// EstimatePrice estimates a price from listings. With a nil targetMileage it
// returns the rounded mean price; otherwise it tries a mileage regression and
// falls back to the mean when there are too few usable listings or the fit fails.
func (e *Engine) EstimatePrice(listings []model.Listing, targetMileage *int) model.Estimate {
	if len(listings) == 0 {
		return model.Estimate{Method: model.MethodNoData}
	}

	priced := Filter(listings, HasPrice)
	if len(priced) == 0 {
		return model.Estimate{Method: model.MethodNoValidPrices}
	}

	basePrice := meanPrice(priced)

	if targetMileage == nil {
		return model.Estimate{
			Price:        RoundToNearest(basePrice, e.roundingFactor),
			Method:       model.MethodAverage,
			VehicleCount: len(priced),
			BasePrice:    basePrice,
		}
	}

	price, method, detail := e.adjustForMileage(priced, basePrice, *targetMileage)

	est := model.Estimate{
		Price:        RoundToNearest(price, e.roundingFactor),
		Method:       method,
		VehicleCount: len(priced),
		BasePrice:    basePrice,
		Detail:       detail,
	}

	zap.L().Debug("estimate: mileage adjusted",
		zap.String("method", string(est.Method)),
		zap.Int("target_mileage", *targetMileage),
		zap.Int("vehicle_count", est.VehicleCount),
		zap.Float64("base_price", basePrice),
		zap.Float64("estimated_price", est.Price),
	)

	return est
}

// adjustForMileage returns the unrounded price along with the method and detail
// describing how it was obtained.
func (e *Engine) adjustForMileage(priced []model.Listing, basePrice float64, target int) (float64, model.Method, model.Detail) {
	points := Filter(priced, HasPrice, HasMileage)

	if len(points) < e.minRegressionVehicles {
		return basePrice, model.MethodAverage, &model.FallbackDetail{
			Reason:             model.FallbackInsufficientData,
			RegressionVehicles: len(points),
		}
	}

	mileages := make([]float64, len(points))
	prices := make([]float64, len(points))
	for i, l := range points {
		mileages[i] = float64(*l.Mileage)
		prices[i] = *l.Price
	}

	fit, err := Regress(mileages, prices)
	if err != nil {
		zap.L().Warn("estimate: regression failed, using average",
			zap.Int("regression_vehicles", len(points)),
			zap.Error(err),
		)
		return basePrice, model.MethodAverage, &model.FallbackDetail{
			Reason:             model.FallbackFailed,
			RegressionVehicles: len(points),
			Error:              err.Error(),
		}
	}

	// A line extrapolated far enough goes negative; a price cannot.
	predicted := max(0, fit.Predict(float64(target)))

	return predicted, model.MethodRegression, &model.RegressionDetail{
		Slope:              fit.Slope,
		Intercept:          fit.Intercept,
		RSquared:           fit.RSquared(),
		PValue:             fit.PValue,
		StdErr:             fit.StdErr,
		TargetMileage:      target,
		RegressionVehicles: len(points),
	}
}

func meanPrice(listings []model.Listing) float64 {
	var total float64
	for _, l := range listings {
		total += *l.Price
	}
	return total / float64(len(listings))
}
