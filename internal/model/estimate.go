package model

import "encoding/json"

// Method identifies how an estimate was produced.
type Method string

const (
	MethodNoData        Method = "no_data"
	MethodNoValidPrices Method = "no_valid_prices"
	MethodAverage       Method = "average"
	MethodRegression    Method = "regression"
)

// FallbackReason explains why a requested mileage adjustment fell back to the average.
type FallbackReason string

const (
	FallbackInsufficientData FallbackReason = "insufficient_data"
	FallbackFailed           FallbackReason = "failed"
)

// Detail is the method-specific part of an estimate. The set of
// implementations is closed: *RegressionDetail and *FallbackDetail.
type Detail interface {
	detail()
}

// RegressionDetail carries the fit statistics of a mileage regression.
type RegressionDetail struct {
	Slope              float64 `json:"slope"`
	Intercept          float64 `json:"intercept"`
	RSquared           float64 `json:"r_squared"`
	PValue             float64 `json:"p_value"`
	StdErr             float64 `json:"std_err"`
	TargetMileage      int     `json:"target_mileage"`
	RegressionVehicles int     `json:"regression_vehicles"`
}

// FallbackDetail records a mileage adjustment that was attempted but not used.
type FallbackDetail struct {
	Reason             FallbackReason `json:"regression"`
	RegressionVehicles int            `json:"regression_vehicles"`
	Error              string         `json:"error,omitempty"`
}

func (*RegressionDetail) detail() {}
func (*FallbackDetail) detail()   {}

// Estimate is the result of one price estimation.
type Estimate struct {
	Price        float64
	Method       Method
	VehicleCount int
	BasePrice    float64
	Detail       Detail
}

// Regression returns the regression detail, or nil.
func (e Estimate) Regression() *RegressionDetail {
	d, _ := e.Detail.(*RegressionDetail)
	return d
}

// Fallback returns the fallback detail, or nil.
func (e Estimate) Fallback() *FallbackDetail {
	d, _ := e.Detail.(*FallbackDetail)
	return d
}

// Metadata flattens the estimate into the keyed shape shown to callers.
func (e Estimate) Metadata() map[string]any {
	m := map[string]any{
		"method":        string(e.Method),
		"vehicle_count": e.VehicleCount,
		"base_price":    e.BasePrice,
	}

	switch d := e.Detail.(type) {
	case nil:
	case *RegressionDetail:
		m["slope"] = d.Slope
		m["intercept"] = d.Intercept
		m["r_squared"] = d.RSquared
		m["p_value"] = d.PValue
		m["std_err"] = d.StdErr
		m["target_mileage"] = d.TargetMileage
		m["regression_vehicles"] = d.RegressionVehicles
	case *FallbackDetail:
		m["regression"] = string(d.Reason)
		m["regression_vehicles"] = d.RegressionVehicles
		if d.Error != "" {
			m["error"] = d.Error
		}
	}

	return m
}

// MarshalJSON encodes the estimate as {"estimated_price": ..., "metadata": {...}}.
func (e Estimate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EstimatedPrice float64        `json:"estimated_price"`
		Metadata       map[string]any `json:"metadata"`
	}{
		EstimatedPrice: e.Price,
		Metadata:       e.Metadata(),
	})
}

// MarshalYAML mirrors MarshalJSON for yaml.v3 encoders.
func (e Estimate) MarshalYAML() (any, error) {
	return map[string]any{
		"estimated_price": e.Price,
		"metadata":        e.Metadata(),
	}, nil
}
