package estimate

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrIdenticalX is returned when every x value is the same and no line can be fit.
var ErrIdenticalX = eris.New("cannot calculate a linear regression if all x values are identical")

// tiny keeps the t statistic finite when |r| == 1.
const tiny = 1.0e-20

// Fit is an ordinary least-squares line y = Slope*x + Intercept.
type Fit struct {
	Slope     float64
	Intercept float64
	RValue    float64
	PValue    float64 // two-sided, null hypothesis slope == 0
	StdErr    float64 // standard error of Slope
	N         int
}

// RSquared returns the coefficient of determination.
func (f Fit) RSquared() float64 {
	return f.RValue * f.RValue
}

// Predict evaluates the fitted line at x.
func (f Fit) Predict(x float64) float64 {
	return f.Slope*x + f.Intercept
}

// Regress fits y on x by ordinary least squares.
func Regress(x, y []float64) (Fit, error) {
	n := len(x)
	if n != len(y) {
		return Fit{}, eris.Errorf("regression: x has %d values but y has %d", n, len(y))
	}
	if n < 2 {
		return Fit{}, eris.Errorf("regression: need at least 2 points, got %d", n)
	}
	if allEqual(x) {
		return Fit{}, ErrIdenticalX
	}

	varX := stat.Variance(x, nil)
	varY := stat.Variance(y, nil)
	cov := stat.Covariance(x, y, nil)

	intercept, slope := stat.LinearRegression(x, y, nil, false)

	var r float64
	if varX != 0 && varY != 0 {
		r = cov / math.Sqrt(varX*varY)
	}
	r = math.Max(-1, math.Min(1, r))

	fit := Fit{
		Slope:     slope,
		Intercept: intercept,
		RValue:    r,
		N:         n,
	}

	if n == 2 {
		// Two points always lie on the line.
		if y[0] == y[1] {
			fit.PValue = 1
		}
	} else {
		df := float64(n - 2)
		t := r * math.Sqrt(df/((1-r+tiny)*(1+r+tiny)))
		dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
		fit.PValue = 2 * dist.Survival(math.Abs(t))
		fit.StdErr = math.Sqrt(math.Max(0, 1-r*r) * varY / varX / df)
	}

	for _, v := range []float64{fit.Slope, fit.Intercept, fit.RValue, fit.PValue, fit.StdErr} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Fit{}, eris.New("regression: result is not finite")
		}
	}

	return fit, nil
}

func allEqual(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}
