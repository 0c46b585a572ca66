package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/carvalue/internal/config"
	"github.com/sells-group/carvalue/internal/model"
	"github.com/sells-group/carvalue/internal/monitoring"
	"github.com/sells-group/carvalue/internal/store"
	"github.com/sells-group/carvalue/internal/validate"
)

type fakeStore struct {
	store.Store
	listings []model.Listing
	err      error
	calls    int
	lastYear int
	lastMake string
}

func (f *fakeStore) FindListings(_ context.Context, year int, carMake, _ string) ([]model.Listing, error) {
	f.calls++
	f.lastYear = year
	f.lastMake = carMake
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.Listing{}, f.listings...), nil
}

func testConfig() config.EstimatorConfig {
	return config.EstimatorConfig{
		MinYear:                  1980,
		MaxYear:                  2030,
		MaxMileage:               500000,
		MinVehiclesForRegression: 3,
		PriceRoundingFactor:      100,
		MaxListingsDisplay:       2,
	}
}

func camry(vin string, price *float64, mileage *int) model.Listing {
	return model.Listing{
		VIN: vin, Year: 2015, Make: "toyota", Model: "camry",
		City: "Austin", State: "TX", Price: price, Mileage: mileage,
	}
}

func camrys() []model.Listing {
	return []model.Listing{
		camry("V1", model.Float64(15000), model.Int(50000)),
		camry("V2", model.Float64(14000), model.Int(75000)),
		camry("V3", model.Float64(13000), model.Int(100000)),
		camry("V4", model.Float64(12000), model.Int(125000)),
		camry("V5", model.Float64(11000), model.Int(150000)),
	}
}

func newTestService(t *testing.T, st store.Store, m *monitoring.Metrics) *Service {
	t.Helper()
	svc, err := NewService(st, testConfig(), m)
	require.NoError(t, err)
	return svc
}

func TestNewService_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.PriceRoundingFactor = 0
	_, err := NewService(&fakeStore{}, cfg, nil)
	require.Error(t, err)
}

func TestLookup_AverageWithoutMileage(t *testing.T) {
	st := &fakeStore{listings: camrys()}
	svc := newTestService(t, st, nil)

	res, err := svc.Lookup(context.Background(), Request{Year: " 2015 ", Make: "Toyota", Model: "Camry"})
	require.NoError(t, err)

	assert.Equal(t, "2015 Toyota Camry", res.YMM)
	assert.Nil(t, res.Mileage)
	assert.Equal(t, 13000.0, res.EstimatedPrice)
	assert.Equal(t, "average", res.Metadata["method"])
	assert.Equal(t, 5, res.Metadata["vehicle_count"])
	assert.Len(t, res.Listings, 2)
	assert.Equal(t, "V1", res.Listings[0].ID)
	assert.Equal(t, "2015 toyota camry", res.Listings[0].Vehicle)
	assert.Equal(t, "Austin, TX", res.Listings[0].Location)
	assert.Equal(t, 5, res.Statistics.TotalVehicles)
	assert.Equal(t, 2015, st.lastYear)
	assert.Equal(t, "Toyota", st.lastMake)
}

func TestLookup_RegressionWithMileage(t *testing.T) {
	svc := newTestService(t, &fakeStore{listings: camrys()}, nil)

	res, err := svc.Lookup(context.Background(), Request{Year: "2015", Make: "toyota", Model: "camry", Mileage: " 80,000 "})
	require.NoError(t, err)

	require.NotNil(t, res.Mileage)
	assert.Equal(t, "80,000", *res.Mileage)
	assert.Equal(t, 13800.0, res.EstimatedPrice)
	assert.Equal(t, model.MethodRegression, res.Estimate.Method)
	assert.Equal(t, 80000, res.Metadata["target_mileage"])
}

func TestLookup_ValidationFailureSkipsStore(t *testing.T) {
	st := &fakeStore{listings: camrys()}
	svc := newTestService(t, st, nil)

	_, err := svc.Lookup(context.Background(), Request{Year: "abc", Make: "Toyota", Model: "Camry"})
	require.Error(t, err)

	var verr *validate.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Year must be a valid number", verr.Message)
	assert.Zero(t, st.calls)
}

func TestLookup_NoVehicles(t *testing.T) {
	svc := newTestService(t, &fakeStore{}, nil)

	_, err := svc.Lookup(context.Background(), Request{Year: "2015", Make: "Nope", Model: "Car", Mileage: "garbage"})
	assert.True(t, errors.Is(err, ErrNoVehicles))
}

func TestLookup_InvalidMileage(t *testing.T) {
	svc := newTestService(t, &fakeStore{listings: camrys()}, nil)

	for _, mileage := range []string{"abc", "-5", "600000", "12.5"} {
		_, err := svc.Lookup(context.Background(), Request{Year: "2015", Make: "Toyota", Model: "Camry", Mileage: mileage})
		require.Error(t, err, mileage)

		var verr *validate.Error
		require.True(t, errors.As(err, &verr), mileage)
		assert.Equal(t, "mileage", verr.Field)
		assert.Equal(t, InvalidMileageMessage, verr.Message)
	}
}

func TestLookup_StoreError(t *testing.T) {
	svc := newTestService(t, &fakeStore{err: errors.New("disk gone")}, nil)

	_, err := svc.Lookup(context.Background(), Request{Year: "2015", Make: "Toyota", Model: "Camry"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
	assert.False(t, errors.Is(err, ErrNoVehicles))
}

func TestLookup_NoValidPrices(t *testing.T) {
	st := &fakeStore{listings: []model.Listing{camry("V1", nil, model.Int(1000))}}
	svc := newTestService(t, st, nil)

	res, err := svc.Lookup(context.Background(), Request{Year: "2015", Make: "Toyota", Model: "Camry"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.EstimatedPrice)
	assert.Equal(t, "no_valid_prices", res.Metadata["method"])
	assert.Nil(t, res.Statistics.PriceRange)
}

func TestLookup_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := monitoring.NewMetrics(reg)
	svc := newTestService(t, &fakeStore{listings: camrys()}, m)

	_, err := svc.Lookup(context.Background(), Request{Year: "2015", Make: "Toyota", Model: "Camry", Mileage: "80000"})
	require.NoError(t, err)
	_, err = svc.Lookup(context.Background(), Request{Year: "2015", Make: "Toyota", Model: "Camry"})
	require.NoError(t, err)

	expected := `
# HELP carvalue_estimates_total Price estimates produced, by method.
# TYPE carvalue_estimates_total counter
carvalue_estimates_total{method="average"} 1
carvalue_estimates_total{method="regression"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "carvalue_estimates_total"))
}

func TestListings(t *testing.T) {
	svc := newTestService(t, &fakeStore{listings: camrys()}, nil)

	res, err := svc.Listings(context.Background(), "2015", "Toyota", "Camry")
	require.NoError(t, err)
	assert.Len(t, res.Listings, 2)
	assert.Equal(t, 5, res.Statistics.TotalVehicles)

	empty := newTestService(t, &fakeStore{}, nil)
	res, err = empty.Listings(context.Background(), "2015", "Toyota", "Camry")
	require.NoError(t, err)
	assert.Empty(t, res.Listings)
	assert.NotNil(t, res.Listings)
	assert.Zero(t, res.Statistics.TotalVehicles)

	_, err = svc.Listings(context.Background(), "", "Toyota", "Camry")
	require.Error(t, err)
}

func TestStatistics(t *testing.T) {
	listings := []model.Listing{
		camry("A", model.Float64(10000), model.Int(30000)),
		camry("B", model.Float64(20000), nil),
		camry("C", nil, model.Int(90000)),
		camry("D", nil, nil),
	}

	stats := Statistics(listings)

	assert.Equal(t, 4, stats.TotalVehicles)
	assert.Equal(t, 2, stats.VehiclesWithPrices)
	assert.Equal(t, 2, stats.VehiclesWithMileage)
	require.NotNil(t, stats.PriceRange)
	assert.Equal(t, model.Range{Min: 10000, Max: 20000, Avg: 15000}, *stats.PriceRange)
	require.NotNil(t, stats.MileageRange)
	assert.Equal(t, model.Range{Min: 30000, Max: 90000, Avg: 60000}, *stats.MileageRange)
}

func TestStatistics_Empty(t *testing.T) {
	stats := Statistics(nil)
	assert.Zero(t, stats.TotalVehicles)
	assert.Nil(t, stats.PriceRange)
	assert.Nil(t, stats.MileageRange)
}

func TestSampleListings_Cap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxListingsDisplay = 10
	svc, err := NewService(&fakeStore{}, cfg, nil)
	require.NoError(t, err)

	assert.Len(t, svc.SampleListings(camrys()), 5)
	assert.Empty(t, svc.SampleListings(nil))
}
