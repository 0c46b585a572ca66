package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/carvalue/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleListings() []model.Listing {
	return []model.Listing{
		{VIN: "VIN1", Year: 2015, Make: "Toyota", Model: "Camry", City: "Austin", State: "TX", Price: model.Float64(15000), Mileage: model.Int(50000)},
		{VIN: "VIN2", Year: 2015, Make: "toyota", Model: "camry", City: "Dallas", State: "TX", Price: nil, Mileage: model.Int(75000)},
		{VIN: "VIN3", Year: 2015, Make: " TOYOTA ", Model: "CAMRY", Price: model.Float64(13000), Mileage: nil},
		{VIN: "VIN4", Year: 2016, Make: "toyota", Model: "camry", Price: model.Float64(17000), Mileage: model.Int(20000)},
		{VIN: "VIN5", Year: 2015, Make: "honda", Model: "civic", Price: model.Float64(9000), Mileage: model.Int(90000)},
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("FindListingsMatchesCaseInsensitively", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		n, err := s.InsertListings(ctx, sampleListings())
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)

		got, err := s.FindListings(ctx, 2015, "TOYOTA", " Camry ")
		require.NoError(t, err)
		require.Len(t, got, 3)

		vins := []string{got[0].VIN, got[1].VIN, got[2].VIN}
		assert.ElementsMatch(t, []string{"VIN1", "VIN2", "VIN3"}, vins)
		for _, l := range got {
			assert.Equal(t, 2015, l.Year)
			assert.Equal(t, "toyota", l.Make)
			assert.Equal(t, "camry", l.Model)
		}
	})

	t.Run("FindListingsPreservesAbsentValues", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.InsertListings(ctx, sampleListings()[:3])
		require.NoError(t, err)

		got, err := s.FindListings(ctx, 2015, "toyota", "camry")
		require.NoError(t, err)

		byVIN := map[string]model.Listing{}
		for _, l := range got {
			byVIN[l.VIN] = l
		}
		require.Len(t, byVIN, 3)

		require.NotNil(t, byVIN["VIN1"].Price)
		assert.Equal(t, 15000.0, *byVIN["VIN1"].Price)
		require.NotNil(t, byVIN["VIN1"].Mileage)
		assert.Equal(t, 50000, *byVIN["VIN1"].Mileage)
		assert.Equal(t, "Austin", byVIN["VIN1"].City)

		assert.Nil(t, byVIN["VIN2"].Price)
		assert.NotNil(t, byVIN["VIN2"].Mileage)
		assert.Nil(t, byVIN["VIN3"].Mileage)
	})

	t.Run("FindListingsNoMatch", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.InsertListings(ctx, sampleListings())
		require.NoError(t, err)

		got, err := s.FindListings(ctx, 1999, "toyota", "camry")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("CountAndReplace", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		n, err := s.CountListings(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		_, err = s.InsertListings(ctx, sampleListings())
		require.NoError(t, err)
		n, err = s.CountListings(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)

		replaced, err := s.ReplaceListings(ctx, sampleListings()[3:])
		require.NoError(t, err)
		assert.Equal(t, int64(2), replaced)

		n, err = s.CountListings(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		got, err := s.FindListings(ctx, 2015, "toyota", "camry")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("InsertEmpty", func(t *testing.T) {
		s := newStore(t)
		n, err := s.InsertListings(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(context.Background()))
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestSQLite_FreshSlicesPerCall(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.InsertListings(ctx, sampleListings())
	require.NoError(t, err)

	first, err := s.FindListings(ctx, 2015, "toyota", "camry")
	require.NoError(t, err)
	require.NotEmpty(t, first)
	first[0].VIN = "mutated"

	second, err := s.FindListings(ctx, 2015, "toyota", "camry")
	require.NoError(t, err)
	for _, l := range second {
		assert.NotEqual(t, "mutated", l.VIN)
	}
}

func TestSQLite_ClosedStoreErrors(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.FindListings(context.Background(), 2015, "toyota", "camry")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite: find listings")
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Toyota":        "toyota",
		"  CAMRY  ":     "camry",
		"Mercedes-Benz": "mercedes-benz",
		"":              "",
		"ÖLFLEX":        "ölflex",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestListingRow_NormalizesAndAssignsID(t *testing.T) {
	l := model.Listing{VIN: " VIN9 ", Year: 2020, Make: " Ford ", Model: "F-150", City: "Reno ", State: " NV"}

	a := listingRow(l)
	b := listingRow(l)

	require.Len(t, a, len(listingColumns))
	assert.NotEqual(t, a[0], b[0])
	assert.Equal(t, "VIN9", a[1])
	assert.Equal(t, 2020, a[2])
	assert.Equal(t, "ford", a[3])
	assert.Equal(t, "f-150", a[4])
	assert.Equal(t, "Reno", a[5])
	assert.Equal(t, "NV", a[6])
	assert.Nil(t, a[7].(*float64))
	assert.Nil(t, a[8].(*int))
}
