package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/carvalue/internal/db"
	"github.com/sells-group/carvalue/internal/model"
	"github.com/sells-group/carvalue/internal/resilience"
)

const vehiclesTable = "vehicles"

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

const (
	findListingsSQL = `SELECT vin, year, make, model, dealer_city, dealer_state, listing_price, listing_mileage
	FROM vehicles WHERE year = $1 AND make = $2 AND model = $3 ORDER BY created_at, id`
	countListingsSQL = `SELECT COUNT(*) FROM vehicles`
)

// NewPostgres creates a PostgresStore with a connection pool. The initial
// ping is retried while the server is still coming up.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}

	retry := resilience.DefaultRetryConfig()
	retry.ShouldRetry = func(error) bool { return true }
	retry.OnRetry = resilience.RetryLogger("postgres", "ping")
	if err := resilience.Do(ctx, retry, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS vehicles (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	vin             TEXT NOT NULL,
	year            INTEGER NOT NULL,
	make            TEXT NOT NULL,
	model           TEXT NOT NULL,
	dealer_city     TEXT NOT NULL DEFAULT '',
	dealer_state    TEXT NOT NULL DEFAULT '',
	listing_price   DOUBLE PRECISION,
	listing_mileage INTEGER,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_vehicles_ymm ON vehicles(year, make, model);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) FindListings(ctx context.Context, year int, carMake, carModel string) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx, findListingsSQL, year, Normalize(carMake), Normalize(carModel))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find listings %d %s %s", year, carMake, carModel)
	}
	defer rows.Close()

	listings := []model.Listing{}
	for rows.Next() {
		var l model.Listing
		if err := rows.Scan(&l.VIN, &l.Year, &l.Make, &l.Model, &l.City, &l.State, &l.Price, &l.Mileage); err != nil {
			return nil, eris.Wrap(err, "postgres: scan listing")
		}
		listings = append(listings, l)
	}
	return listings, eris.Wrap(rows.Err(), "postgres: find listings iterate")
}

func (s *PostgresStore) InsertListings(ctx context.Context, listings []model.Listing) (int64, error) {
	n, err := db.CopyFrom(ctx, s.pool, vehiclesTable, listingColumns, listingRows(listings))
	return n, eris.Wrap(err, "postgres: insert listings")
}

func (s *PostgresStore) ReplaceListings(ctx context.Context, listings []model.Listing) (int64, error) {
	n, err := db.ReplaceAll(ctx, s.pool, vehiclesTable, listingColumns, listingRows(listings))
	return n, eris.Wrap(err, "postgres: replace listings")
}

func (s *PostgresStore) CountListings(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, countListingsSQL).Scan(&n)
	return n, eris.Wrap(err, "postgres: count listings")
}
