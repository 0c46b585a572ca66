package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/carvalue/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS vehicles (
	id              TEXT PRIMARY KEY,
	vin             TEXT NOT NULL,
	year            INTEGER NOT NULL,
	make            TEXT NOT NULL,
	model           TEXT NOT NULL,
	dealer_city     TEXT NOT NULL DEFAULT '',
	dealer_state    TEXT NOT NULL DEFAULT '',
	listing_price   REAL,
	listing_mileage INTEGER,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_vehicles_ymm ON vehicles(year, make, model);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FindListings(ctx context.Context, year int, carMake, carModel string) ([]model.Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT vin, year, make, model, dealer_city, dealer_state, listing_price, listing_mileage
		 FROM vehicles WHERE year = ? AND make = ? AND model = ? ORDER BY rowid`,
		year, Normalize(carMake), Normalize(carModel),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find listings %d %s %s", year, carMake, carModel)
	}
	defer rows.Close() //nolint:errcheck

	listings := []model.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, eris.Wrap(rows.Err(), "sqlite: find listings iterate")
}

func (s *SQLiteStore) InsertListings(ctx context.Context, listings []model.Listing) (int64, error) {
	if len(listings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	n, err := insertTx(ctx, tx, listings)
	if err != nil {
		return 0, err
	}
	return n, eris.Wrap(tx.Commit(), "sqlite: commit insert")
}

func (s *SQLiteStore) ReplaceListings(ctx context.Context, listings []model.Listing) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vehicles`); err != nil {
		return 0, eris.Wrap(err, "sqlite: clear vehicles")
	}

	n, err := insertTx(ctx, tx, listings)
	if err != nil {
		return 0, err
	}
	return n, eris.Wrap(tx.Commit(), "sqlite: commit replace")
}

func (s *SQLiteStore) CountListings(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vehicles`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count listings")
}

func insertTx(ctx context.Context, tx *sql.Tx, listings []model.Listing) (int64, error) {
	if len(listings) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(listingColumns)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vehicles (`+strings.Join(listingColumns, ", ")+`) VALUES (`+placeholders+`)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, row := range listingRows(listings) {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert listing %v", row[1])
		}
		n++
	}
	return n, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanListing(row scannable) (model.Listing, error) {
	var l model.Listing
	var price sql.NullFloat64
	var mileage sql.NullInt64

	if err := row.Scan(&l.VIN, &l.Year, &l.Make, &l.Model, &l.City, &l.State, &price, &mileage); err != nil {
		return model.Listing{}, eris.Wrap(err, "sqlite: scan listing")
	}
	if price.Valid {
		l.Price = model.Float64(price.Float64)
	}
	if mileage.Valid {
		l.Mileage = model.Int(int(mileage.Int64))
	}
	return l, nil
}
