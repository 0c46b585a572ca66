// Package search answers fair-price lookups: it validates the query, loads
// matching listings and runs the estimator over them.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/carvalue/internal/config"
	"github.com/sells-group/carvalue/internal/estimate"
	"github.com/sells-group/carvalue/internal/model"
	"github.com/sells-group/carvalue/internal/monitoring"
	"github.com/sells-group/carvalue/internal/store"
	"github.com/sells-group/carvalue/internal/validate"
)

// ErrNoVehicles is returned when no listing matches the query.
var ErrNoVehicles = eris.New("search: no vehicles found")

// InvalidMileageMessage is shown when a supplied mileage cannot be used.
const InvalidMileageMessage = "Invalid mileage format. Please enter a valid number."

// Request holds raw user input. Mileage may be blank.
type Request struct {
	Year    string `json:"year"`
	Make    string `json:"make"`
	Model   string `json:"model"`
	Mileage string `json:"mileage"`
}

// Result is a completed lookup.
type Result struct {
	YMM            string                `json:"ymm" yaml:"ymm"`
	Mileage        *string               `json:"mileage" yaml:"mileage"`
	EstimatedPrice float64               `json:"estimated_price" yaml:"estimated_price"`
	Metadata       map[string]any        `json:"metadata" yaml:"metadata"`
	Listings       []model.SampleListing `json:"listings" yaml:"listings"`
	Statistics     model.VehicleStats    `json:"statistics" yaml:"statistics"`

	Estimate model.Estimate `json:"-" yaml:"-"`
}

// Service wires the validator, store and engine together.
type Service struct {
	store       store.Store
	validator   *validate.Validator
	engine      *estimate.Engine
	maxListings int
	metrics     *monitoring.Metrics
}

// NewService creates a Service. metrics may be nil.
func NewService(st store.Store, cfg config.EstimatorConfig, metrics *monitoring.Metrics) (*Service, error) {
	engine, err := estimate.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &Service{
		store:       st,
		validator:   validate.New(cfg),
		engine:      engine,
		maxListings: cfg.MaxListingsDisplay,
		metrics:     metrics,
	}, nil
}

// Validator returns the service's input validator.
func (s *Service) Validator() *validate.Validator {
	return s.validator
}

// Search returns every listing for the validated query.
func (s *Service) Search(ctx context.Context, q validate.SearchQuery) ([]model.Listing, error) {
	listings, err := s.store.FindListings(ctx, q.Year, q.Make, q.Model)
	if err != nil {
		return nil, eris.Wrap(err, "search: find listings")
	}
	zap.L().Info("search: listings found",
		zap.Int("year", q.Year),
		zap.String("make", q.Make),
		zap.String("model", q.Model),
		zap.Int("count", len(listings)),
	)
	return listings, nil
}

// SampleListings converts at most MaxListingsDisplay listings to display form.
func (s *Service) SampleListings(listings []model.Listing) []model.SampleListing {
	n := len(listings)
	if s.maxListings >= 0 && n > s.maxListings {
		n = s.maxListings
	}
	out := make([]model.SampleListing, n)
	for i := range n {
		out[i] = listings[i].Sample()
	}
	return out
}

// Lookup runs a full fair-price lookup. It returns a *validate.Error for bad
// input and ErrNoVehicles when nothing matches.
func (s *Service) Lookup(ctx context.Context, req Request) (*Result, error) {
	q, err := s.validator.ValidateSearchInput(req.Year, req.Make, req.Model)
	if err != nil {
		return nil, err
	}

	listings, err := s.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return nil, ErrNoVehicles
	}

	var target *int
	var mileageEcho *string
	if raw := strings.TrimSpace(req.Mileage); raw != "" {
		m, ok := s.validator.ValidateMileage(raw)
		if !ok {
			return nil, &validate.Error{Kind: validate.InvalidFormat, Field: "mileage", Message: InvalidMileageMessage}
		}
		target = &m
		mileageEcho = &raw
	}

	est := s.engine.EstimatePrice(listings, target)
	s.metrics.ObserveEstimate(string(est.Method))

	return &Result{
		YMM:            fmt.Sprintf("%s %s %s", strings.TrimSpace(req.Year), q.Make, q.Model),
		Mileage:        mileageEcho,
		EstimatedPrice: est.Price,
		Metadata:       est.Metadata(),
		Listings:       s.SampleListings(listings),
		Statistics:     Statistics(listings),
		Estimate:       est,
	}, nil
}

// ListingsResult is the browse view of a year/make/model.
type ListingsResult struct {
	Listings   []model.SampleListing `json:"listings"`
	Statistics model.VehicleStats    `json:"statistics"`
}

// Listings validates the query and returns sample listings with statistics.
// An empty match is not an error.
func (s *Service) Listings(ctx context.Context, year, carMake, carModel string) (*ListingsResult, error) {
	q, err := s.validator.ValidateSearchInput(year, carMake, carModel)
	if err != nil {
		return nil, err
	}
	listings, err := s.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return &ListingsResult{
		Listings:   s.SampleListings(listings),
		Statistics: Statistics(listings),
	}, nil
}
