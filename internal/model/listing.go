// Package model holds the listing and estimate types shared across carvalue.
package model

import (
	"fmt"
	"math"
	"strings"
)

// Listing is one historical vehicle-for-sale record. Make and Model are stored
// lowercased and trimmed. Price and Mileage are nil when the feed lacked them.
type Listing struct {
	VIN     string   `json:"vin"`
	Year    int      `json:"year"`
	Make    string   `json:"make"`
	Model   string   `json:"model"`
	City    string   `json:"city"`
	State   string   `json:"state"`
	Price   *float64 `json:"listing_price,omitempty"`
	Mileage *int     `json:"listing_mileage,omitempty"`
}

// Vehicle returns the "<year> <make> <model>" label.
func (l Listing) Vehicle() string {
	return fmt.Sprintf("%d %s %s", l.Year, l.Make, l.Model)
}

// Location returns the "<city>, <state>" label.
func (l Listing) Location() string {
	return strings.Join([]string{l.City, l.State}, ", ")
}

// SampleListing is the display form of a Listing.
type SampleListing struct {
	ID       string   `json:"id" yaml:"id"`
	Vehicle  string   `json:"vehicle" yaml:"vehicle"`
	Price    *float64 `json:"price" yaml:"price"`
	Mileage  *int     `json:"mileage" yaml:"mileage"`
	Location string   `json:"location" yaml:"location"`
}

// Sample converts the listing to its display form. A non-finite price is
// shown as unknown.
func (l Listing) Sample() SampleListing {
	price := l.Price
	if price != nil && (math.IsNaN(*price) || math.IsInf(*price, 0)) {
		price = nil
	}
	return SampleListing{
		ID:       l.VIN,
		Vehicle:  l.Vehicle(),
		Price:    price,
		Mileage:  l.Mileage,
		Location: l.Location(),
	}
}

// Range summarizes a numeric column.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
	Avg float64 `json:"avg" yaml:"avg"`
}

// VehicleStats summarizes a set of matched listings.
type VehicleStats struct {
	TotalVehicles       int    `json:"total_vehicles" yaml:"total_vehicles"`
	VehiclesWithPrices  int    `json:"vehicles_with_prices" yaml:"vehicles_with_prices"`
	VehiclesWithMileage int    `json:"vehicles_with_mileage" yaml:"vehicles_with_mileage"`
	PriceRange          *Range `json:"price_range" yaml:"price_range"`
	MileageRange        *Range `json:"mileage_range" yaml:"mileage_range"`
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
