package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ListingCounter reports how many listings are stored.
type ListingCounter interface {
	CountListings(ctx context.Context) (int64, error)
}

// InventoryCollector reads the stored listing count from the store on every
// scrape and exposes it as a gauge.
type InventoryCollector struct {
	counter ListingCounter
	timeout time.Duration
	desc    *prometheus.Desc
}

// NewInventoryCollector creates a collector backed by counter.
func NewInventoryCollector(counter ListingCounter) *InventoryCollector {
	return &InventoryCollector{
		counter: counter,
		timeout: 5 * time.Second,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "listings_stored"),
			"Vehicle listings currently in the store.",
			nil, nil,
		),
	}
}

func (c *InventoryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect skips the sample when the store cannot be read.
func (c *InventoryCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	n, err := c.counter.CountListings(ctx)
	if err != nil {
		zap.L().Warn("monitoring: count listings failed", zap.Error(err))
		return
	}
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n))
}
