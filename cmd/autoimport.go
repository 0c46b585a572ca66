package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/carvalue/internal/ingest"
	"github.com/sells-group/carvalue/internal/monitoring"
	"github.com/sells-group/carvalue/internal/store"
)

// ensureListings loads the configured feed into an empty store. A failed
// import is logged and the caller carries on with whatever is stored.
func ensureListings(ctx context.Context, st store.Store, metrics *monitoring.Metrics) {
	if !cfg.Import.AutoImport {
		return
	}

	res, err := ingest.NewImporter(st, cfg.Import, metrics).Import(ctx, ingest.Options{})
	if err != nil {
		zap.L().Error("auto import failed", zap.Error(err))
		return
	}
	if !res.Skipped {
		zap.L().Info("auto import complete",
			zap.Int64("imported", res.Imported),
			zap.Int64("rejected", res.Rejected),
		)
	}
}
