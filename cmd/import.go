package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/carvalue/internal/ingest"
)

var (
	importSource  string
	importReplace bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load the inventory feed into the listing store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := ingest.NewImporter(st, cfg.Import, nil).Import(ctx, ingest.Options{
			Source:  importSource,
			Replace: importReplace,
		})
		if err != nil {
			return eris.Wrap(err, "import feed")
		}

		if res.Skipped {
			zap.L().Info("listings already loaded, skipping import (use --replace to reload)")
			return nil
		}

		zap.L().Info("import complete",
			zap.String("source", res.Source),
			zap.Int64("imported", res.Imported),
			zap.Int64("rejected", res.Rejected),
			zap.Duration("elapsed", res.Duration),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importSource, "source", "", "feed URL or local path (default from config)")
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "replace existing listings")
	rootCmd.AddCommand(importCmd)
}
