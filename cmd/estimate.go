package main

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/carvalue/internal/search"
	"github.com/sells-group/carvalue/internal/store"
)

var (
	estYear    string
	estMake    string
	estModel   string
	estMileage string
	estFormat  string
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate a fair price for a year, make and model",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ensureListings(ctx, st, nil)

		return runEstimate(cmd, st, search.Request{
			Year:    estYear,
			Make:    estMake,
			Model:   estModel,
			Mileage: estMileage,
		})
	},
}

func runEstimate(cmd *cobra.Command, st store.Store, req search.Request) error {
	svc, err := search.NewService(st, cfg.Estimator, nil)
	if err != nil {
		return err
	}

	res, err := svc.Lookup(cmd.Context(), req)
	if errors.Is(err, search.ErrNoVehicles) {
		return eris.Errorf("No vehicles found for %s %s %s", req.Year, req.Make, req.Model)
	}
	if err != nil {
		return err
	}

	return writeResult(cmd.OutOrStdout(), estFormat, res)
}

func writeResult(w io.Writer, format string, res *search.Result) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	default:
		return eris.Errorf("estimate: unsupported format %q (want json or yaml)", format)
	}
}

func init() {
	estimateCmd.Flags().StringVar(&estYear, "year", "", "model year (required)")
	estimateCmd.Flags().StringVar(&estMake, "make", "", "vehicle make (required)")
	estimateCmd.Flags().StringVar(&estModel, "model", "", "vehicle model (required)")
	estimateCmd.Flags().StringVar(&estMileage, "mileage", "", "current mileage, e.g. 150,000")
	estimateCmd.Flags().StringVar(&estFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(estimateCmd)
}
