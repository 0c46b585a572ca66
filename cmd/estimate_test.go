package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/carvalue/internal/config"
	"github.com/sells-group/carvalue/internal/search"
	"github.com/sells-group/carvalue/internal/store"
	"github.com/sells-group/carvalue/internal/validate"
)

const cmdTestFeed = "vin|year|make|model|listing_price|listing_mileage|dealer_city|dealer_state\n" +
	"V1|2015|Toyota|Camry|15000|50000|Austin|TX\n" +
	"V2|2015|Toyota|Camry|14000|75000|Dallas|TX\n" +
	"V3|2015|Toyota|Camry|13000|100000|Houston|TX\n" +
	"V4|2015|Toyota|Camry|12000|125000|El Paso|TX\n" +
	"V5|2015|Toyota|Camry|11000|150000|Waco|TX\n"

// setupCmdEnv points cfg at a fresh SQLite file and a local feed.
func setupCmdEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	feed := filepath.Join(dir, "feed.txt")
	require.NoError(t, os.WriteFile(feed, []byte(cmdTestFeed), 0o644))

	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(dir, "carvalue.db"),
		},
		Estimator: config.DefaultEstimatorConfig(),
		Import: config.ImportConfig{
			URL:        feed,
			Delimiter:  "|",
			BatchSize:  2,
			AutoImport: true,
			TempDir:    dir,
		},
	}
}

func seededStore(t *testing.T) store.Store {
	t.Helper()
	setupCmdEnv(t)
	st, err := initStore(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	ensureListings(context.Background(), st, nil)
	return st
}

func testCommand() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(&buf)
	return cmd, &buf
}

func TestRunEstimate_JSON(t *testing.T) {
	st := seededStore(t)
	estFormat = "json"
	cmd, buf := testCommand()

	err := runEstimate(cmd, st, search.Request{Year: "2015", Make: "toyota", Model: "camry", Mileage: "80,000"})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "2015 toyota camry", out["ymm"])
	assert.Equal(t, "80,000", out["mileage"])
	assert.Equal(t, 13800.0, out["estimated_price"])
	assert.Equal(t, "regression", out["metadata"].(map[string]any)["method"])
}

func TestRunEstimate_YAML(t *testing.T) {
	st := seededStore(t)
	estFormat = "yaml"
	t.Cleanup(func() { estFormat = "json" })
	cmd, buf := testCommand()

	err := runEstimate(cmd, st, search.Request{Year: "2015", Make: "Toyota", Model: "Camry"})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "2015 Toyota Camry", out["ymm"])
	assert.Nil(t, out["mileage"])
	assert.Equal(t, 13000, out["estimated_price"])

	stats := out["statistics"].(map[string]any)
	assert.Equal(t, 5, stats["total_vehicles"])
}

func TestRunEstimate_NoVehicles(t *testing.T) {
	st := seededStore(t)
	cmd, _ := testCommand()

	err := runEstimate(cmd, st, search.Request{Year: "2015", Make: "Honda", Model: "Civic"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No vehicles found for 2015 Honda Civic")
}

func TestRunEstimate_ValidationError(t *testing.T) {
	st := seededStore(t)
	cmd, _ := testCommand()

	err := runEstimate(cmd, st, search.Request{Year: "2015", Model: "Camry"})
	require.Error(t, err)

	var verr *validate.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Make is required", verr.Message)
}

func TestWriteResult_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := writeResult(&buf, "xml", &search.Result{})
	require.Error(t, err)
	assert.Equal(t, `estimate: unsupported format "xml" (want json or yaml)`, err.Error())
}

func TestEnsureListings(t *testing.T) {
	st := seededStore(t)

	n, err := st.CountListings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	// A second call sees a populated store and leaves it alone.
	ensureListings(context.Background(), st, nil)
	n, err = st.CountListings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestEnsureListings_Disabled(t *testing.T) {
	setupCmdEnv(t)
	cfg.Import.AutoImport = false
	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	ensureListings(context.Background(), st, nil)

	n, err := st.CountListings(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEnsureListings_FailureIsNotFatal(t *testing.T) {
	setupCmdEnv(t)
	cfg.Import.URL = filepath.Join(t.TempDir(), "missing.txt")
	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	assert.NotPanics(t, func() { ensureListings(context.Background(), st, nil) })
}
