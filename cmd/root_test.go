package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "estimate", "import", "migrate"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "carvalue", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestEstimateCommand_Flags(t *testing.T) {
	for _, name := range []string{"year", "make", "model", "mileage", "format"} {
		assert.NotNil(t, estimateCmd.Flags().Lookup(name), "estimate should have --%s flag", name)
	}
	assert.Equal(t, "json", estimateCmd.Flags().Lookup("format").DefValue)
}

func TestImportCommand_Flags(t *testing.T) {
	source := importCmd.Flags().Lookup("source")
	require.NotNil(t, source)
	assert.Equal(t, "", source.DefValue)

	replace := importCmd.Flags().Lookup("replace")
	require.NotNil(t, replace)
	assert.Equal(t, "false", replace.DefValue)
}
