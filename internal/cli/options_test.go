// internal/cli/options_test.go
package cli

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFS() *flag.FlagSet { return flag.NewFlagSet("test", flag.ContinueOnError) }

func mustParse(t *testing.T, args ...string) Options {
	t.Helper()
	opts, err := ParseArgs(newFS(), args)
	require.NoError(t, err)
	return opts
}

func TestPrefixOnlyOK(t *testing.T) {
	o := mustParse(t, "-prefix", "data/cohort")
	assert.Equal(t, "data/cohort", o.Prefix)
	assert.Zero(t, o.MinCoverage)
	assert.Zero(t, o.Threads)
	assert.Empty(t, o.OutputDir)
}

func TestAllFlags(t *testing.T) {
	o := mustParse(t,
		"-prefix", "cohort",
		"-variant-indices", "1-100,500",
		"-sample-pairs", "pairs.csv",
		"-min-coverage", "30000",
		"-threads", "8",
		"-output-directory", "out",
		"-no-plot",
		"-quiet",
	)
	assert.Equal(t, "1-100,500", o.VariantSpec)
	assert.Equal(t, "pairs.csv", o.PairsCSV)
	assert.Equal(t, 30000, o.MinCoverage)
	assert.Equal(t, 8, o.Threads)
	assert.Equal(t, "out", o.OutputDir)
	assert.True(t, o.NoPlot)
	assert.True(t, o.Quiet)
}

func TestErrorMissingPrefix(t *testing.T) {
	_, err := ParseArgs(newFS(), []string{"-threads", "2"})
	require.Error(t, err)
}

func TestErrorNegativeMinCoverage(t *testing.T) {
	_, err := ParseArgs(newFS(), []string{"-prefix", "x", "-min-coverage", "-1"})
	require.Error(t, err)
}

func TestErrorNegativeThreads(t *testing.T) {
	_, err := ParseArgs(newFS(), []string{"-prefix", "x", "-threads", "-2"})
	require.Error(t, err)
}

func TestVersionSkipsValidation(t *testing.T) {
	o, err := ParseArgs(newFS(), []string{"-version"})
	require.NoError(t, err)
	assert.True(t, o.Version)
}
