package input

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func TestResolvePrefersEigenstratSet(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "cohort")
	for _, ext := range []string{".ind", ".geno", ".snp"} {
		touch(t, prefix+ext, nil)
	}

	spec, err := Resolve(prefix)
	require.NoError(t, err)
	assert.Equal(t, KindEigenstrat, spec.Kind)
	assert.Equal(t, []string{prefix + ".geno", prefix + ".ind", prefix + ".snp"}, spec.Paths())
}

func TestResolveFallsBackToPlink(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "cohort")
	for _, ext := range []string{".bed", ".bim", ".fam"} {
		touch(t, prefix+ext, nil)
	}

	spec, err := Resolve(prefix)
	require.NoError(t, err)
	assert.Equal(t, KindPlink, spec.Kind)
}

func TestResolvePartialSetIsFatal(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "cohort")
	touch(t, prefix+".geno", nil)
	touch(t, prefix+".ind", nil)
	// .snp missing

	_, err := Resolve(prefix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not find supported input files")
}

func TestSniffDistinguishesLayouts(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		head []byte
		want string
	}{
		{[]byte("GENO 4 2 0 0\x00"), "GENO"},
		{[]byte("TGENO 4 2 0 0\x00"), "TGENO"},
		{[]byte("201901"), "digits"},
	}
	for _, c := range cases {
		path := filepath.Join(dir, "probe.geno")
		touch(t, path, c.head)
		head, err := sniff(path, 5)
		require.NoError(t, err)
		switch c.want {
		case "TGENO":
			assert.Equal(t, []byte("TGENO"), head)
		case "GENO":
			assert.Equal(t, []byte("GENO "), head)
		default:
			assert.NotEqual(t, []byte("GENO "), head[:5])
		}
	}
}
