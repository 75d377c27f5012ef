package counts

import (
	"errors"
	"io"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pmr-core/genotype"
)

// siteReader serves a fixed site list; safe for concurrent Next through the
// engine's pull lock.
type siteReader struct {
	samples []string
	sites   [][]genotype.Allele
	next    int
	failAt  int // 0 = never; 1-based site index that errors instead
	err     error
}

var errBadBlock = errors.New("bad block")

func (s *siteReader) Samples() []string { return s.samples }
func (s *siteReader) NSites() int       { return len(s.sites) }
func (s *siteReader) Close() error      { return nil }
func (s *siteReader) Next() (*genotype.Site, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.failAt > 0 && s.next == s.failAt-1 {
		s.err = errBadBlock
		return nil, s.err
	}
	if s.next >= len(s.sites) {
		s.err = io.EOF
		return nil, s.err
	}
	site := &genotype.Site{Genotypes: s.sites[s.next]}
	s.next++
	return site, nil
}

var (
	r = genotype.Ref
	h = genotype.Het
	a = genotype.Alt
	m = genotype.Missing
)

func abcd() []string { return []string{"A", "B", "C", "D"} }

func TestIndexSymmetry(t *testing.T) {
	c := New(abcd(), nil)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			assert.Equal(t, c.Index(i, j), c.Index(j, i))
		}
	}
	assert.Equal(t, 1, c.Index(0, 1))
	assert.Equal(t, 1, c.Index(1, 0))
}

func TestAccumulateBasics(t *testing.T) {
	c := New(abcd(), nil)
	reader := &siteReader{samples: abcd(), sites: [][]genotype.Allele{
		{r, a, a, a}, // sample 0 differs by 2 from the rest
		{h, h, h, h},
		{r, m, a, h}, // B missing: contributes nothing to any B pair
	}}
	require.NoError(t, c.Accumulate(reader, nil))

	assert.Equal(t, uint64(2), c.Mismatches(0, 1))
	assert.Equal(t, uint64(4), c.Total(0, 1), "missing site must not count for the pair")
	assert.Equal(t, uint64(2), c.Overlap(0, 1))

	assert.Equal(t, uint64(2+0+2), c.Mismatches(0, 2))
	assert.Equal(t, uint64(6), c.Total(0, 2))

	// Totals are even everywhere.
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			assert.Zero(t, c.Total(i, j)%2)
		}
	}
}

func TestRateNaNOnZeroOverlap(t *testing.T) {
	c := New([]string{"A", "B"}, nil)
	reader := &siteReader{samples: c.Samples(), sites: [][]genotype.Allele{{r, m}, {m, a}}}
	require.NoError(t, c.Accumulate(reader, nil))

	assert.Zero(t, c.Overlap(0, 1))
	assert.True(t, math.IsNaN(c.Rate(0, 1)), "zero overlap must be NaN, not 0")
}

func TestAccumulateHonorsMask(t *testing.T) {
	pairs := map[[2]int]bool{{0, 1}: true}
	c := New(abcd(), pairs)
	reader := &siteReader{samples: abcd(), sites: [][]genotype.Allele{{r, a, a, a}}}
	require.NoError(t, c.Accumulate(reader, nil))

	assert.Equal(t, uint64(2), c.Mismatches(0, 1))
	assert.Equal(t, uint64(2), c.Total(0, 1))
	// Excluded pairs have zero overlap, not just zero mismatches.
	assert.Zero(t, c.Total(0, 2))
	assert.Zero(t, c.Total(2, 3))
	assert.False(t, c.ShouldCount(2, 3))
	assert.False(t, c.ShouldCount(1, 1))
	assert.True(t, c.ShouldCount(1, 0))
}

func TestSequentialAndParallelAgree(t *testing.T) {
	sites := make([][]genotype.Allele, 0, 600)
	pattern := [][]genotype.Allele{
		{r, a, a, a},
		{h, h, h, h},
		{a, a, a, a},
		{m, a, r, h},
		{r, m, h, m},
	}
	for i := 0; i < 120; i++ {
		sites = append(sites, pattern...)
	}

	sequential := New(abcd(), nil)
	require.NoError(t, sequential.Accumulate(&siteReader{samples: abcd(), sites: sites}, nil))

	for _, workers := range []int{1, 2, 8} {
		parallel := New(abcd(), nil)
		require.NoError(t, parallel.AccumulateParallel(&siteReader{samples: abcd(), sites: sites}, workers, nil))
		assert.Equal(t, sequential.mismatches, parallel.mismatches, "workers=%d", workers)
		assert.Equal(t, sequential.totals, parallel.totals, "workers=%d", workers)
	}
}

func TestParallelPropagatesStreamError(t *testing.T) {
	sites := make([][]genotype.Allele, 50)
	for i := range sites {
		sites[i] = []genotype.Allele{r, a, h, a}
	}
	reader := &siteReader{samples: abcd(), sites: sites, failAt: 20}

	c := New(abcd(), nil)
	err := c.AccumulateParallel(reader, 4, nil)
	require.ErrorIs(t, err, errBadBlock)
}

func TestOnSiteHookCountsSites(t *testing.T) {
	sites := make([][]genotype.Allele, 37)
	for i := range sites {
		sites[i] = []genotype.Allele{r, a, h, a}
	}

	var mu sync.Mutex
	ticks := 0
	hook := func() { mu.Lock(); ticks++; mu.Unlock() }

	c := New(abcd(), nil)
	require.NoError(t, c.AccumulateParallel(&siteReader{samples: abcd(), sites: sites}, 3, hook))
	assert.Equal(t, 37, ticks)
}

func TestDenseExportsAreSymmetric(t *testing.T) {
	c := New(abcd(), nil)
	reader := &siteReader{samples: abcd(), sites: [][]genotype.Allele{
		{r, a, a, a},
		{h, h, m, h},
	}}
	require.NoError(t, c.Accumulate(reader, nil))

	for name, grid := range map[string][]uint64{
		"mismatches": c.DenseMismatches(),
		"totals":     c.DenseTotals(),
		"overlaps":   c.DenseOverlaps(),
	} {
		require.Len(t, grid, 16, name)
		for i := 0; i < 4; i++ {
			assert.Zero(t, grid[4*i+i], "%s diagonal", name)
			for j := 0; j < 4; j++ {
				assert.Equal(t, grid[4*i+j], grid[4*j+i], "%s (%d,%d)", name, i, j)
			}
		}
	}
	assert.Equal(t, c.Total(0, 1)/2, c.DenseOverlaps()[1])
}

func TestRunModeSelection(t *testing.T) {
	// threads=1 forces sequential, threads>1 forces parallel, 0 stays
	// sequential below the cutoff. All must agree on the numbers.
	sites := [][]genotype.Allele{{r, a, h, m}, {h, h, a, a}}
	want := New(abcd(), nil)
	require.NoError(t, want.Accumulate(&siteReader{samples: abcd(), sites: sites}, nil))

	for _, threads := range []int{0, 1, 2, 8} {
		c := New(abcd(), nil)
		require.NoError(t, c.Run(&siteReader{samples: abcd(), sites: sites}, threads, nil))
		assert.Equal(t, want.mismatches, c.mismatches, "threads=%d", threads)
		assert.Equal(t, want.totals, c.totals, "threads=%d", threads)
	}
}
