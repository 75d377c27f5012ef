// core/counts/counts.go
//
// Package counts is the pairwise accumulation engine: it drains a Site
// stream into a flat n×n mismatch/overlap matrix, sequentially or across a
// worker pool, with bit-identical results either way.
package counts

import (
	"errors"
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"pmr-core/genotype"
)

// ParallelThreshold is the sample count at which auto mode switches from the
// single-threaded path to the worker pool. Below it the per-site pair loop is
// too cheap to amortize the scheduling overhead.
const ParallelThreshold = 500

// Counts accumulates pairwise mismatch and comparable-allele totals over a
// square matrix stored flat. Each unordered pair {i,j} owns the single cell
// n·min+max; the diagonal and the mirror half stay zero. For every site where
// both samples carry a call, totals gains 2 (one per allele) and mismatches
// gains the allele distance, so overlap = totals/2 and rate =
// mismatches/totals.
type Counts struct {
	samples    []string
	n          int
	mismatches []uint64
	totals     []uint64
	mask       []bool // nil = every off-diagonal pair
}

// New builds a zeroed matrix for the given samples. A non-nil pair set
// restricts accumulation to those pairs; nil means all pairs.
func New(samples []string, pairs map[[2]int]bool) *Counts {
	n := len(samples)
	c := &Counts{
		samples:    samples,
		n:          n,
		mismatches: make([]uint64, n*n),
		totals:     make([]uint64, n*n),
	}
	if pairs != nil {
		c.mask = make([]bool, n*n)
		for p := range pairs {
			if p[0] != p[1] {
				c.mask[c.Index(p[0], p[1])] = true
			}
		}
	}
	return c
}

// Index maps an unordered sample pair to its cell. Symmetric by construction.
func (c *Counts) Index(i, j int) int {
	if i < j {
		return c.n*i + j
	}
	return c.n*j + i
}

// ShouldCount reports whether a pair participates in accumulation.
func (c *Counts) ShouldCount(i, j int) bool {
	if i == j {
		return false
	}
	return c.mask == nil || c.mask[c.Index(i, j)]
}

// Run drains the stream using the mode selected by threads: 1 forces the
// sequential path, >1 forces that worker count, and 0 picks sequential below
// ParallelThreshold samples or one worker per CPU above it. onSite, if
// non-nil, is invoked once per consumed site (it must be goroutine-safe in
// parallel mode).
func (c *Counts) Run(r genotype.SiteReader, threads int, onSite func()) error {
	switch {
	case threads == 1:
		return c.Accumulate(r, onSite)
	case threads > 1:
		return c.AccumulateParallel(r, threads, onSite)
	case c.n >= ParallelThreshold:
		return c.AccumulateParallel(r, runtime.NumCPU(), onSite)
	default:
		return c.Accumulate(r, onSite)
	}
}

type call struct {
	sample int
	allele genotype.Allele
}

// Accumulate is the single-threaded consumer: no synchronization, exclusive
// ownership of the matrix.
func (c *Counts) Accumulate(r genotype.SiteReader, onSite func()) error {
	present := make([]call, 0, c.n)
	for {
		site, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		present = gatherPresent(present[:0], site)
		for i := 0; i < len(present); i++ {
			for j := i + 1; j < len(present); j++ {
				a, b := present[i], present[j]
				cell := c.Index(a.sample, b.sample)
				if c.mask != nil && !c.mask[cell] {
					continue
				}
				c.mismatches[cell] += genotype.Mismatch(a.allele, b.allele)
				c.totals[cell] += 2
			}
		}
		if onSite != nil {
			onSite()
		}
	}
}

// AccumulateParallel fans the same computation across a worker pool. The only
// mutual exclusion is the pull of the next site; decoding and the O(k²) pair
// loop run concurrently, and cell updates are atomic additions. Addition is
// commutative and each site touches cells determined solely by its own data,
// so the result is identical to the sequential path for any worker count or
// schedule. A fatal stream error poisons the reader; every worker observes it
// and the first instance is returned.
func (c *Counts) AccumulateParallel(r genotype.SiteReader, workers int, onSite func()) error {
	if workers < 1 {
		workers = 1
	}
	var mu sync.Mutex
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			present := make([]call, 0, c.n)
			for {
				mu.Lock()
				site, err := r.Next()
				mu.Unlock()
				if err != nil {
					if errors.Is(err, io.EOF) {
						return nil
					}
					return err
				}
				present = gatherPresent(present[:0], site)
				for i := 0; i < len(present); i++ {
					for j := i + 1; j < len(present); j++ {
						a, b := present[i], present[j]
						cell := c.Index(a.sample, b.sample)
						if c.mask != nil && !c.mask[cell] {
							continue
						}
						if mm := genotype.Mismatch(a.allele, b.allele); mm != 0 {
							atomic.AddUint64(&c.mismatches[cell], mm)
						}
						atomic.AddUint64(&c.totals[cell], 2)
					}
				}
				if onSite != nil {
					onSite()
				}
			}
		})
	}
	return g.Wait()
}

// gatherPresent compacts a site into its non-missing calls; Missing never
// reaches the pair loop.
func gatherPresent(buf []call, site *genotype.Site) []call {
	for idx, a := range site.Genotypes {
		if a != genotype.Missing {
			buf = append(buf, call{sample: idx, allele: a})
		}
	}
	return buf
}
