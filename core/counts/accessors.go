// core/counts/accessors.go
package counts

import "math"

// Samples returns the resolved sample IDs backing the matrix.
func (c *Counts) Samples() []string { return c.samples }

// NSamples returns the matrix dimension.
func (c *Counts) NSamples() int { return c.n }

// Mismatches returns the accumulated allele mismatches for a pair.
func (c *Counts) Mismatches(i, j int) uint64 { return c.mismatches[c.Index(i, j)] }

// Total returns the comparable-allele count for a pair (always even).
func (c *Counts) Total(i, j int) uint64 { return c.totals[c.Index(i, j)] }

// Overlap returns the number of sites where both samples carried a call.
func (c *Counts) Overlap(i, j int) uint64 { return c.totals[c.Index(i, j)] / 2 }

// Rate returns mismatches divided by the comparable-allele total. A pair with
// no comparable sites has no defined rate and yields NaN, not zero; output
// paths must preserve that distinction.
func (c *Counts) Rate(i, j int) float64 {
	cell := c.Index(i, j)
	if c.totals[cell] == 0 {
		return math.NaN()
	}
	return float64(c.mismatches[cell]) / float64(c.totals[cell])
}

// DenseMismatches expands the half-matrix into a full symmetric n×n grid,
// row-major, for archive export.
func (c *Counts) DenseMismatches() []uint64 { return c.dense(c.mismatches, 1) }

// DenseTotals is DenseMismatches for the comparable-allele totals.
func (c *Counts) DenseTotals() []uint64 { return c.dense(c.totals, 1) }

// DenseOverlaps is DenseTotals halved: per-pair site overlaps.
func (c *Counts) DenseOverlaps() []uint64 { return c.dense(c.totals, 2) }

func (c *Counts) dense(flat []uint64, div uint64) []uint64 {
	out := make([]uint64, c.n*c.n)
	for i := 0; i < c.n; i++ {
		for j := i + 1; j < c.n; j++ {
			v := flat[c.n*i+j] / div
			out[c.n*i+j] = v
			out[c.n*j+i] = v
		}
	}
	return out
}
