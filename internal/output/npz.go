// internal/output/npz.go
package output

import (
	"archive/zip"
	"io"

	"github.com/kshedden/gonpy"

	"pmr-core/counts"
)

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// WriteCountsNPZ writes the raw pairwise accumulators as an uncompressed
// numpy archive with three n×n uint64 arrays: "mismatches", "totals" and
// "overlaps". Rows and columns follow the order of the samples list.
func WriteCountsNPZ(w io.Writer, c *counts.Counts) error {
	n := c.NSamples()
	zw := zip.NewWriter(w)
	arrays := []struct {
		name string
		data []uint64
	}{
		{"mismatches", c.DenseMismatches()},
		{"totals", c.DenseTotals()},
		{"overlaps", c.DenseOverlaps()},
	}
	for _, a := range arrays {
		f, err := zw.Create(a.name + ".npy")
		if err != nil {
			return err
		}
		npw, err := gonpy.NewWriter(nopCloser{f})
		if err != nil {
			return err
		}
		npw.Shape = []int{n, n}
		if err := npw.WriteUint64(a.data); err != nil {
			return err
		}
	}
	return zw.Close()
}
