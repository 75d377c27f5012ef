// internal/output/csv.go
package output

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"pmr-core/counts"
)

// WriteRatesCSV writes one row per unordered sample pair, i<j in sample
// order, with its overlap and mismatch rate. Pairs a restriction excluded
// from accumulation still get a row: zero overlap and an undefined (NaN)
// rate, never a silent omission.
func WriteRatesCSV(w io.Writer, c *counts.Counts) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id1", "id2", "n_overlap", "mismatch_rate"}); err != nil {
		return err
	}
	samples := c.Samples()
	for i := range samples {
		for j := i + 1; j < len(samples); j++ {
			cw.Write([]string{
				samples[i],
				samples[j],
				strconv.FormatUint(c.Overlap(i, j), 10),
				formatRate(c.Rate(i, j)),
			})
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatRate(r float64) string {
	if math.IsNaN(r) {
		return "NaN"
	}
	return strconv.FormatFloat(r, 'g', -1, 64)
}
