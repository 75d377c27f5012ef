// internal/output/json.go
package output

import (
	"encoding/json"
	"io"
)

// WriteSamplesJSON writes the sample ID list that indexes the rows and
// columns of the counts archive.
func WriteSamplesJSON(w io.Writer, samples []string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(samples)
}
