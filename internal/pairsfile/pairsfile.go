// internal/pairsfile/pairsfile.go
package pairsfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Spec is the parsed content of a -sample-pairs CSV.
//
// A one-column file lists sample IDs: the run is restricted to those
// samples and every pair among them is computed. A two-column file lists
// explicit pairs: only the listed pairs are computed, over the union of
// the named samples.
type Spec struct {
	IDs   []string    // deduplicated, in first-seen order
	Pairs [][2]string // nil for one-column files
}

// ErrEmpty is returned when the file contains no usable rows.
var ErrEmpty = errors.New("sample pairs CSV did not contain any pairs")

// Parse reads and parses the CSV at path.
func Parse(path string) (Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return Spec{}, err
	}
	defer f.Close()
	spec, err := parse(f)
	if err != nil {
		return Spec{}, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

func parse(r io.Reader) (Spec, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1 // width checked by hand for a clearer error

	var spec Spec
	width := 0
	seen := make(map[string]bool)
	first := true

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Spec{}, err
		}
		rec = trimRecord(rec)
		if len(rec) == 0 {
			continue
		}
		if first {
			first = false
			if isHeader(rec) {
				continue
			}
		}
		if len(rec) != 1 && len(rec) != 2 {
			return Spec{}, fmt.Errorf("expected 1 or 2 columns, got %d", len(rec))
		}
		if width == 0 {
			width = len(rec)
		} else if len(rec) != width {
			return Spec{}, fmt.Errorf("mixed column counts: %d and %d", width, len(rec))
		}
		for _, id := range rec {
			if !seen[id] {
				seen[id] = true
				spec.IDs = append(spec.IDs, id)
			}
		}
		if width == 2 {
			spec.Pairs = append(spec.Pairs, [2]string{rec[0], rec[1]})
		}
	}
	if len(spec.IDs) == 0 {
		return Spec{}, ErrEmpty
	}
	if width == 2 && len(spec.Pairs) == 0 {
		return Spec{}, ErrEmpty
	}
	return spec, nil
}

func trimRecord(rec []string) []string {
	out := rec[:0]
	for _, f := range rec {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// isHeader recognizes a leading label row such as "id" or "id1,id2".
func isHeader(rec []string) bool {
	switch strings.ToLower(rec[0]) {
	case "id", "sample", "sample_id", "iid":
		return true
	case "id1", "sample1":
		return len(rec) == 2
	}
	return false
}
