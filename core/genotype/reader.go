// core/genotype/reader.go
package genotype

import "fmt"

// SiteReader is the contract every format decoder implements: a lazy,
// single-pass stream of Sites in on-disk variant order.
//
// Next returns io.EOF after the last site. Any other error is fatal and
// poisons the reader: every later call returns the same error. A reader may
// be shared by several goroutines only if they serialize calls to Next;
// decoded Sites can then be processed concurrently.
type SiteReader interface {
	// Samples returns the resolved sample IDs, in original file order.
	Samples() []string
	// NSites returns how many sites the stream will yield after variant
	// filtering.
	NSites() int
	Next() (*Site, error)
	// Close releases the backing file. Safe after an error or EOF.
	Close() error
}

// Restrict narrows a decoder to a subset of samples and variants. Both sets
// are resolved once at construction and frozen for the stream's lifetime.
// The zero value keeps everything.
type Restrict struct {
	Samples  map[string]bool // sample IDs to keep; nil keeps all
	Variants map[int]bool    // 0-based variant indices to keep; nil keeps all
}

// NSites returns the post-filter site count for a file with nVariants sites.
func (r Restrict) NSites(nVariants int) int {
	if r.Variants == nil {
		return nVariants
	}
	return len(r.Variants)
}

// CheckVariants verifies every kept variant index is addressable.
func (r Restrict) CheckVariants(nVariants int) error {
	bad := -1
	for idx := range r.Variants {
		if idx >= nVariants && (bad < 0 || idx < bad) {
			bad = idx
		}
	}
	if bad >= 0 {
		return &VariantBoundsError{Index: bad + 1, NVariants: nVariants}
	}
	return nil
}

// VariantBoundsError reports a requested variant index beyond the file's
// variant count. Index is 1-based, matching how the user wrote it.
type VariantBoundsError struct {
	Index     int
	NVariants int
}

func (e *VariantBoundsError) Error() string {
	return fmt.Sprintf("variant index out-of-bounds: %d > %d", e.Index, e.NVariants)
}

// UnknownSampleError reports a requested sample ID absent from the input.
type UnknownSampleError struct {
	Sample string
}

func (e *UnknownSampleError) Error() string {
	return fmt.Sprintf("unknown sample: %s", e.Sample)
}

// SelectSamples applies a keep-set to the file's sample list, preserving the
// original relative order. It returns the retained IDs plus their original
// 0-based indices (nil indices mean "all samples, unchanged"). Requesting a
// sample the file does not contain is fatal.
func SelectSamples(samples []string, keep map[string]bool) ([]string, []int, error) {
	if keep == nil {
		return samples, nil, nil
	}
	seen := make(map[string]bool, len(keep))
	kept := make([]string, 0, len(keep))
	indices := make([]int, 0, len(keep))
	for idx, id := range samples {
		if keep[id] {
			seen[id] = true
			kept = append(kept, id)
			indices = append(indices, idx)
		}
	}
	for id := range keep {
		if !seen[id] {
			return nil, nil, &UnknownSampleError{Sample: id}
		}
	}
	return kept, indices, nil
}
