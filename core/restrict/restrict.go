// core/restrict/restrict.go
//
// Package restrict turns user intent (1-based variant ranges, explicit sample
// pairs, a minimum-coverage threshold) into the concrete index sets and pair
// universe the accumulation engine consumes.
package restrict

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"pmr-core/genotype"
)

// ErrIndexNotPositive rejects the 1-based variant index 0 (or an empty range
// endpoint); silent clamping would hide a fencepost mistake in user input.
var ErrIndexNotPositive = errors.New("variant indices are 1-based and must be positive")

// ErrNoPairs signals that restrictions left nothing to compute.
var ErrNoPairs = errors.New("no sample pairs left to compute")

// SamePairError rejects a pair listing one sample twice.
type SamePairError struct {
	Sample string
}

func (e *SamePairError) Error() string {
	return fmt.Sprintf("sample pair cannot include the same sample twice: %s", e.Sample)
}

// ParseVariantSpec parses a comma-separated list of 1-based singletons and
// inclusive ranges ("1-5000,10000,20000-30000") into a 0-based index set.
// An empty spec means no restriction and returns nil.
func ParseVariantSpec(spec string) (map[int]bool, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	keep := make(map[int]bool)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		lo, hi, err := parseRange(part)
		if err != nil {
			return nil, err
		}
		for i := lo; i <= hi; i++ {
			keep[i-1] = true
		}
	}
	return keep, nil
}

func parseRange(part string) (lo, hi int, err error) {
	if from, to, isRange := strings.Cut(part, "-"); isRange {
		lo, err = parseIndex(from)
		if err != nil {
			return 0, 0, err
		}
		hi, err = parseIndex(to)
		if err != nil {
			return 0, 0, err
		}
		if hi < lo {
			return 0, 0, fmt.Errorf("variant range %q is descending", part)
		}
		return lo, hi, nil
	}
	lo, err = parseIndex(part)
	return lo, lo, err
}

func parseIndex(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrIndexNotPositive
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("could not parse variant index %q: %w", s, err)
	}
	if n < 1 {
		return 0, ErrIndexNotPositive
	}
	return n, nil
}

// ResolvePairs maps explicit ID pairs onto indices in the resolved sample
// list. Both members must exist there, and must differ.
func ResolvePairs(samples []string, pairs [][2]string) (map[[2]int]bool, error) {
	if pairs == nil {
		return nil, nil
	}
	index := make(map[string]int, len(samples))
	for i, id := range samples {
		index[id] = i
	}
	set := make(map[[2]int]bool, len(pairs))
	for _, p := range pairs {
		if p[0] == p[1] {
			return nil, &SamePairError{Sample: p[0]}
		}
		i, ok := index[p[0]]
		if !ok {
			return nil, &genotype.UnknownSampleError{Sample: p[0]}
		}
		j, ok := index[p[1]]
		if !ok {
			return nil, &genotype.UnknownSampleError{Sample: p[1]}
		}
		if i > j {
			i, j = j, i
		}
		set[[2]int{i, j}] = true
	}
	return set, nil
}

// CoverageCounts drains one full stream and counts, per sample, the sites
// with a non-missing call. The stream is consumed; callers needing the data
// afterwards must open a fresh one.
func CoverageCounts(r genotype.SiteReader) ([]uint64, error) {
	covered := make([]uint64, len(r.Samples()))
	for {
		site, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return covered, nil
			}
			return nil, err
		}
		for i, a := range site.Genotypes {
			if a != genotype.Missing {
				covered[i]++
			}
		}
	}
}

// BuildPairSet combines the explicit pair set (nil = all pairs) with a
// coverage exclusion (covered[i] <= minCoverage drops sample i, explicit
// pairs included) into the final pair universe. It returns nil when every
// off-diagonal pair survives, so an n²-sized mask is only materialized when
// it actually narrows the computation. An empty result is fatal.
func BuildPairSet(n int, explicit map[[2]int]bool, covered []uint64, minCoverage uint64) (map[[2]int]bool, error) {
	excluded := make([]bool, n)
	anyExcluded := false
	if minCoverage > 0 && covered != nil {
		for i := 0; i < n && i < len(covered); i++ {
			if covered[i] <= minCoverage {
				excluded[i] = true
				anyExcluded = true
			}
		}
	}

	if explicit != nil {
		set := make(map[[2]int]bool, len(explicit))
		for p := range explicit {
			if !excluded[p[0]] && !excluded[p[1]] {
				set[p] = true
			}
		}
		if len(set) == 0 {
			return nil, ErrNoPairs
		}
		return set, nil
	}

	if !anyExcluded {
		return nil, nil // all pairs; no mask needed
	}
	set := make(map[[2]int]bool)
	for i := 0; i < n; i++ {
		if excluded[i] {
			continue
		}
		for j := i + 1; j < n; j++ {
			if !excluded[j] {
				set[[2]int{i, j}] = true
			}
		}
	}
	if len(set) == 0 {
		return nil, ErrNoPairs
	}
	return set, nil
}
