// core/eigenstrat/header.go
package eigenstrat

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MinBlockBytes is the floor for both the header block and per-variant
	// blocks in packed files; small matrices are padded up to it.
	MinBlockBytes = 48

	headerFieldCount = 5

	// MagicPacked and MagicTransposed open the header record of the two
	// binary layouts.
	MagicPacked     = "GENO"
	MagicTransposed = "TGENO"
)

// header is the parsed ASCII record at the top of a packed .geno file:
// magic, sample count, variant count, and the two sidecar checksums.
type header struct {
	nSamples    int
	nVariants   int
	sampleHash  string
	variantHash string
}

func parseHeaderBlock(block []byte, magic, path string) (header, error) {
	nul := bytes.IndexByte(block, 0)
	if nul < 0 {
		return header{}, fmt.Errorf("%s: no null byte found in header block", path)
	}
	fields := strings.Fields(string(block[:nul]))
	if len(fields) != headerFieldCount {
		return header{}, fmt.Errorf("%s: expected %d fields in header, got %d",
			path, headerFieldCount, len(fields))
	}
	if fields[0] != magic {
		return header{}, fmt.Errorf("%s: header block does not start with %q", path, magic)
	}
	nSamples, err := strconv.Atoi(fields[1])
	if err != nil {
		return header{}, fmt.Errorf("%s: could not parse sample count in header: %w", path, err)
	}
	nVariants, err := strconv.Atoi(fields[2])
	if err != nil {
		return header{}, fmt.Errorf("%s: could not parse variant count in header: %w", path, err)
	}
	return header{
		nSamples:    nSamples,
		nVariants:   nVariants,
		sampleHash:  fields[3],
		variantHash: fields[4],
	}, nil
}

// checkAgainstSidecars enforces the structural invariants shared by the two
// packed layouts before any genotype data is trusted.
func (h header) checkAgainstSidecars(genoPath string, sampleIDs, variantIDs []string) error {
	if h.nSamples != len(sampleIDs) {
		return fmt.Errorf("%s: header and .ind sample count disagree (header N=%d, .ind count=%d)",
			genoPath, h.nSamples, len(sampleIDs))
	}
	if h.nVariants != len(variantIDs) {
		return fmt.Errorf("%s: header and .snp variant count disagree (header V=%d, .snp count=%d)",
			genoPath, h.nVariants, len(variantIDs))
	}
	if h.nSamples < 2 {
		return fmt.Errorf("%s: need at least 2 samples (got %d)", genoPath, h.nSamples)
	}
	if h.nVariants < 1 {
		return fmt.Errorf("%s: need at least 1 variant (got %d)", genoPath, h.nVariants)
	}
	return h.verifyHashes(genoPath, sampleIDs, variantIDs)
}

// verifyHashes recomputes the sidecar checksums and compares them with the
// header fields. A literal "0" field means the producer did not record a
// hash, and is accepted.
func (h header) verifyHashes(genoPath string, sampleIDs, variantIDs []string) error {
	if h.sampleHash != "0" {
		if want := IDHash(sampleIDs); !strings.EqualFold(h.sampleHash, want) {
			return fmt.Errorf("%s: header sample hash does not match .ind contents (header %s, computed %s)",
				genoPath, h.sampleHash, want)
		}
	}
	if h.variantHash != "0" {
		if want := IDHash(variantIDs); !strings.EqualFold(h.variantHash, want) {
			return fmt.Errorf("%s: header variant hash does not match .snp contents (header %s, computed %s)",
				genoPath, h.variantHash, want)
		}
	}
	return nil
}
