// core/eigenstrat/transposed.go
package eigenstrat

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"pmr-core/genotype"
)

// TransposedReader decodes a sample-major packed .geno matrix (TGENO): one
// fixed-size block per sample, so a single variant's calls are scattered
// across every block. Streaming that layout from disk would re-read the file
// once per variant, so the whole post-header payload is materialized in one
// contiguous buffer at open; iteration is pure in-memory access.
type TransposedReader struct {
	samples      []string
	keepIdx      []int
	nSamplesFile int
	nVariants    int
	blockSize    int
	matrix       []byte // nSamplesFile * blockSize bytes
	keepVariants map[int]bool

	next int
	err  error
}

func OpenTransposed(indPath, genoPath, snpPath string, r genotype.Restrict) (*TransposedReader, error) {
	sampleIDs, err := ReadInd(indPath)
	if err != nil {
		return nil, err
	}
	variantIDs, err := ReadSnp(snpPath)
	if err != nil {
		return nil, err
	}
	blockSize := blockBytes(len(variantIDs))

	f, err := os.Open(genoPath)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", genoPath, err)
	}
	defer f.Close()
	br := bufio.NewReaderSize(f, 1<<16)

	// The TGENO header block is always exactly MinBlockBytes, independent of
	// the sample-block size.
	headerBlock := make([]byte, MinBlockBytes)
	if _, err := io.ReadFull(br, headerBlock); err != nil {
		return nil, fmt.Errorf("%s: file too small to contain data", genoPath)
	}
	h, err := parseHeaderBlock(headerBlock, MagicTransposed, genoPath)
	if err != nil {
		return nil, err
	}
	if err := h.checkAgainstSidecars(genoPath, sampleIDs, variantIDs); err != nil {
		return nil, err
	}
	if err := r.CheckVariants(h.nVariants); err != nil {
		return nil, err
	}

	matrix := make([]byte, h.nSamples*blockSize)
	if _, err := io.ReadFull(br, matrix); err != nil {
		return nil, fmt.Errorf("%s: file too small to contain data", genoPath)
	}
	if _, err := br.ReadByte(); err == nil {
		return nil, fmt.Errorf("%s: trailing bytes after genotype matrix", genoPath)
	} else if err != io.EOF {
		return nil, fmt.Errorf("could not read %s: %w", genoPath, err)
	}

	samples, keepIdx, err := genotype.SelectSamples(sampleIDs, r.Samples)
	if err != nil {
		return nil, err
	}

	return &TransposedReader{
		samples:      samples,
		keepIdx:      keepIdx,
		nSamplesFile: h.nSamples,
		nVariants:    h.nVariants,
		blockSize:    blockSize,
		matrix:       matrix,
		keepVariants: r.Variants,
	}, nil
}

func (t *TransposedReader) Samples() []string { return t.samples }

func (t *TransposedReader) NSites() int {
	if t.keepVariants != nil {
		return len(t.keepVariants)
	}
	return t.nVariants
}

func (t *TransposedReader) Next() (*genotype.Site, error) {
	if t.err != nil {
		return nil, t.err
	}
	for t.next < t.nVariants {
		keep := t.keepVariants == nil || t.keepVariants[t.next]
		v := t.next
		t.next++
		if keep {
			return &genotype.Site{Genotypes: t.gather(v)}, nil
		}
	}
	t.err = io.EOF
	return nil, io.EOF
}

// Close is a no-op; the backing file is drained and closed at open.
func (t *TransposedReader) Close() error { return nil }

// gather collects variant v's 2-bit code from every kept sample block.
func (t *TransposedReader) gather(v int) []genotype.Allele {
	byteIdx := v / 4
	shift := uint(6 - 2*(v%4))

	if t.keepIdx != nil {
		genotypes := make([]genotype.Allele, len(t.keepIdx))
		for out, s := range t.keepIdx {
			genotypes[out] = packedAllele(t.matrix[s*t.blockSize+byteIdx] >> shift & 0b11)
		}
		return genotypes
	}
	genotypes := make([]genotype.Allele, t.nSamplesFile)
	for s := 0; s < t.nSamplesFile; s++ {
		genotypes[s] = packedAllele(t.matrix[s*t.blockSize+byteIdx] >> shift & 0b11)
	}
	return genotypes
}
