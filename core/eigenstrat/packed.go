// core/eigenstrat/packed.go
package eigenstrat

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"pmr-core/genotype"
)

// PackedReader streams a variant-major packed .geno matrix: after the header
// block, one fixed-size block per variant, each byte packing four samples'
// 2-bit codes most-significant pair first.
type PackedReader struct {
	genoPath string
	f        *os.File
	br       *bufio.Reader

	nSamplesFile int
	nVariants    int
	samples      []string
	keepIdx      []int // original sample indices to decode; nil = all
	keepVariants map[int]bool

	next  int
	block []byte
	err   error
}

// OpenPacked validates sidecars, header and restrictions, and positions the
// stream at the first variant block. No genotype data is decoded until Next.
func OpenPacked(indPath, genoPath, snpPath string, r genotype.Restrict) (*PackedReader, error) {
	sampleIDs, err := ReadInd(indPath)
	if err != nil {
		return nil, err
	}
	variantIDs, err := ReadSnp(snpPath)
	if err != nil {
		return nil, err
	}
	blockSize := blockBytes(len(sampleIDs))

	f, err := os.Open(genoPath)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", genoPath, err)
	}
	br := bufio.NewReaderSize(f, 1<<16)
	block := make([]byte, blockSize)
	if _, err := io.ReadFull(br, block); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: file too small to contain data", genoPath)
	}
	h, err := parseHeaderBlock(block, MagicPacked, genoPath)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := h.checkAgainstSidecars(genoPath, sampleIDs, variantIDs); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := r.CheckVariants(h.nVariants); err != nil {
		_ = f.Close()
		return nil, err
	}
	samples, keepIdx, err := genotype.SelectSamples(sampleIDs, r.Samples)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &PackedReader{
		genoPath:     genoPath,
		f:            f,
		br:           br,
		nSamplesFile: h.nSamples,
		nVariants:    h.nVariants,
		samples:      samples,
		keepIdx:      keepIdx,
		keepVariants: r.Variants,
		block:        block,
	}, nil
}

func (p *PackedReader) Samples() []string { return p.samples }

func (p *PackedReader) NSites() int {
	if p.keepVariants != nil {
		return len(p.keepVariants)
	}
	return p.nVariants
}

func (p *PackedReader) Next() (*genotype.Site, error) {
	if p.err != nil {
		return nil, p.err
	}
	for p.next < p.nVariants {
		keep := p.keepVariants == nil || p.keepVariants[p.next]
		// Skipped variants are still read so the cursor stays aligned.
		if _, err := io.ReadFull(p.br, p.block); err != nil {
			p.err = fmt.Errorf("%s: could not read block for variant %d: %w",
				p.genoPath, p.next+1, err)
			return nil, p.err
		}
		p.next++
		if keep {
			return &genotype.Site{Genotypes: unpackBlock(p.block, p.nSamplesFile, p.keepIdx)}, nil
		}
	}
	p.err = io.EOF
	return nil, io.EOF
}

func (p *PackedReader) Close() error { return p.f.Close() }

func blockBytes(count int) int {
	if need := (count + 3) / 4; need > MinBlockBytes {
		return need
	}
	return MinBlockBytes
}

// unpackBlock decodes one variant block, either every sample or only the
// positions in keepIdx (preserving their relative order).
func unpackBlock(block []byte, nSamples int, keepIdx []int) []genotype.Allele {
	if keepIdx != nil {
		genotypes := make([]genotype.Allele, len(keepIdx))
		for out, idx := range keepIdx {
			genotypes[out] = unpackAt(block, idx)
		}
		return genotypes
	}
	genotypes := make([]genotype.Allele, nSamples)
	for i := 0; i < nSamples; i++ {
		genotypes[i] = unpackAt(block, i)
	}
	return genotypes
}

func unpackAt(block []byte, idx int) genotype.Allele {
	shift := uint(6 - 2*(idx%4))
	return packedAllele(block[idx/4] >> shift & 0b11)
}

// packedAllele is the packed-geno code table. It intentionally differs from
// the PLINK .bed table in core/plink; mixing the two corrupts results.
func packedAllele(code byte) genotype.Allele {
	switch code {
	case 0b00:
		return genotype.Alt
	case 0b01:
		return genotype.Het
	case 0b10:
		return genotype.Ref
	default:
		return genotype.Missing
	}
}
