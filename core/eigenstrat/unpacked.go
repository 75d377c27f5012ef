// core/eigenstrat/unpacked.go
package eigenstrat

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"pmr-core/genotype"
)

// UnpackedReader streams a text .geno matrix: one line per variant, one ASCII
// digit per sample, no separators.
type UnpackedReader struct {
	genoPath string
	f        *os.File
	br       *bufio.Reader

	nSamplesFile int
	nVariants    int
	samples      []string
	keepIdx      []int
	keepVariants map[int]bool

	next int
	err  error
}

func OpenUnpacked(indPath, genoPath, snpPath string, r genotype.Restrict) (*UnpackedReader, error) {
	sampleIDs, err := ReadInd(indPath)
	if err != nil {
		return nil, err
	}
	variantIDs, err := ReadSnp(snpPath)
	if err != nil {
		return nil, err
	}
	if len(sampleIDs) < 2 {
		return nil, fmt.Errorf("%s: need at least 2 samples (got %d)", indPath, len(sampleIDs))
	}
	if len(variantIDs) < 1 {
		return nil, fmt.Errorf("%s: need at least 1 variant (got %d)", snpPath, len(variantIDs))
	}
	if err := r.CheckVariants(len(variantIDs)); err != nil {
		return nil, err
	}

	f, err := os.Open(genoPath)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", genoPath, err)
	}
	samples, keepIdx, err := genotype.SelectSamples(sampleIDs, r.Samples)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &UnpackedReader{
		genoPath:     genoPath,
		f:            f,
		br:           bufio.NewReaderSize(f, 1<<16),
		nSamplesFile: len(sampleIDs),
		nVariants:    len(variantIDs),
		samples:      samples,
		keepIdx:      keepIdx,
		keepVariants: r.Variants,
	}, nil
}

func (u *UnpackedReader) Samples() []string { return u.samples }

func (u *UnpackedReader) NSites() int {
	if u.keepVariants != nil {
		return len(u.keepVariants)
	}
	return u.nVariants
}

func (u *UnpackedReader) Next() (*genotype.Site, error) {
	if u.err != nil {
		return nil, u.err
	}
	for u.next < u.nVariants {
		keep := u.keepVariants == nil || u.keepVariants[u.next]
		lineNum := u.next + 1

		line, err := u.br.ReadString('\n')
		if err != nil && err != io.EOF {
			u.err = fmt.Errorf("could not read %s: %w", u.genoPath, err)
			return nil, u.err
		}
		if line == "" {
			// Fewer lines than .snp declares is a structural error, not a
			// short stream.
			u.err = fmt.Errorf("%s: contains %d variants but .snp lists %d",
				u.genoPath, u.next, u.nVariants)
			return nil, u.err
		}
		u.next++
		if !keep {
			continue
		}

		stripped := stripSpace(line)
		if len(stripped) != u.nSamplesFile {
			u.err = fmt.Errorf("%s line %d: expected %d genotypes, got %d",
				u.genoPath, lineNum, u.nSamplesFile, len(stripped))
			return nil, u.err
		}
		genotypes, err := decodeDigits(stripped, u.keepIdx)
		if err != nil {
			u.err = fmt.Errorf("%s line %d: %w", u.genoPath, lineNum, err)
			return nil, u.err
		}
		return &genotype.Site{Genotypes: genotypes}, nil
	}
	u.err = io.EOF
	return nil, io.EOF
}

func (u *UnpackedReader) Close() error { return u.f.Close() }

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func decodeDigits(row string, keepIdx []int) ([]genotype.Allele, error) {
	if keepIdx != nil {
		genotypes := make([]genotype.Allele, len(keepIdx))
		for out, idx := range keepIdx {
			a, err := digitAllele(row[idx])
			if err != nil {
				return nil, err
			}
			genotypes[out] = a
		}
		return genotypes, nil
	}
	genotypes := make([]genotype.Allele, len(row))
	for i := 0; i < len(row); i++ {
		a, err := digitAllele(row[i])
		if err != nil {
			return nil, err
		}
		genotypes[i] = a
	}
	return genotypes, nil
}

func digitAllele(c byte) (genotype.Allele, error) {
	switch c {
	case '0':
		return genotype.Alt, nil
	case '1':
		return genotype.Het, nil
	case '2':
		return genotype.Ref, nil
	case '9':
		return genotype.Missing, nil
	default:
		return genotype.Missing, fmt.Errorf("invalid genotype code %q", c)
	}
}
