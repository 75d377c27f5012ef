// core/plink/plink.go
package plink

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"pmr-core/genotype"
)

const (
	headerLen = 3
	famFields = 6
	bimFields = 6

	// SNP-major mode flag; individual-major .bed files are not supported.
	modeVariantMajor = 0x01
)

// BedMagic identifies a PLINK .bed file (followed by the mode byte).
var BedMagic = [2]byte{0x6c, 0x1b}

// BedReader streams a variant-major PLINK .bed matrix. Genotypes sit
// little-endian within each byte: sample 0 occupies the lowest two bits.
type BedReader struct {
	bedPath string
	f       *os.File
	br      *bufio.Reader

	nSamplesFile int
	nVariants    int
	samples      []string
	keepIdx      []int
	keepVariants map[int]bool

	next  int
	block []byte
	err   error
}

// OpenBed validates the .fam/.bim sidecars, the 3-byte header, and the exact
// file size before any genotype is decoded.
func OpenBed(bedPath, bimPath, famPath string, r genotype.Restrict) (*BedReader, error) {
	sampleIDs, err := ReadFam(famPath)
	if err != nil {
		return nil, err
	}
	nVariants, err := CountBim(bimPath)
	if err != nil {
		return nil, err
	}
	bytesPerVariant := (len(sampleIDs) + 3) / 4

	f, err := os.Open(bedPath)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", bedPath, err)
	}
	br := bufio.NewReaderSize(f, 1<<16)

	var header [headerLen]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: file too small to contain data", bedPath)
	}
	if header[0] != BedMagic[0] || header[1] != BedMagic[1] {
		_ = f.Close()
		return nil, fmt.Errorf("%s: invalid .bed header magic bytes", bedPath)
	}
	if header[2] != modeVariantMajor {
		_ = f.Close()
		return nil, fmt.Errorf("%s: .bed file must be variant-major", bedPath)
	}

	if len(sampleIDs) < 2 {
		_ = f.Close()
		return nil, fmt.Errorf("%s: need at least 2 samples (got %d)", famPath, len(sampleIDs))
	}
	if nVariants < 1 {
		_ = f.Close()
		return nil, fmt.Errorf("%s: need at least 1 variant (got %d)", bimPath, nVariants)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("could not read %s: %w", bedPath, err)
	}
	expected := int64(headerLen) + int64(bytesPerVariant)*int64(nVariants)
	if info.Size() != expected {
		_ = f.Close()
		return nil, fmt.Errorf("%s: file size mismatch (expected %d bytes, found %d)",
			bedPath, expected, info.Size())
	}

	if err := r.CheckVariants(nVariants); err != nil {
		_ = f.Close()
		return nil, err
	}
	samples, keepIdx, err := genotype.SelectSamples(sampleIDs, r.Samples)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &BedReader{
		bedPath:      bedPath,
		f:            f,
		br:           br,
		nSamplesFile: len(sampleIDs),
		nVariants:    nVariants,
		samples:      samples,
		keepIdx:      keepIdx,
		keepVariants: r.Variants,
		block:        make([]byte, bytesPerVariant),
	}, nil
}

func (b *BedReader) Samples() []string { return b.samples }

func (b *BedReader) NSites() int {
	if b.keepVariants != nil {
		return len(b.keepVariants)
	}
	return b.nVariants
}

func (b *BedReader) Next() (*genotype.Site, error) {
	if b.err != nil {
		return nil, b.err
	}
	for b.next < b.nVariants {
		keep := b.keepVariants == nil || b.keepVariants[b.next]
		if _, err := io.ReadFull(b.br, b.block); err != nil {
			b.err = fmt.Errorf("%s: could not read block for variant %d: %w",
				b.bedPath, b.next+1, err)
			return nil, b.err
		}
		b.next++
		if keep {
			return &genotype.Site{Genotypes: unpackBlock(b.block, b.nSamplesFile, b.keepIdx)}, nil
		}
	}
	b.err = io.EOF
	return nil, io.EOF
}

func (b *BedReader) Close() error { return b.f.Close() }

// ReadFam parses a 6-field .fam file. The sample ID joins family and
// individual IDs as fid:iid, except that the sentinel family ID "0" means
// "no family" and yields the bare individual ID.
func ReadFam(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	defer f.Close()

	var samples []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		fields := strings.Fields(sc.Text())
		if len(fields) != famFields {
			return nil, fmt.Errorf("%s line %d: expected %d fields, got %d",
				path, lineNum, famFields, len(fields))
		}
		fid, iid := fields[0], fields[1]
		if fid == "0" {
			samples = append(samples, iid)
		} else {
			samples = append(samples, fid+":"+iid)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	return samples, nil
}

// CountBim validates a 6-field .bim file and returns its variant count.
func CountBim(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("could not read %s: %w", path, err)
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		fields := strings.Fields(sc.Text())
		if len(fields) != bimFields {
			return 0, fmt.Errorf("%s line %d: expected %d fields, got %d",
				path, lineNum, bimFields, len(fields))
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("could not read %s: %w", path, err)
	}
	return n, nil
}

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
	shift := uint((idx % 4) * 2)
	return bedAllele(block[idx/4] >> shift & 0b11)
}

// bedAllele is the PLINK .bed code table. It is not the packed-geno table
// from core/eigenstrat; the two formats encode the same states differently
// and must never share a mapping.
func bedAllele(code byte) genotype.Allele {
	switch code {
	case 0b00:
		return genotype.Ref
	case 0b01:
		return genotype.Missing
	case 0b10:
		return genotype.Het
	default:
		return genotype.Alt
	}
}
