package eigenstrat

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"pmr-core/genotype"
)

// Fixture builders shared by the packed/transposed/unpacked tests. They write
// the same synthetic cohort in each on-disk layout.

func alleleCode(a genotype.Allele) byte {
	switch a {
	case genotype.Alt:
		return 0b00
	case genotype.Het:
		return 0b01
	case genotype.Ref:
		return 0b10
	default:
		return 0b11
	}
}

func alleleDigit(a genotype.Allele) byte {
	switch a {
	case genotype.Alt:
		return '0'
	case genotype.Het:
		return '1'
	case genotype.Ref:
		return '2'
	default:
		return '9'
	}
}

// pack2bit packs codes most-significant pair first into ceil(len/4) bytes,
// then pads with 0xff up to blockSize.
func pack2bit(alleles []genotype.Allele, blockSize int) []byte {
	block := make([]byte, blockSize)
	for i := range block {
		block[i] = 0xff
	}
	for i, a := range alleles {
		shift := uint(6 - 2*(i%4))
		if i%4 == 0 {
			block[i/4] = 0
		}
		block[i/4] |= alleleCode(a) << shift
	}
	return block
}

func headerBlock(magic string, samples, variants []string, blockSize int) []byte {
	rec := fmt.Sprintf("%s %d %d %s %s", magic, len(samples), len(variants),
		IDHash(samples), IDHash(variants))
	block := make([]byte, blockSize)
	copy(block, rec)
	return block
}

func variantIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("rs%d", i+1)
	}
	return ids
}

func writeSidecars(t *testing.T, dir string, samples, variants []string) (ind, snp string) {
	t.Helper()
	var indLines strings.Builder
	for _, s := range samples {
		fmt.Fprintf(&indLines, "%s M Pop1\n", s)
	}
	var snpLines strings.Builder
	for i, v := range variants {
		fmt.Fprintf(&snpLines, "%s 1 0.0 %d A C\n", v, i+1)
	}
	ind = filepath.Join(dir, "cohort.ind")
	snp = filepath.Join(dir, "cohort.snp")
	require.NoError(t, os.WriteFile(ind, []byte(indLines.String()), 0o644))
	require.NoError(t, os.WriteFile(snp, []byte(snpLines.String()), 0o644))
	return ind, snp
}

// writePacked lays the cohort out variant-major (GENO).
func writePacked(t *testing.T, dir string, samples []string, sites [][]genotype.Allele) (ind, geno, snp string) {
	t.Helper()
	variants := variantIDs(len(sites))
	ind, snp = writeSidecars(t, dir, samples, variants)

	blockSize := blockBytes(len(samples))
	data := headerBlock(MagicPacked, samples, variants, blockSize)
	for _, site := range sites {
		data = append(data, pack2bit(site, blockSize)...)
	}
	geno = filepath.Join(dir, "cohort.geno")
	require.NoError(t, os.WriteFile(geno, data, 0o644))
	return ind, geno, snp
}

// writeTransposed lays the same cohort out sample-major (TGENO).
func writeTransposed(t *testing.T, dir string, samples []string, sites [][]genotype.Allele) (ind, geno, snp string) {
	t.Helper()
	variants := variantIDs(len(sites))
	ind, snp = writeSidecars(t, dir, samples, variants)

	blockSize := blockBytes(len(sites))
	data := headerBlock(MagicTransposed, samples, variants, MinBlockBytes)
	for s := range samples {
		column := make([]genotype.Allele, len(sites))
		for v, site := range sites {
			column[v] = site[s]
		}
		data = append(data, pack2bit(column, blockSize)...)
	}
	geno = filepath.Join(dir, "cohort.geno")
	require.NoError(t, os.WriteFile(geno, data, 0o644))
	return ind, geno, snp
}

// writeUnpacked lays the cohort out as digit rows.
func writeUnpacked(t *testing.T, dir string, samples []string, sites [][]genotype.Allele) (ind, geno, snp string) {
	t.Helper()
	ind, snp = writeSidecars(t, dir, samples, variantIDs(len(sites)))

	var rows strings.Builder
	for _, site := range sites {
		for _, a := range site {
			rows.WriteByte(alleleDigit(a))
		}
		rows.WriteByte('\n')
	}
	geno = filepath.Join(dir, "cohort.geno")
	require.NoError(t, os.WriteFile(geno, []byte(rows.String()), 0o644))
	return ind, geno, snp
}

// drain pulls every remaining site from a reader.
func drain(t *testing.T, r genotype.SiteReader) [][]genotype.Allele {
	t.Helper()
	var sites [][]genotype.Allele
	for {
		site, err := r.Next()
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
			return sites
		}
		sites = append(sites, site.Genotypes)
	}
}
