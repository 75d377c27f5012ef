// core/input/input.go
package input

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"pmr-core/eigenstrat"
	"pmr-core/genotype"
	"pmr-core/plink"
)

// Kind names a backing file-set family. Which eigenstrat layout a .geno file
// uses is only known after sniffing its first bytes at Open.
type Kind int

const (
	KindEigenstrat Kind = iota
	KindPlink
)

func (k Kind) String() string {
	if k == KindPlink {
		return "plink"
	}
	return "eigenstrat"
}

// Spec is a resolved input file set. Paths are fully formed; every file was
// confirmed present at Resolve time.
type Spec struct {
	Kind Kind

	// KindEigenstrat
	Ind, Geno, Snp string

	// KindPlink
	Bed, Bim, Fam string
}

// Resolve maps an input prefix to a concrete file set: prefix.geno/.ind/.snp
// if all three exist, else prefix.bed/.bim/.fam.
func Resolve(prefix string) (Spec, error) {
	ind, geno, snp := prefix+".ind", prefix+".geno", prefix+".snp"
	if allExist(ind, geno, snp) {
		return Spec{Kind: KindEigenstrat, Ind: ind, Geno: geno, Snp: snp}, nil
	}
	bed, bim, fam := prefix+".bed", prefix+".bim", prefix+".fam"
	if allExist(bed, bim, fam) {
		return Spec{Kind: KindPlink, Bed: bed, Bim: bim, Fam: fam}, nil
	}
	return Spec{}, fmt.Errorf(
		"could not find supported input files for prefix %s (.geno/.ind/.snp or .bed/.bim/.fam)", prefix)
}

// Paths lists the resolved files in a stable order, for logging.
func (s Spec) Paths() []string {
	if s.Kind == KindPlink {
		return []string{s.Bed, s.Bim, s.Fam}
	}
	return []string{s.Geno, s.Ind, s.Snp}
}

// Open constructs the decoder for this file set. For eigenstrat sets the
// matrix layout is sniffed from the .geno file's first bytes: TGENO, GENO, or
// neither (unpacked text). Each call builds a fresh single-pass stream, so a
// coverage pre-pass and the accumulation pass call Open twice.
func (s Spec) Open(r genotype.Restrict) (genotype.SiteReader, error) {
	if s.Kind == KindPlink {
		return plink.OpenBed(s.Bed, s.Bim, s.Fam, r)
	}

	head, err := sniff(s.Geno, len(eigenstrat.MagicTransposed))
	if err != nil {
		return nil, err
	}
	switch {
	case bytes.HasPrefix(head, []byte(eigenstrat.MagicTransposed)):
		return eigenstrat.OpenTransposed(s.Ind, s.Geno, s.Snp, r)
	case bytes.HasPrefix(head, []byte(eigenstrat.MagicPacked)):
		return eigenstrat.OpenPacked(s.Ind, s.Geno, s.Snp, r)
	default:
		return eigenstrat.OpenUnpacked(s.Ind, s.Geno, s.Snp, r)
	}
}

func sniff(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	defer f.Close()
	head := make([]byte, n)
	m, err := f.Read(head)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	return head[:m], nil
}

func allExist(paths ...string) bool {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}
