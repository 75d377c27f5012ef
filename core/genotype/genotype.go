// core/genotype/genotype.go
package genotype

// Allele is one sample's genotype call at a single variant site. The integer
// codes are load-bearing: Mismatch relies on |Ref−Het| = |Het−Alt| = 1 and
// |Ref−Alt| = 2. Missing never enters that arithmetic.
type Allele uint8

const (
	Ref Allele = iota
	Het
	Alt
	Missing
)

func (a Allele) String() string {
	switch a {
	case Ref:
		return "ref"
	case Het:
		return "het"
	case Alt:
		return "alt"
	default:
		return "missing"
	}
}

// Mismatch returns the allele distance between two non-missing calls (0, 1 or
// 2). Symmetric, and zero for identical calls. Callers must filter Missing
// beforehand.
func Mismatch(a, b Allele) uint64 {
	if a > b {
		return uint64(a - b)
	}
	return uint64(b - a)
}

// Site holds one variant's calls, ordered like the reader's sample list.
// Sites are ephemeral: a reader may not retain one past the next pull.
type Site struct {
	Genotypes []Allele
}
