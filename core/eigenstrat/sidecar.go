// core/eigenstrat/sidecar.go
package eigenstrat

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

const (
	indFields = 3
	snpFields = 6
)

// ReadInd parses an EIGENSTRAT .ind file (sample, sex, population) and
// returns the sample IDs in file order.
func ReadInd(path string) ([]string, error) {
	return readIDColumn(path, indFields)
}

// ReadSnp parses an EIGENSTRAT .snp file (6 whitespace-separated fields per
// variant) and returns the variant IDs in file order.
func ReadSnp(path string) ([]string, error) {
	return readIDColumn(path, snpFields)
}

func readIDColumn(path string, wantFields int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	defer f.Close()

	var ids []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		fields := strings.Fields(sc.Text())
		if len(fields) != wantFields {
			return nil, fmt.Errorf("%s line %d: expected %d fields, got %d",
				path, lineNum, wantFields, len(fields))
		}
		ids = append(ids, fields[0])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	return ids, nil
}

// IDHash computes the checksum the packed-geno header carries for its sample
// and variant sidecars: per ID a base-23 rolling byte hash, folded across IDs
// with multiply-by-17 and xor, rendered as 8 hex digits.
func IDHash(ids []string) string {
	var h uint32
	for _, id := range ids {
		var one uint32
		for i := 0; i < len(id); i++ {
			if id[i] == 0 {
				break
			}
			one = one*23 + uint32(id[i])
		}
		h = h*17 ^ one
	}
	return fmt.Sprintf("%08x", h)
}
