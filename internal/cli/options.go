// internal/cli/options.go
package cli

import (
	"errors"
	"flag"
	"fmt"

	"pmr/internal/version"
)

// Options holds all CLI flags and arguments.
type Options struct {
	// Input
	Prefix      string
	VariantSpec string // 1-based singletons/ranges, e.g. "1-5000,10000"
	PairsCSV    string // sample CSV: one ID column, or two columns of pairs

	// Filtering
	MinCoverage int // 0 disables the coverage pre-pass

	// Performance
	Threads int // 0 = auto (sample-count cutoff), 1 = sequential

	// Output
	OutputDir string // "" = timestamped default
	NoPlot    bool

	Quiet   bool
	Version bool
}

// NewFlagSet returns a configured FlagSet with custom usage/help.
func NewFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			`%s: pairwise mismatch rates from genotype matrices

Reads one EIGENSTRAT (.geno/.ind/.snp, packed, transposed or text) or PLINK
(.bed/.bim/.fam) file set and writes per-pair mismatch/overlap tables, a
counts archive, and a rate histogram.

License: MIT
Version: %s

Usage of %s:
`, name, version.Version, name)
		fs.PrintDefaults()
	}
	return fs
}

// Parse is the top-level call for CLI parsing.
func Parse() (Options, error) { return ParseArgs(flag.CommandLine, nil) }

// ParseArgs registers and parses all flags, returns an Options struct.
func ParseArgs(fs *flag.FlagSet, argv []string) (Options, error) {
	var opt Options
	var help bool

	// Input
	fs.StringVar(&opt.Prefix, "prefix", "", "input file prefix [*]")
	fs.StringVar(&opt.VariantSpec, "variant-indices", "", `1-based, inclusive variant index range(s), e.g. "1-5000,10000-20000" [all]`)
	fs.StringVar(&opt.PairsCSV, "sample-pairs", "", "CSV of sample IDs (one column = all pairs among them; two columns = explicit pairs) [all]")

	// Filtering
	fs.IntVar(&opt.MinCoverage, "min-coverage", 0, "exclude samples with at most this many covered sites (0 = off) [0]")

	// Performance
	fs.IntVar(&opt.Threads, "threads", 0, "worker threads (0 = auto by sample count, 1 = sequential) [0]")

	// Output
	fs.StringVar(&opt.OutputDir, "output-directory", "", "output directory [pmr_output_<timestamp>]")
	fs.BoolVar(&opt.NoPlot, "no-plot", false, "skip the mismatch-rate histogram [false]")

	fs.BoolVar(&opt.Quiet, "quiet", false, "suppress progress and log output [false]")
	fs.BoolVar(&opt.Version, "v", false, "print version and exit (shorthand) [false]")
	fs.BoolVar(&opt.Version, "version", false, "print version and exit [false]")
	fs.BoolVar(&help, "h", false, "show this help message (shorthand) [false]")

	if err := fs.Parse(argv); err != nil {
		return opt, err
	}
	if help {
		fs.Usage()
		return opt, flag.ErrHelp
	}
	if opt.Version {
		return opt, nil
	}

	// Validation
	if opt.Prefix == "" {
		return opt, errors.New("-prefix is required")
	}
	if opt.MinCoverage < 0 {
		return opt, errors.New("-min-coverage must be >= 0")
	}
	if opt.Threads < 0 {
		return opt, errors.New("-threads must be >= 0")
	}
	return opt, nil
}
