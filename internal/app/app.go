// internal/app/app.go
package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/sirupsen/logrus"

	"pmr-core/counts"
	"pmr-core/genotype"
	"pmr-core/input"
	"pmr-core/restrict"
	"pmr/internal/cli"
	"pmr/internal/output"
	"pmr/internal/pairsfile"
	"pmr/internal/runutil"
	"pmr/internal/version"
	"pmr/internal/writers"
)

func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)
	defer func() { _ = outw.Flush() }()

	fs := cli.NewFlagSet("pmr")
	fs.SetOutput(io.Discard)

	if len(argv) == 0 {
		_, _ = cli.ParseArgs(fs, []string{"-h"})
		fs.SetOutput(outw)
		fs.Usage()
		if err := outw.Flush(); writers.IsBrokenPipe(err) {
			return 0
		} else if err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			return 3
		}
		return 0
	}

	opts, err := cli.ParseArgs(fs, argv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(outw)
			fs.Usage()
			if e := outw.Flush(); writers.IsBrokenPipe(e) {
				return 0
			} else if e != nil {
				_, _ = fmt.Fprintln(stderr, e)
				return 3
			}
			return 0
		}
		_, _ = fmt.Fprintln(stderr, err)
		fs.SetOutput(outw)
		fs.Usage()
		if e := outw.Flush(); writers.IsBrokenPipe(e) {
			return 0
		} else if e != nil {
			_, _ = fmt.Fprintln(stderr, e)
			return 3
		}
		return 2
	}

	if opts.Version {
		_, _ = fmt.Fprintf(outw, "pmr version %s\n", version.Version)
		if e := outw.Flush(); writers.IsBrokenPipe(e) {
			return 0
		} else if e != nil {
			_, _ = fmt.Fprintln(stderr, e)
			return 3
		}
		return 0
	}

	lg := logrus.New()
	lg.SetOutput(stderr)
	if opts.Quiet {
		lg.SetLevel(logrus.WarnLevel)
	}

	src, err := input.Resolve(opts.Prefix)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}
	lg.WithFields(logrus.Fields{"format": src.Kind, "files": src.Paths()}).Info("resolved input")

	variants, err := restrict.ParseVariantSpec(opts.VariantSpec)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}

	var pairSpec pairsfile.Spec
	var keep map[string]bool
	if opts.PairsCSV != "" {
		pairSpec, err = pairsfile.Parse(opts.PairsCSV)
		if err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			return 2
		}
		keep = make(map[string]bool, len(pairSpec.IDs))
		for _, id := range pairSpec.IDs {
			keep[id] = true
		}
	}
	rs := genotype.Restrict{Samples: keep, Variants: variants}

	var covered []uint64
	if opts.MinCoverage > 0 {
		covered, err = coveragePass(parent, src, rs, opts.Quiet, stderr, lg)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return 130
			}
			_, _ = fmt.Fprintln(stderr, err)
			return openExitCode(err)
		}
	}

	r, err := src.Open(rs)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return openExitCode(err)
	}
	defer r.Close()
	samples := r.Samples()

	explicit, err := restrict.ResolvePairs(samples, pairSpec.Pairs)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}
	pairs, err := restrict.BuildPairSet(len(samples), explicit, covered, uint64(opts.MinCoverage))
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}

	c := counts.New(samples, pairs)
	lg.WithFields(logrus.Fields{"samples": len(samples), "sites": r.NSites()}).Info("computing pairwise mismatch rates")

	var onSite func()
	if !opts.Quiet {
		bar := siteBar(r.NSites(), stderr)
		defer bar.Finish()
		onSite = func() { bar.Increment() }
	}
	if err := c.Run(ctxReader{r, parent}, opts.Threads, onSite); err != nil {
		if errors.Is(err, context.Canceled) {
			return 130
		}
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = runutil.DefaultOutputDir(time.Now())
	}
	if err := writeOutputs(dir, c, opts.NoPlot, lg); err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	lg.WithField("directory", dir).Info("done")
	return 0
}

// openExitCode classifies an error from opening the genotype stream. A sample
// list naming an ID the files do not carry is a usage error; anything else is
// a runtime failure.
func openExitCode(err error) int {
	var ue *genotype.UnknownSampleError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

// ctxReader makes a Site stream cancellable: a canceled context surfaces as
// the stream error on the next pull, which ends sequential and parallel runs
// alike.
type ctxReader struct {
	genotype.SiteReader
	ctx context.Context
}

func (r ctxReader) Next() (*genotype.Site, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, err
	}
	return r.SiteReader.Next()
}

// tickReader invokes tick after every successfully pulled Site, which is how
// the coverage pass drives its progress bar without a hook of its own.
type tickReader struct {
	genotype.SiteReader
	tick func()
}

func (r tickReader) Next() (*genotype.Site, error) {
	site, err := r.SiteReader.Next()
	if err == nil {
		r.tick()
	}
	return site, err
}

func siteBar(n int, w io.Writer) *pb.ProgressBar {
	bar := pb.New(n)
	bar.SetWriter(w)
	bar.Start()
	return bar
}

// coveragePass drains the stream once, before the pairwise run, to count
// covered sites per sample. It opens its own reader so the main pass starts
// from the beginning.
func coveragePass(ctx context.Context, src input.Spec, rs genotype.Restrict, quiet bool, stderr io.Writer, lg *logrus.Logger) ([]uint64, error) {
	r, err := src.Open(rs)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	lg.WithField("sites", r.NSites()).Info("counting per-sample coverage")

	var stream genotype.SiteReader = ctxReader{r, ctx}
	if !quiet {
		bar := siteBar(r.NSites(), stderr)
		defer bar.Finish()
		stream = tickReader{stream, func() { bar.Increment() }}
	}
	return restrict.CoverageCounts(stream)
}

func writeOutputs(dir string, c *counts.Counts, noPlot bool, lg *logrus.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "mismatch_rates.csv"), func(w io.Writer) error {
		return output.WriteRatesCSV(w, c)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "samples.json"), func(w io.Writer) error {
		return output.WriteSamplesJSON(w, c.Samples())
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "counts.npz"), func(w io.Writer) error {
		return output.WriteCountsNPZ(w, c)
	}); err != nil {
		return err
	}
	if noPlot {
		return nil
	}
	plotted, err := output.PlotRates(c, filepath.Join(dir, "mismatch_rates.png"))
	if err != nil {
		return err
	}
	if !plotted {
		lg.Warnf("no pair reaches %d overlapping sites; skipping histogram", output.MinPlotOverlap)
	}
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}
