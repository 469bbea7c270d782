package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-mv/internal/annotate"
	"github.com/inodb/vibe-mv/internal/batch"
	"github.com/inodb/vibe-mv/internal/diversity"
	"github.com/inodb/vibe-mv/internal/duckdb"
	"github.com/inodb/vibe-mv/internal/output"
	"github.com/inodb/vibe-mv/internal/variant"
)

type statsOptions struct {
	run             runFlags
	output          string
	positions       string
	calls           string
	virus           string
	piWindow        string
	minMeanCoverage float64
	refresh         bool
}

// sampleResult is everything computed for one sample.
type sampleResult struct {
	row       duckdb.SampleRow
	positions []variant.PositionStat
	calls     []annotate.VariantCall
}

func newStatsCmd(g *globals) *cobra.Command {
	var opts statsOptions

	cmd := &cobra.Command{
		Use:   "stats <input>...",
		Short: "Compute minor variant statistics for one or more samples",
		Long: `Compute mean coverage, richness, complexity, distance and nucleotide
diversity for each input. Inputs ending in .json, .json.gz or .json.zst are read
as records, all others are piled up as alignments. Samples that fail to load are
logged and skipped.`,
		Example: `  vibe-mv stats *.json.zst
  vibe-mv stats --positions positions.tsv --pi-window 21562:25384 sample.json
  vibe-mv stats --virus SARS2 --calls calls.tsv --db stats.duckdb *.bam`,
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				keyMinCoverage:  "min-coverage",
				keyMinFrequency: "min-frequency",
				keyWorkers:      "workers",
				keyDBPath:       "db",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), cmd.OutOrStdout(), g.logger, &opts, args)
		},
	}

	flags := cmd.Flags()
	opts.run.register(cmd)
	flags.StringVarP(&opts.output, "output", "o", "", "Summary output file (default: stdout)")
	flags.StringVar(&opts.positions, "positions", "", "Write per-position statistics to this file")
	flags.StringVar(&opts.calls, "calls", "", "Write classified minor variants to this file (requires --virus)")
	flags.StringVar(&opts.virus, "virus", "", "Classify minor variants against this virus: SARS2, WNV, YFV")
	flags.StringVar(&opts.piWindow, "pi-window", "", "Nucleotide diversity window as start:stop (default: whole genome)")
	flags.Float64Var(&opts.minMeanCoverage, "min-mean-coverage", 0, "Skip samples whose mean coverage is not above this")
	flags.BoolVar(&opts.refresh, "refresh", false, "Recompute samples already current in the database")
	flags.Int("min-coverage", 50, "Minimum coverage for a minor variant position")
	flags.Float64("min-frequency", 0.3, "Frequency a minor allele must exceed")
	flags.Int("workers", 0, "Number of parallel workers (default: number of CPUs)")
	flags.String("db", "", "Persist results to this DuckDB file")

	return cmd
}

// parseWindow parses "start:stop". An empty string means the whole genome.
func parseWindow(s string) (diversity.Window, bool, error) {
	if s == "" {
		return diversity.Window{}, false, nil
	}
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return diversity.Window{}, false, fmt.Errorf("invalid --pi-window %q: want start:stop", s)
	}
	start, err := strconv.Atoi(a)
	if err != nil {
		return diversity.Window{}, false, fmt.Errorf("invalid --pi-window start %q: %w", a, err)
	}
	stop, err := strconv.Atoi(b)
	if err != nil {
		return diversity.Window{}, false, fmt.Errorf("invalid --pi-window stop %q: %w", b, err)
	}
	return diversity.Offsets(start, stop), true, nil
}

func runStats(ctx context.Context, stdout io.Writer, logger *zap.Logger, opts *statsOptions, paths []string) error {
	if opts.calls != "" && opts.virus == "" {
		return fmt.Errorf("--calls requires --virus")
	}
	params, err := opts.run.params()
	if err != nil {
		return err
	}
	window, hasWindow, err := parseWindow(opts.piWindow)
	if err != nil {
		return err
	}
	if err := checkSampleNames(paths); err != nil {
		return err
	}
	minCoverage := viper.GetInt(keyMinCoverage)
	minFrequency := viper.GetFloat64(keyMinFrequency)

	var annotator *annotate.Annotator
	if opts.virus != "" {
		reg, err := loadRegistry(logger)
		if err != nil {
			return err
		}
		if _, err := reg.Lookup(opts.virus); err != nil {
			return err
		}
		annotator = annotate.NewAnnotator(reg)
		annotator.SetLogger(logger)
	}

	var store *duckdb.Store
	if dbPath := viper.GetString(keyDBPath); dbPath != "" {
		store, err = duckdb.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	fingerprints := make(map[string]duckdb.FileFingerprint, len(paths))
	results := make(map[string]*sampleResult, len(paths))
	var pending []string
	for _, path := range paths {
		fp, err := duckdb.StatFile(path)
		if err == nil {
			fingerprints[variant.SampleName(path)] = fp
		}
		// Cached rows hold whole-genome π and no calls.
		if err == nil && store != nil && !opts.refresh && !hasWindow && annotator == nil {
			res, err := cachedResult(store, path, fp, minCoverage, minFrequency, opts)
			if err != nil {
				return err
			}
			if res != nil {
				logger.Debug("using stored sample", zap.String("path", path))
				results[res.row.Summary.Name] = res
				continue
			}
		}
		pending = append(pending, path)
	}

	runner := batch.NewRunner(newProvider(logger), params)
	runner.SetWorkers(viper.GetInt(keyWorkers))
	runner.SetLogger(logger)
	profiles, skipped, err := runner.Load(ctx, pending, batch.LoadOptions{MinMeanCoverage: opts.minMeanCoverage})
	if err != nil {
		return err
	}
	if len(skipped) > 0 {
		logger.Warn("skipped samples", zap.Int("count", len(skipped)))
	}

	for _, p := range profiles {
		res, err := computeResult(p, window, hasWindow, minCoverage, minFrequency, annotator, opts.virus)
		if err != nil {
			return err
		}
		res.row.Source = fingerprints[p.Name()]
		if store != nil {
			if err := storeResult(store, res); err != nil {
				return err
			}
		}
		results[p.Name()] = res
	}

	return writeStats(stdout, opts, paths, results)
}

// checkSampleNames rejects inputs that map to the same sample name. Results,
// reports and stored rows are all keyed by sample.
func checkSampleNames(paths []string) error {
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		name := variant.SampleName(path)
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("inputs %s and %s are both sample %q", prev, path, name)
		}
		seen[name] = path
	}
	return nil
}

// cachedResult returns the stored result for path when the database holds a
// current row computed with the same thresholds.
func cachedResult(store *duckdb.Store, path string, fp duckdb.FileFingerprint, minCoverage int, minFrequency float64, opts *statsOptions) (*sampleResult, error) {
	sample := variant.SampleName(path)
	current, err := store.IsCurrent(sample, fp)
	if err != nil || !current {
		return nil, err
	}
	row, err := store.LookupSample(sample)
	if err != nil || row == nil {
		return nil, err
	}
	if row.MinCoverage != minCoverage || row.MinFrequency != minFrequency {
		return nil, nil
	}
	if opts.minMeanCoverage > 0 && (!row.Summary.HasMeanCoverage || row.Summary.MeanCoverage <= opts.minMeanCoverage) {
		return nil, nil
	}

	res := &sampleResult{row: *row}
	if opts.positions != "" {
		if res.positions, err = store.PositionStats(sample, false); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func computeResult(p *variant.Profile, window diversity.Window, hasWindow bool, minCoverage int, minFrequency float64, annotator *annotate.Annotator, virus string) (*sampleResult, error) {
	params, _ := p.Params()
	res := &sampleResult{
		row: duckdb.SampleRow{
			Summary:      p.Summarize(minCoverage, minFrequency),
			Params:       params,
			MinCoverage:  minCoverage,
			MinFrequency: minFrequency,
		},
		positions: p.PositionStats(minCoverage, minFrequency),
	}

	if !hasWindow {
		window = diversity.Offsets(0, p.Len())
	}
	if hasWindow || p.Len() > 0 {
		pi, err := diversity.NucleotideDiversity(p.Table(), window, minCoverage)
		if err != nil {
			return nil, err
		}
		if pi != nil {
			res.row.Pi, res.row.HasPi = pi.Window, true
		}
	}

	if annotator != nil {
		calls, err := annotator.AnnotateProfile(p, virus, minCoverage, minFrequency)
		if err != nil {
			return nil, fmt.Errorf("annotate %s: %w", p.Name(), err)
		}
		res.calls = calls
	}
	return res, nil
}

func storeResult(store *duckdb.Store, res *sampleResult) error {
	name := res.row.Summary.Name
	if err := store.WriteSample(res.row); err != nil {
		return err
	}
	if err := store.WritePositionStats(name, res.positions); err != nil {
		return err
	}
	return store.WriteVariantCalls(name, res.calls)
}

func writeStats(stdout io.Writer, opts *statsOptions, paths []string, results map[string]*sampleResult) (err error) {
	var ordered []*sampleResult
	for _, path := range paths {
		if res, ok := results[variant.SampleName(path)]; ok {
			ordered = append(ordered, res)
		}
	}

	if err := writeReport(opts.output, stdout, func(w io.Writer) error {
		sw := output.NewSummaryWriter(w)
		if err := sw.WriteHeader(); err != nil {
			return err
		}
		for _, res := range ordered {
			if err := sw.Write(output.SummaryRow{Summary: res.row.Summary, Pi: res.row.Pi, HasPi: res.row.HasPi}); err != nil {
				return err
			}
		}
		return sw.Flush()
	}); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	if opts.positions != "" {
		if err := writeReport(opts.positions, stdout, func(w io.Writer) error {
			pw := output.NewPositionWriter(w)
			if err := pw.WriteHeader(); err != nil {
				return err
			}
			for _, res := range ordered {
				for _, st := range res.positions {
					if err := pw.Write(res.row.Summary.Name, st); err != nil {
						return err
					}
				}
			}
			return pw.Flush()
		}); err != nil {
			return fmt.Errorf("writing positions: %w", err)
		}
	}

	if opts.calls != "" {
		if err := writeReport(opts.calls, stdout, func(w io.Writer) error {
			cw := output.NewClassificationWriter(w)
			if err := cw.WriteHeader(); err != nil {
				return err
			}
			for _, res := range ordered {
				for _, c := range res.calls {
					if err := cw.WriteCall(res.row.Summary.Name, c); err != nil {
						return err
					}
				}
			}
			return cw.Flush()
		}); err != nil {
			return fmt.Errorf("writing calls: %w", err)
		}
	}
	return nil
}

// writeReport runs write against path, or stdout when path is empty.
func writeReport(path string, stdout io.Writer, write func(io.Writer) error) (err error) {
	w, closeFn, err := createOutput(path, stdout)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return write(w)
}
