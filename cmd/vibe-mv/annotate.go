package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-mv/internal/annotate"
	"github.com/inodb/vibe-mv/internal/batch"
	"github.com/inodb/vibe-mv/internal/output"
	"github.com/inodb/vibe-mv/internal/variant"
)

func newAnnotateCmd(g *globals) *cobra.Command {
	var (
		flags  runFlags
		virus  string
		record string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "annotate --virus <virus> (<position> <base> | --record <file>)",
		Short: "Classify substitutions by their effect on the encoded protein",
		Long: `Classify a single substitution, or every minor allele of a sample, as
synonymous, non-synonymous, non-coding or in an ambiguous reading frame.
Positions are 0-based genome offsets. Reference genomes are read from the
genomes directory; fetch them once with "vibe-mv download".`,
		Example: `  vibe-mv annotate --virus SARS2 23402 G
  vibe-mv annotate --virus SARS2 --record sample.json.zst`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if virus == "" {
				return fmt.Errorf("--virus is required")
			}
			if record == "" && len(args) != 2 {
				return fmt.Errorf("expected <position> <base> or --record")
			}
			if record != "" && len(args) != 0 {
				return fmt.Errorf("<position> <base> and --record are mutually exclusive")
			}

			reg, err := loadRegistry(g.logger)
			if err != nil {
				return err
			}
			a := annotate.NewAnnotator(reg)
			a.SetLogger(g.logger)

			if record == "" {
				pos, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid position %q: %w", args[0], err)
				}
				c, err := a.IsNonSynonymous(pos, args[1], virus)
				if err != nil {
					return err
				}
				return writeReport(out, cmd.OutOrStdout(), func(w io.Writer) error {
					cw := output.NewClassificationWriter(w)
					if err := cw.WriteHeader(); err != nil {
						return err
					}
					if err := cw.Write(c); err != nil {
						return err
					}
					return cw.Flush()
				})
			}

			params, err := flags.params()
			if err != nil {
				return err
			}
			runner := batch.NewRunner(newProvider(g.logger), params)
			p, err := variant.New(cmd.Context(), runner.SourceFor(record))
			if err != nil {
				return err
			}
			calls, err := a.AnnotateProfile(p, virus, viper.GetInt(keyMinCoverage), viper.GetFloat64(keyMinFrequency))
			if err != nil {
				return err
			}
			return writeReport(out, cmd.OutOrStdout(), func(w io.Writer) error {
				cw := output.NewClassificationWriter(w)
				if err := cw.WriteHeader(); err != nil {
					return err
				}
				for _, c := range calls {
					if err := cw.WriteCall(p.Name(), c); err != nil {
						return err
					}
				}
				return cw.Flush()
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&virus, "virus", "", "Virus: SARS2, WNV, YFV")
	cmd.Flags().StringVar(&record, "record", "", "Classify the minor variants of this record or alignment")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default: stdout)")

	return cmd
}
