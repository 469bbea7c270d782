package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-mv/internal/duckdb"
	"github.com/inodb/vibe-mv/internal/output"
)

func newQueryCmd() *cobra.Command {
	var gene string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Read results stored by stats --db",
		Long: `List the stored sample summaries, or with --gene the non-synonymous minor
variants of every stored sample that fall in that gene.`,
		Example: `  vibe-mv query --db stats.duckdb
  vibe-mv query --db stats.duckdb --gene S`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{keyDBPath: "db"})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := viper.GetString(keyDBPath)
			if dbPath == "" {
				return fmt.Errorf("--db or db.path is required")
			}
			store, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if gene == "" {
				rows, err := store.Samples()
				if err != nil {
					return err
				}
				sw := output.NewSummaryWriter(cmd.OutOrStdout())
				if err := sw.WriteHeader(); err != nil {
					return err
				}
				for _, r := range rows {
					if err := sw.Write(output.SummaryRow{Summary: r.Summary, Pi: r.Pi, HasPi: r.HasPi}); err != nil {
						return err
					}
				}
				return sw.Flush()
			}

			bySample, err := store.SearchByGene(gene)
			if err != nil {
				return err
			}
			samples := make([]string, 0, len(bySample))
			for s := range bySample {
				samples = append(samples, s)
			}
			sort.Strings(samples)

			cw := output.NewClassificationWriter(cmd.OutOrStdout())
			if err := cw.WriteHeader(); err != nil {
				return err
			}
			for _, s := range samples {
				for _, c := range bySample[s] {
					if err := cw.WriteCall(s, c); err != nil {
						return err
					}
				}
			}
			return cw.Flush()
		},
	}

	cmd.Flags().StringVar(&gene, "gene", "", "Only list non-synonymous minor variants in this gene")
	cmd.Flags().String("db", "", "DuckDB file written by stats --db")

	return cmd
}
