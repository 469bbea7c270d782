package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-mv/internal/variant"
)

func newPileupCmd(g *globals) *cobra.Command {
	var (
		flags  runFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "pileup <alignment>",
		Short: "Count bases per position in a BAM or SAM file",
		Long: `Count the bases observed at every position of the alignment's reference and
write them as a JSON record. Files ending in .sam are read as SAM text, all
others as BAM. Output ending in .gz or .zst is compressed.`,
		Example: `  vibe-mv pileup sample.bam > sample.json
  vibe-mv pileup --minBaseQuality 30 --sequencingTech MiSeq -o sample.json.zst sample.bam`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := flags.params()
			if err != nil {
				return err
			}

			p, err := variant.New(cmd.Context(), variant.FromAlignment(args[0], newProvider(g.logger), params))
			if err != nil {
				return err
			}

			if output == "" {
				return p.Save(cmd.OutOrStdout())
			}
			if err := p.SaveFile(output); err != nil {
				return fmt.Errorf("writing record: %w", err)
			}
			g.logger.Info("wrote record",
				zap.String("sample", p.Name()),
				zap.String("path", output),
				zap.Int("length", p.Len()))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")

	return cmd
}
