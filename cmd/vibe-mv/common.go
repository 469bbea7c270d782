package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-mv/internal/genome"
	"github.com/inodb/vibe-mv/internal/pileup"
	"github.com/inodb/vibe-mv/internal/variant"
)

// runFlags are the pileup filters shared by every command that accepts
// alignment input.
type runFlags struct {
	tech              string
	minBaseQuality    int
	minMappingQuality int
	reference         string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.tech, "sequencingTech", "", "Sequencing technology: Unknown, MiSeq, NextSeq, NovaSeq")
	cmd.Flags().IntVar(&f.minBaseQuality, "minBaseQuality", 0, "Minimum phred base quality")
	cmd.Flags().IntVar(&f.minMappingQuality, "minMappingQuality", 0, "Minimum read mapping quality")
	cmd.Flags().StringVar(&f.reference, "reference", "", "Reference name, required when the alignment has several")
}

func (f *runFlags) params() (variant.RunParameters, error) {
	tech, err := variant.ParseSequencingTech(f.tech)
	if err != nil {
		return variant.RunParameters{}, err
	}
	p := variant.RunParameters{
		MinBaseQuality:    f.minBaseQuality,
		MinMappingQuality: f.minMappingQuality,
		SequencingTech:    tech,
		ReferenceID:       f.reference,
	}
	return p, p.Validate()
}

func newProvider(logger *zap.Logger) *pileup.AlignmentProvider {
	p := pileup.NewAlignmentProvider()
	p.SetLogger(logger)
	return p
}

// loadRegistry loads the reference genomes found under genomes.dir, with
// genomes.<virus> overriding the path of a single virus.
func loadRegistry(logger *zap.Logger) (*genome.Registry, error) {
	reg := genome.NewRegistry()
	paths := make(map[string]string)
	for _, v := range reg.Viruses() {
		if p := viper.GetString("genomes." + strings.ToLower(v)); p != "" {
			paths[v] = p
		}
	}

	loader := genome.NewLoader()
	loader.SetLogger(logger)
	if err := loader.LoadRegistry(reg, viper.GetString(keyGenomesDir), paths); err != nil {
		return nil, err
	}
	return reg, nil
}

// createOutput opens path for writing, or returns w when path is empty.
func createOutput(path string, w io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return w, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// bindFlags binds config keys to the named flags of cmd. Binding happens when
// cmd runs, since several commands share a key.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, name := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("binding %s: %w", name, err)
		}
	}
	return nil
}
