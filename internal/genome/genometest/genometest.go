// Package genometest builds synthetic reference genomes for tests.
package genometest

import (
	"strings"

	"github.com/inodb/vibe-mv/internal/genome"
)

// Filler is repeated to build synthetic sequences.
const Filler = "GCTA"

// Sequence returns a sequence of layout.Length filler bases with each patch
// written at its offset.
func Sequence(layout genome.Layout, patches map[int]string) string {
	b := []byte(strings.Repeat(Filler, layout.Length/len(Filler)+1)[:layout.Length])
	for off, s := range patches {
		copy(b[off:], s)
	}
	return string(b)
}

// StartPatches puts a start codon at the beginning of every gene, plus the
// real SARS-CoV-2 ORF1a start ATGGAGAGC.
func StartPatches(layout genome.Layout) map[int]string {
	patches := make(map[int]string, len(layout.Genes))
	for _, g := range layout.Genes {
		patches[g.Start] = "ATG"
	}
	if layout.Virus == genome.SARS2 {
		patches[265] = "ATGGAGAGC"
	}
	return patches
}

// Registry returns a registry with synthetic sequences loaded for every
// built-in virus.
func Registry() *genome.Registry {
	reg := genome.NewRegistry()
	for _, l := range genome.BuiltinLayouts() {
		d, err := genome.NewDescriptor(l, Sequence(l, StartPatches(l)))
		if err != nil {
			panic(err)
		}
		if err := reg.Register(d); err != nil {
			panic(err)
		}
	}
	return reg
}
