// Package genome describes the reference genomes of the supported viruses:
// their sequence, gene coordinates and frameshift positions.
package genome

import (
	"fmt"
	"strings"
)

// Gene is a coding region over the 0-based half-open range [Start, End).
type Gene struct {
	Name  string
	Start int
	End   int
}

// Contains reports whether pos lies inside the gene.
func (g Gene) Contains(pos int) bool {
	return pos >= g.Start && pos < g.End
}

// Len returns the gene length in nucleotides.
func (g Gene) Len() int { return g.End - g.Start }

// Layout is the sequence-independent part of a genome: where the genes are.
type Layout struct {
	Virus     string
	Accession string // NCBI RefSeq accession of the reference sequence
	Length    int
	Genes     []Gene // declaration order decides overlaps
	// Frameshift positions belong to two reading frames and are reported as
	// FrameshiftGene.
	Frameshift     []int
	FrameshiftGene string
}

// Locator answers position queries against a layout. It needs no sequence.
type Locator struct {
	layout     Layout
	index      *geneIndex
	frameshift map[int]bool
}

// NewLocator indexes the genes of layout.
func NewLocator(layout Layout) *Locator {
	l := &Locator{
		layout:     layout,
		index:      buildGeneIndex(layout.Genes),
		frameshift: make(map[int]bool, len(layout.Frameshift)),
	}
	for _, p := range layout.Frameshift {
		l.frameshift[p] = true
	}
	return l
}

// Layout returns the gene layout.
func (l *Locator) Layout() Layout { return l.layout }

// IsFrameshift reports whether pos is one of the frameshift positions.
func (l *Locator) IsFrameshift(pos int) bool { return l.frameshift[pos] }

// GeneAt returns the first declared gene containing pos.
func (l *Locator) GeneAt(pos int) (Gene, bool) {
	return l.index.first(pos)
}

// GeneName returns FrameshiftGene for a frameshift position, the name of the
// gene containing pos, or UTR.
func (l *Locator) GeneName(pos int) string {
	if l.IsFrameshift(pos) {
		return l.layout.FrameshiftGene
	}
	if g, ok := l.GeneAt(pos); ok {
		return g.Name
	}
	return UTR
}

// Descriptor is a Layout bound to its nucleotide sequence. It is immutable
// and safe to share.
type Descriptor struct {
	*Locator
	sequence string
}

// NewDescriptor binds sequence to layout. The sequence is upper-cased and must
// cover every gene.
func NewDescriptor(layout Layout, sequence string) (*Descriptor, error) {
	sequence = strings.ToUpper(sequence)
	for _, g := range layout.Genes {
		if g.Start < 0 || g.End <= g.Start {
			return nil, fmt.Errorf("%s: gene %s has invalid range [%d, %d)", layout.Virus, g.Name, g.Start, g.End)
		}
		if g.End > len(sequence) {
			return nil, fmt.Errorf("%s: sequence of length %d does not cover gene %s ending at %d",
				layout.Virus, len(sequence), g.Name, g.End)
		}
	}
	return &Descriptor{Locator: NewLocator(layout), sequence: sequence}, nil
}

// Virus returns the virus identifier.
func (d *Descriptor) Virus() string { return d.layout.Virus }

// Sequence returns the full nucleotide sequence.
func (d *Descriptor) Sequence() string { return d.sequence }

// Len returns the sequence length.
func (d *Descriptor) Len() int { return len(d.sequence) }

// GeneSequence returns the nucleotides of g.
func (d *Descriptor) GeneSequence(g Gene) string {
	return d.sequence[g.Start:g.End]
}
