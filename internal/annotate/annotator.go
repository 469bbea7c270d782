package annotate

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-mv/internal/genome"
	"github.com/inodb/vibe-mv/internal/pileup"
	"github.com/inodb/vibe-mv/internal/variant"
)

// Annotator classifies substitutions against the genomes in a registry.
type Annotator struct {
	registry *genome.Registry
	logger   *zap.Logger
}

// NewAnnotator creates a new annotator over reg.
func NewAnnotator(reg *genome.Registry) *Annotator {
	return &Annotator{
		registry: reg,
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for debug messages.
func (a *Annotator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Gene returns the gene containing position, the frameshift label inside the
// frameshift region, or UTR. Only the layout is consulted, so the genome
// sequence need not be loaded.
func (a *Annotator) Gene(position int, virus string) (string, error) {
	loc, err := a.registry.Locator(virus)
	if err != nil {
		return "", err
	}
	return loc.GeneName(position), nil
}

// CodonAt returns the codon containing position before and after base is
// substituted there.
func (a *Annotator) CodonAt(position int, base, virus string) (CodonChange, error) {
	d, err := a.registry.Lookup(virus)
	if err != nil {
		return CodonChange{}, err
	}
	if !IsNucleotide(base) {
		return CodonChange{}, &InvalidBaseError{Base: base}
	}
	return codonAt(d, position, strings.ToUpper(base)), nil
}

func codonAt(d *genome.Descriptor, position int, base string) CodonChange {
	if d.IsFrameshift(position) {
		return CodonChange{Kind: AmbiguousFrame, Gene: d.Layout().FrameshiftGene}
	}
	g, ok := d.GeneAt(position)
	if !ok {
		return CodonChange{Kind: NonCoding, Gene: genome.UTR}
	}

	offset := position - g.Start
	index := offset / 3
	start := g.Start + index*3
	end := min(start+3, g.End)

	seq := d.Sequence()
	oldCodon := seq[start:end]
	newCodon := seq[start:position] + base + seq[position+1:end]

	return CodonChange{
		Kind:       Coding,
		Gene:       g.Name,
		OldCodon:   oldCodon,
		NewCodon:   newCodon,
		CodonIndex: index,
	}
}

// IsNonSynonymous classifies the substitution of base at position.
func (a *Annotator) IsNonSynonymous(position int, base, virus string) (Classification, error) {
	change, err := a.CodonAt(position, base, virus)
	if err != nil {
		return Classification{}, err
	}

	c := Classification{
		Virus:    virus,
		Position: position,
		Base:     strings.ToUpper(base),
		Gene:     change.Gene,
		Kind:     change.Kind,
	}

	switch change.Kind {
	case NonCoding:
		c.OldAA, c.NewAA = LabelNonCoding, LabelNonCoding
		c.CodonPosition = position
		c.Consequence = ConsequenceNonCoding
	case AmbiguousFrame:
		c.OldAA, c.NewAA = LabelAmbiguous, LabelAmbiguous
		c.Consequence = ConsequenceFrameshiftRegion
	case Coding:
		oldAA := TranslateCodon(change.OldCodon)
		newAA := TranslateCodon(change.NewCodon)
		if oldAA != newAA {
			c.OldAA, c.NewAA = oldAA, newAA
			c.NonSynonymous = true
		}
		c.CodonPosition = change.CodonIndex + 1
		c.CodonChange = change.String()
		c.Consequence = PredictConsequence(change.OldCodon, change.NewCodon, change.CodonIndex)
	}
	c.Impact = GetImpact(c.Consequence)

	a.logger.Debug("classified substitution",
		zap.String("virus", virus),
		zap.Int("position", position),
		zap.String("base", c.Base),
		zap.String("gene", c.Gene),
		zap.String("consequence", c.Consequence))
	return c, nil
}

// VariantCall is a classified minor allele observed in a sample.
type VariantCall struct {
	Classification
	DominantBase string
	Frequency    float64
	Coverage     int
}

// AnnotateProfile classifies every allele observed above minFrequency at each
// minor-variant position of p, other than the position's most common base.
// Deletions are not classified.
func (a *Annotator) AnnotateProfile(p *variant.Profile, virus string, minCoverage int, minFrequency float64) ([]VariantCall, error) {
	if _, err := a.registry.Lookup(virus); err != nil {
		return nil, err
	}

	var calls []VariantCall
	for pos, counts := range p.Table() {
		if !variant.IsMinorVariant(counts, minCoverage, minFrequency) {
			continue
		}
		total := counts.Total()
		dominant := dominantBase(counts)
		for _, base := range sortedBases(counts) {
			n := counts[base]
			freq := float64(n) / float64(total)
			if base == dominant || freq <= minFrequency || !IsNucleotide(base) {
				continue
			}
			c, err := a.IsNonSynonymous(pos, base, virus)
			if err != nil {
				return nil, err
			}
			calls = append(calls, VariantCall{
				Classification: c,
				DominantBase:   dominant,
				Frequency:      freq,
				Coverage:       total,
			})
		}
	}

	a.logger.Debug("annotated profile",
		zap.String("sample", p.Name()),
		zap.String("virus", virus),
		zap.Int("calls", len(calls)))
	return calls, nil
}

// dominantBase returns the most common base, breaking ties alphabetically.
func dominantBase(c pileup.BaseCounts) string {
	best, bestN := "", -1
	for _, b := range sortedBases(c) {
		if c[b] > bestN {
			best, bestN = b, c[b]
		}
	}
	return best
}

func sortedBases(c pileup.BaseCounts) []string {
	bases := make([]string, 0, len(c))
	for b := range c {
		bases = append(bases, b)
	}
	sort.Strings(bases)
	return bases
}
