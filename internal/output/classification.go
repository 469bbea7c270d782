package output

import (
	"io"
	"strconv"

	"github.com/inodb/vibe-mv/internal/annotate"
)

// ClassificationWriter writes substitution classifications in tab-delimited
// format. Sample columns are filled only for calls from AnnotateProfile.
type ClassificationWriter struct {
	*tabWriter
}

// NewClassificationWriter creates a new classification writer.
func NewClassificationWriter(w io.Writer) *ClassificationWriter {
	return &ClassificationWriter{newTabWriter(w, []string{
		"#Sample",
		"Virus",
		"Position",
		"Allele",
		"Dominant",
		"Frequency",
		"Coverage",
		"Gene",
		"Consequence",
		"Codons",
		"Amino_acids",
		"Codon_position",
		"Non_synonymous",
		"IMPACT",
	})}
}

// Write writes a single classification with no sample context.
func (cw *ClassificationWriter) Write(c annotate.Classification) error {
	return cw.write("", annotate.VariantCall{Classification: c}, false)
}

// WriteCall writes a classified minor allele of sample.
func (cw *ClassificationWriter) WriteCall(sample string, call annotate.VariantCall) error {
	return cw.write(sample, call, true)
}

func (cw *ClassificationWriter) write(sample string, call annotate.VariantCall, withSample bool) error {
	c := call.Classification

	// Synonymous coding changes report "false" for both amino acids.
	aminoAcids := "false/false"
	if c.OldAA != "" || c.NewAA != "" {
		aminoAcids = c.OldAA + "/" + c.NewAA
	}

	codonPos := "-"
	if c.Kind != annotate.AmbiguousFrame {
		codonPos = strconv.Itoa(c.CodonPosition)
	}

	nonSyn := "NO"
	if c.NonSynonymous {
		nonSyn = "YES"
	}

	frequency, coverage := "-", "-"
	if withSample {
		frequency = formatFloat(call.Frequency, true)
		coverage = strconv.Itoa(call.Coverage)
	}

	return cw.writeRow([]string{
		orDash(sample),
		c.Virus,
		strconv.Itoa(c.Position),
		c.Base,
		orDash(call.DominantBase),
		frequency,
		coverage,
		orDash(c.Gene),
		c.Consequence,
		orDash(c.CodonChange),
		aminoAcids,
		codonPos,
		nonSyn,
		c.Impact,
	})
}
