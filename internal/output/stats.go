package output

import (
	"io"
	"strconv"

	"github.com/inodb/vibe-mv/internal/variant"
)

// SummaryRow is one sample's statistics with its windowed nucleotide diversity.
type SummaryRow struct {
	variant.Summary
	Pi    float64
	HasPi bool
}

// SummaryWriter writes one line per sample.
type SummaryWriter struct {
	*tabWriter
}

// NewSummaryWriter creates a new sample summary writer.
func NewSummaryWriter(w io.Writer) *SummaryWriter {
	return &SummaryWriter{newTabWriter(w, []string{
		"#Sample",
		"Length",
		"Mean_coverage",
		"Richness",
		"Complexity",
		"Distance",
		"Pi",
	})}
}

// Write writes a single sample summary. Undefined values are written as "-".
func (sw *SummaryWriter) Write(r SummaryRow) error {
	return sw.writeRow([]string{
		orDash(r.Name),
		strconv.Itoa(r.Length),
		formatFloat(r.MeanCoverage, r.HasMeanCoverage),
		strconv.Itoa(r.Richness),
		formatFloat(r.Complexity, r.HasComplexity),
		formatFloat(r.Distance, true),
		formatFloat(r.Pi, r.HasPi),
	})
}

// PositionWriter writes one line per sample position.
type PositionWriter struct {
	*tabWriter
}

// NewPositionWriter creates a new per-position statistics writer.
func NewPositionWriter(w io.Writer) *PositionWriter {
	return &PositionWriter{newTabWriter(w, []string{
		"#Sample",
		"Position",
		"Coverage",
		"Max_frequency",
		"Minor_frequency",
		"Entropy",
		"Minor_variant",
	})}
}

// Write writes the statistics of one position. Positions are 0-based.
func (pw *PositionWriter) Write(sample string, st variant.PositionStat) error {
	minor := "NO"
	if st.MinorVariant {
		minor = "YES"
	}
	return pw.writeRow([]string{
		orDash(sample),
		strconv.Itoa(st.Position),
		strconv.Itoa(st.Coverage),
		formatFloat(st.MaxFrequency, true),
		formatFloat(st.MinorFrequency, true),
		formatFloat(st.Entropy, true),
		minor,
	})
}
