package variant

import (
	"math"

	"github.com/inodb/vibe-mv/internal/pileup"
)

// PositionStat is the per-position view of a profile.
type PositionStat struct {
	Position       int
	Coverage       int
	MaxFrequency   float64
	MinorFrequency float64 // second-highest base frequency
	Entropy        float64 // base-2 Shannon entropy over all observed bases
	MinorVariant   bool
}

// Summary holds the whole-sample statistics. Means over zero data points are
// reported through the Has* flags instead of NaN.
type Summary struct {
	Name            string
	Length          int
	MeanCoverage    float64
	HasMeanCoverage bool
	Richness        int
	Complexity      float64
	HasComplexity   bool
	Distance        float64
}

// MeanCoverage returns the mean read depth over all positions.
func (p *Profile) MeanCoverage() (float64, error) {
	if len(p.coverage) == 0 {
		return 0, &EmptyProfileError{Statistic: "mean coverage"}
	}
	sum := 0
	for _, c := range p.coverage {
		sum += c
	}
	return float64(sum) / float64(len(p.coverage)), nil
}

// Richness returns the number of minor-variant positions.
func (p *Profile) Richness(minCoverage int, minFrequency float64) int {
	n := 0
	for _, c := range p.table {
		if IsMinorVariant(c, minCoverage, minFrequency) {
			n++
		}
	}
	return n
}

// Complexity returns the mean Shannon entropy over minor-variant positions.
func (p *Profile) Complexity(minCoverage int, minFrequency float64) (float64, error) {
	sum := 0.0
	n := 0
	for _, c := range p.table {
		if IsMinorVariant(c, minCoverage, minFrequency) {
			sum += Entropy(c)
			n++
		}
	}
	if n == 0 {
		return 0, &EmptyProfileError{Statistic: "complexity"}
	}
	return sum / float64(n), nil
}

// Distance returns the sum of the second-highest base frequency over
// minor-variant positions.
func (p *Profile) Distance(minCoverage int, minFrequency float64) float64 {
	d := 0.0
	for _, c := range p.table {
		if IsMinorVariant(c, minCoverage, minFrequency) {
			d += MinorFrequency(c)
		}
	}
	return d
}

// PositionStats returns the per-position view for every position.
func (p *Profile) PositionStats(minCoverage int, minFrequency float64) []PositionStat {
	stats := make([]PositionStat, len(p.table))
	for i, c := range p.table {
		stats[i] = PositionStat{
			Position:       i,
			Coverage:       p.coverage[i],
			MaxFrequency:   p.maxFreq[i],
			MinorFrequency: MinorFrequency(c),
			Entropy:        Entropy(c),
			MinorVariant:   IsMinorVariant(c, minCoverage, minFrequency),
		}
	}
	return stats
}

// Summarize computes all whole-sample statistics.
func (p *Profile) Summarize(minCoverage int, minFrequency float64) Summary {
	s := Summary{
		Name:     p.name,
		Length:   p.Len(),
		Richness: p.Richness(minCoverage, minFrequency),
		Distance: p.Distance(minCoverage, minFrequency),
	}
	if mean, err := p.MeanCoverage(); err == nil {
		s.MeanCoverage, s.HasMeanCoverage = mean, true
	}
	if cx, err := p.Complexity(minCoverage, minFrequency); err == nil {
		s.Complexity, s.HasComplexity = cx, true
	}
	return s
}

// Entropy returns -Σ f·log2(f) over the observed bases at a position.
func Entropy(c pileup.BaseCounts) float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	h := 0.0
	for _, n := range c {
		if n == 0 {
			continue
		}
		f := float64(n) / float64(total)
		h -= f * math.Log2(f)
	}
	return h
}

// MinorFrequency returns the frequency of the second most common base, or 0.
func MinorFrequency(c pileup.BaseCounts) float64 {
	sorted := c.Sorted()
	if len(sorted) < 2 {
		return 0
	}
	return float64(sorted[1]) / float64(c.Total())
}
