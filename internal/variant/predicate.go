// Package variant computes minor-variant statistics for one sequencing sample.
package variant

import "github.com/inodb/vibe-mv/internal/pileup"

// Default thresholds for the whole-sample statistics.
const (
	DefaultMinCoverage  = 50
	DefaultMinFrequency = 0.3
)

// IsMinorVariant reports whether at least two bases at a position each occur
// with a frequency above minFrequency, given at least minDepth reads.
// Positions without reads, below minDepth, or with a single observed base
// are never minor variants.
func IsMinorVariant(counts pileup.BaseCounts, minDepth int, minFrequency float64) bool {
	total := counts.Total()
	if total == 0 || total < minDepth {
		return false
	}
	if counts.Distinct() == 1 {
		return false
	}

	above := 0
	for _, n := range counts {
		if float64(n)/float64(total) > minFrequency {
			above++
		}
	}
	return above >= 2
}
