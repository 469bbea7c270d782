// Package diversity computes nucleotide diversity (π) from a sample's base counts.
package diversity

import "github.com/inodb/vibe-mv/internal/pileup"

// Alleles is the column order of a Row's counts.
var Alleles = [4]string{"A", "C", "T", "G"}

// Row is the allele count vector at one genome position.
type Row struct {
	Position int
	Counts   [4]int
}

// Matrix is an ordered list of rows. Filtering drops rows but never renumbers them.
type Matrix []Row

// BuildMatrix converts a table into allele count rows. Bases outside Alleles
// are ignored. When minCoverage is positive, positions whose total depth over
// all bases is below it are dropped. The second return is false when no row
// remains.
func BuildMatrix(table pileup.Table, minCoverage int) (Matrix, bool) {
	m := make(Matrix, 0, len(table))
	for pos, c := range table {
		if minCoverage > 0 && c.Total() < minCoverage {
			continue
		}
		var row Row
		row.Position = pos
		for i, a := range Alleles {
			row.Counts[i] = c[a]
		}
		m = append(m, row)
	}
	if len(m) == 0 {
		return nil, false
	}
	return m, true
}

// MeanPairwiseDifference is the probability that two reads drawn without
// replacement at this row carry different alleles. Rows with fewer than two
// reads yield 0.
func (r Row) MeanPairwiseDifference() float64 {
	an := 0
	same := 0
	for _, c := range r.Counts {
		an += c
		same += c * (c - 1) / 2
	}
	pairs := an * (an - 1) / 2
	if pairs == 0 {
		return 0
	}
	return float64(pairs-same) / float64(pairs)
}
