// Package pileup converts reference-aligned reads into per-position base counts.
package pileup

import "sort"

// Deletion is the base key used for reads that span a deletion or reference skip.
const Deletion = "-"

// StandardBases are the nucleotides zero-filled at uncovered positions.
var StandardBases = []string{"A", "C", "G", "T"}

// BaseCounts is the multiset of bases observed at one reference position.
type BaseCounts map[string]int

// Total returns the read depth at the position.
func (c BaseCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Distinct returns the number of bases observed at least once.
func (c BaseCounts) Distinct() int {
	n := 0
	for _, count := range c {
		if count > 0 {
			n++
		}
	}
	return n
}

// Max returns the count of the most common base.
func (c BaseCounts) Max() int {
	max := 0
	for _, n := range c {
		if n > max {
			max = n
		}
	}
	return max
}

// Sorted returns the non-zero counts in descending order.
func (c BaseCounts) Sorted() []int {
	counts := make([]int, 0, len(c))
	for _, n := range c {
		if n > 0 {
			counts = append(counts, n)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))
	return counts
}

// Table maps each 0-based reference position to its base counts.
// It is dense: index i holds position i, and its length is the reference length.
// A Table is never modified after it has been built.
type Table []BaseCounts

// NewTable returns a table of the given length with every position zero-filled.
func NewTable(length int) Table {
	t := make(Table, length)
	for i := range t {
		t[i] = zeroCounts()
	}
	return t
}

// Coverage returns the read depth at every position.
func (t Table) Coverage() []int {
	cov := make([]int, len(t))
	for i, c := range t {
		cov[i] = c.Total()
	}
	return cov
}

func zeroCounts() BaseCounts {
	c := make(BaseCounts, len(StandardBases))
	for _, b := range StandardBases {
		c[b] = 0
	}
	return c
}
