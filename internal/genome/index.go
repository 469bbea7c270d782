package genome

import "sort"

// geneIndex answers point queries with a sorted-slice interval search.
// Genes are indexed once and never modified.
type geneIndex struct {
	intervals []interval
	maxEnd    []int // maxEnd[i] = max(end) for intervals[:i+1]
}

type interval struct {
	gene  Gene
	order int // position in the layout's declaration
}

func buildGeneIndex(genes []Gene) *geneIndex {
	if len(genes) == 0 {
		return &geneIndex{}
	}

	intervals := make([]interval, len(genes))
	for i, g := range genes {
		intervals[i] = interval{gene: g, order: i}
	}
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].gene.Start < intervals[j].gene.Start
	})

	// Prefix max: an interval starting before pos can only contain pos if
	// some interval up to it ends after pos.
	maxEnd := make([]int, len(intervals))
	maxEnd[0] = intervals[0].gene.End
	for i := 1; i < len(intervals); i++ {
		maxEnd[i] = max(maxEnd[i-1], intervals[i].gene.End)
	}

	return &geneIndex{intervals: intervals, maxEnd: maxEnd}
}

// overlaps returns every gene containing pos, in declaration order.
func (x *geneIndex) overlaps(pos int) []interval {
	// First index with start > pos; candidates are [0, hi).
	hi := sort.Search(len(x.intervals), func(i int) bool {
		return x.intervals[i].gene.Start > pos
	})

	var result []interval
	for i := hi - 1; i >= 0; i-- {
		if x.maxEnd[i] <= pos {
			break
		}
		if x.intervals[i].gene.Contains(pos) {
			result = append(result, x.intervals[i])
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].order < result[j].order })
	return result
}

func (x *geneIndex) first(pos int) (Gene, bool) {
	hits := x.overlaps(pos)
	if len(hits) == 0 {
		return Gene{}, false
	}
	return hits[0].gene, true
}
