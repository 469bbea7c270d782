package pileup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceReader serves records from memory.
type sliceReader struct {
	header  *sam.Header
	records []*sam.Record
	next    int
}

func (r *sliceReader) Header() *sam.Header { return r.header }

func (r *sliceReader) Read() (*sam.Record, error) {
	if r.next >= len(r.records) {
		return nil, io.EOF
	}
	rec := r.records[r.next]
	r.next++
	return rec, nil
}

func newRef(t *testing.T, name string, length int) *sam.Reference {
	t.Helper()
	ref, err := sam.NewReference(name, "", "", length, nil, nil)
	require.NoError(t, err)
	return ref
}

func newHeader(t *testing.T, refs ...*sam.Reference) *sam.Header {
	t.Helper()
	h, err := sam.NewHeader(nil, refs)
	require.NoError(t, err)
	return h
}

func quals(n int, q byte) []byte {
	return bytes.Repeat([]byte{q}, n)
}

func newRecord(t *testing.T, name string, ref *sam.Reference, pos int, mapq byte, cigar []sam.CigarOp, seq string, qual []byte) *sam.Record {
	t.Helper()
	rec, err := sam.NewRecord(name, ref, nil, pos, -1, 0, mapq, cigar, []byte(seq), qual, nil)
	require.NoError(t, err)
	return rec
}

func match(n int) sam.CigarOp { return sam.NewCigarOp(sam.CigarMatch, n) }

func TestSelectReference(t *testing.T) {
	one := newHeader(t, newRef(t, "MN908947.3", 100))
	two := newHeader(t, newRef(t, "refA", 10), newRef(t, "refB", 20))

	ref, err := SelectReference(one, "", "x.bam")
	require.NoError(t, err)
	assert.Equal(t, "MN908947.3", ref.Name())

	ref, err = SelectReference(two, "refB", "x.bam")
	require.NoError(t, err)
	assert.Equal(t, 20, ref.Len())

	_, err = SelectReference(two, "", "x.bam")
	var ambiguous *AmbiguousReferenceError
	require.True(t, errors.As(err, &ambiguous))
	assert.Equal(t, []string{"refA", "refB"}, ambiguous.References)
	assert.Contains(t, err.Error(), "2 references")

	_, err = SelectReference(two, "refC", "x.bam")
	var unknown *UnknownReferenceError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "refC", unknown.Reference)
}

func TestPileupReader_CountsAndZeroFill(t *testing.T) {
	ref := newRef(t, "ref", 10)
	rr := &sliceReader{
		header: newHeader(t, ref),
		records: []*sam.Record{
			newRecord(t, "r1", ref, 0, 60, []sam.CigarOp{match(4)}, "ACGT", quals(4, 30)),
			newRecord(t, "r2", ref, 1, 60, []sam.CigarOp{match(3)}, "CGA", quals(3, 30)),
		},
	}

	res, err := NewAlignmentProvider().PileupReader(context.Background(), rr, Request{Path: "mem"})
	require.NoError(t, err)

	assert.Equal(t, "ref", res.Reference)
	require.Len(t, res.Table, 10)
	assert.Equal(t, BaseCounts{"A": 1}, res.Table[0])
	assert.Equal(t, BaseCounts{"C": 2}, res.Table[1])
	assert.Equal(t, BaseCounts{"G": 2}, res.Table[2])
	assert.Equal(t, BaseCounts{"T": 1, "A": 1}, res.Table[3])

	// Uncovered positions carry all four standard bases at zero.
	for pos := 4; pos < 10; pos++ {
		assert.Equal(t, BaseCounts{"A": 0, "C": 0, "G": 0, "T": 0}, res.Table[pos], "position %d", pos)
	}
	assert.Equal(t, []int{1, 2, 2, 2, 0, 0, 0, 0, 0, 0}, res.Table.Coverage())
}

func TestPileupReader_DeletionAndSkip(t *testing.T) {
	ref := newRef(t, "ref", 12)
	cigar := []sam.CigarOp{
		match(2),
		sam.NewCigarOp(sam.CigarDeletion, 1),
		match(2),
		sam.NewCigarOp(sam.CigarSkipped, 2),
		match(1),
	}
	// Insertions and soft clips consume query bases only.
	clipped := []sam.CigarOp{
		sam.NewCigarOp(sam.CigarSoftClipped, 2),
		match(2),
		sam.NewCigarOp(sam.CigarInsertion, 1),
		match(1),
	}
	rr := &sliceReader{
		header: newHeader(t, ref),
		records: []*sam.Record{
			newRecord(t, "del", ref, 0, 60, cigar, "AACCG", quals(5, 30)),
			newRecord(t, "clip", ref, 8, 60, clipped, "NNTTGA", quals(6, 30)),
		},
	}

	res, err := NewAlignmentProvider().PileupReader(context.Background(), rr, Request{Path: "mem"})
	require.NoError(t, err)

	assert.Equal(t, BaseCounts{"-": 1}, res.Table[2])
	assert.Equal(t, BaseCounts{"C": 1}, res.Table[3])
	assert.Equal(t, BaseCounts{"-": 1}, res.Table[5])
	assert.Equal(t, BaseCounts{"-": 1}, res.Table[6])
	assert.Equal(t, BaseCounts{"G": 1}, res.Table[7])
	assert.Equal(t, BaseCounts{"T": 1}, res.Table[8])
	assert.Equal(t, BaseCounts{"T": 1}, res.Table[9])
	assert.Equal(t, BaseCounts{"A": 1}, res.Table[10])
}

func TestPileupReader_QualityFilters(t *testing.T) {
	ref := newRef(t, "ref", 4)
	header := newHeader(t, ref)
	lowBase := quals(4, 30)
	lowBase[1] = 5

	dup := newRecord(t, "dup", ref, 0, 60, []sam.CigarOp{match(4)}, "GGGG", quals(4, 30))
	dup.Flags |= sam.Duplicate

	rr := &sliceReader{
		header: header,
		records: []*sam.Record{
			newRecord(t, "ok", ref, 0, 60, []sam.CigarOp{match(4)}, "ACGT", lowBase),
			newRecord(t, "lowmapq", ref, 0, 3, []sam.CigarOp{match(4)}, "TTTT", quals(4, 30)),
			dup,
		},
	}

	req := Request{Path: "mem", MinBaseQuality: 20, MinMappingQuality: 10}
	res, err := NewAlignmentProvider().PileupReader(context.Background(), rr, req)
	require.NoError(t, err)

	assert.Equal(t, BaseCounts{"A": 1}, res.Table[0])
	// The only base at position 1 was below the base quality cutoff.
	assert.Equal(t, 0, res.Table[1].Total())
	assert.Equal(t, BaseCounts{"G": 1}, res.Table[2])
	assert.Equal(t, BaseCounts{"T": 1}, res.Table[3])
}

func TestPileupReader_OtherReferenceIgnored(t *testing.T) {
	refA := newRef(t, "refA", 3)
	refB := newRef(t, "refB", 3)
	rr := &sliceReader{
		header: newHeader(t, refA, refB),
		records: []*sam.Record{
			newRecord(t, "a", refA, 0, 60, []sam.CigarOp{match(3)}, "AAA", quals(3, 30)),
			newRecord(t, "b", refB, 0, 60, []sam.CigarOp{match(3)}, "CCC", quals(3, 30)),
		},
	}

	res, err := NewAlignmentProvider().PileupReader(context.Background(), rr, Request{Path: "mem", ReferenceID: "refB"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1}, res.Table.Coverage())
	assert.Equal(t, BaseCounts{"C": 1}, res.Table[0])
}

func TestPileupReader_Cancelled(t *testing.T) {
	ref := newRef(t, "ref", 4)
	rr := &sliceReader{header: newHeader(t, ref)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAlignmentProvider().PileupReader(ctx, rr, Request{Path: "mem"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPileup_SAMFile(t *testing.T) {
	samText := "@HD\tVN:1.6\tSO:coordinate\n" +
		"@SQ\tSN:ref\tLN:6\n" +
		"r1\t0\tref\t1\t60\t4M\t*\t0\t0\tACGT\tIIII\n" +
		"r2\t0\tref\t3\t60\t2M1D1M\t*\t0\t0\tGTA\tIII\n"
	path := filepath.Join(t.TempDir(), "sample.sam")
	require.NoError(t, os.WriteFile(path, []byte(samText), 0644))

	res, err := NewAlignmentProvider().Pileup(context.Background(), Request{Path: path})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1, 2, 2, 1, 1}, res.Table.Coverage())
	assert.Equal(t, BaseCounts{"G": 2}, res.Table[2])
	assert.Equal(t, BaseCounts{"-": 1}, res.Table[4])
	assert.Equal(t, BaseCounts{"A": 1}, res.Table[5])
}

func TestPileup_MissingFile(t *testing.T) {
	_, err := NewAlignmentProvider().Pileup(context.Background(), Request{Path: filepath.Join(t.TempDir(), "nope.bam")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
