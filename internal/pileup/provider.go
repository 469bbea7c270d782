package pileup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"go.uber.org/zap"
)

// Request describes one pileup over an alignment file.
type Request struct {
	Path              string // BAM or SAM file
	MinBaseQuality    int    // bases with a lower phred quality are not counted
	MinMappingQuality int    // reads with a lower mapping quality are skipped
	ReferenceID       string // required when the alignment has several references
}

// Result is the dense table for the selected reference.
type Result struct {
	Reference string
	Table     Table
}

// Provider produces base-count tables from alignments.
type Provider interface {
	Pileup(ctx context.Context, req Request) (*Result, error)
}

// RecordReader is satisfied by both *bam.Reader and *sam.Reader.
type RecordReader interface {
	Header() *sam.Header
	Read() (*sam.Record, error)
}

// AmbiguousReferenceError is returned when an alignment holds several
// references and none was requested.
type AmbiguousReferenceError struct {
	Path       string
	References []string
}

func (e *AmbiguousReferenceError) Error() string {
	return fmt.Sprintf("%s contains %d references (%s); only one reference can be analyzed at a time",
		e.Path, len(e.References), strings.Join(e.References, ", "))
}

// UnknownReferenceError is returned when the requested reference is not in the header.
type UnknownReferenceError struct {
	Path      string
	Reference string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("reference %q not found in %s", e.Reference, e.Path)
}

// skipFlags mirrors the default read filter of samtools-style pileups.
const skipFlags = sam.Unmapped | sam.Secondary | sam.QCFail | sam.Duplicate

// missingQual marks a base without a recorded quality.
const missingQual = 0xff

// AlignmentProvider builds tables from BAM or SAM files.
type AlignmentProvider struct {
	logger *zap.Logger
}

// NewAlignmentProvider creates a provider that logs nothing.
func NewAlignmentProvider() *AlignmentProvider {
	return &AlignmentProvider{logger: zap.NewNop()}
}

// SetLogger sets the logger for skipped-read summaries.
func (p *AlignmentProvider) SetLogger(l *zap.Logger) {
	p.logger = l
}

// Pileup opens req.Path and counts bases for the selected reference.
// Files ending in .sam are read as SAM text, anything else as BAM.
func (p *AlignmentProvider) Pileup(ctx context.Context, req Request) (*Result, error) {
	f, err := os.Open(req.Path)
	if err != nil {
		return nil, fmt.Errorf("open alignment: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(req.Path), ".sam") {
		r, err := sam.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("read sam header: %w", err)
		}
		return p.PileupReader(ctx, r, req)
	}

	r, err := bam.NewReader(f, 0)
	if err != nil {
		return nil, fmt.Errorf("read bam header: %w", err)
	}
	defer r.Close()
	return p.PileupReader(ctx, r, req)
}

// PileupReader counts bases from an already opened record stream.
func (p *AlignmentProvider) PileupReader(ctx context.Context, rr RecordReader, req Request) (*Result, error) {
	ref, err := SelectReference(rr.Header(), req.ReferenceID, req.Path)
	if err != nil {
		return nil, err
	}

	table := make(Table, ref.Len())
	var read, skipped, filtered int

	for {
		if read%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		rec, err := rr.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("read alignment record: %w", err)
		}
		read++

		if rec.Ref == nil || rec.Ref.Name() != ref.Name() || rec.Flags&skipFlags != 0 {
			skipped++
			continue
		}
		if int(rec.MapQ) < req.MinMappingQuality {
			filtered++
			continue
		}
		addRecord(table, rec, req.MinBaseQuality)
	}

	for i, c := range table {
		if len(c) == 0 {
			table[i] = zeroCounts()
		}
	}

	p.logger.Debug("pileup complete",
		zap.String("path", req.Path),
		zap.String("reference", ref.Name()),
		zap.Int("length", ref.Len()),
		zap.Int("records", read),
		zap.Int("skipped", skipped),
		zap.Int("below_mapq", filtered))

	return &Result{Reference: ref.Name(), Table: table}, nil
}

// SelectReference picks the reference to pile up. An explicit id must exist;
// otherwise the header must hold exactly one reference.
func SelectReference(h *sam.Header, id, path string) (*sam.Reference, error) {
	refs := h.Refs()
	if id != "" {
		for _, r := range refs {
			if r.Name() == id {
				return r, nil
			}
		}
		return nil, &UnknownReferenceError{Path: path, Reference: id}
	}

	if len(refs) == 1 {
		return refs[0], nil
	}

	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name()
	}
	return nil, &AmbiguousReferenceError{Path: path, References: names}
}

// addRecord walks the CIGAR of rec and adds its bases to table.
// Deletions and reference skips count as Deletion; insertions and clips
// do not touch reference positions.
func addRecord(table Table, rec *sam.Record, minBaseQuality int) {
	seq := rec.Seq.Expand()
	refPos := rec.Pos
	qPos := 0

	for _, op := range rec.Cigar {
		n := op.Len()
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			for i := 0; i < n; i++ {
				q := qPos + i
				if q >= len(seq) {
					break
				}
				if q < len(rec.Qual) && rec.Qual[q] != missingQual && int(rec.Qual[q]) < minBaseQuality {
					continue
				}
				add(table, refPos+i, strings.ToUpper(string(seq[q])))
			}
			refPos += n
			qPos += n
		case sam.CigarDeletion, sam.CigarSkipped:
			for i := 0; i < n; i++ {
				add(table, refPos+i, Deletion)
			}
			refPos += n
		case sam.CigarInsertion, sam.CigarSoftClipped:
			qPos += n
		}
	}
}

func add(table Table, pos int, base string) {
	if pos < 0 || pos >= len(table) {
		return
	}
	if table[pos] == nil {
		table[pos] = make(BaseCounts, 4)
	}
	table[pos][base]++
}
