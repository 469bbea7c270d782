package variant

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/inodb/vibe-mv/internal/pileup"
)

// Source is one of the ways a Profile can be built. Use FromAlignment,
// FromRecord, FromRecordReader or FromTable.
type Source interface {
	load(ctx context.Context) (*origin, error)
}

type origin struct {
	name      string
	table     pileup.Table
	params    RunParameters
	hasParams bool
}

type alignmentSource struct {
	path     string
	provider pileup.Provider
	params   RunParameters
}

// FromAlignment piles up an alignment file with the given run parameters.
func FromAlignment(path string, provider pileup.Provider, params RunParameters) Source {
	return alignmentSource{path: path, provider: provider, params: params}
}

func (s alignmentSource) load(ctx context.Context) (*origin, error) {
	if s.path == "" || s.provider == nil {
		return nil, &ConfigurationError{Message: "an alignment source needs a path and a pileup provider"}
	}
	if err := s.params.Validate(); err != nil {
		return nil, err
	}

	res, err := s.provider.Pileup(ctx, pileup.Request{
		Path:              s.path,
		MinBaseQuality:    s.params.MinBaseQuality,
		MinMappingQuality: s.params.MinMappingQuality,
		ReferenceID:       s.params.ReferenceID,
	})
	if err != nil {
		return nil, fmt.Errorf("pileup %s: %w", s.path, err)
	}

	params := s.params
	if params.ReferenceID == "" {
		params.ReferenceID = res.Reference
	}
	return &origin{name: SampleName(s.path), table: res.Table, params: params, hasParams: true}, nil
}

type recordSource struct {
	path string
}

// FromRecord loads a persisted record file. Files ending in .gz or .zst are
// decompressed.
func FromRecord(path string) Source {
	return recordSource{path: path}
}

func (s recordSource) load(ctx context.Context) (*origin, error) {
	if s.path == "" {
		return nil, &ConfigurationError{Message: "a record source needs a path"}
	}
	r, err := openRecordFile(s.path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	o, err := readerSource{r: r, name: SampleName(s.path)}.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	return o, nil
}

type readerSource struct {
	r    io.Reader
	name string
}

// FromRecordReader decodes a persisted record from r.
func FromRecordReader(r io.Reader, name string) Source {
	return readerSource{r: r, name: name}
}

func (s readerSource) load(context.Context) (*origin, error) {
	if s.r == nil {
		return nil, &ConfigurationError{Message: "a record source needs a reader"}
	}
	table, params, err := ReadRecord(s.r)
	if err != nil {
		return nil, err
	}
	return &origin{name: s.name, table: table, params: params, hasParams: true}, nil
}

type tableSource struct {
	table pileup.Table
}

// FromTable wraps a pre-built table. The profile has no run parameters.
func FromTable(t pileup.Table) Source {
	return tableSource{table: t}
}

func (s tableSource) load(context.Context) (*origin, error) {
	return &origin{table: s.table}, nil
}

// Profile holds one sample's base-count table, the parameters it was built
// with, and per-position views derived from the table.
type Profile struct {
	name      string
	params    RunParameters
	hasParams bool
	table     pileup.Table
	coverage  []int
	maxFreq   []float64
}

// New builds a profile from src.
func New(ctx context.Context, src Source) (*Profile, error) {
	if src == nil {
		return nil, &ConfigurationError{Message: "one of an alignment, a record or a table must be supplied"}
	}
	o, err := src.load(ctx)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		name:      o.name,
		params:    o.params,
		hasParams: o.hasParams,
		table:     o.table,
		coverage:  o.table.Coverage(),
		maxFreq:   make([]float64, len(o.table)),
	}
	for i, c := range o.table {
		if total := p.coverage[i]; total > 0 {
			p.maxFreq[i] = float64(c.Max()) / float64(total)
		}
	}

	if len(p.coverage) != len(p.table) || len(p.maxFreq) != len(p.table) {
		return nil, fmt.Errorf("profile %q: derived views disagree with table length %d", p.name, len(p.table))
	}
	return p, nil
}

// Name is the sample name derived from the source file, or empty.
func (p *Profile) Name() string { return p.name }

// Params returns the run parameters and whether any were supplied.
func (p *Profile) Params() (RunParameters, bool) { return p.params, p.hasParams }

// Table returns the underlying table. Callers must not modify it.
func (p *Profile) Table() pileup.Table { return p.table }

// Coverage returns the read depth per position.
func (p *Profile) Coverage() []int { return p.coverage }

// MaxFrequencies returns the frequency of the most common base per position,
// 0 where there is no coverage.
func (p *Profile) MaxFrequencies() []float64 { return p.maxFreq }

// Len returns the reference length.
func (p *Profile) Len() int { return len(p.table) }

// SampleName derives a sample name from a file path: the base name up to the first dot.
func SampleName(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	return base
}
