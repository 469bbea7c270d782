package variant

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/inodb/vibe-mv/internal/pileup"
)

// Record is the persisted form of a profile. Positions are decimal string
// keys so the table survives a JSON round trip.
type Record struct {
	Parameters    RecordParameters             `json:"parameters"`
	CountsPerBase map[string]pileup.BaseCounts `json:"countsPerBase"`
}

// RecordParameters is the parameters block of a Record.
type RecordParameters struct {
	SequencingTech    SequencingTech `json:"sequencingTech"`
	MinBaseQuality    int            `json:"minBaseQuality"`
	MinMappingQuality int            `json:"minMappingQuality"`
}

// Record converts the profile to its persisted form.
func (p *Profile) Record() Record {
	rec := Record{
		Parameters: RecordParameters{
			SequencingTech:    p.params.SequencingTech,
			MinBaseQuality:    p.params.MinBaseQuality,
			MinMappingQuality: p.params.MinMappingQuality,
		},
		CountsPerBase: make(map[string]pileup.BaseCounts, len(p.table)),
	}
	for i, c := range p.table {
		if c == nil {
			c = pileup.BaseCounts{}
		}
		rec.CountsPerBase[strconv.Itoa(i)] = c
	}
	return rec
}

// Save writes the profile's record as JSON.
func (p *Profile) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(p.Record()); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}

// SaveFile writes the profile's record to path, compressing by extension.
func (p *Profile) SaveFile(path string) (err error) {
	w, err := createRecordFile(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return p.Save(w)
}

// ReadRecord decodes a record. Both the current format and the legacy format,
// a bare position-to-counts object, are accepted.
func ReadRecord(r io.Reader) (pileup.Table, RunParameters, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, RunParameters{}, fmt.Errorf("read record: %w", err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, RunParameters{}, &RecordError{Message: err.Error()}
	}

	var (
		counts map[string]pileup.BaseCounts
		params RunParameters
	)
	if _, ok := top["countsPerBase"]; ok {
		var rec Record
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&rec); err != nil {
			return nil, RunParameters{}, &RecordError{Message: err.Error()}
		}
		counts = rec.CountsPerBase
		params = RunParameters{
			MinBaseQuality:    rec.Parameters.MinBaseQuality,
			MinMappingQuality: rec.Parameters.MinMappingQuality,
			SequencingTech:    rec.Parameters.SequencingTech,
		}
		if err := params.Validate(); err != nil {
			return nil, RunParameters{}, &RecordError{Message: err.Error()}
		}
	} else {
		if err := json.Unmarshal(data, &counts); err != nil {
			return nil, RunParameters{}, &RecordError{Message: "legacy record: " + err.Error()}
		}
	}

	table, err := denseTable(counts)
	if err != nil {
		return nil, RunParameters{}, err
	}
	return table, params, nil
}

// denseTable converts string-keyed counts to a table. Keys must be exactly
// 0..n-1.
func denseTable(counts map[string]pileup.BaseCounts) (pileup.Table, error) {
	table := make(pileup.Table, len(counts))
	var missing []int
	for k, c := range counts {
		pos, err := strconv.Atoi(k)
		if err != nil {
			return nil, &RecordError{Message: fmt.Sprintf("position key %q is not an integer", k)}
		}
		if pos < 0 || pos >= len(table) {
			return nil, &RecordError{Message: fmt.Sprintf("position %d outside 0..%d", pos, len(table)-1)}
		}
		for base, n := range c {
			if n < 0 {
				return nil, &RecordError{Message: fmt.Sprintf("negative count %d for %s at position %d", n, base, pos)}
			}
		}
		if c == nil {
			c = pileup.BaseCounts{}
		}
		table[pos] = c
	}
	for i, c := range table {
		if c == nil {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		sort.Ints(missing)
		return nil, &RecordError{Message: fmt.Sprintf("positions are not contiguous, first gap at %d", missing[0])}
	}
	return table, nil
}

type stackedCloser struct {
	io.Reader
	io.Writer
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func openRecordFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open record: %w", err)
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip %s: %w", path, err)
		}
		return &stackedCloser{Reader: gz, closers: []io.Closer{gz, f}}, nil
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd %s: %w", path, err)
		}
		rc := zr.IOReadCloser()
		return &stackedCloser{Reader: rc, closers: []io.Closer{rc, f}}, nil
	}
	return f, nil
}

func createRecordFile(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		gz := gzip.NewWriter(f)
		return &stackedCloser{Writer: gz, closers: []io.Closer{gz, f}}, nil
	case strings.HasSuffix(path, ".zst"):
		zw, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd %s: %w", path, err)
		}
		return &stackedCloser{Writer: zw, closers: []io.Closer{zw, f}}, nil
	}
	return f, nil
}
