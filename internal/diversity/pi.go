package diversity

import (
	"fmt"

	"github.com/inodb/vibe-mv/internal/pileup"
	"github.com/inodb/vibe-mv/internal/variant"
)

type windowKind int

const (
	windowNone windowKind = iota
	windowPerPosition
	windowOffsets
)

// Window selects how π is reported. Build one with PerPosition or Offsets;
// the zero value is invalid.
type Window struct {
	kind        windowKind
	start, stop int
}

// PerPosition reports π at every retained position.
func PerPosition() Window { return Window{kind: windowPerPosition} }

// Offsets reports a single π over the 0-based half-open range [start, stop).
func Offsets(start, stop int) Window { return Window{kind: windowOffsets, start: start, stop: stop} }

func (w Window) validate() error {
	switch w.kind {
	case windowPerPosition:
		return nil
	case windowOffsets:
		if w.start < 0 || w.stop <= w.start {
			return &variant.ConfigurationError{
				Message: fmt.Sprintf("invalid diversity window [%d, %d)", w.start, w.stop),
			}
		}
		return nil
	}
	return &variant.ConfigurationError{Message: "one of a per-position or an offsets window must be given"}
}

// PositionPi is π at one genome position.
type PositionPi struct {
	Position int
	Pi       float64
}

// Result holds either per-position values or a single windowed value.
type Result struct {
	PerPosition []PositionPi
	Window      float64
	Start, Stop int
}

// NucleotideDiversity computes π over table. A nil result with no error means
// no position survived the coverage filter.
func NucleotideDiversity(table pileup.Table, w Window, minCoverage int) (*Result, error) {
	if err := w.validate(); err != nil {
		return nil, err
	}
	m, ok := BuildMatrix(table, minCoverage)
	if !ok {
		return nil, nil
	}

	if w.kind == windowPerPosition {
		res := &Result{PerPosition: make([]PositionPi, len(m))}
		for i, row := range m {
			res.PerPosition[i] = PositionPi{Position: row.Position, Pi: row.MeanPairwiseDifference()}
		}
		return res, nil
	}

	sum := 0.0
	for _, row := range m {
		if row.Position >= w.start && row.Position < w.stop {
			sum += row.MeanPairwiseDifference()
		}
	}
	return &Result{Window: sum / float64(w.stop-w.start), Start: w.start, Stop: w.stop}, nil
}
