package duckdb

import (
	"database/sql"
	"fmt"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-mv/internal/variant"
)

// SampleRow is one stored sample summary together with the thresholds and
// source file it was computed from.
type SampleRow struct {
	Summary      variant.Summary
	Params       variant.RunParameters
	Source       FileFingerprint
	MinCoverage  int
	MinFrequency float64
	Pi           float64
	HasPi        bool
}

func nullable(v float64, ok bool) any {
	if !ok {
		return nil
	}
	return v
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// WriteSample replaces the stored summary of row's sample.
func (s *Store) WriteSample(row SampleRow) error {
	sum := row.Summary
	return s.appendRows("samples", sum.Name, func(a *goduckdb.Appender) error {
		if err := a.AppendRow(
			sum.Name, row.Source.Path, row.Source.Size, nullableTime(row.Source.ModTime),
			string(row.Params.SequencingTech),
			int64(row.Params.MinBaseQuality), int64(row.Params.MinMappingQuality),
			int64(sum.Length), int64(row.MinCoverage), row.MinFrequency,
			nullable(sum.MeanCoverage, sum.HasMeanCoverage),
			int64(sum.Richness),
			nullable(sum.Complexity, sum.HasComplexity),
			sum.Distance,
			nullable(row.Pi, row.HasPi),
		); err != nil {
			return fmt.Errorf("append sample %s: %w", sum.Name, err)
		}
		return nil
	})
}

const sampleColumns = `sample, source_path, source_size, source_mtime, sequencing_tech,
	min_base_quality, min_mapping_quality, genome_length, min_coverage, min_frequency,
	mean_coverage, richness, complexity, distance, pi`

// LookupSample returns the stored summary of sample, or nil if there is none.
func (s *Store) LookupSample(sample string) (*SampleRow, error) {
	rows, err := s.db.Query(`SELECT `+sampleColumns+` FROM samples WHERE sample=?`, sample)
	if err != nil {
		return nil, fmt.Errorf("query sample: %w", err)
	}
	defer rows.Close()

	out, err := scanSamples(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

// Samples returns every stored summary ordered by sample name.
func (s *Store) Samples() ([]SampleRow, error) {
	rows, err := s.db.Query(`SELECT ` + sampleColumns + ` FROM samples ORDER BY sample`)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

func scanSamples(rows *sql.Rows) ([]SampleRow, error) {
	var out []SampleRow
	for rows.Next() {
		var (
			r                            SampleRow
			tech                         string
			mtime                        sql.NullTime
			size, bq, mq, length, minCov int64
			richness                     int64
			mean, complexity, pi         sql.NullFloat64
		)
		if err := rows.Scan(
			&r.Summary.Name, &r.Source.Path, &size, &mtime, &tech,
			&bq, &mq, &length, &minCov, &r.MinFrequency,
			&mean, &richness, &complexity, &r.Summary.Distance, &pi,
		); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}

		r.Source.Size = size
		if mtime.Valid {
			r.Source.ModTime = mtime.Time
		}
		r.Params = variant.RunParameters{
			MinBaseQuality:    int(bq),
			MinMappingQuality: int(mq),
			SequencingTech:    variant.SequencingTech(tech),
		}
		r.Summary.Length = int(length)
		r.MinCoverage = int(minCov)
		r.Summary.Richness = int(richness)
		r.Summary.MeanCoverage, r.Summary.HasMeanCoverage = mean.Float64, mean.Valid
		r.Summary.Complexity, r.Summary.HasComplexity = complexity.Float64, complexity.Valid
		r.Pi, r.HasPi = pi.Float64, pi.Valid
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return out, nil
}
