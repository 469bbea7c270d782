package duckdb

import (
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-mv/internal/variant"
)

// WritePositionStats replaces the stored per-position statistics of sample.
func (s *Store) WritePositionStats(sample string, stats []variant.PositionStat) error {
	return s.appendRows("position_stats", sample, func(a *goduckdb.Appender) error {
		for _, st := range stats {
			if err := a.AppendRow(
				sample, int64(st.Position), int64(st.Coverage),
				st.MaxFrequency, st.MinorFrequency, st.Entropy, st.MinorVariant,
			); err != nil {
				return fmt.Errorf("append position %d: %w", st.Position, err)
			}
		}
		return nil
	})
}

// PositionStats returns the stored statistics of sample ordered by position.
// When minorOnly is set, only minor-variant positions are returned.
func (s *Store) PositionStats(sample string, minorOnly bool) ([]variant.PositionStat, error) {
	query := `SELECT position, coverage, max_frequency, minor_frequency, entropy, minor_variant
		FROM position_stats WHERE sample=?`
	if minorOnly {
		query += ` AND minor_variant`
	}
	query += ` ORDER BY position`

	rows, err := s.db.Query(query, sample)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var out []variant.PositionStat
	for rows.Next() {
		var (
			st            variant.PositionStat
			pos, coverage int64
		)
		if err := rows.Scan(&pos, &coverage, &st.MaxFrequency, &st.MinorFrequency, &st.Entropy, &st.MinorVariant); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		st.Position, st.Coverage = int(pos), int(coverage)
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}
	return out, nil
}
