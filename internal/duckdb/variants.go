package duckdb

import (
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-mv/internal/annotate"
)

// callKey is the composite key for deduplicating calls before writing.
type callKey struct {
	virus, base string
	pos         int
}

// WriteVariantCalls replaces the stored classified minor alleles of sample.
// Duplicate (virus, position, base) entries are written once.
func (s *Store) WriteVariantCalls(sample string, calls []annotate.VariantCall) error {
	seen := make(map[callKey]bool, len(calls))
	return s.appendRows("variant_calls", sample, func(a *goduckdb.Appender) error {
		for _, c := range calls {
			k := callKey{c.Virus, c.Base, c.Position}
			if seen[k] {
				continue
			}
			seen[k] = true

			if err := a.AppendRow(
				sample, c.Virus, int64(c.Position), c.Base, c.DominantBase,
				c.Frequency, int64(c.Coverage), c.Gene, c.OldAA, c.NewAA,
				c.NonSynonymous, int64(c.CodonPosition), c.CodonChange,
				c.Consequence, c.Impact,
			); err != nil {
				return fmt.Errorf("append call %d%s: %w", c.Position, c.Base, err)
			}
		}
		return nil
	})
}

const callColumns = `virus, position, base, dominant_base, frequency, coverage, gene,
	old_aa, new_aa, non_synonymous, codon_position, codon_change, consequence, impact`

// VariantCalls returns the stored calls of sample ordered by position and base.
func (s *Store) VariantCalls(sample string) ([]annotate.VariantCall, error) {
	rows, err := s.db.Query(`SELECT `+callColumns+`
		FROM variant_calls WHERE sample=? ORDER BY position, base`, sample)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	return scanVariantCalls(rows)
}

// SearchByGene returns the stored non-synonymous calls in gene across all
// samples, keyed by sample.
func (s *Store) SearchByGene(gene string) (map[string][]annotate.VariantCall, error) {
	rows, err := s.db.Query(`SELECT sample, `+callColumns+`
		FROM variant_calls WHERE gene=? AND non_synonymous ORDER BY sample, position, base`, gene)
	if err != nil {
		return nil, fmt.Errorf("query by gene: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]annotate.VariantCall)
	for rows.Next() {
		var sample string
		c, err := scanVariantCall(rows, &sample)
		if err != nil {
			return nil, err
		}
		out[sample] = append(out[sample], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVariantCall(rows scanner, prefix ...any) (annotate.VariantCall, error) {
	var (
		c                       annotate.VariantCall
		pos, coverage, codonPos int64
	)
	dest := append(prefix,
		&c.Virus, &pos, &c.Base, &c.DominantBase, &c.Frequency, &coverage, &c.Gene,
		&c.OldAA, &c.NewAA, &c.NonSynonymous, &codonPos, &c.CodonChange, &c.Consequence, &c.Impact,
	)
	if err := rows.Scan(dest...); err != nil {
		return annotate.VariantCall{}, fmt.Errorf("scan call: %w", err)
	}
	c.Position, c.Coverage, c.CodonPosition = int(pos), int(coverage), int(codonPos)
	c.Kind = kindFor(c.OldAA)
	return c, nil
}

// scanVariantCalls scans rows into VariantCall slices.
func scanVariantCalls(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]annotate.VariantCall, error) {
	var out []annotate.VariantCall
	for rows.Next() {
		c, err := scanVariantCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return out, nil
}

func kindFor(oldAA string) annotate.CodingKind {
	switch oldAA {
	case annotate.LabelNonCoding:
		return annotate.NonCoding
	case annotate.LabelAmbiguous:
		return annotate.AmbiguousFrame
	}
	return annotate.Coding
}
