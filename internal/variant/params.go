package variant

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SequencingTech identifies the instrument that produced the reads.
// The zero value means the technology was not recorded.
type SequencingTech string

// Supported sequencing technologies.
const (
	TechUnset   SequencingTech = ""
	TechUnknown SequencingTech = "Unknown"
	TechMiSeq   SequencingTech = "MiSeq"
	TechNextSeq SequencingTech = "NextSeq"
	TechNovaSeq SequencingTech = "NovaSeq"
)

var knownTechs = []SequencingTech{TechUnknown, TechMiSeq, TechNextSeq, TechNovaSeq}

// ParseSequencingTech matches s case-insensitively against the known technologies.
// An empty string yields TechUnset.
func ParseSequencingTech(s string) (SequencingTech, error) {
	if s == "" {
		return TechUnset, nil
	}
	for _, t := range knownTechs {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return TechUnset, &ConfigurationError{
		Message: fmt.Sprintf("unknown sequencing technology %q (want one of Unknown, MiSeq, NextSeq, NovaSeq)", s),
	}
}

// MarshalJSON writes an unset technology as null.
func (t SequencingTech) MarshalJSON() ([]byte, error) {
	if t == TechUnset {
		return []byte("null"), nil
	}
	return json.Marshal(string(t))
}

// UnmarshalJSON accepts null or one of the known technology names.
func (t *SequencingTech) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = TechUnset
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("sequencingTech: %w", err)
	}
	parsed, err := ParseSequencingTech(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// RunParameters are the filters and metadata a table was produced with.
type RunParameters struct {
	MinBaseQuality    int
	MinMappingQuality int
	SequencingTech    SequencingTech
	ReferenceID       string // only needed for alignments with several references
}

// Validate checks that qualities are non-negative and the technology is known.
func (p RunParameters) Validate() error {
	if p.MinBaseQuality < 0 {
		return &ConfigurationError{Message: fmt.Sprintf("minBaseQuality must be non-negative, got %d", p.MinBaseQuality)}
	}
	if p.MinMappingQuality < 0 {
		return &ConfigurationError{Message: fmt.Sprintf("minMappingQuality must be non-negative, got %d", p.MinMappingQuality)}
	}
	if _, err := ParseSequencingTech(string(p.SequencingTech)); err != nil {
		return err
	}
	return nil
}
