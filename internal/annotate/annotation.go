package annotate

import "fmt"

// Impact levels for substitution consequences.
const (
	ImpactHigh     = "HIGH"
	ImpactModerate = "MODERATE"
	ImpactLow      = "LOW"
	ImpactModifier = "MODIFIER"
)

// Consequence types (Sequence Ontology terms).
const (
	// HIGH impact
	ConsequenceStopGained = "stop_gained"
	ConsequenceStopLost   = "stop_lost"
	ConsequenceStartLost  = "start_lost"

	// MODERATE impact
	ConsequenceMissenseVariant = "missense_variant"

	// LOW impact
	ConsequenceSynonymousVariant = "synonymous_variant"
	ConsequenceStopRetained      = "stop_retained_variant"
	ConsequenceStartRetained     = "start_retained_variant"

	// MODIFIER impact
	ConsequenceNonCoding        = "non_coding_variant"
	ConsequenceFrameshiftRegion = "frameshift_region_variant"
)

// GetImpact returns the impact level of a consequence term.
func GetImpact(consequence string) string {
	switch consequence {
	case ConsequenceStopGained, ConsequenceStopLost, ConsequenceStartLost:
		return ImpactHigh
	case ConsequenceMissenseVariant:
		return ImpactModerate
	case ConsequenceSynonymousVariant, ConsequenceStopRetained, ConsequenceStartRetained:
		return ImpactLow
	default:
		return ImpactModifier
	}
}

// Labels used in place of amino acids outside a single reading frame.
const (
	LabelNonCoding = "non-coding"
	LabelAmbiguous = "ambiguous"
)

// CodingKind says whether a position has a single codon assignment.
type CodingKind int

const (
	// NonCoding positions lie outside every gene.
	NonCoding CodingKind = iota
	// AmbiguousFrame positions belong to two overlapping reading frames.
	AmbiguousFrame
	// Coding positions lie in exactly one reading frame.
	Coding
)

func (k CodingKind) String() string {
	switch k {
	case NonCoding:
		return "non-coding"
	case AmbiguousFrame:
		return "ambiguous"
	case Coding:
		return "coding"
	}
	return fmt.Sprintf("CodingKind(%d)", int(k))
}

// CodonChange is the codon affected by a substitution.
type CodonChange struct {
	Kind       CodingKind
	Gene       string
	OldCodon   string
	NewCodon   string
	CodonIndex int // 0-based within the gene
}

// String formats a coding change as "ATG/CTG".
func (c CodonChange) String() string {
	if c.Kind != Coding {
		return ""
	}
	return c.OldCodon + "/" + c.NewCodon
}

// Classification is the effect of one substitution.
type Classification struct {
	Virus    string
	Position int // 0-based genome offset
	Base     string
	Gene     string
	Kind     CodingKind

	// OldAA and NewAA are empty for synonymous coding changes, LabelNonCoding
	// outside genes and LabelAmbiguous in the frameshift region.
	OldAA         string
	NewAA         string
	NonSynonymous bool
	// CodonPosition is the 1-based codon number within the gene. Outside
	// genes it is the genome position; in the frameshift region it is 0.
	CodonPosition int
	CodonChange   string
	Consequence   string
	Impact        string
}

// InvalidBaseError is returned when a substitution base is not A, C, G or T.
type InvalidBaseError struct {
	Base string
}

func (e *InvalidBaseError) Error() string {
	return fmt.Sprintf("invalid substitution base %q (want one of A, C, G, T)", e.Base)
}
