// Package annotate classifies single-nucleotide substitutions in viral genomes
// by their effect on the encoded protein.
package annotate

import "strings"

// Amino acid names for the start and stop codons. Every other codon
// translates to its one-letter code.
const (
	AminoAcidStart   = "start"
	AminoAcidStop    = "stop"
	AminoAcidUnknown = "X"
)

// Standard genetic code: DNA codon to amino acid.
var codonTable = map[string]string{
	"TTT": "F", "TTC": "F", "TTA": "L", "TTG": "L",
	"TCT": "S", "TCC": "S", "TCA": "S", "TCG": "S",
	"TAT": "Y", "TAC": "Y", "TAA": "stop", "TAG": "stop",
	"TGT": "C", "TGC": "C", "TGA": "stop", "TGG": "W",

	"CTT": "L", "CTC": "L", "CTA": "L", "CTG": "L",
	"CCT": "P", "CCC": "P", "CCA": "P", "CCG": "P",
	"CAT": "H", "CAC": "H", "CAA": "Q", "CAG": "Q",
	"CGT": "R", "CGC": "R", "CGA": "R", "CGG": "R",

	"ATT": "I", "ATC": "I", "ATA": "I", "ATG": "start",
	"ACT": "T", "ACC": "T", "ACA": "T", "ACG": "T",
	"AAT": "N", "AAC": "N", "AAA": "K", "AAG": "K",
	"AGT": "S", "AGC": "S", "AGA": "R", "AGG": "R",

	"GTT": "V", "GTC": "V", "GTA": "V", "GTG": "V",
	"GCT": "A", "GCC": "A", "GCA": "A", "GCG": "A",
	"GAT": "D", "GAC": "D", "GAA": "E", "GAG": "E",
	"GGT": "G", "GGC": "G", "GGA": "G", "GGG": "G",
}

// TranslateCodon translates a DNA codon to its amino acid.
// Returns "X" for anything that is not one of the 64 codons.
func TranslateCodon(codon string) string {
	if len(codon) != 3 {
		return AminoAcidUnknown
	}
	if aa, ok := codonTable[strings.ToUpper(codon)]; ok {
		return aa
	}
	return AminoAcidUnknown
}

// IsStopCodon returns true if the codon is a stop codon (TAA, TAG, TGA).
func IsStopCodon(codon string) bool {
	return TranslateCodon(codon) == AminoAcidStop
}

// IsStartCodon returns true if the codon is the start codon (ATG).
func IsStartCodon(codon string) bool {
	return strings.EqualFold(codon, "ATG")
}

// IsNucleotide reports whether base is a single A, C, G or T (any case).
func IsNucleotide(base string) bool {
	if len(base) != 1 {
		return false
	}
	switch base[0] {
	case 'A', 'C', 'G', 'T', 'a', 'c', 'g', 't':
		return true
	}
	return false
}
