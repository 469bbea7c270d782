package annotate

// PredictConsequence returns the Sequence Ontology term for a coding codon
// change. codonIndex is 0-based within the gene; only the first codon of a
// gene can lose its start.
func PredictConsequence(oldCodon, newCodon string, codonIndex int) string {
	oldAA := TranslateCodon(oldCodon)
	newAA := TranslateCodon(newCodon)

	if oldAA == newAA {
		switch {
		case oldAA == AminoAcidStop:
			return ConsequenceStopRetained
		case codonIndex == 0 && oldAA == AminoAcidStart:
			return ConsequenceStartRetained
		}
		return ConsequenceSynonymousVariant
	}

	switch {
	case newAA == AminoAcidStop:
		return ConsequenceStopGained
	case oldAA == AminoAcidStop:
		return ConsequenceStopLost
	case codonIndex == 0 && oldAA == AminoAcidStart:
		return ConsequenceStartLost
	}
	return ConsequenceMissenseVariant
}
