package genome

// Supported virus identifiers.
const (
	SARS2 = "SARS2"
	WNV   = "WNV"
	YFV   = "YFV"
)

// UTR is reported for positions outside every gene.
const UTR = "UTR"

// SARS2Layout is the SARS-CoV-2 reference (Wuhan-Hu-1). ORF1a and ORF1b
// share the two positions of the ribosomal slippage site, which are reported
// as ORF1ab. ORF1b reads everything after them.
var SARS2Layout = Layout{
	Virus:     SARS2,
	Accession: "NC_045512.2",
	Length:    29903,
	Genes: []Gene{
		{Name: "ORF1a", Start: 265, End: 13468},
		{Name: "ORF1b", Start: 13467, End: 21555},
		{Name: "S", Start: 21562, End: 25384},
		{Name: "ORF3a", Start: 25392, End: 26220},
		{Name: "E", Start: 26244, End: 26472},
		{Name: "M", Start: 26522, End: 27191},
		{Name: "ORF6", Start: 27201, End: 27387},
		{Name: "ORF7a", Start: 27393, End: 27759},
		{Name: "ORF7b", Start: 27755, End: 27887},
		{Name: "ORF8", Start: 27893, End: 28259},
		{Name: "N", Start: 28273, End: 29533},
		{Name: "ORF10", Start: 29557, End: 29674},
	},
	Frameshift:     []int{13467, 13468},
	FrameshiftGene: "ORF1ab",
}

// WNVLayout is the West Nile virus reference. The genome encodes a single
// polyprotein.
var WNVLayout = Layout{
	Virus:     WNV,
	Accession: "NC_009942.1",
	Length:    11029,
	Genes: []Gene{
		{Name: "Polyprotein", Start: 96, End: 10395},
	},
}

// YFVLayout is the yellow fever virus reference.
var YFVLayout = Layout{
	Virus:     YFV,
	Accession: "NC_002031.1",
	Length:    10862,
	Genes: []Gene{
		{Name: "Polyprotein", Start: 118, End: 10354},
	},
}

// BuiltinLayouts returns the layouts of every supported virus.
func BuiltinLayouts() []Layout {
	return []Layout{SARS2Layout, WNVLayout, YFVLayout}
}
