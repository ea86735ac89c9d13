package model

// EvidenceWindow is a text excerpt around one keyword or synonym match.
// Start and End are character (rune) offsets into the source document.
type EvidenceWindow struct {
	Document string `json:"document"`
	Text     string `json:"text"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// UsageCounts maps a document name to its match count for one question.
type UsageCounts map[string]int

// DocumentUsage is one entry of a usage ranking.
type DocumentUsage struct {
	Document string `json:"document"`
	Hits     int    `json:"hits"`
}

// ScanResult is the output of one corpus scan.
type ScanResult struct {
	Windows  []EvidenceWindow
	Usage    UsageCounts
	Synonyms SynonymSet // terms searched per keyword, keyword excluded
}
