package model

// Claim is an atomic assertion extracted from a source document,
// paired with a verbatim supporting quote.
type Claim struct {
	ID              string `json:"id"`                     // Unique claim identifier (source_id#n)
	Text            string `json:"text"`                   // The claim sentence itself
	SupportingQuote string `json:"supporting_quote"`       // Verbatim excerpt from the source
	SourceID        string `json:"source_id"`              // Originating document
	SourceTitle     string `json:"source_title,omitempty"` // Human-readable source name
}

// ClaimGroup is a cluster of claims judged semantically equivalent by
// embedding similarity. Every claim belongs to exactly one group per run.
type ClaimGroup struct {
	GroupID     int      `json:"group_id"`    // Deterministic within a clustering pass
	Theme       string   `json:"theme"`       // First member claim text
	Claims      []Claim  `json:"claims"`      // Member claims, size >= 1
	SourceIDs   []string `json:"source_ids"`  // Distinct contributing sources, sorted
	Conflicting bool     `json:"conflicting"` // True iff more than one source contributes
}

// TotalClaims sums member counts across groups. Equals the clustering
// input size when the partition invariant holds.
func TotalClaims(groups []ClaimGroup) int {
	total := 0
	for _, g := range groups {
		total += len(g.Claims)
	}
	return total
}
