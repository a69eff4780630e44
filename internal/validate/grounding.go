package validate

import (
	"strings"

	"github.com/ivlasov/claimfold/internal/model"
)

// quoteNormalizer maps typographic punctuation to ASCII so that a quote
// copied through an LLM still matches the source text it came from
var quoteNormalizer = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"–", "-", // en dash
	"—", "-", // em dash
	" ", " ", // no-break space
	"…", "...", // ellipsis
)

// Normalize canonicalizes text for grounding comparison: typographic
// punctuation to ASCII, any whitespace run to a single space, case folded.
func Normalize(s string) string {
	s = quoteNormalizer.Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}

// IsGrounded reports whether the claim's supporting quote appears as a
// contiguous substring of the source text after normalization. The
// check is exact; no fuzzy matching, no partial credit. A claim with an
// empty quote has no textual evidence and is never grounded.
func IsGrounded(claim model.Claim, sourceText string) bool {
	quote := Normalize(claim.SupportingQuote)
	if quote == "" {
		return false
	}
	return strings.Contains(Normalize(sourceText), quote)
}

// Filter splits claims into grounded and dropped against their source
// texts, keyed by source id. Claims whose source is missing from the
// map are dropped: without the text there is nothing to verify against.
func Filter(claims []model.Claim, sourceTexts map[string]string) (kept, dropped []model.Claim) {
	// Normalize each source text once, not per claim
	normalized := make(map[string]string, len(sourceTexts))
	for id, text := range sourceTexts {
		normalized[id] = Normalize(text)
	}

	for _, claim := range claims {
		text, ok := normalized[claim.SourceID]
		quote := Normalize(claim.SupportingQuote)
		if ok && quote != "" && strings.Contains(text, quote) {
			kept = append(kept, claim)
		} else {
			dropped = append(dropped, claim)
		}
	}
	return kept, dropped
}
