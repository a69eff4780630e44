package pipeline

import "strings"

// unicodeNormalizer replaces typographic characters that survive HTML
// extraction with ASCII equivalents
var unicodeNormalizer = strings.NewReplacer(
	"’", "'",
	"‘", "'",
	"“", `"`,
	"”", `"`,
	"…", "...",
	"\u200b", "", // zero-width space
	"\u200c", "", // zero-width non-joiner
	"\u200d", "", // zero-width joiner
	"\ufeff", "", // BOM
)

// minLineWords is the noise threshold: shorter non-blank lines are
// menu items, timestamps, cookie banners
const minLineWords = 3

// CleanText normalizes raw extracted text for chunking: unicode
// normalization, whitespace collapsing, and noise-line removal
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = unicodeNormalizer.Replace(text)

	lines := strings.Split(text, "\n")
	var out []string
	blankRun := 0
	for _, line := range lines {
		words := strings.Fields(line)
		if len(words) == 0 {
			blankRun++
			if blankRun <= 1 {
				out = append(out, "")
			}
			continue
		}
		blankRun = 0
		if len(words) < minLineWords {
			continue
		}
		out = append(out, strings.Join(words, " "))
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
