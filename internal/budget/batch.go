package budget

import "strings"

// BuildBatches packs units of work into as few payloads as possible,
// each at most maxChars characters, to minimize call count and rate
// pressure. Units are joined by blank lines in input order. A single
// unit larger than maxChars is emitted alone, never split.
func BuildBatches(units []string, maxChars int) []string {
	if len(units) == 0 {
		return nil
	}
	if maxChars <= 0 {
		return []string{strings.Join(units, "\n\n")}
	}

	var batches []string
	var current []string
	currentSize := 0

	for _, unit := range units {
		if currentSize+len(unit) > maxChars && len(current) > 0 {
			batches = append(batches, strings.Join(current, "\n\n"))
			current = nil
			currentSize = 0
		}
		current = append(current, unit)
		currentSize += len(unit)
	}

	if len(current) > 0 {
		batches = append(batches, strings.Join(current, "\n\n"))
	}

	return batches
}
