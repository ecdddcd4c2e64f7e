package utils

import "unicode"

// SplitText splits a long string into chunks of approximately 'chunkSize' characters.
// It includes an 'overlap' to preserve context at boundaries. Where possible the
// cut is moved back to the nearest sentence end or whitespace so words survive.
func SplitText(text string, chunkSize int, overlap int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	totalLen := len(runes)

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize // fallback if overlap >= chunkSize
	}

	for i := 0; i < totalLen; {
		end := i + chunkSize
		if end >= totalLen {
			chunks = append(chunks, string(runes[i:totalLen]))
			break
		}

		cut := breakPoint(runes, i, end)
		chunks = append(chunks, string(runes[i:cut]))

		next := cut - overlap
		if next <= i {
			next = i + step
		}
		i = next
	}

	return chunks
}

// breakPoint searches backwards from end for a sentence terminator, then for
// any whitespace. The search window is capped so a chunk never shrinks below
// half its size; failing both, the hard cut stands.
func breakPoint(runes []rune, start, end int) int {
	floor := start + (end-start)/2

	for i := end - 1; i > floor; i-- {
		switch runes[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}
	for i := end - 1; i > floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}
