package speech_to_text

import "strings"

// segmentFilter drops non-speech markers such as "[BLANK_AUDIO]" or
// "(music)" and segments whose text was already seen.
type segmentFilter struct {
	seenText map[string]bool
}

func newSegmentFilter() *segmentFilter {
	return &segmentFilter{seenText: make(map[string]bool)}
}

func (f *segmentFilter) keep(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	// if segment text starts or ends with a parenthesis or a bracket, then ignore it
	if trimmed[0] == '(' || trimmed[0] == '[' ||
		trimmed[len(trimmed)-1] == ')' || trimmed[len(trimmed)-1] == ']' {
		return false
	}

	// if we've already seen this text, then ignore it
	if f.seenText[trimmed] {
		return false
	}

	f.seenText[trimmed] = true

	return true
}

// joinSegments returns the kept segments as one line of text.
func joinSegments(texts []string) string {
	f := newSegmentFilter()

	var b strings.Builder
	for _, text := range texts {
		if !f.keep(text) {
			continue
		}

		if b.Len() > 0 {
			b.WriteByte(' ')
		}

		b.WriteString(strings.TrimSpace(text))
	}

	return b.String()
}
