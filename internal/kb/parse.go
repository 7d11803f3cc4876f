package kb

import "strings"

// QA is one parsed question/answer pair with its category heading.
type QA struct {
	Question string
	Answer   string
	Category string
}

// ParseQA segments plain text into question/answer pairs. It recognizes
// "Q:"/"Question:" and numbered question markers, "A:"/"Answer:" answer
// markers, "##"/"Category:" category headings, and treats unmarked lines
// following a question as answer continuation.
func ParseQA(text string) []QA {
	var pairs []QA

	var question string
	var answer []string
	category := "General"

	flush := func() {
		if question == "" {
			return
		}
		a := strings.TrimSpace(strings.Join(answer, " "))
		if a != "" {
			pairs = append(pairs, QA{Question: question, Answer: a, Category: category})
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "##") || strings.HasPrefix(line, "Category:") {
			category = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "##"), "Category:"))
			if category == "" {
				category = "General"
			}
			continue
		}

		switch {
		case isQuestionLine(line):
			flush()
			question = stripQuestionMarker(line)
			answer = answer[:0]

		case hasFoldedPrefix(line, "a:") || hasFoldedPrefix(line, "answer:"):
			a := strings.TrimSpace(stripFoldedPrefix(stripFoldedPrefix(line, "answer:"), "a:"))
			if a != "" {
				answer = append(answer, a)
			}

		case question != "":
			answer = append(answer, line)
		}
	}
	flush()

	return pairs
}

func isQuestionLine(line string) bool {
	if hasFoldedPrefix(line, "q:") || hasFoldedPrefix(line, "question:") {
		return true
	}
	// Numbered items like "1. ..." or "2) ...".
	if line[0] >= '0' && line[0] <= '9' {
		head := line
		if len(head) > 3 {
			head = head[:3]
		}
		return strings.ContainsAny(head, ".)")
	}
	return false
}

func stripQuestionMarker(line string) string {
	line = stripFoldedPrefix(line, "question:")
	line = stripFoldedPrefix(line, "q:")
	// Drop leading numbering; the question starts at the first letter.
	for i, r := range line {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return strings.TrimSpace(line[i:])
		}
	}
	return strings.TrimSpace(line)
}

func hasFoldedPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func stripFoldedPrefix(s, prefix string) string {
	if hasFoldedPrefix(s, prefix) {
		return strings.TrimSpace(s[len(prefix):])
	}
	return s
}
