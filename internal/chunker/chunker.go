// Package chunker splits markdown content into Discord-safe chunks without
// breaking fenced code blocks across the cut.
package chunker

import "strings"

type line struct {
	text           string
	lang           string
	isOpeningFence bool
	isClosingFence bool
}

// Split breaks content into chunks of at most maxLen bytes each, re-opening
// and closing fenced code blocks across cuts so every chunk is self
// contained.
func Split(content string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = 1
	}
	if len(content) <= maxLen {
		return []string{content}
	}

	lines := tokenize(EscapeBackticksInCodeBlocks(content))

	var chunks []string
	var cur []string
	curLen := 0
	inFence := false
	fenceLang := ""

	lineCost := func(l string) int {
		if len(cur) == 0 {
			return len(l)
		}
		return len(l) + 1 // separating newline
	}

	flush := func(closeFence bool) {
		if closeFence && inFence {
			cur = append(cur, "```")
		}
		chunks = append(chunks, strings.Join(cur, "\n"))
		cur = nil
		curLen = 0
	}

	reopen := func() {
		if inFence {
			cur = append(cur, "```"+fenceLang)
			curLen += len(cur[len(cur)-1])
		}
	}

	for _, ln := range lines {
		cost := lineCost(ln.text)
		closingCost := 0
		if inFence {
			closingCost = len("```") + 1
		}
		if len(cur) > 0 && curLen+cost+closingCost > maxLen {
			flush(true)
			reopen()
		}

		if ln.isOpeningFence {
			inFence = true
			fenceLang = ln.lang
		}

		if len(cur) > 0 {
			curLen++ // newline
		}
		cur = append(cur, ln.text)
		curLen += len(ln.text)

		if ln.isClosingFence {
			inFence = false
			fenceLang = ""
		}
	}

	if len(cur) > 0 || len(chunks) == 0 {
		flush(false)
	}

	return chunks
}

func tokenize(content string) []line {
	raw := strings.Split(content, "\n")
	lines := make([]line, 0, len(raw))
	inFence := false
	lang := ""
	for _, text := range raw {
		trimmed := strings.TrimLeft(text, " \t")
		l := line{text: text}
		if strings.HasPrefix(trimmed, "```") {
			if !inFence {
				l.isOpeningFence = true
				l.lang = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
				lang = l.lang
				inFence = true
			} else {
				l.isClosingFence = true
				inFence = false
			}
		} else if inFence {
			l.lang = lang
		}
		lines = append(lines, l)
	}
	return lines
}

// EscapeBackticksInCodeBlocks rewrites the interior of every fenced code
// block so literal backticks are escaped, leaving the fences themselves
// intact. Idempotent: an already-escaped backtick is not re-escaped.
func EscapeBackticksInCodeBlocks(content string) string {
	lines := strings.Split(content, "\n")
	var out []string
	inFence := false
	for _, l := range lines {
		trimmed := strings.TrimLeft(l, " \t")
		if strings.HasPrefix(trimmed, "```") {
			out = append(out, l)
			inFence = !inFence
			continue
		}
		if inFence {
			out = append(out, escapeBackticks(l))
		} else {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// EscapeBackticks escapes every unescaped backtick in s. Unlike
// EscapeBackticksInCodeBlocks it has no fence awareness: it's for plain
// inline text (e.g. a quoted echo) that must not be able to open or close
// a Markdown code span.
func EscapeBackticks(s string) string {
	return escapeBackticks(s)
}

func escapeBackticks(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '`' {
			if i > 0 && s[i-1] == '\\' {
				b.WriteByte(s[i])
				continue
			}
			b.WriteByte('\\')
			b.WriteByte('`')
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
