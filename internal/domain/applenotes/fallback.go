package applenotes

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minPrintableRun  = 3
	meaningfulLength = 10
)

// ExtractReadableText recovers a best-effort approximation of the note
// text from a blob that failed structured decoding. It scans for runs
// of printable characters, drops metadata-shaped candidates, and trims
// the junk tail. It never fails; the worst case is an empty string.
func ExtractReadableText(raw []byte) string {
	candidates := printableRuns(raw)

	var kept []string
	for _, c := range candidates {
		if !IsJunkString(c) {
			kept = append(kept, c)
		}
	}

	var meaningful []string
	for _, c := range kept {
		if utf8.RuneCountInString(c) > meaningfulLength {
			meaningful = append(meaningful, c)
		}
	}
	if len(meaningful) == 0 {
		meaningful = kept
	}

	joined := strings.Join(meaningful, "\n\n")
	return trimTrailingJunk(joined)
}

// printableRuns decodes the blob rune by rune and collects stretches of
// at least minPrintableRun printable characters. Invalid UTF-8 bytes
// break the current run.
func printableRuns(raw []byte) []string {
	var (
		out []string
		cur []rune
	)
	flush := func() {
		if len(cur) >= minPrintableRun {
			out = append(out, strings.TrimSpace(string(cur)))
		}
		cur = cur[:0]
	}
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		if r == utf8.RuneError && size == 1 {
			flush()
			i++
			continue
		}
		if isPrintableRune(r) {
			cur = append(cur, r)
		} else {
			flush()
		}
		i += size
	}
	flush()

	filtered := out[:0]
	for _, s := range out {
		if len([]rune(s)) >= minPrintableRun {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func isPrintableRune(r rune) bool {
	if r == '\n' || r == '\r' || r == '\t' {
		return true
	}
	return unicode.IsPrint(r)
}

// trimTrailingJunk scans assembled lines from the end and cuts at the
// earliest trailing line that looks like metadata. Junk found scanning
// backward is treated as contiguous to end-of-text.
func trimTrailingJunk(text string) string {
	lines := strings.Split(text, "\n")
	cut := len(lines)
	for i := len(lines) - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if IsTrailingJunkLine(trimmed) {
			cut = i
			continue
		}
		break
	}
	return strings.TrimSpace(strings.Join(lines[:cut], "\n"))
}
