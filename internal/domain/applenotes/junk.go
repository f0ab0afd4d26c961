package applenotes

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Heuristics below are tuned against real NoteStore blobs rather than
// derived from a format contract. They are package variables so hosts
// can adjust them when a database produces different metadata noise.
var (
	// JunkSubstrings mark schema and identifier fragments that leak
	// into byte-scan output.
	JunkSubstrings = []string{
		"com.apple.",
		"public.data",
		"x-coredata",
		"NSAttributedString",
		"NSDictionary",
		"kCF",
		"dyn.a",
	}

	// MojibakeRunes are the latin-1 artifacts UTF-8 note text degrades
	// into when scanned byte-by-byte.
	MojibakeRunes = []rune{'â', 'Â', 'Ã', 'ï', '¿', '¼', '€', '™', ' '}

	// MinAlnumRatio is the share of alphanumeric-or-space characters a
	// candidate needs to count as prose.
	MinAlnumRatio = 0.5

	// MaxMojibakeRatio is the tolerated share of mojibake characters.
	MaxMojibakeRatio = 0.3
)

// IsJunkString rejects metadata-shaped noise while keeping prose.
func IsJunkString(s string) bool {
	if s == "" {
		return true
	}
	runes := []rune(s)

	alnum := 0
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			alnum++
		}
	}
	if float64(alnum)/float64(len(runes)) < MinAlnumRatio {
		return true
	}

	if isHexBlob(runes) {
		return true
	}

	for _, sub := range JunkSubstrings {
		if strings.Contains(s, sub) {
			return true
		}
	}

	mojibake := 0
	for _, r := range runes {
		if isMojibakeRune(r) {
			mojibake++
		}
	}
	if float64(mojibake)/float64(len(runes)) > MaxMojibakeRatio {
		return true
	}

	if len(runes) < 15 {
		punct := 0
		for _, r := range runes {
			if unicode.IsPunct(r) || unicode.IsSymbol(r) {
				punct++
			}
		}
		if float64(punct)/float64(len(runes)) > 0.5 {
			return true
		}
	}

	return false
}

// isHexBlob reports strings made entirely of hex digits and dashes,
// which read as identifiers rather than text.
func isHexBlob(runes []rune) bool {
	seen := false
	for _, r := range runes {
		if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
			continue
		}
		if !isHexRune(r) && r != '-' {
			return false
		}
		seen = true
	}
	return seen
}

func isHexRune(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isMojibakeRune(r rune) bool {
	for _, m := range MojibakeRunes {
		if r == m {
			return true
		}
	}
	return false
}

// IsTrailingJunkLine spots the metadata tail that byte-scanned blobs
// carry after the prose: UUID tokens, dotted namespaced identifiers,
// short marker tokens, and mojibake-heavy lines.
func IsTrailingJunkLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	fields := strings.Fields(trimmed)
	for _, tok := range fields {
		if _, err := uuid.Parse(tok); err == nil {
			return true
		}
		if isNamespacedToken(tok) {
			return true
		}
	}

	runes := []rune(trimmed)
	mojibake := 0
	for _, r := range runes {
		if isMojibakeRune(r) || r == PlaceholderRune {
			mojibake++
		}
	}
	if float64(mojibake)/float64(len(runes)) > MaxMojibakeRatio {
		return true
	}

	if len(runes) < 8 && len(fields) == 1 && !hasLetterRun(runes, 3) {
		return true
	}

	return false
}

// NamespacePrefixes are the leading labels of dotted identifiers that
// read as schema noise (com.apple.notes.table, dyn.ah62d4...). Plain
// hostnames and URLs in prose (www.example.com) stay untouched.
var NamespacePrefixes = []string{"com", "net", "org", "dyn", "public", "x-coredata"}

// isNamespacedToken matches dotted reverse-DNS identifiers such as
// com.apple.notes.table without catching ordinary sentences.
func isNamespacedToken(tok string) bool {
	parts := strings.Split(tok, ".")
	if len(parts) < 3 {
		return false
	}
	known := false
	for _, prefix := range NamespacePrefixes {
		if parts[0] == prefix {
			known = true
			break
		}
	}
	if !known {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		for _, r := range p {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
				return false
			}
		}
	}
	return true
}

func hasLetterRun(runes []rune, n int) bool {
	run := 0
	for _, r := range runes {
		if unicode.IsLetter(r) {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}
