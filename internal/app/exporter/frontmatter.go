package exporter

import (
	"fmt"
	"runtime"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/billzajac/apple-notes-to-markdown/internal/domain/applenotes"
)

const timestampLayout = "2006-01-02T15:04:05Z07:00"

type noteFrontmatter struct {
	Title   string   `yaml:"title"`
	Created string   `yaml:"created,omitempty"`
	Updated string   `yaml:"updated,omitempty"`
	Folder  string   `yaml:"folder,omitempty"`
	Tags    []string `yaml:"tags,omitempty"`
}

func renderFrontmatter(note applenotes.Note, label string) (string, error) {
	fm := noteFrontmatter{
		Title:   note.Title,
		Created: formatTimestamp(note.Created),
		Updated: formatTimestamp(note.Modified),
		Folder:  note.Folder,
	}
	if strings.TrimSpace(label) != "" {
		fm.Tags = append(fm.Tags, strings.TrimSpace(label))
	}
	out, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("marshal frontmatter: %w", err)
	}
	return "---\n" + string(out) + "---\n\n", nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

const maxFilenameLength = 100

func sanitizeName(s string, mode string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		if isForbiddenFileNameRune(r, mode) {
			b.WriteRune('-')
			continue
		}
		b.WriteRune(r)
	}
	out := strings.TrimSpace(b.String())
	if mode == "windows" {
		out = strings.TrimRight(out, ". ")
	}
	out = strings.Trim(out, "/")
	if out == "." || out == ".." {
		out = ""
	}
	if mode == "windows" && isWindowsReservedName(out) {
		out = out + "-file"
	}
	if runes := []rune(out); len(runes) > maxFilenameLength {
		out = strings.TrimSpace(string(runes[:maxFilenameLength]))
	}
	if out == "" {
		return "untitled"
	}
	return out
}

func resolveFilenameEscaping(mode string) (string, error) {
	mode = strings.TrimSpace(strings.ToLower(mode))
	if mode == "" || mode == "auto" {
		if runtime.GOOS == "windows" {
			return "windows", nil
		}
		return "posix", nil
	}
	if mode == "posix" || mode == "windows" {
		return mode, nil
	}
	return "", fmt.Errorf("invalid filename escaping mode %q: expected auto, posix, or windows", mode)
}

func filenameCollisionKey(name string, mode string) string {
	if mode == "windows" {
		return strings.ToLower(name)
	}
	return name
}

func isForbiddenFileNameRune(r rune, mode string) bool {
	if r == 0 || r == '/' || unicode.IsControl(r) {
		return true
	}
	if mode != "windows" {
		return false
	}
	switch r {
	case '<', '>', ':', '"', '\\', '|', '?', '*':
		return true
	default:
		return false
	}
}

func isWindowsReservedName(name string) bool {
	if name == "" {
		return false
	}
	upper := strings.ToUpper(strings.TrimSpace(name))
	if idx := strings.IndexRune(upper, '.'); idx >= 0 {
		upper = upper[:idx]
	}
	switch upper {
	case "CON", "PRN", "AUX", "NUL",
		"COM1", "COM2", "COM3", "COM4", "COM5", "COM6", "COM7", "COM8", "COM9",
		"LPT1", "LPT2", "LPT3", "LPT4", "LPT5", "LPT6", "LPT7", "LPT8", "LPT9":
		return true
	default:
		return false
	}
}
