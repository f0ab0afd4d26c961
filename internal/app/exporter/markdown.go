package exporter

import (
	"regexp"
	"sort"
	"strings"

	"github.com/billzajac/apple-notes-to-markdown/internal/domain/applenotes"
)

type attachmentLink struct {
	Name   string
	Target string
	Image  bool
}

// renderNoteBody turns decoded note content into markdown: placeholder
// markers become attachment links, the duplicated title line is
// dropped, and decode artifacts are cleaned up.
func renderNoteBody(title string, content applenotes.NoteContent, links map[string]attachmentLink) string {
	text := replaceAttachmentMarkers(content.Text, content.Positions, links)
	text = stripLeadingTitle(text, title)
	text = cleanupText(text)
	if text == "" {
		return ""
	}
	return text + "\n"
}

// replaceAttachmentMarkers substitutes placeholder characters with
// markdown links, working from the highest offset down so earlier
// offsets stay valid while the text grows. Markers without a position
// table entry are handled generically by cleanupText.
func replaceAttachmentMarkers(text string, positions map[string]int, links map[string]attachmentLink) string {
	if len(positions) == 0 {
		return text
	}
	type marker struct {
		id     string
		offset int
	}
	markers := make([]marker, 0, len(positions))
	for id, at := range positions {
		markers = append(markers, marker{id: id, offset: at})
	}
	sort.Slice(markers, func(i, j int) bool { return markers[i].offset > markers[j].offset })

	chars := []rune(text)
	for _, m := range markers {
		if m.offset < 0 || m.offset >= len(chars) || chars[m.offset] != applenotes.PlaceholderRune {
			continue
		}
		link, ok := links[m.id]
		if !ok {
			link = attachmentLink{Name: "attachment"}
		}
		repl := []rune(markdownLink(link))
		next := make([]rune, 0, len(chars)+len(repl)-1)
		next = append(next, chars[:m.offset]...)
		next = append(next, repl...)
		next = append(next, chars[m.offset+1:]...)
		chars = next
	}
	return string(chars)
}

func markdownLink(link attachmentLink) string {
	name := link.Name
	if name == "" {
		name = "attachment"
	}
	if link.Target == "" {
		return "[" + name + "]"
	}
	if link.Image {
		return "![" + name + "](" + link.Target + ")"
	}
	return "[" + name + "](" + link.Target + ")"
}

// stripLeadingTitle drops the first line when it repeats the note
// title, which Notes stores as both the title column and the first
// text line.
func stripLeadingTitle(text, title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return text
	}
	trimmed := strings.TrimLeft(text, "\n")
	line, rest, found := strings.Cut(trimmed, "\n")
	if strings.TrimSpace(line) != title {
		return text
	}
	if !found {
		return ""
	}
	return rest
}

var textReplacements = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "-",
	" ", " ",
	"\r\n", "\n",
	"\r", "\n",
	string(applenotes.PlaceholderRune), "[attachment]",
)

var blankLineRun = regexp.MustCompile(`\n{3,}`)

// cleanupText normalizes decode artifacts: smart punctuation, stray
// placeholder characters, mojibake residue, and runs of blank lines.
func cleanupText(text string) string {
	text = textReplacements.Replace(text)
	text = strings.Map(func(r rune) rune {
		switch r {
		case 'Â', 'Ã', '\x00':
			return -1
		}
		return r
	}, text)
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	return strings.Trim(text, " \n\t")
}
