package applenotes

import "sort"

type markerCandidate struct {
	offset int
	ref    AttachmentRef
}

// ResolveAttachments replaces inline attachment placeholders (hashtags,
// mentions) with their literal text and records the final character
// offset of every placeholder that stays a file marker. Offsets in the
// returned table index the returned text directly.
func ResolveAttachments(text string, runs []StyledRun, lookup AttachmentLookup) ResolvedContent {
	chars := []rune(text)
	markers := collectMarkers(chars, runs)
	return substituteMarkers(chars, markers, lookup)
}

// collectMarkers walks the run list with a character cursor derived from
// summing run lengths, recording the first placeholder inside each run
// that carries an attachment reference.
func collectMarkers(chars []rune, runs []StyledRun) []markerCandidate {
	var markers []markerCandidate
	pos := 0
	for _, run := range runs {
		end := pos + run.Length
		if end > len(chars) {
			end = len(chars)
		}
		if run.Attachment != nil {
			for i := pos; i < end; i++ {
				if chars[i] == PlaceholderRune {
					markers = append(markers, markerCandidate{offset: i, ref: *run.Attachment})
					break
				}
			}
		}
		pos += run.Length
		if pos > len(chars) {
			break
		}
	}
	return markers
}

// substituteMarkers applies inline substitutions left-to-right with a
// cumulative shift so later offsets stay correct as the text grows or
// shrinks. Splice and position capture share one buffer, so ordering by
// original offset is what keeps the arithmetic sound.
func substituteMarkers(chars []rune, markers []markerCandidate, lookup AttachmentLookup) ResolvedContent {
	sort.SliceStable(markers, func(i, j int) bool {
		return markers[i].offset < markers[j].offset
	})

	buf := make([]rune, len(chars))
	copy(buf, chars)
	positions := map[string]int{}
	shift := 0
	for _, m := range markers {
		at := m.offset + shift
		if at < 0 || at >= len(buf) {
			continue
		}
		literal, ok := resolveInline(m.ref, lookup)
		if !ok {
			positions[m.ref.Identifier] = at
			continue
		}
		repl := []rune(literal)
		next := make([]rune, 0, len(buf)+len(repl)-1)
		next = append(next, buf[:at]...)
		next = append(next, repl...)
		next = append(next, buf[at+1:]...)
		buf = next
		shift += len(repl) - 1
	}
	return ResolvedContent{Text: string(buf), Positions: positions}
}

// resolveInline asks the lookup for literal replacement text. Only
// hashtag/mention references are candidates, and a lookup panic degrades
// the reference to the file-marker path instead of failing the note.
func resolveInline(ref AttachmentRef, lookup AttachmentLookup) (literal string, ok bool) {
	if lookup == nil || ClassifyUTI(ref.TypeUTI) != AttachmentKindInline {
		return "", false
	}
	defer func() {
		if recover() != nil {
			literal, ok = "", false
		}
	}()
	return lookup(ref.Identifier, ref.TypeUTI)
}
