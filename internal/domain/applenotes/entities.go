package applenotes

import (
	"strings"
	"time"
)

// PlaceholderRune is the object replacement character Apple Notes embeds
// where an attachment sits in the note text.
const PlaceholderRune = '￼'

type Note struct {
	ID       int64
	Title    string
	Folder   string
	Created  time.Time
	Modified time.Time
	Data     []byte
}

type AttachmentRef struct {
	Identifier string
	TypeUTI    string
}

// StyledRun is a contiguous span of decoded note text. Length counts
// characters, not bytes. Runs partition the text in order without gaps.
type StyledRun struct {
	Length     int
	Attachment *AttachmentRef
}

// ResolvedContent carries the final note text and, for every attachment
// that stayed a file marker, the character offset of its placeholder in
// that text.
type ResolvedContent struct {
	Text      string
	Positions map[string]int
}

// NoteContent is what the full decode pipeline hands back. Recovered is
// set when structured decoding failed and Text came from the byte-scan
// fallback, in which case Positions is empty.
type NoteContent struct {
	Text      string
	Positions map[string]int
	Recovered bool
}

type AttachmentKind int

const (
	AttachmentKindFile AttachmentKind = iota
	AttachmentKindInline
)

// ClassifyUTI decides how an attachment reference is resolved. Hashtags
// and mentions render as literal text inside the prose; everything else
// stays a positional file marker.
func ClassifyUTI(uti string) AttachmentKind {
	lower := strings.ToLower(uti)
	if strings.Contains(lower, "hashtag") || strings.Contains(lower, "mention") {
		return AttachmentKindInline
	}
	return AttachmentKindFile
}

// AttachmentLookup resolves an attachment reference to literal inline
// text. Returning ok=false leaves the reference as a file marker.
type AttachmentLookup func(identifier, typeUTI string) (string, bool)
