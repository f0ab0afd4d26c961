package applenotes

// DecodeNoteData runs the full decode pipeline for one note blob:
// decompress, structured decode, attachment resolution. When either of
// the first two stages fails it degrades to byte-scan recovery and
// reports the stage error alongside the recovered content; the returned
// NoteContent is always usable and a batch caller should log the error
// rather than abort.
func DecodeNoteData(blob []byte, lookup AttachmentLookup) (NoteContent, error) {
	plain, err := DecompressNoteData(blob)
	if err != nil {
		return recoverContent(blob), err
	}
	text, runs, err := DecodeDocument(plain)
	if err != nil {
		return recoverContent(plain), err
	}
	resolved := ResolveAttachments(text, runs, lookup)
	return NoteContent{Text: resolved.Text, Positions: resolved.Positions}, nil
}

func recoverContent(raw []byte) NoteContent {
	return NoteContent{
		Text:      ExtractReadableText(raw),
		Positions: map[string]int{},
		Recovered: true,
	}
}
