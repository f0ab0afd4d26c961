package applenotes

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// ErrDecompression reports a blob that announces a gzip envelope but
// cannot be inflated. Callers should fall back to ExtractReadableText.
var ErrDecompression = errors.New("applenotes: decompress note data")

var gzipMagic = []byte{0x1f, 0x8b}

// DecompressNoteData strips the optional gzip envelope around a note
// blob. Blobs without the gzip magic are returned unchanged; older
// NoteStore versions stored the payload uncompressed.
func DecompressNoteData(raw []byte) ([]byte, error) {
	if !bytes.HasPrefix(raw, gzipMagic) {
		return raw, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	return out, nil
}
