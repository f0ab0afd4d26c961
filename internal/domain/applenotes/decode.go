package applenotes

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrSchemaDecode reports a payload that does not match the NoteStore
// protobuf layout. Callers should fall back to ExtractReadableText.
var ErrSchemaDecode = errors.New("applenotes: decode note document")

// NoteStore protobuf field numbers, as written by current Notes builds.
const (
	fieldStoreDocument = 2

	fieldDocumentVersion = 2
	fieldDocumentNote    = 3

	fieldNoteText         = 2
	fieldNoteAttributeRun = 5

	fieldRunLength         = 1
	fieldRunAttachmentInfo = 12

	fieldAttachmentIdentifier = 1
	fieldAttachmentTypeUTI    = 2
)

// DecodeDocument unmarshals a decompressed note blob into its raw text
// and the ordered styled-run list. Structural absence of the document,
// note, or text field is a decode failure, never an empty success.
func DecodeDocument(data []byte) (string, []StyledRun, error) {
	document, ok, err := messageField(data, fieldStoreDocument)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, fmt.Errorf("%w: missing document", ErrSchemaDecode)
	}

	note, ok, err := messageField(document, fieldDocumentNote)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, fmt.Errorf("%w: missing note", ErrSchemaDecode)
	}

	var (
		text      string
		textFound bool
		runs      []StyledRun
	)
	err = walkFields(note, func(num protowire.Number, typ protowire.Type, value []byte) error {
		switch num {
		case fieldNoteText:
			if typ != protowire.BytesType {
				return fmt.Errorf("%w: note text is not a string field", ErrSchemaDecode)
			}
			text = string(value)
			textFound = true
		case fieldNoteAttributeRun:
			if typ != protowire.BytesType {
				return fmt.Errorf("%w: attribute run is not a message field", ErrSchemaDecode)
			}
			run, err := decodeAttributeRun(value)
			if err != nil {
				return err
			}
			runs = append(runs, run)
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	if !textFound {
		return "", nil, fmt.Errorf("%w: missing note text", ErrSchemaDecode)
	}
	return text, runs, nil
}

func decodeAttributeRun(data []byte) (StyledRun, error) {
	var run StyledRun
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, value []byte) error {
		switch num {
		case fieldRunLength:
			if typ != protowire.VarintType {
				return fmt.Errorf("%w: run length is not a varint", ErrSchemaDecode)
			}
			length, _ := protowire.ConsumeVarint(value)
			if int64(length) < 0 {
				return fmt.Errorf("%w: negative run length", ErrSchemaDecode)
			}
			run.Length = int(length)
		case fieldRunAttachmentInfo:
			if typ != protowire.BytesType {
				return fmt.Errorf("%w: attachment info is not a message field", ErrSchemaDecode)
			}
			ref, err := decodeAttachmentInfo(value)
			if err != nil {
				return err
			}
			run.Attachment = ref
		}
		return nil
	})
	return run, err
}

func decodeAttachmentInfo(data []byte) (*AttachmentRef, error) {
	var ref AttachmentRef
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, value []byte) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case fieldAttachmentIdentifier:
			ref.Identifier = string(value)
		case fieldAttachmentTypeUTI:
			ref.TypeUTI = string(value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// walkFields visits every top-level field of a wire-format message. For
// varint fields the callback gets the original varint bytes, for
// length-delimited fields the unwrapped payload.
func walkFields(data []byte, visit func(num protowire.Number, typ protowire.Type, value []byte) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrSchemaDecode, protowire.ParseError(n))
		}
		data = data[n:]

		var value []byte
		switch typ {
		case protowire.VarintType:
			_, n = protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("%w: %v", ErrSchemaDecode, protowire.ParseError(n))
			}
			value = data[:n]
		case protowire.BytesType:
			value, n = protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("%w: %v", ErrSchemaDecode, protowire.ParseError(n))
			}
		case protowire.Fixed32Type:
			_, n = protowire.ConsumeFixed32(data)
			if n < 0 {
				return fmt.Errorf("%w: %v", ErrSchemaDecode, protowire.ParseError(n))
			}
			value = data[:n]
		case protowire.Fixed64Type:
			_, n = protowire.ConsumeFixed64(data)
			if n < 0 {
				return fmt.Errorf("%w: %v", ErrSchemaDecode, protowire.ParseError(n))
			}
			value = data[:n]
		default:
			return fmt.Errorf("%w: unsupported wire type %d", ErrSchemaDecode, typ)
		}
		data = data[n:]

		if err := visit(num, typ, value); err != nil {
			return err
		}
	}
	return nil
}

// messageField returns the payload of the first length-delimited field
// with the given number, reporting whether it was present at all.
func messageField(data []byte, want protowire.Number) ([]byte, bool, error) {
	var (
		payload []byte
		found   bool
	)
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, value []byte) error {
		if num == want && typ == protowire.BytesType && !found {
			payload = value
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return payload, found, nil
}
