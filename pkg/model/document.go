package model

import "encoding"

// DocumentFrameSize is the number of bytes of framing added to each
// document when it is stored in a page (a fixed-width length prefix).
const DocumentFrameSize = 4

// Document is the capability contract a type must satisfy to be stored in
// a collection: it exposes a unique comparable identifier, serializes to
// and from a stable binary encoding, and can be cloned so lookups return
// owned copies. T is the implementing type itself (typically a pointer
// type, so UnmarshalBinary can mutate it).
type Document[ID comparable, T any] interface {
	DocumentID() ID
	Clone() T
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// EncodedDocumentSize returns the number of bytes the document occupies
// inside a page, including its length frame. All free-space accounting
// uses this framed size, so a page whose budget is spent always encodes
// within the physical page extent.
func EncodedDocumentSize[ID comparable, T Document[ID, T]](doc T) (uint64, error) {
	data, err := doc.MarshalBinary()
	if err != nil {
		return 0, err
	}
	return DocumentFrameSize + uint64(len(data)), nil
}
