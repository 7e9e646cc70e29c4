package model

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

const (
	// PageHeaderSize is the size of the serialized page header in bytes:
	// Checksum (8) + PageNumber (8) + NumberOfDocuments (8) + FreeSpaceAvailable (8)
	PageHeaderSize = 32
)

// ErrInvalidPageData is returned when attempting to decode malformed page bytes
var ErrInvalidPageData = errors.New("invalid page data")

// ErrPageChecksumMismatch is returned when a page's stored checksum does not
// match its contents
var ErrPageChecksumMismatch = errors.New("page checksum mismatch")

// EncodePage serializes a page into a byte slice of exactly pageSize bytes.
// Layout: checksum | page number | document count | free space | one
// length-prefixed blob per document | zero padding. The checksum is an
// xxhash64 over everything after the checksum field, padding included.
func EncodePage[ID comparable, T Document[ID, T]](page *CollectionPage[ID, T], pageSize uint64) ([]byte, error) {
	if page == nil {
		return nil, errors.New("cannot encode nil page")
	}

	docs := page.Documents()
	encoded := make([][]byte, len(docs))

	contentSize := uint64(PageHeaderSize)
	for i, doc := range docs {
		data, err := doc.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("failed to marshal document: %w", err)
		}
		encoded[i] = data
		contentSize += DocumentFrameSize + uint64(len(data))
	}

	if contentSize > pageSize {
		return nil, ErrPageSizeExceeded{EncodedSize: contentSize, PageSize: pageSize}
	}

	buffer := make([]byte, pageSize)
	header := page.Header()

	binary.LittleEndian.PutUint64(buffer[8:16], header.PageNumber)
	binary.LittleEndian.PutUint64(buffer[16:24], header.NumberOfDocuments)
	binary.LittleEndian.PutUint64(buffer[24:32], header.FreeSpaceAvailable)

	offset := uint64(PageHeaderSize)
	for _, data := range encoded {
		binary.LittleEndian.PutUint32(buffer[offset:offset+DocumentFrameSize], uint32(len(data)))
		offset += DocumentFrameSize
		copy(buffer[offset:], data)
		offset += uint64(len(data))
	}

	binary.LittleEndian.PutUint64(buffer[0:8], xxhash.Sum64(buffer[8:]))

	return buffer, nil
}

// DecodePage deserializes a full page extent back into a CollectionPage.
// alloc produces fresh zero documents for the decoder to unmarshal into.
// The page checksum is verified before any document is materialized.
func DecodePage[ID comparable, T Document[ID, T]](data []byte, alloc func() T) (*CollectionPage[ID, T], error) {
	if len(data) < PageHeaderSize {
		return nil, ErrInvalidPageData
	}

	storedChecksum := binary.LittleEndian.Uint64(data[0:8])
	if storedChecksum != xxhash.Sum64(data[8:]) {
		return nil, ErrPageChecksumMismatch
	}

	header, err := DecodePageHeader(data)
	if err != nil {
		return nil, err
	}

	page := &CollectionPage[ID, T]{
		header: header,
	}

	offset := uint64(PageHeaderSize)
	for i := uint64(0); i < header.NumberOfDocuments; i++ {
		if offset+DocumentFrameSize > uint64(len(data)) {
			return nil, ErrInvalidPageData
		}

		docLen := uint64(binary.LittleEndian.Uint32(data[offset : offset+DocumentFrameSize]))
		offset += DocumentFrameSize

		if offset+docLen > uint64(len(data)) {
			return nil, ErrInvalidPageData
		}

		doc := alloc()
		if err := doc.UnmarshalBinary(data[offset : offset+docLen]); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document %d: %w", i, err)
		}
		offset += docLen

		page.documents = append(page.documents, doc)
	}

	return page, nil
}

// DecodePageHeader deserializes only the fixed-size header prefix of a page
// extent, for cheap space-availability probing without materializing the
// page's documents. The checksum covers the whole extent and is not
// verified here.
func DecodePageHeader(data []byte) (CollectionPageHeader, error) {
	if len(data) < PageHeaderSize {
		return CollectionPageHeader{}, ErrInvalidPageData
	}

	return CollectionPageHeader{
		PageNumber:         binary.LittleEndian.Uint64(data[8:16]),
		NumberOfDocuments:  binary.LittleEndian.Uint64(data[16:24]),
		FreeSpaceAvailable: binary.LittleEndian.Uint64(data[24:32]),
	}, nil
}
