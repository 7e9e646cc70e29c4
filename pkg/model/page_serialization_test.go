package model

import (
	"errors"
	"reflect"
	"testing"
)

const testPageSize = uint64(2048)

func newTestDoc() *testDoc {
	return new(testDoc)
}

func TestPageRoundTrip(t *testing.T) {
	page := NewCollectionPage[uint64, *testDoc](5, testBudget)
	page.InsertDocument(&testDoc{ID: 1, Name: "one"})
	page.InsertDocument(&testDoc{ID: 2, Name: "two"})
	page.InsertDocument(&testDoc{ID: 3, Name: "three"})

	data, err := EncodePage[uint64, *testDoc](page, testPageSize)
	if err != nil {
		t.Fatalf("Failed to encode page: %v", err)
	}
	if uint64(len(data)) != testPageSize {
		t.Fatalf("Expected encoded page of %d bytes, got %d", testPageSize, len(data))
	}

	decoded, err := DecodePage[uint64, *testDoc](data, newTestDoc)
	if err != nil {
		t.Fatalf("Failed to decode page: %v", err)
	}

	if decoded.Header() != page.Header() {
		t.Errorf("Header mismatch after round-trip: %+v vs %+v", decoded.Header(), page.Header())
	}
	if !reflect.DeepEqual(decoded.Documents(), page.Documents()) {
		t.Errorf("Documents mismatch after round-trip: %+v vs %+v", decoded.Documents(), page.Documents())
	}
}

func TestEmptyPageRoundTrip(t *testing.T) {
	page := NewCollectionPage[uint64, *testDoc](0, testBudget)

	data, err := EncodePage[uint64, *testDoc](page, testPageSize)
	if err != nil {
		t.Fatalf("Failed to encode empty page: %v", err)
	}

	decoded, err := DecodePage[uint64, *testDoc](data, newTestDoc)
	if err != nil {
		t.Fatalf("Failed to decode empty page: %v", err)
	}

	if decoded.Header() != page.Header() {
		t.Errorf("Header mismatch after round-trip: %+v vs %+v", decoded.Header(), page.Header())
	}
	if len(decoded.Documents()) != 0 {
		t.Errorf("Expected no documents, got %d", len(decoded.Documents()))
	}
}

func TestEncodePageTooLargeForExtent(t *testing.T) {
	// A generous budget lets the page accept more content than a tiny
	// extent can frame
	page := NewCollectionPage[uint64, *testDoc](0, testBudget)
	page.InsertDocument(&testDoc{ID: 1, Name: "a rather long document name"})

	_, err := EncodePage[uint64, *testDoc](page, 48)

	var sizeErr ErrPageSizeExceeded
	if !errors.As(err, &sizeErr) {
		t.Fatalf("Expected ErrPageSizeExceeded, got %v", err)
	}
	if sizeErr.PageSize != 48 {
		t.Errorf("Expected page size 48 in error, got %d", sizeErr.PageSize)
	}
}

func TestDecodePageHeaderOnly(t *testing.T) {
	page := NewCollectionPage[uint64, *testDoc](9, testBudget)
	page.InsertDocument(&testDoc{ID: 4, Name: "four"})

	data, err := EncodePage[uint64, *testDoc](page, testPageSize)
	if err != nil {
		t.Fatalf("Failed to encode page: %v", err)
	}

	// Header decodes from just the fixed-size prefix
	header, err := DecodePageHeader(data[:PageHeaderSize])
	if err != nil {
		t.Fatalf("Failed to decode page header: %v", err)
	}

	if header != page.Header() {
		t.Errorf("Header mismatch: %+v vs %+v", header, page.Header())
	}
}

func TestDecodePageChecksumMismatch(t *testing.T) {
	page := NewCollectionPage[uint64, *testDoc](0, testBudget)
	page.InsertDocument(&testDoc{ID: 1, Name: "one"})

	data, err := EncodePage[uint64, *testDoc](page, testPageSize)
	if err != nil {
		t.Fatalf("Failed to encode page: %v", err)
	}

	data[PageHeaderSize+2] ^= 0xFF

	if _, err := DecodePage[uint64, *testDoc](data, newTestDoc); !errors.Is(err, ErrPageChecksumMismatch) {
		t.Fatalf("Expected ErrPageChecksumMismatch, got %v", err)
	}
}

func TestDecodePageTruncated(t *testing.T) {
	if _, err := DecodePage[uint64, *testDoc](make([]byte, PageHeaderSize-1), newTestDoc); !errors.Is(err, ErrInvalidPageData) {
		t.Fatalf("Expected ErrInvalidPageData, got %v", err)
	}

	if _, err := DecodePageHeader(make([]byte, 8)); !errors.Is(err, ErrInvalidPageData) {
		t.Fatalf("Expected ErrInvalidPageData for short header, got %v", err)
	}
}
