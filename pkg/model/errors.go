package model

import (
	"errors"
	"fmt"
)

// Page-level errors
var (
	// ErrNoFreeSpaceAvailable is returned when a page cannot hold a
	// document's serialized bytes
	ErrNoFreeSpaceAvailable = errors.New("no free space available in page")

	// ErrDocumentNotFound is returned when no document with the requested
	// identifier exists in the page
	ErrDocumentNotFound = errors.New("document not found")
)

// ErrDocumentTooLarge is returned when a document's serialized size exceeds
// the per-page data budget and can therefore never fit any page
type ErrDocumentTooLarge struct {
	DocumentSize uint64
	DataBudget   uint64
}

func (e ErrDocumentTooLarge) Error() string {
	return fmt.Sprintf("document size (%d) exceeds page data budget (%d)", e.DocumentSize, e.DataBudget)
}

// ErrPageSizeExceeded is returned when an encoded page does not fit inside
// the fixed page extent
type ErrPageSizeExceeded struct {
	EncodedSize uint64
	PageSize    uint64
}

func (e ErrPageSizeExceeded) Error() string {
	return fmt.Sprintf("encoded page size (%d) exceeds page size (%d)", e.EncodedSize, e.PageSize)
}

// ErrPageNumberTooHigh is returned when a page number lies beyond the range
// the paged file can serve
type ErrPageNumberTooHigh struct {
	PageNumber    uint64
	NumberOfPages uint64
}

func (e ErrPageNumberTooHigh) Error() string {
	return fmt.Sprintf("page number %d too high for collection with %d pages", e.PageNumber, e.NumberOfPages)
}
