package storage

import (
	"fmt"

	"git.canoozie.net/riddling/docstore/pkg/model"
)

// BuildIdentifierIndex scans every page of the collection file once and
// builds an in-memory mapping from document identifier to the page number
// holding it. The index is never persisted; it is rebuilt from scratch on
// every open. If an identifier recurs across pages (which should not
// happen under correct operation), the later page wins.
func BuildIdentifierIndex[ID comparable, T model.Document[ID, T]](file *CollectionFile[ID, T]) (map[ID]uint64, error) {
	index := make(map[ID]uint64)

	for pageNumber := uint64(0); pageNumber < file.NumberOfPages(); pageNumber++ {
		page, err := file.ReadPage(pageNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to index page %d: %w", pageNumber, err)
		}

		for _, doc := range page.Documents() {
			index[doc.DocumentID()] = pageNumber
		}
	}

	return index, nil
}
