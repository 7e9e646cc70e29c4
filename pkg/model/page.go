package model

// CollectionPageHeader tracks a page's position in the collection file and
// its space accounting
type CollectionPageHeader struct {
	PageNumber         uint64 // 0-based, matches the page's offset in the file
	NumberOfDocuments  uint64 // Count of documents physically held in the page
	FreeSpaceAvailable uint64 // Remaining bytes of the page's data budget
}

// CollectionPage holds one page's worth of documents in memory together
// with its header. Documents are kept in insertion order; the whole page
// round-trips through the binary encoding as a single unit.
type CollectionPage[ID comparable, T Document[ID, T]] struct {
	header    CollectionPageHeader
	documents []T
}

// NewCollectionPage creates an empty page for the given page number with
// the full data budget available
func NewCollectionPage[ID comparable, T Document[ID, T]](pageNumber, dataBudget uint64) *CollectionPage[ID, T] {
	return &CollectionPage[ID, T]{
		header: CollectionPageHeader{
			PageNumber:         pageNumber,
			NumberOfDocuments:  0,
			FreeSpaceAvailable: dataBudget,
		},
	}
}

// InsertDocument appends a document to the page and charges its framed
// serialized size against the free-space account. It returns
// ErrNoFreeSpaceAvailable when the document does not fit.
func (p *CollectionPage[ID, T]) InsertDocument(doc T) error {
	size, err := EncodedDocumentSize[ID, T](doc)
	if err != nil {
		return err
	}

	if size > p.header.FreeSpaceAvailable {
		return ErrNoFreeSpaceAvailable
	}

	p.documents = append(p.documents, doc)
	p.header.FreeSpaceAvailable -= size
	p.header.NumberOfDocuments++

	return nil
}

// FindDocument scans the page for a document with the given identifier and
// returns a clone of the first match
func (p *CollectionPage[ID, T]) FindDocument(id ID) (T, bool) {
	for _, doc := range p.documents {
		if doc.DocumentID() == id {
			return doc.Clone(), true
		}
	}

	var zero T
	return zero, false
}

// UpdateDocument replaces the document sharing newDoc's identifier with
// newDoc, adjusting the free-space account by the net size delta. It
// returns ErrNoFreeSpaceAvailable when the new version cannot fit the
// page (the caller is expected to relocate it) and ErrDocumentNotFound
// when no document with that identifier is resident.
func (p *CollectionPage[ID, T]) UpdateDocument(newDoc T) error {
	newSize, err := EncodedDocumentSize[ID, T](newDoc)
	if err != nil {
		return err
	}

	for i, doc := range p.documents {
		if doc.DocumentID() != newDoc.DocumentID() {
			continue
		}

		oldSize, err := EncodedDocumentSize[ID, T](doc)
		if err != nil {
			return err
		}

		if newSize > p.header.FreeSpaceAvailable+oldSize {
			return ErrNoFreeSpaceAvailable
		}

		p.header.FreeSpaceAvailable += oldSize
		p.header.FreeSpaceAvailable -= newSize
		p.documents[i] = newDoc

		return nil
	}

	return ErrDocumentNotFound
}

// RemoveDocument removes the document with the given identifier and
// returns it. Removal is order-agnostic: the last document is swapped
// into the removed document's slot. The freed bytes are restored to the
// free-space account and the document count is decremented.
func (p *CollectionPage[ID, T]) RemoveDocument(id ID) (T, error) {
	var zero T

	for i, doc := range p.documents {
		if doc.DocumentID() != id {
			continue
		}

		size, err := EncodedDocumentSize[ID, T](doc)
		if err != nil {
			return zero, err
		}

		last := len(p.documents) - 1
		p.documents[i] = p.documents[last]
		p.documents[last] = zero
		p.documents = p.documents[:last]

		p.header.FreeSpaceAvailable += size
		p.header.NumberOfDocuments--

		return doc, nil
	}

	return zero, ErrDocumentNotFound
}

// Documents returns the documents resident in the page in storage order.
// The returned slice is owned by the page and must not be mutated.
func (p *CollectionPage[ID, T]) Documents() []T {
	return p.documents
}

// Header returns a copy of the page's header
func (p *CollectionPage[ID, T]) Header() CollectionPageHeader {
	return p.header
}

// PageNumber returns the page's 0-based position in the collection file
func (p *CollectionPage[ID, T]) PageNumber() uint64 {
	return p.header.PageNumber
}

// FreeSpaceAvailable returns the remaining bytes of the page's data budget
func (p *CollectionPage[ID, T]) FreeSpaceAvailable() uint64 {
	return p.header.FreeSpaceAvailable
}

// NumberOfDocuments returns the count of documents resident in the page
func (p *CollectionPage[ID, T]) NumberOfDocuments() uint64 {
	return p.header.NumberOfDocuments
}
