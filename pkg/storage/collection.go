package storage

import (
	"errors"
	"fmt"

	"git.canoozie.net/riddling/docstore/pkg/model"
)

// Collection errors
var (
	// ErrDuplicateDocument is returned when inserting a document whose
	// identifier is already present in the collection
	ErrDuplicateDocument = errors.New("document with this id already exists")
)

// CollectionConfig holds configuration options for opening a collection
type CollectionConfig struct {
	// Name of the collection; the backing file is <Name>.collection
	Name string

	// Dir is the directory holding the backing file
	Dir string

	// PageSize is the size of each page extent in bytes
	PageSize uint64

	// PageDataSize is the per-page document payload budget in bytes
	PageDataSize uint64

	// Logger for collection operations
	Logger model.Logger
}

// DefaultCollectionConfig returns a default configuration for a collection
func DefaultCollectionConfig() CollectionConfig {
	return CollectionConfig{
		PageSize:     DefaultPageSize,
		PageDataSize: DefaultPageDataSize,
		Logger:       model.DefaultLoggerInstance,
	}
}

// Collection is the entry point for consistent reads and writes against a
// single-file document store. It owns the paged file store and the
// identifier index exclusively; using the file store directly bypasses
// the index and can desynchronize state. A Collection assumes a single
// exclusive owner of the backing file and performs no internal locking.
type Collection[ID comparable, T model.Document[ID, T]] struct {
	config CollectionConfig
	file   *CollectionFile[ID, T]
	index  map[ID]uint64
	logger model.Logger
	isOpen bool
}

// OpenCollection opens the collection's paged file store and builds the
// identifier index over it. alloc produces fresh zero documents for page
// decoding.
func OpenCollection[ID comparable, T model.Document[ID, T]](config CollectionConfig, alloc func() T) (*Collection[ID, T], error) {
	if config.Logger == nil {
		config.Logger = model.DefaultLoggerInstance
	}
	if config.PageSize == 0 {
		config.PageSize = DefaultPageSize
	}
	if config.PageDataSize == 0 {
		config.PageDataSize = DefaultPageDataSize
	}

	file, err := OpenCollectionFile[ID, T](CollectionFileConfig{
		Name:         config.Name,
		Dir:          config.Dir,
		PageSize:     config.PageSize,
		PageDataSize: config.PageDataSize,
		Logger:       config.Logger,
	}, alloc)
	if err != nil {
		return nil, err
	}

	index, err := BuildIdentifierIndex(file)
	if err != nil {
		file.Close()
		return nil, err
	}

	config.Logger.Debug("Opened collection %q with %d pages and %d documents",
		config.Name, file.NumberOfPages(), len(index))

	return &Collection[ID, T]{
		config: config,
		file:   file,
		index:  index,
		logger: config.Logger,
		isOpen: true,
	}, nil
}

// InsertOne stores a new document in the collection. The target page is
// chosen first-fit: the lowest-numbered page whose free space holds the
// document, or a freshly appended page when none qualifies. It returns
// ErrDocumentTooLarge when the document exceeds the per-page data budget
// and ErrDuplicateDocument when its identifier is already present.
func (c *Collection[ID, T]) InsertOne(doc T) error {
	if !c.isOpen {
		return ErrCollectionClosed
	}

	size, err := model.EncodedDocumentSize[ID, T](doc)
	if err != nil {
		return fmt.Errorf("failed to size document: %w", err)
	}

	if size > c.config.PageDataSize {
		return model.ErrDocumentTooLarge{DocumentSize: size, DataBudget: c.config.PageDataSize}
	}

	id := doc.DocumentID()
	if _, exists := c.index[id]; exists {
		return fmt.Errorf("%w: %v", ErrDuplicateDocument, id)
	}

	page, err := c.firstPageWithSpace(size)
	if err != nil {
		return err
	}

	if err := page.InsertDocument(doc); err != nil {
		return err
	}

	if err := c.file.WritePage(page); err != nil {
		return err
	}

	c.index[id] = page.PageNumber()
	c.logger.Debug("Inserted document %v into page %d", id, page.PageNumber())

	return nil
}

// FindByID returns a copy of the document with the given identifier, or
// false when the identifier is not indexed or, defensively, when its page
// no longer contains it.
func (c *Collection[ID, T]) FindByID(id ID) (T, bool, error) {
	var zero T

	if !c.isOpen {
		return zero, false, ErrCollectionClosed
	}

	pageNumber, ok := c.index[id]
	if !ok {
		return zero, false, nil
	}

	page, err := c.file.ReadPage(pageNumber)
	if err != nil {
		return zero, false, err
	}

	doc, found := page.FindDocument(id)
	return doc, found, nil
}

// FindBy scans every page of the collection and returns copies of the
// documents matching the predicate, in ascending page order then in-page
// storage order. The scan is O(total documents) with no index assistance.
func (c *Collection[ID, T]) FindBy(predicate func(T) bool) ([]T, error) {
	if !c.isOpen {
		return nil, ErrCollectionClosed
	}

	var matches []T
	for pageNumber := uint64(0); pageNumber < c.file.NumberOfPages(); pageNumber++ {
		page, err := c.file.ReadPage(pageNumber)
		if err != nil {
			return nil, err
		}

		for _, doc := range page.Documents() {
			if predicate(doc) {
				matches = append(matches, doc.Clone())
			}
		}
	}

	return matches, nil
}

// UpdateOne replaces the stored document sharing doc's identifier. When
// the new version still fits its current page it is updated in place;
// when it no longer fits, it is removed from that page and re-inserted
// through the normal insertion path, which may relocate it to a different
// page. It returns ErrDocumentNotFound when the identifier is not present.
func (c *Collection[ID, T]) UpdateOne(doc T) error {
	if !c.isOpen {
		return ErrCollectionClosed
	}

	size, err := model.EncodedDocumentSize[ID, T](doc)
	if err != nil {
		return fmt.Errorf("failed to size document: %w", err)
	}

	// A document that can never fit any page must be rejected before the
	// old version is touched, or the relocation path would lose it.
	if size > c.config.PageDataSize {
		return model.ErrDocumentTooLarge{DocumentSize: size, DataBudget: c.config.PageDataSize}
	}

	id := doc.DocumentID()
	pageNumber, ok := c.index[id]
	if !ok {
		return fmt.Errorf("%w: %v", model.ErrDocumentNotFound, id)
	}

	page, err := c.file.ReadPage(pageNumber)
	if err != nil {
		return err
	}

	err = page.UpdateDocument(doc)
	if err == nil {
		return c.file.WritePage(page)
	}

	if !errors.Is(err, model.ErrNoFreeSpaceAvailable) {
		return err
	}

	return c.relocate(doc, page)
}

// relocate moves a document that no longer fits its current page: the old
// version is removed from the page (persisting that removal), the index
// entry dropped, and the new version inserted through the normal
// first-fit insertion path.
func (c *Collection[ID, T]) relocate(doc T, page *model.CollectionPage[ID, T]) error {
	id := doc.DocumentID()

	if _, err := page.RemoveDocument(id); err != nil {
		return err
	}

	if err := c.file.WritePage(page); err != nil {
		return err
	}

	delete(c.index, id)
	c.logger.Debug("Relocating document %v off page %d", id, page.PageNumber())

	return c.InsertOne(doc)
}

// Count returns the number of documents in the collection
func (c *Collection[ID, T]) Count() int {
	return len(c.index)
}

// Close closes the collection's backing file; subsequent operations fail
// with ErrCollectionClosed
func (c *Collection[ID, T]) Close() error {
	if !c.isOpen {
		return nil
	}

	c.isOpen = false
	return c.file.Close()
}

// firstPageWithSpace returns the lowest-numbered page whose free space can
// hold a document of the given size, or a fresh empty page at the end of
// the file when no existing page qualifies. Page headers are probed
// without materializing documents.
func (c *Collection[ID, T]) firstPageWithSpace(size uint64) (*model.CollectionPage[ID, T], error) {
	numberOfPages := c.file.NumberOfPages()

	for pageNumber := uint64(0); pageNumber < numberOfPages; pageNumber++ {
		header, err := c.file.ReadPageHeader(pageNumber)
		if err != nil {
			return nil, err
		}

		if header.FreeSpaceAvailable >= size {
			return c.file.ReadPage(pageNumber)
		}
	}

	return model.NewCollectionPage[ID, T](numberOfPages, c.config.PageDataSize), nil
}
