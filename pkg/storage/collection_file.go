package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"git.canoozie.net/riddling/docstore/pkg/model"
)

// Collection file errors
var (
	ErrCollectionClosed      = errors.New("collection is closed")
	ErrInvalidFileFormat     = errors.New("invalid collection file format")
	ErrUnsupportedVersion    = errors.New("unsupported collection file version")
	ErrFileHeaderCorrupted   = errors.New("collection file header is corrupted")
	ErrPageGeometryMismatch  = errors.New("collection file page geometry does not match configuration")
	ErrInvalidPageDataBudget = errors.New("page data budget leaves no headroom for the page header")
)

// CollectionFileMagic is a magic number that identifies a collection file
const CollectionFileMagic uint32 = 0x434F4C4C // "COLL"

// CollectionFileVersion is the current version of the collection file format
const CollectionFileVersion uint16 = 1

// FileHeaderSize is the size of the fixed header at the start of a
// collection file: Magic (4) + Version (2) + Reserved (2) + PageSize (4) +
// PageDataSize (4) + NumberOfPages (8) + Checksum (8). Pages follow the
// header at fixed PageSize extents.
const FileHeaderSize = 32

const (
	// DefaultPageSize is the default size of a page extent in bytes
	DefaultPageSize = 64_000

	// DefaultPageDataSize is the default per-page document payload budget,
	// strictly smaller than the page size to leave room for the page
	// header and per-document framing
	DefaultPageDataSize = 62_000
)

// CollectionFileConfig holds configuration options for opening a collection file
type CollectionFileConfig struct {
	// Name of the collection; the backing file is <Name>.collection
	Name string

	// Dir is the directory holding the backing file
	Dir string

	// PageSize is the size of each page extent in bytes
	PageSize uint64

	// PageDataSize is the per-page document payload budget in bytes
	PageDataSize uint64

	// Logger for file store operations
	Logger model.Logger
}

// DefaultCollectionFileConfig returns a default configuration for a collection file
func DefaultCollectionFileConfig() CollectionFileConfig {
	return CollectionFileConfig{
		PageSize:     DefaultPageSize,
		PageDataSize: DefaultPageDataSize,
		Logger:       model.DefaultLoggerInstance,
	}
}

// CollectionFile maps logical page numbers to fixed-size byte extents of
// one backing file. It owns the file handle exclusively for its lifetime;
// access from a second handle is not coordinated.
type CollectionFile[ID comparable, T model.Document[ID, T]] struct {
	config        CollectionFileConfig
	path          string
	file          *os.File
	numberOfPages uint64
	alloc         func() T
	logger        model.Logger
	isOpen        bool
}

// OpenCollectionFile opens the backing file for a collection, creating it
// if absent. A freshly created file receives a file header and a
// synthesized empty page 0, so an open store is never zero-paged. alloc
// produces fresh zero documents for page decoding.
func OpenCollectionFile[ID comparable, T model.Document[ID, T]](config CollectionFileConfig, alloc func() T) (*CollectionFile[ID, T], error) {
	if config.Logger == nil {
		config.Logger = model.DefaultLoggerInstance
	}
	if config.PageSize == 0 {
		config.PageSize = DefaultPageSize
	}
	if config.PageDataSize == 0 {
		config.PageDataSize = DefaultPageDataSize
	}

	if config.PageDataSize+model.PageHeaderSize > config.PageSize {
		return nil, ErrInvalidPageDataBudget
	}

	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create collection directory: %w", err)
	}

	path := filepath.Join(config.Dir, config.Name+".collection")
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection file %s: %w", path, err)
	}

	cf := &CollectionFile[ID, T]{
		config: config,
		path:   path,
		file:   file,
		alloc:  alloc,
		logger: config.Logger,
		isOpen: true,
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat collection file %s: %w", path, err)
	}

	if info.Size() == 0 {
		if err := cf.initialize(); err != nil {
			file.Close()
			return nil, err
		}
		cf.logger.Info("Created collection file %s", path)
		return cf, nil
	}

	if err := cf.readFileHeader(); err != nil {
		file.Close()
		return nil, err
	}

	cf.logger.Debug("Opened collection file %s with %d pages", path, cf.numberOfPages)
	return cf, nil
}

// initialize writes the file header and a synthesized empty page 0 into a
// freshly created file
func (cf *CollectionFile[ID, T]) initialize() error {
	if err := cf.writeFileHeader(); err != nil {
		return err
	}

	page := model.NewCollectionPage[ID, T](0, cf.config.PageDataSize)
	return cf.WritePage(page)
}

// ReadPage reads and decodes the full page at the given page number
func (cf *CollectionFile[ID, T]) ReadPage(pageNumber uint64) (*model.CollectionPage[ID, T], error) {
	if !cf.isOpen {
		return nil, ErrCollectionClosed
	}

	if pageNumber >= cf.numberOfPages {
		return nil, model.ErrPageNumberTooHigh{PageNumber: pageNumber, NumberOfPages: cf.numberOfPages}
	}

	buffer := make([]byte, cf.config.PageSize)
	if _, err := cf.file.ReadAt(buffer, cf.pageOffset(pageNumber)); err != nil {
		return nil, fmt.Errorf("failed to read page %d: %w", pageNumber, err)
	}

	page, err := model.DecodePage[ID, T](buffer, cf.alloc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode page %d: %w", pageNumber, err)
	}

	return page, nil
}

// ReadPageHeader reads and decodes only the header prefix of the page at
// the given page number, without materializing its documents
func (cf *CollectionFile[ID, T]) ReadPageHeader(pageNumber uint64) (model.CollectionPageHeader, error) {
	if !cf.isOpen {
		return model.CollectionPageHeader{}, ErrCollectionClosed
	}

	if pageNumber >= cf.numberOfPages {
		return model.CollectionPageHeader{}, model.ErrPageNumberTooHigh{PageNumber: pageNumber, NumberOfPages: cf.numberOfPages}
	}

	buffer := make([]byte, model.PageHeaderSize)
	if _, err := cf.file.ReadAt(buffer, cf.pageOffset(pageNumber)); err != nil {
		return model.CollectionPageHeader{}, fmt.Errorf("failed to read header of page %d: %w", pageNumber, err)
	}

	header, err := model.DecodePageHeader(buffer)
	if err != nil {
		return model.CollectionPageHeader{}, fmt.Errorf("failed to decode header of page %d: %w", pageNumber, err)
	}

	return header, nil
}

// WritePage encodes the page and writes it at its designated offset as one
// whole-page write. A page may overwrite an existing page or extend the
// file by exactly one page; appends persist the new page count in the
// file header.
func (cf *CollectionFile[ID, T]) WritePage(page *model.CollectionPage[ID, T]) error {
	if !cf.isOpen {
		return ErrCollectionClosed
	}

	pageNumber := page.PageNumber()
	if pageNumber > cf.numberOfPages {
		return model.ErrPageNumberTooHigh{PageNumber: pageNumber, NumberOfPages: cf.numberOfPages}
	}

	buffer, err := model.EncodePage[ID, T](page, cf.config.PageSize)
	if err != nil {
		return fmt.Errorf("failed to encode page %d: %w", pageNumber, err)
	}

	if _, err := cf.file.WriteAt(buffer, cf.pageOffset(pageNumber)); err != nil {
		return fmt.Errorf("failed to write page %d: %w", pageNumber, err)
	}

	if pageNumber == cf.numberOfPages {
		cf.numberOfPages++
		if err := cf.writeFileHeader(); err != nil {
			return err
		}
		cf.logger.Debug("Extended collection file %s to %d pages", cf.path, cf.numberOfPages)
	}

	return nil
}

// NumberOfPages returns the number of pages in the collection file
func (cf *CollectionFile[ID, T]) NumberOfPages() uint64 {
	return cf.numberOfPages
}

// Path returns the path of the backing file
func (cf *CollectionFile[ID, T]) Path() string {
	return cf.path
}

// Close closes the backing file; subsequent operations fail with
// ErrCollectionClosed
func (cf *CollectionFile[ID, T]) Close() error {
	if !cf.isOpen {
		return nil
	}

	cf.isOpen = false
	if err := cf.file.Close(); err != nil {
		return fmt.Errorf("failed to close collection file %s: %w", cf.path, err)
	}

	return nil
}

func (cf *CollectionFile[ID, T]) pageOffset(pageNumber uint64) int64 {
	return FileHeaderSize + int64(pageNumber)*int64(cf.config.PageSize)
}

// writeFileHeader rewrites the fixed header at the start of the file,
// recording the current page count and the file's page geometry
func (cf *CollectionFile[ID, T]) writeFileHeader() error {
	buffer := make([]byte, FileHeaderSize)

	binary.LittleEndian.PutUint32(buffer[0:4], CollectionFileMagic)
	binary.LittleEndian.PutUint16(buffer[4:6], CollectionFileVersion)
	// Bytes 6-7 are reserved
	binary.LittleEndian.PutUint32(buffer[8:12], uint32(cf.config.PageSize))
	binary.LittleEndian.PutUint32(buffer[12:16], uint32(cf.config.PageDataSize))
	binary.LittleEndian.PutUint64(buffer[16:24], cf.numberOfPages)
	binary.LittleEndian.PutUint64(buffer[24:32], xxhash.Sum64(buffer[0:24]))

	if _, err := cf.file.WriteAt(buffer, 0); err != nil {
		return fmt.Errorf("failed to write collection file header: %w", err)
	}

	return nil
}

// readFileHeader reads and validates the fixed header of an existing file.
// A file written with different page geometry than the configuration is
// rejected rather than misread.
func (cf *CollectionFile[ID, T]) readFileHeader() error {
	buffer := make([]byte, FileHeaderSize)
	if _, err := cf.file.ReadAt(buffer, 0); err != nil {
		return fmt.Errorf("failed to read collection file header: %w", err)
	}

	if binary.LittleEndian.Uint32(buffer[0:4]) != CollectionFileMagic {
		return ErrInvalidFileFormat
	}

	version := binary.LittleEndian.Uint16(buffer[4:6])
	if version != CollectionFileVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	if binary.LittleEndian.Uint64(buffer[24:32]) != xxhash.Sum64(buffer[0:24]) {
		return ErrFileHeaderCorrupted
	}

	pageSize := uint64(binary.LittleEndian.Uint32(buffer[8:12]))
	pageDataSize := uint64(binary.LittleEndian.Uint32(buffer[12:16]))
	if pageSize != cf.config.PageSize || pageDataSize != cf.config.PageDataSize {
		return fmt.Errorf("%w: file has page size %d and data budget %d, configured %d and %d",
			ErrPageGeometryMismatch, pageSize, pageDataSize, cf.config.PageSize, cf.config.PageDataSize)
	}

	cf.numberOfPages = binary.LittleEndian.Uint64(buffer[16:24])
	return nil
}
