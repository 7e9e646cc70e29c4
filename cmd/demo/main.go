package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"strings"

	"git.canoozie.net/riddling/docstore/pkg/model"
	"git.canoozie.net/riddling/docstore/pkg/storage"
)

const defaultDataDir = "./data"

// Note is a sample document type stored by the demo
type Note struct {
	ID    uint64
	Title string
	Body  string
}

// DocumentID returns the note's unique identifier
func (n *Note) DocumentID() uint64 {
	return n.ID
}

// Clone returns an owned copy of the note
func (n *Note) Clone() *Note {
	clone := *n
	return &clone
}

// MarshalBinary serializes the note: ID, then length-prefixed title and body
func (n *Note) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer

	binary.Write(&buf, binary.LittleEndian, n.ID)

	binary.Write(&buf, binary.LittleEndian, uint16(len(n.Title)))
	buf.WriteString(n.Title)

	binary.Write(&buf, binary.LittleEndian, uint32(len(n.Body)))
	buf.WriteString(n.Body)

	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes a note written by MarshalBinary
func (n *Note) UnmarshalBinary(data []byte) error {
	buf := bytes.NewReader(data)

	if err := binary.Read(buf, binary.LittleEndian, &n.ID); err != nil {
		return err
	}

	var titleLen uint16
	if err := binary.Read(buf, binary.LittleEndian, &titleLen); err != nil {
		return err
	}
	title := make([]byte, titleLen)
	if _, err := buf.Read(title); err != nil {
		return err
	}
	n.Title = string(title)

	var bodyLen uint32
	if err := binary.Read(buf, binary.LittleEndian, &bodyLen); err != nil {
		return err
	}
	body := make([]byte, bodyLen)
	if _, err := buf.Read(body); err != nil {
		return err
	}
	n.Body = string(body)

	return nil
}

func main() {
	logLevel := model.LogLevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = model.LogLevelDebug
	}
	logger := model.NewDefaultLogger(logLevel)

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = defaultDataDir
	}

	config := storage.DefaultCollectionConfig()
	config.Name = "notes"
	config.Dir = dataDir
	config.Logger = logger

	collection, err := storage.OpenCollection[uint64, *Note](config, func() *Note { return new(Note) })
	if err != nil {
		log.Fatalf("Failed to open collection: %v", err)
	}
	defer collection.Close()

	logger.Info("Opened collection with %d documents", collection.Count())

	// Bodies sized so three notes fill a page and the fourth spills over
	for i := uint64(0); i < 4; i++ {
		note := &Note{ID: i, Title: fmt.Sprintf("note %d", i), Body: strings.Repeat("-", 20_000)}
		if err := collection.InsertOne(note); err != nil {
			logger.Warn("Insert of note %d skipped: %v", i, err)
		}
	}

	note, found, err := collection.FindByID(2)
	if err != nil {
		log.Fatalf("Lookup failed: %v", err)
	}
	if found {
		logger.Info("Found note %d: %s", note.ID, note.Title)
	}

	even, err := collection.FindBy(func(n *Note) bool { return n.ID%2 == 0 })
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}
	logger.Info("Predicate scan matched %d notes", len(even))

	// Shrinking update stays on its page
	if err := collection.UpdateOne(&Note{ID: 2, Title: "note 2", Body: "howdy"}); err != nil {
		log.Fatalf("Update failed: %v", err)
	}

	// This version no longer fits note 2's page, so the update relocates
	// it through the normal insertion path
	if err := collection.UpdateOne(&Note{ID: 2, Title: "note 2", Body: strings.Repeat("x", 40_000)}); err != nil {
		log.Fatalf("Relocating update failed: %v", err)
	}

	note, found, err = collection.FindByID(2)
	if err != nil || !found {
		log.Fatalf("Lookup after relocation failed: found=%v err=%v", found, err)
	}
	logger.Info("Note 2 now carries a %d byte body", len(note.Body))
}
