package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/docingest/core"
)

// Key prefixes for different data types
const (
	documentPrefix     = "docrec:"
	documentDatePrefix = "docrecd:"
	chunkPrefix        = "chkrec:"
)

// makeDocumentKey generates a key for a document by ID.
// Format: prefix:id
func makeDocumentKey(id core.ID) []byte {
	buf := make([]byte, len(documentPrefix)+8)
	offset := copy(buf, documentPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeDocumentDateKey generates a composite key for the creation date index.
// Format: prefix:timestamp:id
func makeDocumentDateKey(createdAt time.Time, id core.ID) []byte {
	buf := make([]byte, len(documentDatePrefix)+16)
	offset := copy(buf, documentDatePrefix)
	// BigEndian so lexicographic order is chronological
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeChunkKey generates a composite key for a chunk.
// Format: prefix:documentID:chunkNumber
func makeChunkKey(docID core.ID, chunkNumber int) []byte {
	buf := make([]byte, len(chunkPrefix)+12)
	offset := copy(buf, chunkPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	offset += 8
	binary.BigEndian.PutUint32(buf[offset:], uint32(chunkNumber))
	return buf
}

// makePartialChunkKey generates the prefix shared by all chunks of a document.
// Format: prefix:documentID
func makePartialChunkKey(docID core.ID) []byte {
	buf := make([]byte, len(chunkPrefix)+8)
	offset := copy(buf, chunkPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	return buf
}

// maxDocumentDateKey is the largest possible date index key, the starting
// point for newest-first iteration.
func maxDocumentDateKey() []byte {
	buf := make([]byte, len(documentDatePrefix)+16)
	offset := copy(buf, documentDatePrefix)
	for i := offset; i < len(buf); i++ {
		buf[i] = 0xff
	}
	return buf
}
