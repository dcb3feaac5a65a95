package badger

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Key prefixes for different data types
const (
	cursorPrefix    = "cursor"
	auditRowPrefix  = "audrow"
	auditRowIDSeq   = "audrowseq"
)

// makeCursorKey generates the key for a named cursor record.
func makeCursorKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", cursorPrefix, name))
}

// makeAuditRowKey generates a composite key for an audit row.
// Format: prefix:timestamp:seq, with timestamp and seq in BigEndian so
// lexicographic iteration visits rows in insertion time order.
func makeAuditRowKey(createdAt time.Time, seq uint64) []byte {
	prefix := auditRowPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for timestamp + 8 bytes for sequence
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}
