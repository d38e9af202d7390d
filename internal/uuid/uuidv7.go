// Package uuid generates time-ordered UUIDv7 identifiers. Vector records
// and other externally-stored artifacts use these so that lexicographic
// order follows insertion order.
package uuid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	googleuuid "github.com/google/uuid"
)

// New returns a UUIDv7 string: 48 bits of Unix-millisecond timestamp,
// version and variant bits per RFC 4122, and random tail bits.
func New() string {
	var id [16]byte

	timestamp := uint64(time.Now().UnixMilli())
	binary.BigEndian.PutUint64(id[0:8], timestamp<<16)

	if _, err := rand.Read(id[6:]); err != nil {
		// No entropy available; a v4 from the library still satisfies callers.
		return googleuuid.New().String()
	}

	id[6] = (id[6] & 0x0f) | 0x70
	id[8] = (id[8] & 0x3f) | 0x80

	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		binary.BigEndian.Uint32(id[0:4]),
		binary.BigEndian.Uint16(id[4:6]),
		binary.BigEndian.Uint16(id[6:8]),
		binary.BigEndian.Uint16(id[8:10]),
		id[10:16],
	)
}

// Short returns the first n hex characters of a fresh UUIDv7, used as a
// compact suffix in composite identifiers.
func Short(n int) string {
	id := New()
	if n <= 0 || n > len(id) {
		return id
	}
	return id[:n]
}
