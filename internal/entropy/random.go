// Package entropy supplies run seeds when none is configured.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// Seed returns a non-negative seed drawn from crypto/rand. If the system
// source fails it falls back to the wall clock.
func Seed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return time.Now().UnixNano() & (1<<63 - 1)
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}
