// Package codec is the canonical integer encoding used for every counter
// stored in an image.
package codec

import (
	"encoding/binary"
	"fmt"
)

// Uint64Size is the encoded width of a uint64.
const Uint64Size = 8

// Uint32Size is the encoded width of a uint32.
const Uint32Size = 4

// ByteOrder is the byte order of every integer in an image.
var ByteOrder binary.ByteOrder = binary.BigEndian

// EncodeUint64 returns the canonical 8-byte encoding of v.
func EncodeUint64(v uint64) [Uint64Size]byte {
	var b [Uint64Size]byte
	ByteOrder.PutUint64(b[:], v)
	return b
}

// DecodeUint64 decodes the first 8 bytes of data.
func DecodeUint64(data []byte) (uint64, error) {
	if len(data) < Uint64Size {
		return 0, fmt.Errorf("data too small for uint64: %d bytes, need %d", len(data), Uint64Size)
	}
	return ByteOrder.Uint64(data[:Uint64Size]), nil
}

// EncodeUint32 returns the canonical 4-byte encoding of v.
func EncodeUint32(v uint32) [Uint32Size]byte {
	var b [Uint32Size]byte
	ByteOrder.PutUint32(b[:], v)
	return b
}

// DecodeUint32 decodes the first 4 bytes of data.
func DecodeUint32(data []byte) (uint32, error) {
	if len(data) < Uint32Size {
		return 0, fmt.Errorf("data too small for uint32: %d bytes, need %d", len(data), Uint32Size)
	}
	return ByteOrder.Uint32(data[:Uint32Size]), nil
}
