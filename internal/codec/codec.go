// Package codec is the little-endian, length-prefixed binary layout used for
// program records.
//
// Put functions append to a buffer. Parse functions read at a position and
// return the position after the value; a read past the end of data returns
// the zero value and a position beyond len(data), which Done reports as
// ErrTruncated.
package codec

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/R3E-Network/socialfeed/internal/core"
)

// DiscriminatorSize is the length of the record type tag.
const DiscriminatorSize = 8

// ErrTruncated is returned when data ends before a record does.
var ErrTruncated = fmt.Errorf("%w: truncated record", core.ErrInvalidInput)

// Discriminator is the tag written in front of every record of type name.
func Discriminator(name string) [DiscriminatorSize]byte {
	var d [DiscriminatorSize]byte
	sum := sha256.Sum256([]byte("account:" + name))
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

func PutUint32(v uint32, data *[]byte) {
	*data = binary.LittleEndian.AppendUint32(*data, v)
}

func PutUint64(v uint64, data *[]byte) {
	*data = binary.LittleEndian.AppendUint64(*data, v)
}

func PutInt64(v int64, data *[]byte) {
	PutUint64(uint64(v), data)
}

// PutFixed appends b without a length prefix.
func PutFixed(b []byte, data *[]byte) {
	*data = append(*data, b...)
}

// PutBytes appends b behind a u32 length prefix.
func PutBytes(b []byte, data *[]byte) {
	PutUint32(uint32(len(b)), data)
	*data = append(*data, b...)
}

func PutString(v string, data *[]byte) {
	PutBytes([]byte(v), data)
}

func ParseUint32(data []byte, position int) (uint32, int) {
	if position < 0 || position+4 > len(data) {
		return 0, position + 4
	}
	return binary.LittleEndian.Uint32(data[position:]), position + 4
}

func ParseUint64(data []byte, position int) (uint64, int) {
	if position < 0 || position+8 > len(data) {
		return 0, position + 8
	}
	return binary.LittleEndian.Uint64(data[position:]), position + 8
}

func ParseInt64(data []byte, position int) (int64, int) {
	v, next := ParseUint64(data, position)
	return int64(v), next
}

// ParseFixed reads n raw bytes.
func ParseFixed(data []byte, position, n int) ([]byte, int) {
	if position < 0 || position+n > len(data) {
		return nil, position + n
	}
	out := make([]byte, n)
	copy(out, data[position:position+n])
	return out, position + n
}

// ParseBytes reads a u32 length-prefixed byte string.
func ParseBytes(data []byte, position int) ([]byte, int) {
	length, next := ParseUint32(data, position)
	if next > len(data) {
		return nil, next
	}
	if uint64(length) > uint64(math.MaxInt32) {
		return nil, len(data) + 1
	}
	return ParseFixed(data, next, int(length))
}

func ParseString(data []byte, position int) (string, int) {
	b, next := ParseBytes(data, position)
	return string(b), next
}

// Done reports ErrTruncated if position ran past the end of data.
func Done(data []byte, position int) error {
	if position > len(data) {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, position, len(data))
	}
	return nil
}
