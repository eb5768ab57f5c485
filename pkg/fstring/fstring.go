// Package fstring implements the length-prefixed string encoding shared by
// the save-file and archive-index formats: a signed 32-bit little-endian
// length followed by that many characters including a NUL terminator.
// A positive length means single-byte characters; a negative length means
// UTF-16LE characters.
package fstring

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf16"
)

// MaxLength bounds the character count accepted by Decode. Real strings in
// both formats are short (paths, class names, enum values); anything larger
// is treated as a framing error rather than an allocation request.
const MaxLength = 1 << 20

// Decode reads a length-prefixed string starting at off. It returns the
// decoded text and the total number of bytes consumed, including the 4-byte
// prefix, so the caller can advance precisely.
func Decode(data []byte, off int) (string, int, error) {
	if off < 0 || off+4 > len(data) {
		return "", 0, fmt.Errorf("string prefix at %d: buffer too short (%d bytes)", off, len(data))
	}
	length := int32(binary.LittleEndian.Uint32(data[off : off+4]))

	switch {
	case length == 0:
		return "", 4, nil

	case length > 0:
		if length > MaxLength {
			return "", 0, fmt.Errorf("string at %d: implausible length %d", off, length)
		}
		n := int(length)
		if off+4+n > len(data) {
			return "", 0, fmt.Errorf("string at %d: %d bytes declared, %d available", off, n, len(data)-off-4)
		}
		raw := data[off+4 : off+4+n]
		return string(trimNUL(raw)), 4 + n, nil

	default:
		count := int(-length)
		if count > MaxLength {
			return "", 0, fmt.Errorf("string at %d: implausible length %d", off, length)
		}
		n := count * 2
		if off+4+n > len(data) {
			return "", 0, fmt.Errorf("string at %d: %d bytes declared, %d available", off, n, len(data)-off-4)
		}
		units := make([]uint16, count)
		for i := range units {
			units[i] = binary.LittleEndian.Uint16(data[off+4+i*2:])
		}
		for len(units) > 0 && units[len(units)-1] == 0 {
			units = units[:len(units)-1]
		}
		return string(utf16.Decode(units)), 4 + n, nil
	}
}

// Read decodes a length-prefixed string from the reader's current position.
func Read(r *bytes.Reader) (string, error) {
	var length int32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", fmt.Errorf("read string prefix: %w", err)
	}
	if length == 0 {
		return "", nil
	}
	if length > 0 {
		if length > MaxLength {
			return "", fmt.Errorf("implausible string length %d", length)
		}
		raw := make([]byte, length)
		if _, err := io.ReadFull(r, raw); err != nil {
			return "", fmt.Errorf("read string payload: %w", err)
		}
		return string(trimNUL(raw)), nil
	}
	count := -length
	if count > MaxLength {
		return "", fmt.Errorf("implausible string length %d", length)
	}
	units := make([]uint16, count)
	if err := binary.Read(r, binary.LittleEndian, &units); err != nil {
		return "", fmt.Errorf("read string payload: %w", err)
	}
	for len(units) > 0 && units[len(units)-1] == 0 {
		units = units[:len(units)-1]
	}
	return string(utf16.Decode(units)), nil
}

// Encode serializes text with a length prefix. The empty string encodes as a
// bare zero prefix regardless of width, matching what Decode produces for it.
func Encode(text string, wide bool) []byte {
	return Append(nil, text, wide)
}

// Append appends the encoded form of text to dst and returns the result.
func Append(dst []byte, text string, wide bool) []byte {
	if text == "" {
		return binary.LittleEndian.AppendUint32(dst, 0)
	}
	if wide {
		units := utf16.Encode([]rune(text))
		dst = binary.LittleEndian.AppendUint32(dst, uint32(int32(-(len(units) + 1))))
		for _, u := range units {
			dst = binary.LittleEndian.AppendUint16(dst, u)
		}
		return binary.LittleEndian.AppendUint16(dst, 0)
	}
	dst = binary.LittleEndian.AppendUint32(dst, uint32(int32(len(text)+1)))
	dst = append(dst, text...)
	return append(dst, 0)
}

// EncodedLen returns the byte length Encode would produce, prefix included.
func EncodedLen(text string, wide bool) int {
	if text == "" {
		return 4
	}
	if wide {
		return 4 + (len(utf16.Encode([]rune(text)))+1)*2
	}
	return 4 + len(text) + 1
}

func trimNUL(b []byte) []byte {
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return b
}
