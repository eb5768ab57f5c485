// Package pak reads the encrypted container-archive format: a fixed footer
// at the end of the file, an AES-256-ECB encrypted primary index holding
// bit-packed file entries, and an optional separately-encrypted directory
// block mapping human-readable paths to entries.
//
// Decoding is a pure function over the input bytes; an Archive only adds the
// file handle and key so entries can be extracted. The archives this package
// targets register no compression methods, so compressed entries are
// rejected outright rather than passed through undecoded.
package pak

import "errors"

var (
	// ErrFormat reports a bad footer magic or a truncated structure.
	ErrFormat = errors.New("pak: invalid format")

	// ErrKeyMismatch reports ciphertext that cannot have been produced with
	// the supplied key: a misaligned ciphertext length, or decrypted index
	// bytes that fail the plausibility check.
	ErrKeyMismatch = errors.New("pak: key mismatch")

	// ErrUnsupportedCompression reports an entry with a nonzero compression
	// method; this archive build registers no decoders.
	ErrUnsupportedCompression = errors.New("pak: unsupported compression")

	// ErrCorruptEntry reports an index entry whose decoded offset or size
	// falls outside the archive.
	ErrCorruptEntry = errors.New("pak: corrupt index entry")

	// ErrOutOfRange reports a read that would fall outside the archive.
	ErrOutOfRange = errors.New("pak: offset out of range")
)
