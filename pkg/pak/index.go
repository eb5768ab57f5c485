package pak

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hexweld/uesavekit/pkg/fstring"
)

// Entry flag-word layout: bits 0-5 select the compression method (0x3F
// marks the verbatim record format), bit 6 is the per-entry encrypted flag,
// bits 7-17 carry the compression block count, and bits 29/30/31 select
// 32-bit encoding for size, uncompressed size and offset respectively.
const (
	flagMethodMask   = 0x3F
	flagVerbatim     = 0x3F
	flagEncrypted    = 1 << 6
	blockCountShift  = 7
	blockCountMask   = 0x7FF
	flagSize32       = 1 << 29
	flagUncomp32     = 1 << 30
	flagOffset32     = 1 << 31
)

// Block is one compressed-block span within an entry's data region.
type Block struct {
	Start, End int64
}

// Entry describes one file inside the archive. Entries are produced by index
// decoding and are immutable afterwards; re-decoding builds a new list.
type Entry struct {
	// Path is the human-readable path, when the directory block resolved
	// one. Empty otherwise.
	Path string

	Offset            int64
	Size              int64
	UncompressedSize  int64
	CompressionMethod uint32
	Encrypted         bool

	// Verbatim marks the fixed-width record format. Verbatim entries are
	// the ones empirically known to sometimes carry out-of-range offsets
	// when also individually encrypted.
	Verbatim bool

	BlockSize uint32
	Blocks    []Block

	// EncodedOffset is this entry's byte offset within the encoded-entry
	// blob; the directory block refers to entries by it.
	EncodedOffset int

	// Corrupt carries the bounds-check diagnostic for this entry, so bad
	// offsets are surfaced instead of silently handed to extraction.
	Corrupt error
}

// Index is the decoded primary index.
type Index struct {
	MountPoint   string
	EntryCount   int32
	PathHashSeed uint64

	// PathHashOffset/Size locate the optional path-hash block. It exists
	// only for hashed lookups and is not needed for decoding.
	PathHashOffset int64
	PathHashSize   int64

	// DirOffset/Size locate the optional directory block; zero when the
	// index declares none.
	DirOffset int64
	DirSize   int64

	// Encoded is the bit-packed entry blob.
	Encoded []byte

	// Entries in encoded-stream order.
	Entries []*Entry
}

// HasDirectory reports whether the index declares a directory block.
func (idx *Index) HasDirectory() bool { return idx.DirOffset > 0 && idx.DirSize > 0 }

// ParseIndex decodes the decrypted primary index. A mount point that is not
// printable ASCII is reported as an ErrKeyMismatch-wrapped error, but the
// index is still returned: the check is a plausibility diagnostic, and the
// caller decides whether to trust the rest.
func ParseIndex(plain []byte) (*Index, error) {
	r := bytes.NewReader(plain)
	idx := &Index{}

	mount, err := fstring.Read(r)
	if err != nil {
		return nil, fmt.Errorf("%w: mount point: %v", ErrFormat, err)
	}
	idx.MountPoint = mount

	if err := binary.Read(r, binary.LittleEndian, &idx.EntryCount); err != nil {
		return nil, fmt.Errorf("%w: entry count: %v", ErrFormat, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &idx.PathHashSeed); err != nil {
		return nil, fmt.Errorf("%w: path hash seed: %v", ErrFormat, err)
	}

	hasPathHash, err := readSection(r, &idx.PathHashOffset, &idx.PathHashSize)
	if err != nil {
		return nil, fmt.Errorf("%w: path-hash section: %v", ErrFormat, err)
	}
	_ = hasPathHash

	if _, err := readSection(r, &idx.DirOffset, &idx.DirSize); err != nil {
		return nil, fmt.Errorf("%w: directory section: %v", ErrFormat, err)
	}

	var encodedSize int32
	if err := binary.Read(r, binary.LittleEndian, &encodedSize); err != nil {
		return nil, fmt.Errorf("%w: encoded size: %v", ErrFormat, err)
	}
	if encodedSize < 0 || int(encodedSize) > r.Len() {
		return nil, fmt.Errorf("%w: encoded blob declares %d bytes, %d remain", ErrFormat, encodedSize, r.Len())
	}
	idx.Encoded = make([]byte, encodedSize)
	if _, err := io.ReadFull(r, idx.Encoded); err != nil {
		return nil, fmt.Errorf("%w: encoded blob: %v", ErrFormat, err)
	}

	if !printableASCII(mount) {
		return idx, fmt.Errorf("%w: mount point %q is not printable ASCII", ErrKeyMismatch, mount)
	}
	return idx, nil
}

// readSection reads an optional (offset, size, hash) block descriptor
// preceded by its presence flag.
func readSection(r *bytes.Reader, offset, size *int64) (bool, error) {
	var present int32
	if err := binary.Read(r, binary.LittleEndian, &present); err != nil {
		return false, err
	}
	if present == 0 {
		return false, nil
	}
	if err := binary.Read(r, binary.LittleEndian, offset); err != nil {
		return false, err
	}
	if err := binary.Read(r, binary.LittleEndian, size); err != nil {
		return false, err
	}
	var hash [20]byte
	if _, err := io.ReadFull(r, hash[:]); err != nil {
		return false, err
	}
	return true, nil
}

// DecodeEntries decodes the whole encoded blob in stream order. Decoding is
// deterministic: the same plaintext always yields the same entry list.
func DecodeEntries(encoded []byte) ([]*Entry, error) {
	var entries []*Entry
	pos := 0
	for pos < len(encoded) {
		e, n, err := DecodeEntry(encoded, pos)
		if err != nil {
			return nil, fmt.Errorf("entry at %d: %w", pos, err)
		}
		entries = append(entries, e)
		pos += n
	}
	return entries, nil
}

// DecodeEntry decodes a single entry at the given blob offset and returns
// the number of bytes it occupied.
func DecodeEntry(encoded []byte, off int) (*Entry, int, error) {
	d := &entryDecoder{buf: encoded, pos: off}

	flags := d.uint32()
	e := &Entry{EncodedOffset: off}
	method := flags & flagMethodMask

	if method == flagVerbatim {
		// Verbatim record: fixed 64-bit widths, flag-driven compaction
		// bypassed entirely.
		e.Verbatim = true
		e.Offset = d.int64()
		e.Size = d.int64()
		e.UncompressedSize = d.int64()
		e.CompressionMethod = d.uint32()
		d.skip(20) // content hash
		e.Encrypted = d.byte()&1 != 0
		e.BlockSize = d.uint32()
		if e.CompressionMethod != 0 {
			count := int(flags >> blockCountShift & blockCountMask)
			for range count {
				e.Blocks = append(e.Blocks, Block{Start: d.int64(), End: d.int64()})
			}
		}
	} else {
		e.CompressionMethod = method
		e.Encrypted = flags&flagEncrypted != 0
		count := int(flags >> blockCountShift & blockCountMask)

		e.Offset = d.varint(flags&flagOffset32 != 0)
		e.UncompressedSize = d.varint(flags&flagUncomp32 != 0)
		if method != 0 {
			e.Size = d.varint(flags&flagSize32 != 0)
		} else {
			e.Size = e.UncompressedSize
		}
		if method != 0 && count > 0 {
			e.BlockSize = d.uint32()
			for range count {
				e.Blocks = append(e.Blocks, Block{Start: d.int64(), End: d.int64()})
			}
		}
	}

	if d.err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrFormat, d.err)
	}
	return e, d.pos - off, nil
}

// Validate bounds-checks the entry against the archive size and records the
// diagnostic on the entry itself.
func (e *Entry) Validate(archiveSize int64) {
	if e.Offset <= 0 || e.Size < 0 || e.Offset+e.Size > archiveSize {
		e.Corrupt = fmt.Errorf("%w: offset %d size %d, archive is %d bytes",
			ErrCorruptEntry, e.Offset, e.Size, archiveSize)
	}
}

// entryDecoder is a cursor over the encoded blob; the first failure sticks.
type entryDecoder struct {
	buf []byte
	pos int
	err error
}

func (d *entryDecoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.pos+n > len(d.buf) {
		d.err = fmt.Errorf("truncated at %d (want %d bytes, %d left)", d.pos, n, len(d.buf)-d.pos)
		return nil
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b
}

func (d *entryDecoder) skip(n int) { d.take(n) }

func (d *entryDecoder) byte() byte {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *entryDecoder) uint32() uint32 {
	if b := d.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (d *entryDecoder) int64() int64 {
	if b := d.take(8); b != nil {
		return int64(binary.LittleEndian.Uint64(b))
	}
	return 0
}

// varint reads a 32-bit value when narrow is set, a 64-bit one otherwise.
func (d *entryDecoder) varint(narrow bool) int64 {
	if narrow {
		return int64(d.uint32())
	}
	return d.int64()
}

func printableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7E {
			return false
		}
	}
	return true
}
