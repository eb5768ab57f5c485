package pak

import (
	"crypto/aes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hexweld/uesavekit/pkg/fstring"
)

func testKey() []byte {
	key := make([]byte, KeySize)
	copy(key, "0123456789abcdef0123456789abcdef")
	return key
}

// compactSpec drives the test-side encoder for the flag-packed entry form.
type compactSpec struct {
	offset, uncomp, size       int64
	method                     uint32
	encrypted                  bool
	offset32, uncomp32, size32 bool
	blockSize                  uint32
	blocks                     []Block
}

func encodeCompact(t *testing.T, s compactSpec) []byte {
	t.Helper()
	require.Less(t, s.method, uint32(flagVerbatim))

	flags := s.method
	if s.encrypted {
		flags |= flagEncrypted
	}
	flags |= uint32(len(s.blocks)) << blockCountShift
	if s.size32 {
		flags |= flagSize32
	}
	if s.uncomp32 {
		flags |= flagUncomp32
	}
	if s.offset32 {
		flags |= flagOffset32
	}

	buf := binary.LittleEndian.AppendUint32(nil, flags)
	buf = appendVar(buf, s.offset, s.offset32)
	buf = appendVar(buf, s.uncomp, s.uncomp32)
	if s.method != 0 {
		buf = appendVar(buf, s.size, s.size32)
		if len(s.blocks) > 0 {
			buf = binary.LittleEndian.AppendUint32(buf, s.blockSize)
			for _, b := range s.blocks {
				buf = binary.LittleEndian.AppendUint64(buf, uint64(b.Start))
				buf = binary.LittleEndian.AppendUint64(buf, uint64(b.End))
			}
		}
	}
	return buf
}

// encodeVerbatim writes the fixed-width record form, flag method bits 0x3F.
func encodeVerbatim(offset, size, uncomp int64, method uint32, encrypted bool, blocks []Block) []byte {
	flags := uint32(flagVerbatim) | uint32(len(blocks))<<blockCountShift
	buf := binary.LittleEndian.AppendUint32(nil, flags)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(offset))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(size))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(uncomp))
	buf = binary.LittleEndian.AppendUint32(buf, method)
	buf = append(buf, make([]byte, 20)...)
	if encrypted {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	if method != 0 {
		for _, b := range blocks {
			buf = binary.LittleEndian.AppendUint64(buf, uint64(b.Start))
			buf = binary.LittleEndian.AppendUint64(buf, uint64(b.End))
		}
	}
	return buf
}

func appendVar(buf []byte, v int64, narrow bool) []byte {
	if narrow {
		return binary.LittleEndian.AppendUint32(buf, uint32(v))
	}
	return binary.LittleEndian.AppendUint64(buf, uint64(v))
}

// indexSpec assembles an index plaintext around an encoded-entry blob.
type indexSpec struct {
	mount      string
	entryCount int32
	seed       uint64
	dirOffset  int64
	dirSize    int64
	encoded    []byte
}

func encodeIndex(s indexSpec) []byte {
	buf := fstring.Encode(s.mount, false)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(s.entryCount))
	buf = binary.LittleEndian.AppendUint64(buf, s.seed)

	// No path-hash section.
	buf = binary.LittleEndian.AppendUint32(buf, 0)

	if s.dirSize > 0 {
		buf = binary.LittleEndian.AppendUint32(buf, 1)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(s.dirOffset))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(s.dirSize))
		buf = append(buf, make([]byte, 20)...)
	} else {
		buf = binary.LittleEndian.AppendUint32(buf, 0)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.encoded)))
	return append(buf, s.encoded...)
}

// dirFile is one (name, encoded-entry offset) pair in a directory.
type dirFile struct {
	name          string
	encodedOffset int32
}

func encodeDirectory(dirs map[string][]dirFile, order []string) []byte {
	buf := binary.LittleEndian.AppendUint32(nil, uint32(len(order)))
	for _, dirName := range order {
		buf = fstring.Append(buf, dirName, false)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(dirs[dirName])))
		for _, f := range dirs[dirName] {
			buf = fstring.Append(buf, f.name, false)
			buf = binary.LittleEndian.AppendUint32(buf, uint32(f.encodedOffset))
		}
	}
	return buf
}

func pad16(b []byte) []byte {
	if rem := len(b) % aes.BlockSize; rem != 0 {
		b = append(b, make([]byte, aes.BlockSize-rem)...)
	}
	return b
}

// archiveBuilder lays out payload regions, an encrypted directory block, an
// encrypted index and a footer into a single in-memory archive image.
type archiveBuilder struct {
	t    *testing.T
	key  []byte
	data []byte

	encoded []byte
	dirs    map[string][]dirFile
	order   []string
	count   int32
	methods []string
}

func newArchiveBuilder(t *testing.T) *archiveBuilder {
	t.Helper()
	return &archiveBuilder{
		t:    t,
		key:  testKey(),
		data: make([]byte, 16),
		dirs: map[string][]dirFile{},
	}
}

// addFile appends a payload region and a compact entry for it, returning the
// payload's archive offset. Encrypted payloads must be block-aligned so the
// stored bytes round-trip exactly.
func (b *archiveBuilder) addFile(dir, name string, payload []byte, encrypted bool) int64 {
	b.t.Helper()

	offset := int64(len(b.data))
	stored := payload
	if encrypted {
		require.Zero(b.t, len(payload)%aes.BlockSize)
		enc, err := Encrypt(payload, b.key)
		require.NoError(b.t, err)
		stored = enc
	}
	b.data = append(b.data, stored...)

	b.addEntry(dir, name, encodeCompact(b.t, compactSpec{
		offset:    offset,
		uncomp:    int64(len(payload)),
		encrypted: encrypted,
		offset32:  true,
		uncomp32:  true,
	}))
	return offset
}

// addEntry registers a pre-encoded entry under dir/name.
func (b *archiveBuilder) addEntry(dir, name string, encoded []byte) {
	if _, ok := b.dirs[dir]; !ok {
		b.order = append(b.order, dir)
	}
	b.dirs[dir] = append(b.dirs[dir], dirFile{name: name, encodedOffset: int32(len(b.encoded))})
	b.encoded = append(b.encoded, encoded...)
	b.count++
}

func (b *archiveBuilder) build() []byte {
	b.t.Helper()

	dirPlain := pad16(encodeDirectory(b.dirs, b.order))
	dirCipher, err := Encrypt(dirPlain, b.key)
	require.NoError(b.t, err)
	dirOffset := int64(len(b.data))
	b.data = append(b.data, dirCipher...)

	indexPlain := pad16(encodeIndex(indexSpec{
		mount:      "../../../",
		entryCount: b.count,
		seed:       0x9E3779B9,
		dirOffset:  dirOffset,
		dirSize:    int64(len(dirCipher)),
		encoded:    b.encoded,
	}))
	indexCipher, err := Encrypt(indexPlain, b.key)
	require.NoError(b.t, err)
	indexOffset := int64(len(b.data))
	b.data = append(b.data, indexCipher...)

	footer := &Footer{
		Magic:              Magic,
		Version:            11,
		IndexOffset:        indexOffset,
		IndexSize:          int64(len(indexCipher)),
		EncryptedIndex:     true,
		CompressionMethods: b.methods,
	}
	raw, err := footer.MarshalBinary()
	require.NoError(b.t, err)
	return append(b.data, raw...)
}
