package pak

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// Magic identifies the archive footer.
const Magic = 0x5A6F12E1

// FooterSize is the fixed trailer length; the footer always occupies the
// last FooterSize bytes of the archive.
const FooterSize = 204

// methodNameLen is the fixed width of one compression-method name slot.
const methodNameLen = 32

// maxMethods is how many name slots fit in the trailer after the fixed
// fields (204 - 65 = 139 bytes of table space).
const maxMethods = (FooterSize - footerFixedSize) / methodNameLen

// footerFixedSize covers magic, version, index offset/size, hash, encrypted
// flag, key GUID and the method count.
const footerFixedSize = 4 + 4 + 8 + 8 + 20 + 1 + 16 + 4

// Footer is the fixed-size record at the end of an archive.
type Footer struct {
	Magic              uint32
	Version            uint32
	IndexOffset        int64
	IndexSize          int64
	IndexHash          [20]byte
	EncryptedIndex     bool
	EncryptionKeyGUID  uuid.UUID
	CompressionMethods []string
}

// ReadFooter parses the footer from the last FooterSize bytes of data.
func ReadFooter(data []byte) (*Footer, error) {
	if len(data) < FooterSize {
		return nil, fmt.Errorf("%w: %d bytes, footer needs %d", ErrFormat, len(data), FooterSize)
	}
	return parseFooter(data[len(data)-FooterSize:])
}

func parseFooter(raw []byte) (*Footer, error) {
	f := &Footer{}
	f.Magic = binary.LittleEndian.Uint32(raw[0:4])
	if f.Magic != Magic {
		return nil, fmt.Errorf("%w: footer magic 0x%08X, want 0x%08X", ErrFormat, f.Magic, uint32(Magic))
	}
	f.Version = binary.LittleEndian.Uint32(raw[4:8])
	f.IndexOffset = int64(binary.LittleEndian.Uint64(raw[8:16]))
	f.IndexSize = int64(binary.LittleEndian.Uint64(raw[16:24]))
	copy(f.IndexHash[:], raw[24:44])
	f.EncryptedIndex = raw[44] != 0
	copy(f.EncryptionKeyGUID[:], raw[45:61])

	count := binary.LittleEndian.Uint32(raw[61:65])
	if count > maxMethods {
		return nil, fmt.Errorf("%w: %d compression methods declared, footer fits %d", ErrFormat, count, maxMethods)
	}
	for i := range int(count) {
		slot := raw[footerFixedSize+i*methodNameLen:]
		name := slot[:methodNameLen]
		if nul := bytes.IndexByte(name, 0); nul >= 0 {
			name = name[:nul]
		}
		f.CompressionMethods = append(f.CompressionMethods, string(name))
	}
	return f, nil
}

// MarshalBinary serializes the footer to its fixed FooterSize layout.
func (f *Footer) MarshalBinary() ([]byte, error) {
	if len(f.CompressionMethods) > maxMethods {
		return nil, fmt.Errorf("%d compression methods, footer fits %d", len(f.CompressionMethods), maxMethods)
	}
	raw := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(raw[0:4], f.Magic)
	binary.LittleEndian.PutUint32(raw[4:8], f.Version)
	binary.LittleEndian.PutUint64(raw[8:16], uint64(f.IndexOffset))
	binary.LittleEndian.PutUint64(raw[16:24], uint64(f.IndexSize))
	copy(raw[24:44], f.IndexHash[:])
	if f.EncryptedIndex {
		raw[44] = 1
	}
	copy(raw[45:61], f.EncryptionKeyGUID[:])
	binary.LittleEndian.PutUint32(raw[61:65], uint32(len(f.CompressionMethods)))
	for i, name := range f.CompressionMethods {
		if len(name) >= methodNameLen {
			return nil, fmt.Errorf("compression method name %q exceeds %d bytes", name, methodNameLen-1)
		}
		copy(raw[footerFixedSize+i*methodNameLen:], name)
	}
	return raw, nil
}

// MethodName returns the registered name for a compression method id, where
// id 1 is the first table entry.
func (f *Footer) MethodName(id uint32) string {
	if id == 0 {
		return "None"
	}
	if int(id) <= len(f.CompressionMethods) {
		return f.CompressionMethods[id-1]
	}
	return fmt.Sprintf("unknown(%d)", id)
}
