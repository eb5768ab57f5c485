package gvas

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/hexweld/uesavekit/pkg/fstring"
)

// Magic identifies a property-archive save file ("GVAS" little-endian).
const Magic = 0x53415647

// minHeaderSize is the smallest possible header: fixed fields plus three
// empty strings and an empty custom-version table.
const minHeaderSize = 4 + 4 + 4 + 2 + 2 + 2 + 4 + 4 + 4 + 4 + 4

// CustomVersion is one entry of the header's custom-version table.
type CustomVersion struct {
	ID      uuid.UUID
	Version int32
}

// Header is the parsed save-file header. Fields are set once by ParseHeader
// and never mutated independently of the buffer they came from.
type Header struct {
	Magic            uint32
	SaveGameVersion  uint32
	PackageVersion   uint32
	EngineMajor      uint16
	EngineMinor      uint16
	EnginePatch      uint16
	EngineChangelist uint32
	EngineBranch     string
	CustomVersionFmt int32
	CustomVersions   []CustomVersion
	SaveGameClass    string

	// Size is the total header length in bytes; property records start here.
	Size int
}

// EngineVersion formats the three-part engine version.
func (h *Header) EngineVersion() string {
	return fmt.Sprintf("%d.%d.%d", h.EngineMajor, h.EngineMinor, h.EnginePatch)
}

// ParseHeader parses the save-file header from the start of data.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < minHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrFormat, len(data), minHeaderSize)
	}

	h := &Header{}
	h.Magic = binary.LittleEndian.Uint32(data[0:4])
	if h.Magic != Magic {
		return nil, fmt.Errorf("%w: magic 0x%08X, want 0x%08X", ErrFormat, h.Magic, uint32(Magic))
	}

	h.SaveGameVersion = binary.LittleEndian.Uint32(data[4:8])
	h.PackageVersion = binary.LittleEndian.Uint32(data[8:12])
	h.EngineMajor = binary.LittleEndian.Uint16(data[12:14])
	h.EngineMinor = binary.LittleEndian.Uint16(data[14:16])
	h.EnginePatch = binary.LittleEndian.Uint16(data[16:18])
	// No padding: the changelist follows the last uint16 immediately.
	h.EngineChangelist = binary.LittleEndian.Uint32(data[18:22])

	pos := 22
	branch, n, err := fstring.Decode(data, pos)
	if err != nil {
		return nil, fmt.Errorf("%w: engine branch: %v", ErrFormat, err)
	}
	h.EngineBranch = branch
	pos += n

	if pos+8 > len(data) {
		return nil, fmt.Errorf("%w: truncated custom-version table", ErrFormat)
	}
	h.CustomVersionFmt = int32(binary.LittleEndian.Uint32(data[pos:]))
	count := binary.LittleEndian.Uint32(data[pos+4:])
	pos += 8

	if int(count) > (len(data)-pos)/20 {
		return nil, fmt.Errorf("%w: custom-version count %d exceeds buffer", ErrFormat, count)
	}
	h.CustomVersions = make([]CustomVersion, count)
	for i := range h.CustomVersions {
		copy(h.CustomVersions[i].ID[:], data[pos:pos+16])
		h.CustomVersions[i].Version = int32(binary.LittleEndian.Uint32(data[pos+16:]))
		pos += 20
	}

	class, n, err := fstring.Decode(data, pos)
	if err != nil {
		return nil, fmt.Errorf("%w: save class: %v", ErrFormat, err)
	}
	h.SaveGameClass = class
	pos += n

	h.Size = pos
	return h, nil
}

// MarshalBinary re-serializes the header. For any header produced by
// ParseHeader the output is byte-identical to the original input region.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, h.Size)
	buf = binary.LittleEndian.AppendUint32(buf, h.Magic)
	buf = binary.LittleEndian.AppendUint32(buf, h.SaveGameVersion)
	buf = binary.LittleEndian.AppendUint32(buf, h.PackageVersion)
	buf = binary.LittleEndian.AppendUint16(buf, h.EngineMajor)
	buf = binary.LittleEndian.AppendUint16(buf, h.EngineMinor)
	buf = binary.LittleEndian.AppendUint16(buf, h.EnginePatch)
	buf = binary.LittleEndian.AppendUint32(buf, h.EngineChangelist)
	buf = fstring.Append(buf, h.EngineBranch, false)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(h.CustomVersionFmt))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(h.CustomVersions)))
	for _, cv := range h.CustomVersions {
		buf = append(buf, cv.ID[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(cv.Version))
	}
	buf = fstring.Append(buf, h.SaveGameClass, false)
	return buf, nil
}
