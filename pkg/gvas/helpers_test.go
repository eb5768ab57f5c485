package gvas

import (
	"encoding/binary"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hexweld/uesavekit/pkg/fstring"
)

func testHeader() *Header {
	return &Header{
		Magic:            Magic,
		SaveGameVersion:  2,
		PackageVersion:   522,
		EngineMajor:      4,
		EngineMinor:      27,
		EnginePatch:      2,
		EngineChangelist: 18319896,
		EngineBranch:     "++UE4+Release-4.27",
		CustomVersionFmt: 3,
		CustomVersions: []CustomVersion{
			{ID: uuid.MustParse("22d5549c-be4f-26a8-4607-2194d082b461"), Version: 43},
			{ID: uuid.MustParse("e432d8b0-0d4f-891f-b77e-cfaca24afd36"), Version: 10},
		},
		SaveGameClass: "/Game/Blueprints/BP_Save.BP_Save_C",
	}
}

func testHeaderBytes(t *testing.T) []byte {
	t.Helper()
	data, err := testHeader().MarshalBinary()
	require.NoError(t, err)
	return data
}

// appendProp serializes one property record: name, type tag, declared size,
// a type-specific header, the guard byte, and the value region.
func appendProp(buf []byte, name, typ string, extra, value []byte) []byte {
	buf = fstring.Append(buf, name, false)
	buf = fstring.Append(buf, typ, false)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(value)))
	buf = append(buf, extra...)
	buf = append(buf, 0) // guard byte
	return append(buf, value...)
}

func appendIntProp(buf []byte, name string, v int32) []byte {
	return appendProp(buf, name, "IntProperty", nil, binary.LittleEndian.AppendUint32(nil, uint32(v)))
}

func appendFloatProp(buf []byte, name string, bits uint32) []byte {
	return appendProp(buf, name, "FloatProperty", nil, binary.LittleEndian.AppendUint32(nil, bits))
}

func appendStrProp(buf []byte, name, value string) []byte {
	return appendProp(buf, name, "StrProperty", nil, fstring.Encode(value, false))
}

// appendEnumProp serializes a byte property holding an enum value string.
func appendEnumProp(buf []byte, name, enumType, value string) []byte {
	return appendProp(buf, name, "ByteProperty", fstring.Encode(enumType, false), fstring.Encode(value, false))
}

// appendEnumArrayProp serializes an array property of enum value strings.
func appendEnumArrayProp(buf []byte, name string, values ...string) []byte {
	value := binary.LittleEndian.AppendUint32(nil, uint32(len(values)))
	for _, v := range values {
		value = fstring.Append(value, v, false)
	}
	return appendProp(buf, name, "ArrayProperty", fstring.Encode("ByteProperty", false), value)
}

// appendStructProp serializes a struct property whose value is a nested
// record scope closed by the terminator name.
func appendStructProp(buf []byte, name, structType string, body []byte) []byte {
	extra := fstring.Encode(structType, false)
	extra = append(extra, make([]byte, 16)...)
	value := append(append([]byte{}, body...), fstring.Encode(scopeEnd, false)...)
	return appendProp(buf, name, "StructProperty", extra, value)
}
