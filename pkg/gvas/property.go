package gvas

import (
	"encoding/binary"
	"fmt"
	"iter"
	"strconv"

	"github.com/google/uuid"

	"github.com/hexweld/uesavekit/pkg/fstring"
)

// Kind classifies a property record. The set is closed: every type tag the
// reader does not recognize maps to KindOpaque, whose value region is skipped
// using the declared size alone.
type Kind uint8

const (
	KindOpaque Kind = iota
	KindInt
	KindFloat
	KindBool
	KindStr
	KindName
	KindByte
	KindStruct
	KindArray
)

// scopeEnd is the record name that terminates a struct scope.
const scopeEnd = "None"

var kinds = map[string]Kind{
	"IntProperty":    KindInt,
	"FloatProperty":  KindFloat,
	"BoolProperty":   KindBool,
	"StrProperty":    KindStr,
	"NameProperty":   KindName,
	"ByteProperty":   KindByte,
	"EnumProperty":   KindByte,
	"StructProperty": KindStruct,
	"ArrayProperty":  KindArray,
}

// KindOf maps a serialized type tag to its Kind.
func KindOf(typeName string) Kind {
	if k, ok := kinds[typeName]; ok {
		return k
	}
	return KindOpaque
}

// Record is one property in the stream. The declared Size is authoritative:
// the value region is exactly [Start, Start+Size) regardless of whether the
// type tag was recognized.
type Record struct {
	Name string
	Type string
	Kind Kind
	Size uint64

	// Start is the buffer offset of the value region.
	Start int

	// InnerType holds the enum type of a byte property, the element type of
	// an array, or the struct type name.
	InnerType string

	// StructID is the 16-byte identifier following a struct type name.
	StructID uuid.UUID

	// Children are the nested records of struct and array containers, in
	// strictly increasing byte order.
	Children []*Record
}

// End returns the offset one past the value region.
func (r *Record) End() int { return r.Start + int(r.Size) }

// Value returns the raw value region bytes.
func (r *Record) Value(data []byte) []byte { return data[r.Start:r.End()] }

// Stream produces the top-level property records starting at start, lazily
// and in a single pass. Each yielded record has its children fully built.
// The sequence ends at a scope terminator or the end of the buffer; framing
// errors end the sequence with a non-nil error.
func Stream(data []byte, start int) iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		pos := start
		for pos < len(data) {
			rec, next, err := parseRecord(data, pos, len(data))
			if err != nil {
				yield(nil, err)
				return
			}
			if rec == nil {
				return
			}
			if !yield(rec, nil) {
				return
			}
			pos = next
		}
	}
}

// parseRecord parses one record at pos, including container children, and
// returns the offset of the next sibling. A nil record (no error) reports a
// scope terminator.
func parseRecord(data []byte, pos, limit int) (*Record, int, error) {
	rec, next, err := parseOne(data, pos, limit)
	if err != nil || rec == nil {
		return nil, next, err
	}
	buildChildren(data, rec)
	return rec, next, nil
}

// parseOne parses a record header and value bounds without descending into
// children.
func parseOne(data []byte, pos, limit int) (*Record, int, error) {
	name, n, err := fstring.Decode(data[:limit], pos)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: record name at %d: %v", ErrFormat, pos, err)
	}
	pos += n
	if name == scopeEnd {
		return nil, pos, nil
	}

	typ, n, err := fstring.Decode(data[:limit], pos)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: type of %q: %v", ErrFormat, name, err)
	}
	pos += n

	if pos+8 > limit {
		return nil, 0, fmt.Errorf("%w: size of %q", ErrFormat, name)
	}
	size := binary.LittleEndian.Uint64(data[pos:])
	pos += 8

	rec := &Record{Name: name, Type: typ, Kind: KindOf(typ), Size: size}

	switch rec.Kind {
	case KindByte, KindArray:
		inner, n, err := fstring.Decode(data[:limit], pos)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: inner type of %q: %v", ErrFormat, name, err)
		}
		rec.InnerType = inner
		pos += n
	case KindStruct:
		inner, n, err := fstring.Decode(data[:limit], pos)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: struct type of %q: %v", ErrFormat, name, err)
		}
		rec.InnerType = inner
		pos += n
		if pos+16 > limit {
			return nil, 0, fmt.Errorf("%w: struct id of %q", ErrFormat, name)
		}
		copy(rec.StructID[:], data[pos:pos+16])
		pos += 16
	case KindBool:
		// The single value byte precedes the guard byte; declared size is 0.
		if pos+1 > limit {
			return nil, 0, fmt.Errorf("%w: bool value of %q", ErrFormat, name)
		}
		pos++
	}

	// Guard byte: nonzero means a 16-byte per-property identifier follows.
	if pos+1 > limit {
		return nil, 0, fmt.Errorf("%w: guard byte of %q", ErrFormat, name)
	}
	guard := data[pos]
	pos++
	if guard != 0 {
		if pos+16 > limit {
			return nil, 0, fmt.Errorf("%w: property id of %q", ErrFormat, name)
		}
		pos += 16
	}

	rec.Start = pos
	end := pos + int(size)
	if int(size) < 0 || end > limit {
		return nil, 0, fmt.Errorf("%w: %q declares %d value bytes at %d, %d available",
			ErrOutOfRange, name, size, pos, limit-pos)
	}
	return rec, end, nil
}

// buildChildren fills container children with an explicit work list so that
// arbitrarily deep trees never grow the call stack. Malformed child regions
// leave the container childless; the outer framing is still intact because
// siblings advance by the declared size.
func buildChildren(data []byte, root *Record) {
	type frame struct {
		rec *Record
		pos int
	}

	var stack []frame
	switch root.Kind {
	case KindStruct:
		stack = append(stack, frame{root, root.Start})
	case KindArray:
		buildArrayChildren(data, root)
		return
	default:
		return
	}

	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if f.pos >= f.rec.End() {
			stack = stack[:len(stack)-1]
			continue
		}

		child, next, err := parseOne(data, f.pos, f.rec.End())
		if err != nil {
			f.rec.Children = nil
			stack = stack[:len(stack)-1]
			continue
		}
		if child == nil {
			stack = stack[:len(stack)-1]
			continue
		}

		f.rec.Children = append(f.rec.Children, child)
		f.pos = next

		switch child.Kind {
		case KindStruct:
			stack = append(stack, frame{child, child.Start})
		case KindArray:
			buildArrayChildren(data, child)
		}
	}
}

// buildArrayChildren decodes array elements for the element types whose
// layout the reader knows: fixed 4-byte scalars and length-prefixed strings.
// Other element types stay childless and are skipped by size.
func buildArrayChildren(data []byte, arr *Record) {
	if arr.Size < 4 || arr.End() > len(data) {
		return
	}
	count := int(int32(binary.LittleEndian.Uint32(data[arr.Start:])))
	if count < 0 {
		return
	}
	pos := arr.Start + 4
	end := arr.End()

	switch arr.InnerType {
	case "IntProperty", "FloatProperty":
		for i := 0; i < count && pos+4 <= end; i++ {
			arr.Children = append(arr.Children, &Record{
				Name:  strconv.Itoa(i),
				Type:  arr.InnerType,
				Kind:  KindOf(arr.InnerType),
				Size:  4,
				Start: pos,
			})
			pos += 4
		}
	case "ByteProperty", "EnumProperty", "StrProperty", "NameProperty":
		for i := 0; i < count && pos < end; i++ {
			_, n, err := fstring.Decode(data[:end], pos)
			if err != nil {
				arr.Children = nil
				return
			}
			arr.Children = append(arr.Children, &Record{
				Name:  strconv.Itoa(i),
				Type:  arr.InnerType,
				Kind:  KindOf(arr.InnerType),
				Size:  uint64(n),
				Start: pos,
			})
			pos += n
		}
	}
}
