package gvas

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Fixup adjusts a little-endian integer field elsewhere in the buffer as
// part of an operation, typically the 8-byte size of the property enclosing
// a resized string, or the 4-byte element count of a grown array.
type Fixup struct {
	Offset int
	Width  int // 4 or 8
	Add    int64
}

// Operation is one planned byte-level edit. It is created by a Plan function
// and consumed exactly once by Apply; offsets are coordinates in the buffer
// the plan was made against.
type Operation struct {
	// Offset of the bytes being replaced. For string replacements this is
	// the payload offset, with the length prefix at Offset-4.
	Offset int

	// Old is the exact byte content expected at Offset. Empty for an
	// insertion.
	Old []byte

	// New replaces Old. For an insertion it is spliced in at Offset.
	New []byte

	// Resize rewrites the int32 length prefix at Offset-4 from
	// len(Old)+1 to len(New)+1.
	Resize bool

	Fixups []Fixup
}

// Delta returns the net change in buffer length.
func (op Operation) Delta() int { return len(op.New) - len(op.Old) }

// PlanReplacement plans swapping one string value for another. Equal lengths
// produce a pure payload overwrite; otherwise the operation also rewrites
// the length prefix and shifts everything after it.
func PlanReplacement(occ Occurrence, oldText, newText string) (Operation, error) {
	if occ.Text != oldText {
		return Operation{}, fmt.Errorf("occurrence at %d holds %q, not %q", occ.Offset, occ.Text, oldText)
	}
	if !occ.PrefixValid {
		return Operation{}, fmt.Errorf("occurrence at %d has no valid length prefix", occ.Offset)
	}
	return Operation{
		Offset: occ.Offset,
		Old:    []byte(oldText),
		New:    []byte(newText),
		Resize: len(newText) != len(oldText),
	}, nil
}

// WithFixups returns a copy of the operation carrying additional integer
// fixups, e.g. the enclosing property's size field.
func (op Operation) WithFixups(fixups ...Fixup) Operation {
	op.Fixups = append(op.Fixups[:len(op.Fixups):len(op.Fixups)], fixups...)
	return op
}

// PlanInsert plans splicing raw bytes in at the given offset.
func PlanInsert(at int, raw []byte, fixups ...Fixup) Operation {
	return Operation{Offset: at, New: raw, Fixups: fixups}
}

// PlanInt32Write plans a fixed-width overwrite of an int32 value field.
// The buffer length never changes.
func PlanInt32Write(data []byte, off int, v int32) (Operation, error) {
	if off < 0 || off+4 > len(data) {
		return Operation{}, fmt.Errorf("%w: int32 at %d", ErrOutOfRange, off)
	}
	return Operation{
		Offset: off,
		Old:    bytes.Clone(data[off : off+4]),
		New:    binary.LittleEndian.AppendUint32(nil, uint32(v)),
	}, nil
}

// PlanFloat32Write plans a fixed-width overwrite of a float32 value field.
func PlanFloat32Write(data []byte, off int, v float32) (Operation, error) {
	if off < 0 || off+4 > len(data) {
		return Operation{}, fmt.Errorf("%w: float32 at %d", ErrOutOfRange, off)
	}
	return Operation{
		Offset: off,
		Old:    bytes.Clone(data[off : off+4]),
		New:    binary.LittleEndian.AppendUint32(nil, math.Float32bits(v)),
	}, nil
}

// edit is a fully resolved span rewrite in original-buffer coordinates.
type edit struct {
	off      int
	old, new []byte
}

// Apply performs the operations and returns a new buffer. All verification
// happens against the input before any output is produced: if any
// operation's expected bytes do not match, Apply returns the input buffer
// unmodified with an error, so no partial write is ever observable. Offsets
// shifted by earlier resizing operations are handled implicitly because
// edits are expressed in original coordinates and spliced in one ascending
// pass.
func Apply(data []byte, ops []Operation) ([]byte, error) {
	edits, err := expand(data, ops)
	if err != nil {
		return data, err
	}

	sort.Slice(edits, func(i, j int) bool { return edits[i].off < edits[j].off })

	prevEnd := -1
	delta := 0
	for i, e := range edits {
		if e.off < 0 || e.off+len(e.old) > len(data) {
			return data, fmt.Errorf("%w: edit at %d (%d bytes)", ErrOutOfRange, e.off, len(e.old))
		}
		if e.off < prevEnd || (e.off == prevEnd && i > 0 && edits[i-1].off == e.off) {
			return data, fmt.Errorf("overlapping edits at %d", e.off)
		}
		if !bytes.Equal(data[e.off:e.off+len(e.old)], e.old) {
			return data, fmt.Errorf("source bytes at %d do not match expected content", e.off)
		}
		prevEnd = e.off + len(e.old)
		delta += len(e.new) - len(e.old)
	}

	out := make([]byte, 0, len(data)+delta)
	pos := 0
	for _, e := range edits {
		out = append(out, data[pos:e.off]...)
		out = append(out, e.new...)
		pos = e.off + len(e.old)
	}
	out = append(out, data[pos:]...)
	return out, nil
}

// expand turns operations into flat edits: payload rewrite, optional prefix
// rewrite, and fixup integer rewrites, all in original coordinates.
func expand(data []byte, ops []Operation) ([]edit, error) {
	var edits []edit
	for _, op := range ops {
		edits = append(edits, edit{off: op.Offset, old: op.Old, new: op.New})

		if op.Resize {
			oldPrefix := binary.LittleEndian.AppendUint32(nil, uint32(int32(len(op.Old)+1)))
			newPrefix := binary.LittleEndian.AppendUint32(nil, uint32(int32(len(op.New)+1)))
			edits = append(edits, edit{off: op.Offset - 4, old: oldPrefix, new: newPrefix})
		}

		for _, f := range op.Fixups {
			e, err := fixupEdit(data, f)
			if err != nil {
				return nil, err
			}
			edits = append(edits, e)
		}
	}
	return edits, nil
}

func fixupEdit(data []byte, f Fixup) (edit, error) {
	if f.Offset < 0 || f.Offset+f.Width > len(data) {
		return edit{}, fmt.Errorf("%w: fixup at %d", ErrOutOfRange, f.Offset)
	}
	switch f.Width {
	case 4:
		old := binary.LittleEndian.Uint32(data[f.Offset:])
		return edit{
			off: f.Offset,
			old: binary.LittleEndian.AppendUint32(nil, old),
			new: binary.LittleEndian.AppendUint32(nil, uint32(int64(old)+f.Add)),
		}, nil
	case 8:
		old := binary.LittleEndian.Uint64(data[f.Offset:])
		return edit{
			off: f.Offset,
			old: binary.LittleEndian.AppendUint64(nil, old),
			new: binary.LittleEndian.AppendUint64(nil, uint64(int64(old)+f.Add)),
		}, nil
	default:
		return edit{}, fmt.Errorf("fixup width %d not supported", f.Width)
	}
}
