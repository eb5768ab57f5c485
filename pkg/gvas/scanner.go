package gvas

import (
	"bytes"
	"encoding/binary"
)

// Occurrence is one located length-prefixed string in a save buffer. Offset
// is the first character of the string payload; the int32 length prefix sits
// at Offset-4. Occurrences are produced by scanning and discarded after a
// scan/edit cycle, since a resizing edit invalidates every offset after it.
type Occurrence struct {
	// Text is the full NUL-terminated string found at Offset, terminator
	// stripped.
	Text string

	// Offset of the first character. The length prefix is at Offset-4.
	Offset int

	// PrefixValid reports whether the stored prefix equals len(Text)+1.
	// Matches without a valid prefix are raw byte coincidences, not encoded
	// string values, and must not be patched.
	PrefixValid bool
}

// End returns the offset one past the string's NUL terminator.
func (o Occurrence) End() int { return o.Offset + len(o.Text) + 1 }

// Region bounds a scan. A zero End means the end of the buffer.
type Region struct {
	Start, End int
}

func (r Region) clamp(n int) Region {
	if r.End == 0 || r.End > n {
		r.End = n
	}
	if r.Start < 0 {
		r.Start = 0
	}
	return r
}

// FindOccurrences locates every string that textually starts with prefix,
// in strictly increasing offset order. Property names carry per-instance
// suffixes in this format, so prefix matching is the lookup primitive.
func FindOccurrences(data []byte, prefix string) []Occurrence {
	return FindOccurrencesIn(data, prefix, Region{})
}

// FindOccurrencesIn is FindOccurrences restricted to a byte region.
func FindOccurrencesIn(data []byte, prefix string, region Region) []Occurrence {
	region = region.clamp(len(data))
	needle := []byte(prefix)
	var out []Occurrence

	pos := region.Start
	for pos < region.End {
		idx := bytes.Index(data[pos:region.End], needle)
		if idx < 0 {
			break
		}
		at := pos + idx
		if occ, ok := occurrenceAt(data, at); ok {
			out = append(out, occ)
		}
		pos = at + 1
	}
	return out
}

// occurrenceAt reads the NUL-terminated string starting at and validates its
// length prefix.
func occurrenceAt(data []byte, at int) (Occurrence, bool) {
	end := bytes.IndexByte(data[at:], 0)
	if end < 0 {
		return Occurrence{}, false
	}
	occ := Occurrence{
		Text:   string(data[at : at+end]),
		Offset: at,
	}
	if at >= 4 {
		stored := int32(binary.LittleEndian.Uint32(data[at-4:]))
		occ.PrefixValid = stored == int32(len(occ.Text)+1)
	}
	return occ, true
}

// AttributeOwner resolves which owner-key occurrence a located value belongs
// to: the occurrence of ownerPrefix with the largest offset strictly below
// occ.Offset inside region. This is a proximity heuristic, not a structural
// parent lookup; callers that need containment guarantees must bound region
// to a single container themselves.
func AttributeOwner(data []byte, occ Occurrence, ownerPrefix string, region Region) (Occurrence, bool) {
	candidates := FindOccurrencesIn(data, ownerPrefix, region)

	var best Occurrence
	found := false
	for _, c := range candidates {
		if c.Offset >= occ.Offset {
			break
		}
		best = c
		found = true
	}
	return best, found
}
