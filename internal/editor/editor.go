// Package editor reads and edits per-player data inside a save document:
// levels, skill points, XP and the active profession. Players are located by
// scanning for their SteamID property; everything else is read relative to
// that anchor.
package editor

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/hexweld/uesavekit/internal/config"
	"github.com/hexweld/uesavekit/pkg/fstring"
	"github.com/hexweld/uesavekit/pkg/gvas"
)

// Property names as serialized in the save, per-instance suffix included.
const (
	steamIDProp      = "SteamID_67_6AFAA3B54A4447673EFF4D94BA0F84A7"
	startingPerkProp = "StartingPerk_94_283EA71B427B7E97C43350818608A5E4"
	unlockedArrProp  = "UnlockedProfessionArr_17_2528BAE945B7A3B1A49D7893990D13BF"
)

// StatKey names one editable numeric stat.
type StatKey string

const (
	StatLevel       StatKey = "level"
	StatSkillPoints StatKey = "skillpoints"
	StatXPGained    StatKey = "xpgained"
	StatRequiredXP  StatKey = "requiredxp"
	StatCurrentXP   StatKey = "currentxp"
)

type statSpec struct {
	Key   StatKey
	Label string
	Prop  string
	Float bool
}

// statSpecs drives discovery and display, in report order.
var statSpecs = []statSpec{
	{StatLevel, "Level", "Level_15_CF9C856C488C1A8E5FDBD0867E1E4B84", false},
	{StatSkillPoints, "Skill Points", "SkillsPoint_14_28A5347D4A1C7FE53D47AF8C61AF3F72", false},
	{StatXPGained, "XP Gained (total)", "XPGained_9_DBB2D8FA4938305F1BD8C1AEE1155512", false},
	{StatRequiredXP, "Required XP (next level)", "Required_3_9EC34DB94655BD224201AA9AD482C5BB", true},
	{StatCurrentXP, "Current XP (progress)", "Current_4_EBCD0EF2496AEF7E3ACCBC9AD9D49E03", true},
}

// StatLabel returns the display label for a stat key.
func StatLabel(key StatKey) string {
	for _, s := range statSpecs {
		if s.Key == key {
			return s.Label
		}
	}
	return string(key)
}

// StatKeys lists the known stats in report order.
func StatKeys() []StatKey {
	keys := make([]StatKey, len(statSpecs))
	for i, s := range statSpecs {
		keys[i] = s.Key
	}
	return keys
}

// Stat is one located numeric stat value. Offsets are valid only until the
// next resizing edit; the editor rescans after every patch.
type Stat struct {
	Key         StatKey
	Float       bool
	Int         int32
	FloatVal    float32
	ValueOffset int
}

// Display formats the stat value.
func (s *Stat) Display() string {
	if s.Float {
		return fmt.Sprintf("%.1f", s.FloatVal)
	}
	return fmt.Sprintf("%d", s.Int)
}

// Profession is a player's active profession as stored in the save.
type Profession struct {
	Num   int
	Value string

	valueOffset int // payload offset of the value string
	sizeOffset  int // offset of the enclosing property's 8-byte size
}

// Display returns the profession's display name.
func (p *Profession) Display() string { return config.ProfessionName(p.Num) }

// Player is one discovered player and the offsets of their editable values.
type Player struct {
	Name    string
	SteamID string

	// Region spans from this player's SteamID anchor to the next player's,
	// or the end of the buffer for the last player.
	Region gvas.Region

	Stats      map[StatKey]*Stat
	Profession *Profession
	Unlocked   []string
}

// Editor wraps a save document with player discovery and stat editing.
type Editor struct {
	doc     *gvas.Document
	known   map[string]string
	players []*Player
}

// New scans the document for players. known maps SteamID64 to display name;
// unknown IDs still produce players, labeled by their ID.
func New(doc *gvas.Document, known map[string]string) (*Editor, error) {
	e := &Editor{doc: doc, known: known}
	if err := e.rescan(); err != nil {
		return nil, err
	}
	return e, nil
}

// Players returns the discovered players in file order.
func (e *Editor) Players() []*Player { return e.players }

// Document exposes the underlying save document.
func (e *Editor) Document() *gvas.Document { return e.doc }

func (e *Editor) rescan() error {
	players, err := FindPlayers(e.doc.Bytes(), e.known)
	if err != nil {
		return err
	}
	e.players = players
	return nil
}

// FindPlayers locates every player in a save buffer. Each SteamID property
// occurrence anchors one player; the player's region runs to the next anchor.
func FindPlayers(data []byte, known map[string]string) ([]*Player, error) {
	anchors := gvas.FindOccurrences(data, steamIDProp)

	var players []*Player
	for i, occ := range anchors {
		region := gvas.Region{Start: occ.Offset, End: len(data)}
		if i+1 < len(anchors) {
			region.End = anchors[i+1].Offset
		}

		p := &Player{Region: region, Stats: map[StatKey]*Stat{}}
		if err := readSteamID(data, occ, p, known); err != nil {
			return nil, fmt.Errorf("player anchor at %d: %w", occ.Offset, err)
		}

		for _, spec := range statSpecs {
			stat, err := readStat(data, region, spec)
			if err != nil {
				return nil, fmt.Errorf("player %s: %w", p.SteamID, err)
			}
			if stat != nil {
				p.Stats[spec.Key] = stat
			}
		}

		prof, err := readProfession(data, region)
		if err != nil {
			return nil, fmt.Errorf("player %s: %w", p.SteamID, err)
		}
		p.Profession = prof

		if arr, err := readUnlockedArray(data, region); err == nil && arr != nil {
			p.Unlocked = arr.entries
		} else if err != nil {
			return nil, fmt.Errorf("player %s: %w", p.SteamID, err)
		}

		players = append(players, p)
	}
	return players, nil
}

// readSteamID parses the anchor property's string value. The stored value is
// the full mapped identity line; the SteamID64 is the part before "_+_".
func readSteamID(data []byte, occ gvas.Occurrence, p *Player, known map[string]string) error {
	valOff, _, err := propValueOffset(data, occ)
	if err != nil {
		return err
	}
	value, _, err := fstring.Decode(data, valOff)
	if err != nil {
		return fmt.Errorf("value string: %w", err)
	}

	p.SteamID, _, _ = strings.Cut(value, "_+_")
	if name, ok := known[p.SteamID]; ok {
		p.Name = name
	} else {
		p.Name = fmt.Sprintf("Unknown(%s)", p.SteamID)
	}
	return nil
}

func readStat(data []byte, region gvas.Region, spec statSpec) (*Stat, error) {
	occs := gvas.FindOccurrencesIn(data, spec.Prop, region)
	if len(occs) == 0 {
		return nil, nil
	}

	valOff, _, err := propValueOffset(data, occs[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Label, err)
	}
	if valOff+4 > len(data) {
		return nil, fmt.Errorf("%s: %w", spec.Label, gvas.ErrOutOfRange)
	}

	stat := &Stat{Key: spec.Key, Float: spec.Float, ValueOffset: valOff}
	raw := binary.LittleEndian.Uint32(data[valOff:])
	if spec.Float {
		stat.FloatVal = math.Float32frombits(raw)
	} else {
		stat.Int = int32(raw)
	}
	return stat, nil
}

// readProfession parses the StartingPerk byte property: 8-byte size, enum
// type string, guard byte, then the enum value string.
func readProfession(data []byte, region gvas.Region) (*Profession, error) {
	occs := gvas.FindOccurrencesIn(data, startingPerkProp, region)
	if len(occs) == 0 {
		return nil, nil
	}
	occ := occs[0]

	typeEnd, err := skipString(data, occ.End())
	if err != nil {
		return nil, fmt.Errorf("perk type: %w", err)
	}
	sizeOff := typeEnd

	pos, err := skipString(data, sizeOff+8)
	if err != nil {
		return nil, fmt.Errorf("perk enum type: %w", err)
	}
	pos, err = skipGuard(data, pos)
	if err != nil {
		return nil, fmt.Errorf("perk guard: %w", err)
	}

	value, _, err := fstring.Decode(data, pos)
	if err != nil {
		return nil, fmt.Errorf("perk value: %w", err)
	}

	prof := &Profession{
		Value:       value,
		valueOffset: pos + 4,
		sizeOffset:  sizeOff,
	}
	if num, err := config.ParseEnumValue(value); err == nil {
		prof.Num = num
	} else {
		prof.Num = -1
	}
	return prof, nil
}

// unlockedArray is the parsed layout of the unlocked-profession array
// property: where to bump the count and size, where to splice a new entry.
type unlockedArray struct {
	sizeOff  int
	countOff int
	insertAt int
	entries  []string
}

func readUnlockedArray(data []byte, region gvas.Region) (*unlockedArray, error) {
	occs := gvas.FindOccurrencesIn(data, unlockedArrProp, region)
	if len(occs) == 0 {
		return nil, nil
	}
	occ := occs[0]

	typeEnd, err := skipString(data, occ.End())
	if err != nil {
		return nil, fmt.Errorf("array type: %w", err)
	}
	sizeOff := typeEnd

	pos, err := skipString(data, sizeOff+8)
	if err != nil {
		return nil, fmt.Errorf("array inner type: %w", err)
	}
	pos, err = skipGuard(data, pos)
	if err != nil {
		return nil, fmt.Errorf("array guard: %w", err)
	}

	countOff := pos
	if countOff+4 > len(data) {
		return nil, fmt.Errorf("array count: %w", gvas.ErrOutOfRange)
	}
	count := int32(binary.LittleEndian.Uint32(data[countOff:]))
	pos = countOff + 4

	arr := &unlockedArray{sizeOff: sizeOff, countOff: countOff}
	for range count {
		entry, n, err := fstring.Decode(data, pos)
		if err != nil {
			return nil, fmt.Errorf("array entry: %w", err)
		}
		arr.entries = append(arr.entries, entry)
		pos += n
	}
	arr.insertAt = pos
	return arr, nil
}

// SetStat overwrites one numeric stat in place. The value is truncated to
// int32 for integer stats. File size never changes.
func (e *Editor) SetStat(p *Player, key StatKey, value float64) error {
	stat, ok := p.Stats[key]
	if !ok {
		return fmt.Errorf("player %s has no %s property", p.SteamID, StatLabel(key))
	}

	var op gvas.Operation
	var err error
	if stat.Float {
		op, err = gvas.PlanFloat32Write(e.doc.Bytes(), stat.ValueOffset, float32(value))
	} else {
		op, err = gvas.PlanInt32Write(e.doc.Bytes(), stat.ValueOffset, int32(value))
	}
	if err != nil {
		return err
	}
	if err := e.doc.Patch([]gvas.Operation{op}); err != nil {
		return err
	}
	return e.rescan()
}

// SetProfession changes a player's active profession. The old profession is
// preserved by appending it to the unlocked-profession array when not
// already present, so it stays available in the skill tree. Both edits apply
// atomically.
func (e *Editor) SetProfession(p *Player, newNum int) error {
	if p.Profession == nil {
		return fmt.Errorf("player %s has no profession property", p.SteamID)
	}
	if _, ok := config.Professions[newNum]; !ok {
		return fmt.Errorf("no profession with enumerator %d", newNum)
	}
	oldValue := p.Profession.Value
	newValue := config.EnumValue(newNum)
	if newValue == oldValue {
		return nil
	}

	data := e.doc.Bytes()
	var ops []gvas.Operation

	arr, err := readUnlockedArray(data, p.Region)
	if err != nil {
		return err
	}
	if arr != nil && !slices.Contains(arr.entries, oldValue) {
		entry := fstring.Encode(oldValue, false)
		ops = append(ops, gvas.PlanInsert(arr.insertAt, entry,
			gvas.Fixup{Offset: arr.countOff, Width: 4, Add: 1},
			gvas.Fixup{Offset: arr.sizeOff, Width: 8, Add: int64(len(entry))},
		))
	}

	occ := gvas.Occurrence{Text: oldValue, Offset: p.Profession.valueOffset, PrefixValid: true}
	swap, err := gvas.PlanReplacement(occ, oldValue, newValue)
	if err != nil {
		return err
	}
	if swap.Resize {
		swap = swap.WithFixups(gvas.Fixup{
			Offset: p.Profession.sizeOffset,
			Width:  8,
			Add:    int64(len(newValue) - len(oldValue)),
		})
	}
	ops = append(ops, swap)

	if err := e.doc.Patch(ops); err != nil {
		return err
	}
	return e.rescan()
}

// propValueOffset skips a property's type string, 8-byte size and guard byte
// and returns the value offset plus the size-field offset.
func propValueOffset(data []byte, nameOcc gvas.Occurrence) (valOff, sizeOff int, err error) {
	typeEnd, err := skipString(data, nameOcc.End())
	if err != nil {
		return 0, 0, fmt.Errorf("type string: %w", err)
	}
	pos, err := skipGuard(data, typeEnd+8)
	if err != nil {
		return 0, 0, err
	}
	return pos, typeEnd, nil
}

func skipString(data []byte, off int) (int, error) {
	_, n, err := fstring.Decode(data, off)
	if err != nil {
		return 0, err
	}
	return off + n, nil
}

// skipGuard consumes the guard byte after a property's size field; a nonzero
// guard is followed by a 16-byte property GUID.
func skipGuard(data []byte, pos int) (int, error) {
	if pos >= len(data) {
		return 0, fmt.Errorf("guard byte: %w", gvas.ErrOutOfRange)
	}
	guard := data[pos]
	pos++
	if guard != 0 {
		pos += 16
		if pos > len(data) {
			return 0, fmt.Errorf("property guid: %w", gvas.ErrOutOfRange)
		}
	}
	return pos, nil
}
