package gvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexweld/uesavekit/pkg/fstring"
)

func TestFindOccurrences(t *testing.T) {
	header := testHeaderBytes(t)
	buf := appendEnumProp(header, "StartingPerk_94", "Enum_Professions", "Enum_Professions::NewEnumerator14")
	buf = appendIntProp(buf, "Level_15", 10)
	buf = appendEnumArrayProp(buf, "UnlockedProfessionArr_17",
		"Enum_Professions::NewEnumerator0",
		"Enum_Professions::NewEnumerator15",
	)

	occs := FindOccurrences(buf, "Enum_Professions::NewEnumerator")
	require.Len(t, occs, 3)

	assert.Equal(t, "Enum_Professions::NewEnumerator14", occs[0].Text)
	assert.Equal(t, "Enum_Professions::NewEnumerator0", occs[1].Text)
	assert.Equal(t, "Enum_Professions::NewEnumerator15", occs[2].Text)

	for i, occ := range occs {
		assert.True(t, occ.PrefixValid, "occurrence %d", i)
		if i > 0 {
			assert.Greater(t, occ.Offset, occs[i-1].Offset, "offsets strictly increasing")
		}
	}
}

func TestFindOccurrencesPrefixMatchesSuffixedNames(t *testing.T) {
	header := testHeaderBytes(t)
	// Property names carry per-instance unique suffixes; a bare prefix must
	// still find them.
	buf := appendStrProp(header, "SteamID_67_6AFAA3B54A4447673EFF4D94BA0F84A7", "76561198142478391_+_|0002@Anakin")

	occs := FindOccurrences(buf, "SteamID")
	require.Len(t, occs, 1)
	assert.Equal(t, "SteamID_67_6AFAA3B54A4447673EFF4D94BA0F84A7", occs[0].Text)
}

func TestFindOccurrencesRegion(t *testing.T) {
	header := testHeaderBytes(t)
	buf := appendStrProp(header, "TagA", "Wolf")
	mid := len(buf)
	buf = appendStrProp(buf, "TagB", "Wolf")

	all := FindOccurrences(buf, "Wolf")
	require.Len(t, all, 2)

	second := FindOccurrencesIn(buf, "Wolf", Region{Start: mid})
	require.Len(t, second, 1)
	assert.Equal(t, all[1].Offset, second[0].Offset)
}

func TestAttributeOwner(t *testing.T) {
	header := testHeaderBytes(t)
	buf := appendStrProp(header, "OwnerKey_1", "owner-alpha")
	buf = appendStrProp(buf, "OwnerKey_2", "owner-bravo")
	buf = appendEnumProp(buf, "StartingPerk_94", "Enum_Professions", "Enum_Professions::NewEnumerator3")
	buf = appendStrProp(buf, "OwnerKey_3", "owner-charlie")

	target := FindOccurrences(buf, "Enum_Professions::")
	require.Len(t, target, 1)

	owner, ok := AttributeOwner(buf, target[0], "owner-", Region{})
	require.True(t, ok)
	// Largest offset strictly below the target wins, never a later one.
	assert.Equal(t, "owner-bravo", owner.Text)
}

func TestAttributeOwnerNoCandidateBefore(t *testing.T) {
	header := testHeaderBytes(t)
	buf := appendEnumProp(header, "StartingPerk_94", "Enum_Professions", "Enum_Professions::NewEnumerator3")
	buf = appendStrProp(buf, "OwnerKey_1", "owner-alpha")

	target := FindOccurrences(buf, "Enum_Professions::")
	require.Len(t, target, 1)

	_, ok := AttributeOwner(buf, target[0], "owner-", Region{})
	assert.False(t, ok, "an owner after the target must not be attributed")
}

func TestOccurrenceEnd(t *testing.T) {
	buf := fstring.Encode("Thief", false)
	occs := FindOccurrences(buf, "Thief")
	require.Len(t, occs, 1)
	assert.Equal(t, occs[0].Offset+len("Thief")+1, occs[0].End())
}
