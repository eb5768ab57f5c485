package gvas

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentLoadSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "World1.sav")

	original := testHeaderBytes(t)
	original = appendEnumProp(original, "StartingPerk_94", "Enum_Professions", "Enum_Professions::NewEnumerator15")
	require.NoError(t, os.WriteFile(path, original, 0644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), doc.Header.SaveGameVersion)
	assert.Equal(t, len(original), doc.Len())

	occ := FindOccurrences(doc.Bytes(), "Enum_Professions::NewEnumerator")[0]
	op, err := PlanReplacement(occ, "Enum_Professions::NewEnumerator15", "Enum_Professions::NewEnumerator16")
	require.NoError(t, err)
	require.NoError(t, doc.Patch([]Operation{op}))

	require.NoError(t, doc.Save(path))

	// The pre-edit bytes must survive under a timestamped backup name.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var backup string
	for _, e := range entries {
		if strings.Contains(e.Name(), ".backup_") {
			backup = filepath.Join(dir, e.Name())
		}
	}
	require.NotEmpty(t, backup, "backup file created before overwrite")

	backupData, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, original, backupData, "backup is byte-identical to the pre-edit document")

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, doc.Bytes(), saved)
}

func TestDocumentPatchFailureLeavesDocumentIntact(t *testing.T) {
	data := testHeaderBytes(t)
	data = appendStrProp(data, "TagA", "alpha")

	doc, err := NewDocument(data)
	require.NoError(t, err)

	before := append([]byte(nil), doc.Bytes()...)
	bad := Operation{Offset: doc.Header.Size, Old: []byte("nonsense"), New: []byte("whatever")}
	require.Error(t, doc.Patch([]Operation{bad}))
	assert.Equal(t, before, doc.Bytes())
}

func TestLoadRejectsNonSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-a-save.bin")
	require.NoError(t, os.WriteFile(path, []byte("PNG...."), 0644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrFormat)
}
