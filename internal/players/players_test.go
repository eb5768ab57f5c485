package players

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFile = "76561198142478391_+_|00028ce6e7d54af2968d8aff2e694375@0xAnakin\n" +
	"76561198000000002_+_|11118ce6e7d54af2968d8aff2e694aaa@Scavenger\n"

func TestParse(t *testing.T) {
	got, err := Parse([]byte(sampleFile), "PlayerIDMapped.txt")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"76561198142478391": "0xAnakin",
		"76561198000000002": "Scavenger",
	}, got)
}

func TestParseStripsBOM(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, sampleFile...)
	got, err := Parse(raw, "PlayerIDMapped.txt")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestParseSkipsMalformedLines(t *testing.T) {
	raw := []byte("garbage line\n" +
		"\n" +
		"123_+_|deadbeef@TooShortID\n" +
		sampleFile +
		"76561198000000003_missing_separator@Nobody\n")

	got, err := Parse(raw, "PlayerIDMapped.txt")
	require.NoError(t, err)
	assert.Len(t, got, 2, "only well-formed lines survive")
	assert.Equal(t, "0xAnakin", got["76561198142478391"])
}

func TestParseEmptyIsError(t *testing.T) {
	_, err := Parse([]byte("nothing useful here\n"), "PlayerIDMapped.txt")
	assert.ErrorIs(t, err, ErrNoPlayers)

	_, err = Parse(nil, "PlayerIDMapped.txt")
	assert.ErrorIs(t, err, ErrNoPlayers)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "PlayerIDMapped.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = Load(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}
