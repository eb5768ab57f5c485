// Package players parses the SteamID-to-name mapping file exported by a
// dedicated server. Each line reads
//
//	<SteamID64>_+_|<InternalID>@<DisplayName>
//
// for example
//
//	76561198142478391_+_|00028ce6e7d54af2968d8aff2e694375@0xAnakin
package players

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var linePattern = regexp.MustCompile(`^(\d{10,20})_\+_\|[0-9a-f]+@(.+)$`)

// ErrNoPlayers reports a mapping file with no valid entries.
var ErrNoPlayers = errors.New("players: no valid entries")

// Load reads a mapping file. A UTF-8 BOM is tolerated, malformed lines are
// skipped, and a file yielding no entries at all is an error since every
// caller needs at least one name to attribute.
func Load(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read player file: %w", err)
	}
	return Parse(raw, path)
}

// Parse decodes mapping-file contents. The name argument only labels errors.
func Parse(raw []byte, name string) (map[string]string, error) {
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})

	found := map[string]string{}
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		m := linePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		found[m[1]] = m[2]
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", name, err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoPlayers, name)
	}
	return found, nil
}
