// Package config holds the tool configuration and the game-data constants
// the editors need: archive location, AES key, player-ID file and the
// profession enum table.
package config

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/hexweld/uesavekit/pkg/pak"
)

// Config is the on-disk tool configuration.
type Config struct {
	// PakPath points at the game's main content archive.
	PakPath string `yaml:"pakPath"`

	// AESKeyHex is the archive index key as 64 hex digits.
	AESKeyHex string `yaml:"aesKey"`

	// PlayerFile points at the SteamID-to-name mapping exported by the
	// dedicated server.
	PlayerFile string `yaml:"playerFile"`
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.AESKeyHex != "" {
		if _, err := cfg.Key(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// Key decodes the hex AES key. The key travels as a value from here on;
// nothing reads it from global state.
func (c *Config) Key() ([]byte, error) {
	key, err := hex.DecodeString(c.AESKeyHex)
	if err != nil {
		return nil, fmt.Errorf("aesKey is not valid hex: %w", err)
	}
	if len(key) != pak.KeySize {
		return nil, fmt.Errorf("aesKey is %d bytes, want %d", len(key), pak.KeySize)
	}
	return key, nil
}
