package gvas

import (
	"fmt"
	"os"
	"time"
)

// Document owns a save file's byte buffer and its parsed header. The header
// is set once at load; edits go through Patch, which swaps in a freshly
// built buffer and never mutates the old one.
type Document struct {
	Header *Header
	data   []byte
}

// Load reads and parses a save file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read save: %w", err)
	}
	return NewDocument(data)
}

// NewDocument parses a save buffer. The document takes ownership of data.
func NewDocument(data []byte) (*Document, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	return &Document{Header: header, data: data}, nil
}

// Bytes returns the current buffer. Callers must not modify it.
func (d *Document) Bytes() []byte { return d.data }

// Len returns the current buffer length.
func (d *Document) Len() int { return len(d.data) }

// Patch applies operations and replaces the document buffer on success.
// On failure the document is left exactly as it was.
func (d *Document) Patch(ops []Operation) error {
	patched, err := Apply(d.data, ops)
	if err != nil {
		return err
	}
	header, err := ParseHeader(patched)
	if err != nil {
		return fmt.Errorf("patched buffer no longer parses: %w", err)
	}
	d.data = patched
	d.Header = header
	return nil
}

// Save writes the document to path. If a file already exists there, a
// byte-identical copy is written first under a timestamped backup name, so
// every edit stays reversible.
func (d *Document) Save(path string) error {
	if _, err := os.Stat(path); err == nil {
		if _, err := BackupFile(path); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, d.data, 0644); err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	return nil
}

// BackupFile copies path to path.backup_YYYYMMDD_HHMMSS and returns the
// backup path.
func BackupFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read original for backup: %w", err)
	}
	backup := fmt.Sprintf("%s.backup_%s", path, time.Now().Format("20060102_150405"))
	if err := os.WriteFile(backup, data, 0644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	return backup, nil
}
