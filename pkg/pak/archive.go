package pak

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/sync/errgroup"
)

// Archive is an opened container archive: the reader and key plus the
// decoded footer, index and entry list.
type Archive struct {
	r    io.ReaderAt
	size int64
	key  []byte

	closer io.Closer

	Footer  *Footer
	Index   *Index
	Entries []*Entry
}

// Open opens the archive at path and decodes its index with the given key.
func Open(path string, key []byte) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	a, err := New(f, info.Size(), key)
	if err != nil {
		f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// New decodes an archive from an arbitrary reader. The caller keeps
// ownership of the reader.
func New(r io.ReaderAt, size int64, key []byte) (*Archive, error) {
	a := &Archive{r: r, size: size, key: key}

	footRaw, err := a.readAt(size-FooterSize, FooterSize)
	if err != nil {
		return nil, fmt.Errorf("read footer: %w", err)
	}
	if a.Footer, err = parseFooter(footRaw); err != nil {
		return nil, err
	}

	indexRaw, err := a.readAt(a.Footer.IndexOffset, a.Footer.IndexSize)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	if a.Footer.EncryptedIndex {
		if indexRaw, err = DecryptIndex(indexRaw, key); err != nil {
			return nil, fmt.Errorf("decrypt index: %w", err)
		}
	}
	if a.Index, err = ParseIndex(indexRaw); err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}

	if a.Entries, err = DecodeEntries(a.Index.Encoded); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	for _, e := range a.Entries {
		e.Validate(size)
	}
	a.Index.Entries = a.Entries

	if a.Index.HasDirectory() {
		if err := a.loadDirectory(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Close releases the underlying file when the archive was opened by path.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func (a *Archive) loadDirectory() error {
	raw, err := a.readAt(a.Index.DirOffset, a.Index.DirSize)
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}
	if a.Footer.EncryptedIndex {
		if raw, err = DecryptIndex(raw, a.key); err != nil {
			return fmt.Errorf("decrypt directory: %w", err)
		}
	}
	if err := ParseDirectory(raw, a.Entries); err != nil {
		return fmt.Errorf("parse directory: %w", err)
	}
	return nil
}

// Extract returns an entry's payload. Corrupt entries carry their decode
// diagnostic, compressed entries are refused by name, and encrypted payloads
// are decrypted with the archive key.
func (a *Archive) Extract(e *Entry) ([]byte, error) {
	if e.Corrupt != nil {
		return nil, e.Corrupt
	}
	if e.CompressionMethod != 0 {
		return nil, fmt.Errorf("%w: entry %q uses %s", ErrUnsupportedCompression,
			e.Path, a.Footer.MethodName(e.CompressionMethod))
	}

	data, err := a.readAt(e.Offset, e.Size)
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", e.Path, err)
	}
	if e.Encrypted {
		if data, err = decryptPadded(data, a.key); err != nil {
			return nil, fmt.Errorf("entry %q: %w", e.Path, err)
		}
	}
	return data, nil
}

// Search returns entries whose path matches the pattern, compiled
// case-insensitive, preserving index order.
func (a *Archive) Search(pattern string) ([]*Entry, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("bad search pattern: %w", err)
	}
	var hits []*Entry
	for _, e := range a.Entries {
		if re.MatchString(e.Path) {
			hits = append(hits, e)
		}
	}
	return hits, nil
}

// ExtractAll writes every extractable entry beneath dir, mirroring the
// directory structure. Corrupt and pathless entries are skipped and counted;
// any other failure aborts the whole run.
func (a *Archive) ExtractAll(dir string) (written, skipped int, err error) {
	var g errgroup.Group
	g.SetLimit(8)

	results := make([]bool, len(a.Entries))
	for i, e := range a.Entries {
		if e.Corrupt != nil || e.Path == "" {
			skipped++
			continue
		}
		g.Go(func() error {
			data, err := a.Extract(e)
			if err != nil {
				return err
			}
			dest := filepath.Join(dir, filepath.FromSlash(e.Path))
			if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
				return fmt.Errorf("entry %q: %w", e.Path, err)
			}
			if err := os.WriteFile(dest, data, 0644); err != nil {
				return fmt.Errorf("entry %q: %w", e.Path, err)
			}
			results[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	for _, ok := range results {
		if ok {
			written++
		}
	}
	return written, skipped, nil
}

// readAt reads an exact region, rejecting reads outside the archive.
func (a *Archive) readAt(off, n int64) ([]byte, error) {
	if off < 0 || n < 0 || off+n > a.size {
		return nil, fmt.Errorf("%w: [%d, %d) in %d-byte archive", ErrOutOfRange, off, off+n, a.size)
	}
	buf := make([]byte, n)
	if _, err := a.r.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("read at %d: %w", off, err)
	}
	return buf, nil
}
