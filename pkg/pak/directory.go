package pak

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path"

	"github.com/hexweld/uesavekit/pkg/fstring"
)

// ParseDirectory decodes the decrypted full-directory block and assigns
// human-readable paths to the entries it references. Entries are referenced
// by their byte offset inside the encoded-entry blob; a reference that
// matches no decoded entry is skipped rather than treated as fatal, since
// the entry list itself already decoded cleanly.
func ParseDirectory(plain []byte, entries []*Entry) error {
	byOffset := make(map[int]*Entry, len(entries))
	for _, e := range entries {
		byOffset[e.EncodedOffset] = e
	}

	r := bytes.NewReader(plain)

	var dirCount uint32
	if err := binary.Read(r, binary.LittleEndian, &dirCount); err != nil {
		return fmt.Errorf("%w: directory count: %v", ErrFormat, err)
	}

	for i := range int(dirCount) {
		dirName, err := fstring.Read(r)
		if err != nil {
			return fmt.Errorf("%w: directory %d name: %v", ErrFormat, i, err)
		}

		var fileCount uint32
		if err := binary.Read(r, binary.LittleEndian, &fileCount); err != nil {
			return fmt.Errorf("%w: directory %q file count: %v", ErrFormat, dirName, err)
		}

		for j := range int(fileCount) {
			fileName, err := fstring.Read(r)
			if err != nil {
				return fmt.Errorf("%w: file %d in %q: %v", ErrFormat, j, dirName, err)
			}
			var encodedOffset int32
			if err := binary.Read(r, binary.LittleEndian, &encodedOffset); err != nil {
				return fmt.Errorf("%w: file %q entry offset: %v", ErrFormat, fileName, err)
			}
			if e, ok := byOffset[int(encodedOffset)]; ok {
				e.Path = joinEntryPath(dirName, fileName)
			}
		}
	}
	return nil
}

// joinEntryPath combines a directory name and file name into a
// forward-slash path. Directory names of "/" and "" both mean the archive
// root.
func joinEntryPath(dir, file string) string {
	if dir == "" || dir == "/" {
		return file
	}
	return path.Join(dir, file)
}
