// Package cfgdb reads the cpk_list.cfg.bin catalog that ships beside a
// game's CPK archives: a single CPK-encrypted UTF table (the "CPK_ITEM"
// table) listing every file the game can load and which CPK contains
// it. internal/rules consults it, for the dump subcommand's selective
// mode, to resolve a file-name regex to a CPK name.
package cfgdb

import (
	"fmt"
	"os"

	"github.com/ievr/ievrtool/internal/cpkcrypt"
	"github.com/ievr/ievrtool/internal/utf"
)

// Row is one CPK_ITEM entry: a packed file's logical directory and
// name, the CPK archive that contains it, and its size as last known
// to the catalog.
type Row struct {
	Directory string
	FileName  string
	CpkName   string
	FileSize  int64
}

// Database is the parsed CPK_ITEM table of a cfg.bin catalog.
type Database struct {
	Rows []Row
}

// names used by the CPK_ITEM table's columns. These are matched by
// name rather than position so a reordered column layout still
// resolves correctly.
const (
	colDirectory = "DirName"
	colFileName  = "FileName"
	colCpkName   = "CpkName"
	colFileSize  = "FileSize"
)

// Load decrypts and parses the cfg.bin catalog at path.
func Load(path string) (*Database, error) {
	plain, err := cpkcrypt.New(path).DecryptToMemory()
	if err != nil {
		return nil, fmt.Errorf("cfgdb: decrypt %s: %w", path, err)
	}
	return parse(plain)
}

func parse(plain []byte) (*Database, error) {
	t, err := utf.Parse(plain, 0)
	if err != nil {
		return nil, fmt.Errorf("cfgdb: parse catalog table: %w", err)
	}
	if t.EncryptedVariant {
		// Encrypted-UTF is detected, not decoded (§4.C.2); utf.Parse has
		// already logged it. Proceed with an empty database rather than
		// aborting: every row lookup simply misses.
		return &Database{}, nil
	}

	idx := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		idx[c.Name] = i
	}

	db := &Database{Rows: make([]Row, 0, t.RowCount)}

	for row := uint32(0); row < t.RowCount; row++ {
		cursor := int(t.RowsOffset) + int(row)*int(t.RowSizeBytes)
		var r Row

		for i, c := range t.Columns {
			var cell []byte
			if c.IsRowStorage {
				n := c.ValueLen()
				if cursor+n > len(t.Body) {
					return nil, fmt.Errorf("cfgdb: row %d col %d out of bounds", row, i)
				}
				cell = t.Body[cursor : cursor+n]
				cursor += n
			} else if c.HasDefault {
				cell = c.Default
			} else {
				continue
			}

			switch c.Name {
			case colDirectory:
				r.Directory = mustString(t, cell)
			case colFileName:
				r.FileName = mustString(t, cell)
			case colCpkName:
				r.CpkName = mustString(t, cell)
			case colFileSize:
				r.FileSize = c.ReadNumber(cell)
			}
		}
		db.Rows = append(db.Rows, r)
	}
	return db, nil
}

func mustString(t *utf.Table, cell []byte) string {
	off := utf.StringOffset(cell)
	pool := t.Body[t.StringPoolOffset:]
	end := int(off)
	for end < len(pool) && pool[end] != 0 {
		end++
	}
	if int(off) > len(pool) {
		return ""
	}
	return string(pool[off:end])
}

// EnsureReadable confirms path exists and is a regular file before
// the caller commits to decrypting it, so a missing catalog fails
// with a clear message instead of surfacing as a decrypt error.
func EnsureReadable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cfgdb: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("cfgdb: %s is a directory", path)
	}
	return nil
}
