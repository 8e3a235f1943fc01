// Package catalog rewrites a CPK's cpk_list.cfg.bin entry table so a
// modded file's new size is reflected without rebuilding the archive
// it actually lives in, mirroring §4.H.
package catalog

import (
	"encoding/binary"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ievr/ievrtool/internal/cpkcrypt"
	"github.com/ievr/ievrtool/internal/utf"
)

// Column positions within the CPK_ITEM table, fixed by the catalog
// format itself rather than discovered by name: 0 = directory string,
// 1 = file name string, 2 and 3 = string cells the original rewriter
// always blanks on repack, 4 = the integer file-size cell it patches.
const (
	colDirectory = 0
	colFileName  = 1
	colClearA    = 2
	colClearB    = 3
	colFileSize  = 4
)

// entry is one parsed CPK_ITEM row, retained with the byte ranges of
// the cells ApplyReplacement may need to patch (offsets into the
// table body).
type entry struct {
	directory, fileName    string
	clearCellA, clearCellB [2]int
	sizeCell               [2]int
}

// Catalog holds a decrypted cpk_list.cfg.bin table ready for member
// size patches.
type Catalog struct {
	body  []byte
	table *utf.Table
	index map[string]int // "directory/fileName" -> index into rows
	rows  []entry
}

// Load decrypts vanillaCpk and parses its CPK_ITEM table. The first
// row is the table's own header/count entry and is skipped, matching
// the original rewriter's index offset of +1.
func Load(vanillaCpk string) (*Catalog, error) {
	body, err := cpkcrypt.New(vanillaCpk).DecryptToMemory()
	if err != nil {
		return nil, fmt.Errorf("catalog: decrypt %s: %w", vanillaCpk, err)
	}

	t, err := utf.Parse(body, 0)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse table: %w", err)
	}
	if t.EncryptedVariant {
		// Encrypted-UTF is detected, not decoded (§4.C.2); utf.Parse has
		// already logged it. Proceed with an empty catalog: every
		// ApplyReplacement lookup simply misses, matching the
		// "logged and ignored" policy rather than aborting the repack.
		return &Catalog{body: body, table: t, index: make(map[string]int)}, nil
	}
	if len(t.Columns) <= colFileSize {
		return nil, fmt.Errorf("catalog: CPK_ITEM table has only %d columns, need at least %d", len(t.Columns), colFileSize+1)
	}

	c := &Catalog{body: body, table: t, index: make(map[string]int)}
	c.readRows()
	return c, nil
}

func (c *Catalog) readRows() {
	t := c.table

	for row := uint32(0); row < t.RowCount; row++ {
		cursor := int(t.RowsOffset) + int(row)*int(t.RowSizeBytes)
		var e entry

		for i, col := range t.Columns {
			if !col.IsRowStorage {
				continue
			}
			n := col.ValueLen()
			cellStart, cellEnd := cursor, cursor+n
			cursor = cellEnd

			switch i {
			case colDirectory:
				e.directory = readTableString(t, t.Body[cellStart:cellEnd])
			case colFileName:
				e.fileName = readTableString(t, t.Body[cellStart:cellEnd])
			case colClearA:
				e.clearCellA = [2]int{cellStart, cellEnd}
			case colClearB:
				e.clearCellB = [2]int{cellStart, cellEnd}
			case colFileSize:
				e.sizeCell = [2]int{cellStart, cellEnd}
			}
		}

		if row == 0 {
			// Header/count row: not a file entry, never indexed.
			c.rows = append(c.rows, e)
			continue
		}

		if e.fileName != "" {
			key := filepath.ToSlash(filepath.Join(e.directory, e.fileName))
			c.index[key] = len(c.rows)
		}
		c.rows = append(c.rows, e)
	}
}

func readTableString(t *utf.Table, cell []byte) string {
	off := utf.StringOffset(cell)
	pool := t.Body[t.StringPoolOffset:]
	if int(off) > len(pool) {
		return ""
	}
	end := int(off)
	for end < len(pool) && pool[end] != 0 {
		end++
	}
	return string(pool[off:end])
}

// ApplyReplacement patches the row for relativePath, if known, setting
// its size cell to newSize and clearing the two string cells the
// original rewriter always blanks on repack. Unknown paths are
// ignored, matching the original's "HashMap::get" miss behavior.
func (c *Catalog) ApplyReplacement(relativePath string, newSize int64) {
	idx, ok := c.index[filepath.ToSlash(relativePath)]
	if !ok {
		return
	}
	e := c.rows[idx]

	// The table body is a slice of c.body, so these writes also patch
	// the decrypted file that WriteEncrypted re-encrypts.
	body := c.table.Body
	clearStringCell(body, e.clearCellA)
	clearStringCell(body, e.clearCellB)
	writeSizeCell(body, e.sizeCell, newSize)
}

// clearStringCell rewrites a string cell's pool offset to point at
// offset 0, which the UTF string pool always reserves for the empty
// string.
func clearStringCell(body []byte, cell [2]int) {
	binary.BigEndian.PutUint32(body[cell[0]:cell[1]], 0)
}

func writeSizeCell(body []byte, cell [2]int, newSize int64) {
	switch cell[1] - cell[0] {
	case 4:
		binary.BigEndian.PutUint32(body[cell[0]:cell[1]], uint32(newSize))
	case 8:
		binary.BigEndian.PutUint64(body[cell[0]:cell[1]], uint64(newSize))
	}
}

// ApplyFolder walks every regular file under inputFolder and, for
// each whose path relative to inputFolder matches a known catalog
// entry, applies its on-disk size as a replacement.
func (c *Catalog) ApplyFolder(inputFolder string) error {
	return filepath.WalkDir(inputFolder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(inputFolder, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		c.ApplyReplacement(rel, info.Size())
		return nil
	})
}

// Serialize returns the catalog's current (possibly patched) table
// body as a standalone plaintext blob.
func (c *Catalog) Serialize() []byte {
	return append([]byte(nil), c.table.Body...)
}

// WriteEncrypted writes the whole decrypted catalog file, including
// its patched table, and re-encrypts it to out, keyed by out's own
// basename, per §4.H.
func (c *Catalog) WriteEncrypted(out string) error {
	// The codec keys on its input's basename, so the plaintext scratch
	// copy carries out's name inside a scratch directory.
	tmpDir, err := os.MkdirTemp(filepath.Dir(out), "catalog-")
	if err != nil {
		return fmt.Errorf("catalog: create scratch directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	tmp := filepath.Join(tmpDir, filepath.Base(out))
	if err := os.WriteFile(tmp, c.body, 0o644); err != nil {
		return fmt.Errorf("catalog: write plaintext scratch file: %w", err)
	}

	if err := cpkcrypt.New(tmp).EncryptToFile(out); err != nil {
		return fmt.Errorf("catalog: encrypt %s: %w", out, err)
	}
	return nil
}
