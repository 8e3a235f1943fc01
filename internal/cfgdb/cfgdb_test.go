package cfgdb

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// buildCfgDBFile writes a plaintext (CPK-magic-prefixed) cfg.bin-style
// UTF table with one row describing a single catalog entry, matching
// the column layout cfgdb.parse expects (columns matched by name).
func buildCfgDBFile(t *testing.T, path string) {
	t.Helper()

	const (
		typeString = byte(10) | 0x10 | 0x40 // String, has-name, row-storage
		typeU32    = byte(4) | 0x10 | 0x40  // U32, has-name, row-storage
	)

	names := []string{"DirName", "FileName", "CpkName", "FileSize"}
	flags := []byte{typeString, typeString, typeString, typeU32}

	pool := []byte{0}
	nameOffsets := make([]uint32, len(names))
	for i, n := range names {
		nameOffsets[i] = uint32(len(pool))
		pool = append(pool, []byte(n)...)
		pool = append(pool, 0)
	}
	dirOff := uint32(len(pool))
	pool = append(pool, []byte("battle\x00")...)
	fileOff := uint32(len(pool))
	pool = append(pool, []byte("chr_hero.bin\x00")...)
	cpkOff := uint32(len(pool))
	pool = append(pool, []byte("characters.cpk\x00")...)

	var colBytes []byte
	for i, fl := range flags {
		colBytes = append(colBytes, fl)
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, nameOffsets[i])
		colBytes = append(colBytes, b...)
	}

	const firstColumnOffset = 0x20
	const rowSizeBytes = 16
	rowsRel := firstColumnOffset + len(colBytes)
	poolRel := rowsRel + rowSizeBytes

	body := make([]byte, poolRel+len(pool))
	binary.BigEndian.PutUint16(body[0x0A:0x0C], uint16(rowsRel-8))
	binary.BigEndian.PutUint32(body[0x0C:0x10], uint32(poolRel-8))
	binary.BigEndian.PutUint32(body[0x10:0x14], uint32(poolRel-8))
	binary.BigEndian.PutUint16(body[0x18:0x1A], uint16(len(flags)))
	binary.BigEndian.PutUint16(body[0x1A:0x1C], rowSizeBytes)
	binary.BigEndian.PutUint32(body[0x1C:0x20], 1)
	copy(body[firstColumnOffset:], colBytes)

	row := body[rowsRel : rowsRel+rowSizeBytes]
	binary.BigEndian.PutUint32(row[0:4], dirOff)
	binary.BigEndian.PutUint32(row[4:8], fileOff)
	binary.BigEndian.PutUint32(row[8:12], cpkOff)
	binary.BigEndian.PutUint32(row[12:16], 4096)

	copy(body[poolRel:], pool)

	buf := make([]byte, 16+len(body))
	copy(buf[0:4], []byte("CPK "))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(body)))
	copy(buf[16:], body)

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadParsesRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cpk_list.cfg.bin")
	buildCfgDBFile(t, path)

	db, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(db.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(db.Rows))
	}

	r := db.Rows[0]
	if r.Directory != "battle" || r.FileName != "chr_hero.bin" || r.CpkName != "characters.cpk" || r.FileSize != 4096 {
		t.Fatalf("row = %+v, unexpected", r)
	}
}

func TestEnsureReadable(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "present.bin")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := EnsureReadable(file); err != nil {
		t.Fatalf("EnsureReadable on an existing file: %v", err)
	}
	if err := EnsureReadable(filepath.Join(dir, "missing.bin")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if err := EnsureReadable(dir); err == nil {
		t.Fatal("expected an error for a directory")
	}
}
