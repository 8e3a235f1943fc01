package utf

import (
	"encoding/binary"
	"testing"
)

// buildSyntheticTable assembles a minimal two-column, one-row UTF
// table ("Name" string, "Value" u32") at offset o within a buffer,
// exercising the same header/column/row/string-pool layout real CPK
// master tables use.
func buildSyntheticTable(o int) []byte {
	const (
		rowsOffsetDecl       = 34 // actual rows offset (42) minus baseOffset (8)
		stringPoolOffsetDecl = 42 // actual pool offset (50) minus baseOffset (8)
	)

	body := make([]byte, 68)

	binary.BigEndian.PutUint16(body[0x0A:0x0C], rowsOffsetDecl)
	binary.BigEndian.PutUint32(body[0x0C:0x10], stringPoolOffsetDecl)
	binary.BigEndian.PutUint32(body[0x10:0x14], stringPoolOffsetDecl)
	binary.BigEndian.PutUint16(body[0x18:0x1A], 2) // column count
	binary.BigEndian.PutUint16(body[0x1A:0x1C], 8) // row size bytes
	binary.BigEndian.PutUint32(body[0x1C:0x20], 1) // row count

	// Column 0: String "Name", has-name + row-storage.
	body[0x20] = byte(TypeString) | flagHasName | flagRowStorage
	binary.BigEndian.PutUint32(body[0x21:0x25], 1) // "Name" at pool offset 1

	// Column 1: U32 "Value", has-name + row-storage.
	body[0x25] = byte(TypeU32) | flagHasName | flagRowStorage
	binary.BigEndian.PutUint32(body[0x26:0x2A], 6) // "Value" at pool offset 6

	// Row at offset 42: String cell -> pool offset 12 ("hello"), U32 cell = 99.
	binary.BigEndian.PutUint32(body[42:46], 12)
	binary.BigEndian.PutUint32(body[46:50], 99)

	// String pool starting at 50: "\0Name\0Value\0hello\0"
	pool := body[50:68]
	copy(pool[1:6], "Name\x00")
	copy(pool[6:12], "Value\x00")
	copy(pool[12:18], "hello\x00")

	buf := make([]byte, o+16+len(body))
	binary.LittleEndian.PutUint32(buf[o+8:o+12], uint32(len(body)))
	copy(buf[o+16:], body)
	return buf
}

func TestParseSyntheticTable(t *testing.T) {
	data := buildSyntheticTable(0)

	table, err := Parse(data, 0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if table.EncryptedVariant {
		t.Fatal("synthetic table should not be flagged as encrypted")
	}
	if len(table.Columns) != 2 {
		t.Fatalf("got %d columns, want 2", len(table.Columns))
	}
	if table.Columns[0].Name != "Name" || table.Columns[0].Type != TypeString {
		t.Fatalf("column 0 = %+v", table.Columns[0])
	}
	if table.Columns[1].Name != "Value" || table.Columns[1].Type != TypeU32 {
		t.Fatalf("column 1 = %+v", table.Columns[1])
	}
	if table.RowCount != 1 {
		t.Fatalf("got RowCount %d, want 1", table.RowCount)
	}

	rowCell := table.Body[table.RowsOffset : table.RowsOffset+4]
	off := StringOffset(rowCell)
	s, err := readCString(table.Body[table.StringPoolOffset:], int(off))
	if err != nil {
		t.Fatal(err)
	}
	if s != "hello" {
		t.Fatalf("row string cell = %q, want %q", s, "hello")
	}

	valueCell := table.Body[table.RowsOffset+4 : table.RowsOffset+8]
	if got := table.Columns[1].ReadNumber(valueCell); got != 99 {
		t.Fatalf("row value cell = %d, want 99", got)
	}
}

func TestParseAtNonZeroOffset(t *testing.T) {
	data := buildSyntheticTable(100)
	table, err := Parse(data, 100)
	if err != nil {
		t.Fatalf("Parse at offset 100: %v", err)
	}
	if table.RowCount != 1 {
		t.Fatalf("got RowCount %d, want 1", table.RowCount)
	}
}

func TestParseEncryptedVariant(t *testing.T) {
	body := make([]byte, 16)
	binary.LittleEndian.PutUint32(body[:4], encryptedMarker)

	buf := make([]byte, 16+len(body))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(body)))
	copy(buf[16:], body)

	table, err := Parse(buf, 0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !table.EncryptedVariant {
		t.Fatal("expected EncryptedVariant to be true")
	}
}

func TestParseTruncatedBufferErrors(t *testing.T) {
	if _, err := Parse([]byte{1, 2, 3}, 0); err == nil {
		t.Fatal("expected an error for a too-short buffer")
	}
}
