package utf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// baseOffset is added to every header-declared offset, per §4.C.3.
const baseOffset = 0x08

// firstColumnOffset is the fixed body offset where column descriptors
// begin, per §4.C.4.
const firstColumnOffset = 0x20

// encryptedMarker is the little-endian magic that flags the
// alternative encrypted-UTF variant (detected, never decoded, §4.C.2).
const encryptedMarker = 0xF5F39E1F

// Table is a decoded CRI-style UTF metadata block: the column
// descriptors, and the raw body bytes retained for zero-copy string
// and default-cell access.
type Table struct {
	Body             []byte
	RowsOffset       uint32
	StringPoolOffset uint32
	DataPoolOffset   uint32
	ColumnCount      uint16
	RowSizeBytes     uint16
	RowCount         uint32
	Columns          []Column

	// EncryptedVariant is set when the encrypted-UTF marker was
	// detected in the body; decoding that variant is out of scope.
	EncryptedVariant bool
}

// Parse decodes the UTF table whose 8-byte header begins at offset o
// within data.
func Parse(data []byte, o int) (*Table, error) {
	if o+16 > len(data) {
		return nil, fmt.Errorf("utf: table header at %#x exceeds buffer of %d bytes", o, len(data))
	}
	size := binary.LittleEndian.Uint32(data[o+8 : o+12])
	bodyStart := o + 16
	bodyEnd := bodyStart + int(size)
	if bodyEnd > len(data) || bodyStart > bodyEnd {
		return nil, fmt.Errorf("utf: table body [%#x,%#x) exceeds buffer of %d bytes", bodyStart, bodyEnd, len(data))
	}
	body := data[bodyStart:bodyEnd]

	t := &Table{Body: body}

	if len(body) >= 4 && binary.LittleEndian.Uint32(body[:4]) == encryptedMarker {
		t.EncryptedVariant = true
		fmt.Fprintf(os.Stderr, "warning: table at offset %#x uses the encrypted-UTF variant; decoding is unsupported, skipping\n", o)
		return t, nil
	}

	if len(body) < 0x20 {
		return nil, fmt.Errorf("utf: table body too short (%d bytes) for header fields", len(body))
	}

	t.RowsOffset = uint32(binary.BigEndian.Uint16(body[0x0A:0x0C])) + baseOffset
	t.StringPoolOffset = binary.BigEndian.Uint32(body[0x0C:0x10]) + baseOffset
	t.DataPoolOffset = binary.BigEndian.Uint32(body[0x10:0x14]) + baseOffset
	t.ColumnCount = binary.BigEndian.Uint16(body[0x18:0x1A])
	t.RowSizeBytes = binary.BigEndian.Uint16(body[0x1A:0x1C])
	t.RowCount = binary.BigEndian.Uint32(body[0x1C:0x20])

	cols, err := parseColumns(body, int(t.StringPoolOffset), int(t.ColumnCount))
	if err != nil {
		return nil, err
	}
	t.Columns = cols
	return t, nil
}

func parseColumns(body []byte, stringPoolOffset, count int) ([]Column, error) {
	if stringPoolOffset > len(body) {
		return nil, fmt.Errorf("utf: string pool offset %#x exceeds body of %d bytes", stringPoolOffset, len(body))
	}
	stringPool := body[stringPoolOffset:]

	cols := make([]Column, count)
	cursor := firstColumnOffset

	for i := 0; i < count; i++ {
		if cursor >= len(body) {
			return nil, fmt.Errorf("utf: column %d descriptor at %#x exceeds body", i, cursor)
		}
		raw := body[cursor]
		col := Column{
			Type:         ColumnType(raw & typeMask),
			HasName:      raw&flagHasName != 0,
			HasDefault:   raw&flagHasDefault != 0,
			IsRowStorage: raw&flagRowStorage != 0,
		}
		advance := 1

		if col.HasName {
			nameCellStart := cursor + 1
			if nameCellStart+4 > len(body) {
				return nil, fmt.Errorf("utf: column %d name offset out of bounds", i)
			}
			nameOffset := StringOffset(body[nameCellStart : nameCellStart+4])
			name, err := readCString(stringPool, int(nameOffset))
			if err != nil {
				return nil, fmt.Errorf("utf: column %d name: %w", i, err)
			}
			col.Name = name
			advance += 4
		}

		if col.HasDefault {
			vlen := valueLen(col.Type)
			defStart := cursor + advance
			if defStart+vlen > len(body) {
				return nil, fmt.Errorf("utf: column %d default value out of bounds", i)
			}
			col.Default = body[defStart : defStart+vlen]
			advance += vlen
		}

		cols[i] = col
		cursor += advance
	}
	return cols, nil
}

// readCString reads a NUL-terminated UTF-8 string from pool starting
// at offset.
func readCString(pool []byte, offset int) (string, error) {
	if offset < 0 || offset > len(pool) {
		return "", fmt.Errorf("string offset %#x out of bounds (pool size %d)", offset, len(pool))
	}
	sub := pool[offset:]
	end := bytes.IndexByte(sub, 0)
	if end < 0 {
		end = len(sub)
	}
	return string(sub[:end]), nil
}
