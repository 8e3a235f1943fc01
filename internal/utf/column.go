package utf

import "encoding/binary"

// ColumnType is the low-nibble opcode of a column descriptor byte.
type ColumnType byte

// Column type constants, in the fixed width order used by §4.C.5.
const (
	TypeU8 ColumnType = iota
	TypeI8
	TypeU16
	TypeI16
	TypeU32
	TypeI32
	TypeU64
	TypeI64
	TypeF32
	TypeF64
	TypeString
	TypeRawData
	TypeGuid
)

// Column descriptor flag bits, the high nibble of the descriptor byte.
const (
	flagHasName    byte = 0x10
	flagHasDefault byte = 0x20
	flagRowStorage byte = 0x40
	typeMask       byte = 0x0F
)

// Column describes one column of a UTF table: its type, flags, and
// (once parsed) name and default-value bytes.
type Column struct {
	Type         ColumnType
	HasName      bool
	HasDefault   bool
	IsRowStorage bool
	Name         string
	Default      []byte // raw cell bytes, valid only when HasDefault
}

// valueLen returns the cell width in bytes for t, per §4.C.5.
func valueLen(t ColumnType) int {
	switch t {
	case TypeU8, TypeI8:
		return 1
	case TypeU16, TypeI16:
		return 2
	case TypeU32, TypeI32, TypeF32:
		return 4
	case TypeU64, TypeI64, TypeF64:
		return 8
	case TypeString:
		return 4
	case TypeRawData:
		return 8
	case TypeGuid:
		return 16
	default:
		return 0
	}
}

// ValueLen returns the cell width in bytes for the column's type.
func (c *Column) ValueLen() int { return valueLen(c.Type) }

// ReadNumber interprets data (big-endian) as a signed 64-bit integer
// according to the column's type. Floating-point and non-numeric
// types return -1.
func (c *Column) ReadNumber(data []byte) int64 {
	switch c.Type {
	case TypeU8:
		return int64(data[0])
	case TypeI8:
		return int64(int8(data[0]))
	case TypeU16:
		return int64(binary.BigEndian.Uint16(data))
	case TypeI16:
		return int64(int16(binary.BigEndian.Uint16(data)))
	case TypeU32:
		return int64(binary.BigEndian.Uint32(data))
	case TypeI32:
		return int64(int32(binary.BigEndian.Uint32(data)))
	case TypeU64:
		return int64(binary.BigEndian.Uint64(data))
	case TypeI64:
		return int64(binary.BigEndian.Uint64(data))
	default:
		return -1
	}
}

// StringOffset reads the big-endian u32 string-pool offset stored at
// the start of data (the cell immediately following a HAS_NAME
// descriptor byte, or the value of a String-typed cell).
func StringOffset(data []byte) uint32 {
	return binary.BigEndian.Uint32(data)
}
