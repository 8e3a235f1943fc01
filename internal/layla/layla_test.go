package layla

import "testing"

func TestIsCompressed(t *testing.T) {
	if IsCompressed([]byte("short")) {
		t.Fatal("short buffer should not be reported as compressed")
	}
	if !IsCompressed(append([]byte("CRILAYLA"), make([]byte, 8)...)) {
		t.Fatal("expected CRILAYLA-prefixed buffer to be reported as compressed")
	}
	if IsCompressed(append([]byte("NOTLAYLA"), make([]byte, 8)...)) {
		t.Fatal("non-CRILAYLA magic should not be reported as compressed")
	}
}

// buildTwoLiteralBlock builds a CRILAYLA block whose compressed payload
// decodes to exactly two literal bytes (0xAB, decoded first, in the
// last output byte; 0xCD in the byte right after the verbatim prefix),
// hand-packed bit by bit in the reverse-bit-reader's consumption order.
func buildTwoLiteralBlock() (data []byte, totalOutputSize int, wantTail [2]byte) {
	// Bit sequence consumed in order: literal-flag(0), 0xAB (MSB first),
	// literal-flag(0), 0xCD (MSB first) = 18 bits, packed from the END
	// of the compressed array backward (the reader consumes data[len-1]
	// first).
	compressed := []byte{0x40, 0xB3, 0x55}

	verbatim := make([]byte, prefixSize)
	for i := range verbatim {
		verbatim[i] = byte(i)
	}

	const headerOffset = 3
	const uncompressedSize = 2

	header := make([]byte, headerSize)
	copy(header[:8], magic[:])
	header[8] = uncompressedSize
	header[12] = headerOffset

	data = append(data, header...)
	data = append(data, compressed...)
	data = append(data, verbatim...)

	return data, prefixSize + uncompressedSize, [2]byte{0xCD, 0xAB}
}

func TestDecompressTwoLiterals(t *testing.T) {
	data, totalOutputSize, wantTail := buildTwoLiteralBlock()

	out, err := Decompress(data, totalOutputSize)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if len(out) != totalOutputSize {
		t.Fatalf("got %d output bytes, want %d", len(out), totalOutputSize)
	}
	for i := 0; i < prefixSize; i++ {
		if out[i] != byte(i) {
			t.Fatalf("verbatim prefix mismatch at %d: got %#x, want %#x", i, out[i], byte(i))
		}
	}
	if out[prefixSize] != wantTail[0] || out[prefixSize+1] != wantTail[1] {
		t.Fatalf("tail mismatch: got [%#x %#x], want [%#x %#x]", out[prefixSize], out[prefixSize+1], wantTail[0], wantTail[1])
	}
}

func TestDecompressRejectsMissingMagic(t *testing.T) {
	if _, err := Decompress(make([]byte, 32), 300); err == nil {
		t.Fatal("expected an error for a block without the CRILAYLA magic")
	}
}

func TestDecompressRejectsSizeMismatch(t *testing.T) {
	data, totalOutputSize, _ := buildTwoLiteralBlock()
	if _, err := Decompress(data, totalOutputSize+1); err == nil {
		t.Fatal("expected an error when the declared size does not match totalOutputSize")
	}
}

func TestDecompressRejectsTruncatedVerbatimBlock(t *testing.T) {
	data, totalOutputSize, _ := buildTwoLiteralBlock()
	truncated := data[:len(data)-1]
	if _, err := Decompress(truncated, totalOutputSize); err == nil {
		t.Fatal("expected an error when the verbatim block is truncated")
	}
}

func TestDecompressRejectsOutputSmallerThanPrefix(t *testing.T) {
	data, _, _ := buildTwoLiteralBlock()
	if _, err := Decompress(data, prefixSize-1); err == nil {
		t.Fatal("expected an error when totalOutputSize is smaller than the verbatim prefix")
	}
}
