// Package layla decodes CRILAYLA-compressed blocks: a reverse LZ77
// variant that stores a verbatim prefix and decodes the remainder of
// the output backward, from the last byte down to the prefix boundary.
package layla

import "fmt"

// prefixSize is the length of the verbatim block copied unmodified to
// the start of the output buffer.
const prefixSize = 256

// headerSize is the length of the CRILAYLA header preceding the
// compressed payload: the 8-byte magic, a little-endian u32
// uncompressed size, and a little-endian u32 uncompressed-header
// offset (the byte count of the compressed stream that follows the
// header; the prefixSize-byte verbatim block starts right after it).
const headerSize = 16

var magic = [8]byte{'C', 'R', 'I', 'L', 'A', 'Y', 'L', 'A'}

// IsCompressed reports whether data begins with the CRILAYLA magic.
func IsCompressed(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	for i, b := range magic {
		if data[i] != b {
			return false
		}
	}
	return true
}

// Decompress decodes a CRILAYLA-compressed block into a buffer of
// totalOutputSize bytes. data is the full compressed member as stored
// in the container (header included).
func Decompress(data []byte, totalOutputSize int) ([]byte, error) {
	if !IsCompressed(data) {
		return nil, fmt.Errorf("layla: missing CRILAYLA magic")
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("layla: block too short (%d bytes) for header", len(data))
	}
	if totalOutputSize < prefixSize {
		return nil, fmt.Errorf("layla: output size %d smaller than verbatim prefix %d", totalOutputSize, prefixSize)
	}

	uncompressedSize := le32(data[8:12])
	headerOffset := int(le32(data[12:16]))

	if int(uncompressedSize)+prefixSize != totalOutputSize {
		return nil, fmt.Errorf("layla: declared size %d + prefix %d does not match expected output size %d",
			uncompressedSize, prefixSize, totalOutputSize)
	}

	verbatimStart := headerSize + headerOffset
	if verbatimStart+prefixSize > len(data) {
		return nil, fmt.Errorf("layla: verbatim block [%d,%d) exceeds input of %d bytes", verbatimStart, verbatimStart+prefixSize, len(data))
	}

	output := make([]byte, totalOutputSize)
	copy(output[0:prefixSize], data[verbatimStart:verbatimStart+prefixSize])

	// The compressed stream is everything before the trailing verbatim
	// block, read backward bit-by-bit starting from its last byte.
	compressed := data[headerSize : headerSize+headerOffset]
	br := newReverseBitReader(compressed)

	writeIndex := totalOutputSize - 1

	for writeIndex >= prefixSize {
		if br.readBit() == 0 {
			// Literal byte, MSB-first.
			b, err := br.readBits(8)
			if err != nil {
				return nil, err
			}
			output[writeIndex] = byte(b)
			writeIndex--
			continue
		}

		// Back-reference.
		backOffsetBits, err := br.readBits(13)
		if err != nil {
			return nil, err
		}
		backOffset := int(backOffsetBits) + 3

		r2, err := br.readBits(2)
		if err != nil {
			return nil, err
		}
		length := 3 + int(r2)

		if r2 == 3 {
			r3, err := br.readBits(3)
			if err != nil {
				return nil, err
			}
			length += int(r3)
			if r3 == 7 {
				r5, err := br.readBits(5)
				if err != nil {
					return nil, err
				}
				length += int(r5)
				if r5 == 31 {
					for {
						chunk, err := br.readBits(8)
						if err != nil {
							return nil, err
						}
						length += int(chunk)
						if chunk != 255 {
							break
						}
					}
				}
			}
		}

		for i := 0; i < length; i++ {
			srcIndex := writeIndex + backOffset
			if srcIndex >= totalOutputSize {
				return nil, fmt.Errorf("layla: corrupt stream: back-reference offset %d from index %d exceeds output bounds", backOffset, writeIndex)
			}
			output[writeIndex] = output[srcIndex]
			if writeIndex == 0 {
				break
			}
			writeIndex--
			if writeIndex < prefixSize {
				break
			}
		}
	}

	return output, nil
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
