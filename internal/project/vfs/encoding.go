package vfs

import "bytes"

// Encoding represents a character encoding.
type Encoding string

const (
	// EncodingUTF8 is UTF-8 encoding (default).
	EncodingUTF8 Encoding = "utf-8"

	// EncodingUTF8BOM is UTF-8 encoding with BOM.
	EncodingUTF8BOM Encoding = "utf-8-bom"

	// EncodingUTF16LE is UTF-16 Little Endian.
	EncodingUTF16LE Encoding = "utf-16le"

	// EncodingUTF16BE is UTF-16 Big Endian.
	EncodingUTF16BE Encoding = "utf-16be"
)

// BOM (Byte Order Mark) constants
var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// StripBOM removes the BOM from content if present.
// Returns the content without BOM and the detected encoding.
func StripBOM(content []byte) ([]byte, Encoding) {
	if bytes.HasPrefix(content, bomUTF8) {
		return content[3:], EncodingUTF8BOM
	}
	if bytes.HasPrefix(content, bomUTF16LE) {
		return content[2:], EncodingUTF16LE
	}
	if bytes.HasPrefix(content, bomUTF16BE) {
		return content[2:], EncodingUTF16BE
	}
	return content, EncodingUTF8
}

// ReadText reads a file and returns its content with any UTF-8 BOM removed.
func ReadText(fsys VFS, path string) ([]byte, error) {
	content, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	clean, _ := StripBOM(content)
	return clean, nil
}
