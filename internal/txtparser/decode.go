package txtparser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrUnknownEncoding is returned for an encoding name the parser does not support.
var ErrUnknownEncoding = errors.New("unknown input encoding")

// DecodingError reports input bytes that are not valid in the expected encoding.
type DecodingError struct {
	// Encoding is the encoding the input was decoded with.
	Encoding string

	// Offset is the byte offset of the first invalid sequence.
	Offset int
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("input is not valid %s: invalid byte sequence at offset %d", e.Encoding, e.Offset)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decode converts raw into a Go string according to encoding.
//
// UTF-8 input is validated strictly and never repaired. The single-byte
// encodings map every byte, so they cannot fail.
func decode(raw []byte, encoding string) (string, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
		if !utf8.Valid(raw) {
			return "", &DecodingError{Encoding: "utf-8", Offset: invalidOffset(raw)}
		}
		return string(bytes.TrimPrefix(raw, utf8BOM)), nil
	case "windows-1252", "cp1252":
		return decodeCharmap(raw, charmap.Windows1252)
	case "iso-8859-1", "latin1":
		return decodeCharmap(raw, charmap.ISO8859_1)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, encoding)
	}
}

func decodeCharmap(raw []byte, cm *charmap.Charmap) (string, error) {
	out, err := cm.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode input: %w", err)
	}
	return string(out), nil
}

func invalidOffset(raw []byte) int {
	offset := 0
	for offset < len(raw) {
		r, size := utf8.DecodeRune(raw[offset:])
		if r == utf8.RuneError && size <= 1 {
			return offset
		}
		offset += size
	}
	return offset
}
