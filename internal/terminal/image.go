package terminal

import (
	"bytes"
	"encoding/base64"
	"fmt"
)

// MaxImageSize is the maximum allowed image payload (10MB).
const MaxImageSize = 10 * 1024 * 1024

// PNGHeader is the PNG magic-byte prefix. The clipboard paste path
// converts everything to PNG before it reaches the core.
var PNGHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

var imageHeaders = [][]byte{
	PNGHeader,
	{0xFF, 0xD8, 0xFF},       // JPEG
	[]byte("GIF87a"),         // GIF
	[]byte("GIF89a"),         // GIF
	{0x52, 0x49, 0x46, 0x46}, // RIFF (WebP container)
}

// IsImageData reports whether data starts with a known image magic-byte
// signature. Detection works on content, never on file extension.
func IsImageData(data []byte) bool {
	for _, h := range imageHeaders {
		if bytes.HasPrefix(data, h) {
			return true
		}
	}
	return false
}

// ValidateImageData rejects empty, oversized, or non-image payloads before
// they are written to the PTY.
func ValidateImageData(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty image data")
	}
	if len(data) > MaxImageSize {
		return fmt.Errorf("image too large: %d bytes (max %d bytes / 10MB)", len(data), MaxImageSize)
	}
	if !IsImageData(data) {
		return fmt.Errorf("invalid image format: unrecognized magic bytes")
	}
	return nil
}

// WrapInlineImage encodes raw image bytes as the iTerm2 inline-image escape
// sequence: OSC 1337 with the decoded length declared up front, payload
// base64-encoded, terminated by BEL. Writing this to the PTY makes the
// session's tool receive the image instead of literal pasted text.
func WrapInlineImage(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	return fmt.Sprintf("\x1b]1337;File=inline=1;size=%d:%s\a", len(data), encoded)
}
