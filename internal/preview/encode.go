package preview

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
)

// Format is an output image encoding.
type Format string

const (
	PNG  Format = "png"
	WebP Format = "webp"
)

// ParseFormat accepts "png" or "webp" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case PNG, WebP:
		return f, nil
	}
	return "", fmt.Errorf("preview: unknown format %q", s)
}

// FormatFromPath picks the format from a file extension, falling back to
// def for unknown extensions.
func FormatFromPath(path string, def Format) Format {
	if f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err == nil {
		return f
	}
	return def
}

// Encode writes img in the given format. WebP output is lossless.
func Encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case PNG:
		return png.Encode(w, img)
	case WebP:
		return nativewebp.Encode(w, img, nil)
	}
	return fmt.Errorf("preview: unknown format %q", format)
}
