// Package debug provides viewer debugging utilities.
package debug

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/Faultbox/mhx2/internal/preview"
)

// ScreenshotCapture writes framebuffer captures to numbered image files.
type ScreenshotCapture struct {
	outputDir string
	prefix    string
	format    preview.Format

	now func() time.Time
}

// NewScreenshotCapture creates a new screenshot capture handler.
func NewScreenshotCapture(outputDir, prefix string, format preview.Format) *ScreenshotCapture {
	return &ScreenshotCapture{
		outputDir: outputDir,
		prefix:    prefix,
		format:    format,
		now:       time.Now,
	}
}

// CaptureFromPixels saves raw RGBA pixels read back from OpenGL.
// pixels must hold width*height*4 bytes. Rows are flipped since OpenGL has
// its origin at the bottom left.
func (sc *ScreenshotCapture) CaptureFromPixels(pixels []byte, width, height int) (string, error) {
	if len(pixels) != width*height*4 {
		return "", fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * rowSize
		dst := y * img.Stride
		copy(img.Pix[dst:dst+rowSize], pixels[src:src+rowSize])
	}

	return sc.CaptureFromImage(img)
}

// CaptureFromImage saves img and returns the file name.
func (sc *ScreenshotCapture) CaptureFromImage(img image.Image) (string, error) {
	if sc.outputDir != "" {
		if err := os.MkdirAll(sc.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename := sc.GenerateFilename()
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}

	if err := preview.Encode(file, img, sc.format); err != nil {
		file.Close()
		return "", fmt.Errorf("encoding screenshot: %w", err)
	}
	return filename, file.Close()
}

// GenerateFilename returns the next file name without saving. Captures
// within the same second get a numeric suffix.
func (sc *ScreenshotCapture) GenerateFilename() string {
	base := fmt.Sprintf("%s_%s", sc.prefix, sc.now().Format("2006-01-02_15-04-05"))
	ext := "." + string(sc.format)

	name := filepath.Join(sc.outputDir, base+ext)
	for i := 2; fileExists(name); i++ {
		name = filepath.Join(sc.outputDir, fmt.Sprintf("%s_%d%s", base, i, ext))
	}
	return name
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
