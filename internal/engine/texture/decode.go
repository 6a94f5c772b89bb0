// Package texture decodes model textures into NRGBA images.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"path"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned for file extensions without a decoder.
var ErrUnsupportedFormat = errors.New("unsupported texture format")

type decodeFunc func(r *bytes.Reader) (image.Image, error)

// decoders are selected by extension. TGA has no magic number, so content
// sniffing through image.Decode is not used.
var decoders = map[string]decodeFunc{
	".png":  func(r *bytes.Reader) (image.Image, error) { return png.Decode(r) },
	".jpg":  func(r *bytes.Reader) (image.Image, error) { return jpeg.Decode(r) },
	".jpeg": func(r *bytes.Reader) (image.Image, error) { return jpeg.Decode(r) },
	".tga":  func(r *bytes.Reader) (image.Image, error) { return tga.Decode(r) },
	".bmp":  func(r *bytes.Reader) (image.Image, error) { return bmp.Decode(r) },
	".tif":  func(r *bytes.Reader) (image.Image, error) { return tiff.Decode(r) },
	".tiff": func(r *bytes.Reader) (image.Image, error) { return tiff.Decode(r) },
	".webp": func(r *bytes.Reader) (image.Image, error) { return webp.Decode(r) },
}

// Supported reports whether name has an extension Decode understands.
func Supported(name string) bool {
	_, ok := decoders[strings.ToLower(path.Ext(name))]
	return ok
}

// Decode decodes data according to the extension of name.
// TGA data must be at least 26 bytes long, the size of the TGA footer.
func Decode(name string, data []byte) (*image.NRGBA, error) {
	ext := strings.ToLower(path.Ext(name))
	dec, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("texture: %s: %w", name, ErrUnsupportedFormat)
	}

	img, err := dec(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", name, err)
	}
	return ToNRGBA(img), nil
}

// ToNRGBA converts any image to NRGBA with its origin at (0, 0).
func ToNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	if n, ok := src.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}

	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	switch src.(type) {
	case *image.YCbCr, *image.Gray:
		// No alpha channel
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
				dst.SetNRGBA(x-b.Min.X, y-b.Min.Y, c)
			}
		}
	}
	return dst
}

// Opaque forces every alpha value of img to 255 in place.
func Opaque(img *image.NRGBA) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
}

// Fit down-scales img so that neither side exceeds maxSize, keeping the
// aspect ratio. Images that already fit, and maxSize <= 0, return img.
func Fit(img *image.NRGBA, maxSize int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return img
	}

	nw, nh := maxSize, maxSize
	if w > h {
		nh = max(1, h*maxSize/w)
	} else {
		nw = max(1, w*maxSize/h)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
