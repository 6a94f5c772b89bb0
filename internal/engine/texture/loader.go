package texture

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/Faultbox/mhx2/internal/engine/model"
	"github.com/Faultbox/mhx2/pkg/encoding"
)

// Image is a decoded texture. It satisfies model.Texture.
type Image struct {
	Name string // Name as referenced by the material
	Path string // File it was read from
	*image.NRGBA
}

// Size returns the image dimensions.
func (i *Image) Size() (width, height int) {
	b := i.Bounds()
	return b.Dx(), b.Dy()
}

// Loader resolves material texture names against a directory.
type Loader struct {
	Dir     string // Base directory for relative names
	MaxSize int    // Largest side in pixels, 0 for no limit

	// Errors collects every failed lookup or decode. A failed texture is
	// returned as nil so the mesh renders untextured.
	Errors []error
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string, maxSize int) *Loader {
	return &Loader{Dir: dir, MaxSize: maxSize}
}

// Load finds, decodes and scales the named texture. When wantsAlpha is
// false the alpha channel is forced opaque.
func (l *Loader) Load(name string, wantsAlpha bool) model.Texture {
	if name == "" {
		return nil
	}

	img, err := l.LoadImage(name, wantsAlpha)
	if err != nil {
		l.Errors = append(l.Errors, err)
		return nil
	}
	return img
}

// LoadImage is Load with the error returned.
func (l *Loader) LoadImage(name string, wantsAlpha bool) (*Image, error) {
	p, err := l.Resolve(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("texture: read %s: %w", p, err)
	}

	pix, err := Decode(p, data)
	if err != nil {
		return nil, err
	}
	if !wantsAlpha {
		Opaque(pix)
	}
	return &Image{Name: name, Path: p, NRGBA: Fit(pix, l.MaxSize)}, nil
}

// Resolve returns the first existing file among the candidate spellings of
// name, tried relative to Dir.
func (l *Loader) Resolve(name string) (string, error) {
	for _, c := range encoding.TextureCandidates(name) {
		p := filepath.FromSlash(c)
		if !filepath.IsAbs(p) {
			p = filepath.Join(l.Dir, p)
		}
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("texture: %s: %w", name, os.ErrNotExist)
}

// LoadFunc adapts the loader to model.TextureLoader.
func (l *Loader) LoadFunc() model.TextureLoader {
	return l.Load
}
