// Package config handles configuration loading for the MHX2 tools.
package config

import (
	"fmt"
	"strings"

	"github.com/Faultbox/mhx2/internal/engine/model"
	"github.com/Faultbox/mhx2/pkg/math"
)

// Config holds all tool settings.
type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Viewer  ViewerConfig  `yaml:"viewer"`
	Export  ExportConfig  `yaml:"export"`
	Preview PreviewConfig `yaml:"preview"`
	Logging LoggingConfig `yaml:"logging"`
}

// ModelConfig controls how MHX2 files are built into meshes.
type ModelConfig struct {
	Normals        bool       `yaml:"normals"`
	TexCoords      bool       `yaml:"texcoords"`
	Colors         bool       `yaml:"colors"`
	Culling        string     `yaml:"culling"`      // none, front, back or both
	CullingFace    string     `yaml:"culling_face"` // cw or ccw
	DefaultColor   [4]float32 `yaml:"default_color"`
	PoseOnly       bool       `yaml:"pose_only"`
	TextureDir     string     `yaml:"texture_dir"` // Empty means next to the model file
	MaxTextureSize int        `yaml:"max_texture_size"`
}

// ViewerConfig holds display settings.
type ViewerConfig struct {
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	Fullscreen  bool    `yaml:"fullscreen"`
	VSync       bool    `yaml:"vsync"`
	RotateSpeed float32 `yaml:"rotate_speed"` // Radians per second
	Distance    float32 `yaml:"distance"`     // Multiple of the distance that just fits the model

	ScreenshotDir string `yaml:"screenshot_dir"` // Empty means the working directory
}

// ExportConfig holds glTF export settings.
type ExportConfig struct {
	Binary bool    `yaml:"binary"` // Write GLB instead of glTF
	Scale  float32 `yaml:"scale"`
}

// PreviewConfig holds software preview settings.
type PreviewConfig struct {
	Size   int    `yaml:"size"`
	Format string `yaml:"format"` // png or webp
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			TexCoords:      true,
			Colors:         true,
			Culling:        "back",
			CullingFace:    "ccw",
			DefaultColor:   [4]float32{1, 1, 1, 1},
			PoseOnly:       true,
			MaxTextureSize: 2048,
		},
		Viewer: ViewerConfig{
			Width:       1280,
			Height:      720,
			VSync:       true,
			RotateSpeed: 0.5,
			Distance:    1.5,
		},
		Export: ExportConfig{
			Scale: 1,
		},
		Preview: PreviewConfig{
			Size:   512,
			Format: "png",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

var cullingTypes = map[string]model.CullingType{
	"none":  model.CullNone,
	"front": model.CullFront,
	"back":  model.CullBack,
	"both":  model.CullBoth,
}

var cullingFaces = map[string]model.CullingFace{
	"cw":  model.FaceCW,
	"ccw": model.FaceCCW,
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	if _, ok := cullingTypes[strings.ToLower(c.Model.Culling)]; !ok {
		return fmt.Errorf("model.culling: unknown value %q", c.Model.Culling)
	}
	if _, ok := cullingFaces[strings.ToLower(c.Model.CullingFace)]; !ok {
		return fmt.Errorf("model.culling_face: unknown value %q", c.Model.CullingFace)
	}
	if c.Model.MaxTextureSize < 0 {
		return fmt.Errorf("model.max_texture_size: must not be negative")
	}
	switch strings.ToLower(c.Preview.Format) {
	case "png", "webp":
	default:
		return fmt.Errorf("preview.format: unknown value %q", c.Preview.Format)
	}
	if c.Preview.Size <= 0 {
		return fmt.Errorf("preview.size: must be positive")
	}
	if c.Viewer.Width <= 0 || c.Viewer.Height <= 0 {
		return fmt.Errorf("viewer: window size must be positive")
	}
	return nil
}

// BuildOptions converts the model section to build options. Texture and
// vertex color callbacks are left for the caller to set.
func (c *Config) BuildOptions() model.BuildOptions {
	opts := model.DefaultBuildOptions()

	var format model.VertexFormat
	if c.Model.Normals {
		format |= model.FormatNormals
	}
	if c.Model.TexCoords {
		format |= model.FormatTexCoords
	}
	if c.Model.Colors {
		format |= model.FormatColors
	}
	opts.VertexFormat = format

	if t, ok := cullingTypes[strings.ToLower(c.Model.Culling)]; ok {
		opts.Culling.Type = t
	}
	if f, ok := cullingFaces[strings.ToLower(c.Model.CullingFace)]; ok {
		opts.Culling.Face = f
	}

	dc := c.Model.DefaultColor
	opts.Material.Color = math.Color{R: dc[0], G: dc[1], B: dc[2], A: dc[3]}
	opts.PoseOnly = c.Model.PoseOnly
	return opts
}
