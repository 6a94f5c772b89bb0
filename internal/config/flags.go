package config

import "flag"

// Flags are the command-line overrides shared by the MHX2 commands.
type Flags struct {
	Config     string
	Debug      bool
	Windowed   bool
	Fullscreen bool
	Width      int
	Height     int
	Textures   string
	Skin       bool
}

// RegisterFlags defines the shared flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&f.Windowed, "windowed", false, "Run in windowed mode")
	fs.BoolVar(&f.Fullscreen, "fullscreen", false, "Run in fullscreen mode")
	fs.IntVar(&f.Width, "width", 0, "Window width")
	fs.IntVar(&f.Height, "height", 0, "Window height")
	fs.StringVar(&f.Textures, "textures", "", "Texture directory")
	fs.BoolVar(&f.Skin, "skin", false, "Build skin deformers instead of the static pose")
	return f
}

// apply applies flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Windowed {
		cfg.Viewer.Fullscreen = false
	}
	if f.Fullscreen {
		cfg.Viewer.Fullscreen = true
	}
	if f.Width > 0 {
		cfg.Viewer.Width = f.Width
	}
	if f.Height > 0 {
		cfg.Viewer.Height = f.Height
	}
	if f.Textures != "" {
		cfg.Model.TextureDir = f.Textures
	}
	if f.Skin {
		cfg.Model.PoseOnly = false
	}
}
