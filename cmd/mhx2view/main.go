// mhx2view opens a window and turns an MHX2 model on a turntable.
//
// Controls:
//
//	left drag   orbit
//	wheel       zoom
//	space       toggle the turntable
//	r           reset the view
//	f12         save a screenshot
//	escape      quit
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/mhx2/internal/config"
	"github.com/Faultbox/mhx2/internal/engine/camera"
	"github.com/Faultbox/mhx2/internal/engine/debug"
	"github.com/Faultbox/mhx2/internal/engine/input"
	"github.com/Faultbox/mhx2/internal/engine/model"
	"github.com/Faultbox/mhx2/internal/engine/renderer"
	"github.com/Faultbox/mhx2/internal/engine/texture"
	"github.com/Faultbox/mhx2/internal/engine/window"
	"github.com/Faultbox/mhx2/internal/logger"
	"github.com/Faultbox/mhx2/internal/preview"
	"github.com/Faultbox/mhx2/pkg/math"
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: mhx2view [options] <file.mhx2>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, flag.Arg(0)); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, path string) error {
	win, err := window.New(window.Config{
		Title:      "mhx2view - " + filepath.Base(path),
		Width:      cfg.Viewer.Width,
		Height:     cfg.Viewer.Height,
		Fullscreen: cfg.Viewer.Fullscreen,
		VSync:      cfg.Viewer.VSync,
	})
	if err != nil {
		return err
	}
	defer win.Close()

	width, height := win.DrawableSize()
	r, err := renderer.New(renderer.Config{Width: width, Height: height})
	if err != nil {
		return err
	}
	defer r.Close()

	// Textures become GL textures, so the model must load after the
	// context exists.
	loader := model.NewLoader(modelOptions(cfg, path))
	if err := loader.Open(path); err != nil {
		return err
	}
	defer loader.Close()
	logger.LogWarnings(path, loader.Warnings())

	m := loader.Model()
	if cfg.Model.Normals {
		for _, mesh := range m.Meshes {
			for _, vb := range mesh.VertexBuffers {
				vb.ComputeNormals()
			}
		}
	}
	if len(m.Deformers) > 0 {
		if err := model.Evaluate(m); err != nil {
			return fmt.Errorf("evaluating pose: %w", err)
		}
	}

	logger.Info("model loaded",
		zap.String("file", path),
		zap.Int("bones", m.Skeleton.Len()),
		zap.Int("meshes", len(m.Meshes)),
		zap.Int("triangles", m.TriangleCount()),
		zap.Int("textures", len(m.Textures())),
	)

	r.Upload(m)
	win.SetTitle(fmt.Sprintf("mhx2view - %s (%d triangles)", filepath.Base(path), m.TriangleCount()))

	cam := camera.NewOrbitCamera()
	cam.FitToBounds(m.Bounds(), cfg.Viewer.Distance)

	format, err := preview.ParseFormat(cfg.Preview.Format)
	if err != nil {
		return err
	}
	shots := debug.NewScreenshotCapture(cfg.Viewer.ScreenshotDir, "mhx2view", format)

	in := input.New()
	spin := true
	last := window.Ticks()
	for !in.Update() {
		now := window.Ticks()
		dt := float32(now-last) / 1000
		last = now

		if in.Resized {
			r.Resize(win.DrawableSize())
		}
		if in.IsKeyPressed(sdl.K_SPACE) {
			spin = !spin
		}
		if in.IsKeyPressed(sdl.K_r) {
			cam.FitToBounds(m.Bounds(), cfg.Viewer.Distance)
		}
		if in.DragX != 0 || in.DragY != 0 {
			spin = false
			cam.HandleDrag(in.DragX, in.DragY)
		}
		cam.HandleZoom(in.Scroll)
		if spin {
			cam.Rotate(cfg.Viewer.RotateSpeed * dt)
		}

		r.Clear()
		if err := r.Draw(cam.ViewProjection(r.Aspect()), math.Identity()); err != nil {
			return err
		}
		if in.IsKeyPressed(sdl.K_F12) {
			if name, err := shots.CaptureFromPixels(r.ReadPixels()); err != nil {
				logger.Warn("screenshot failed", zap.Error(err))
			} else {
				logger.Info("screenshot saved", zap.String("file", name))
			}
		}
		win.SwapBuffers()
	}

	logger.Info("viewer closed normally")
	return nil
}

// modelOptions returns build options whose textures are uploaded to the GPU.
// Textures are resolved against the configured directory, or the model's
// own directory when none is set.
func modelOptions(cfg *config.Config, path string) *model.BuildOptions {
	opts := cfg.BuildOptions()

	dir := cfg.Model.TextureDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	textures := texture.NewLoader(dir, cfg.Model.MaxTextureSize)

	opts.LoadTexture = func(name string, wantsAlpha bool) model.Texture {
		if name == "" {
			return nil
		}
		img, err := textures.LoadImage(name, wantsAlpha)
		if err != nil {
			logger.Warn("texture not loaded", zap.String("texture", name), zap.Error(err))
			return nil
		}
		return renderer.NewTexture(img.NRGBA)
	}
	return &opts
}
