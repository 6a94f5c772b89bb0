// mhx2tool is a CLI utility for inspecting and converting MHX2 models.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Faultbox/mhx2/internal/config"
	"github.com/Faultbox/mhx2/internal/engine/model"
	"github.com/Faultbox/mhx2/internal/engine/texture"
	"github.com/Faultbox/mhx2/internal/logger"
	"github.com/Faultbox/mhx2/pkg/formats"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "bones":
		cmdBones(args)
	case "materials", "mats":
		cmdMaterials(args)
	case "warnings", "warn":
		cmdWarnings(args)
	case "pose":
		cmdPose(args)
	case "export":
		cmdExport(args)
	case "preview":
		cmdPreview(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`mhx2tool - MHX2 model utility

Usage:
  mhx2tool <command> [options]

Commands:
  info <file.mhx2>                        Show model summary
  bones [-bone NAME] <file.mhx2>          Print the bone tree or one bone
  materials <file.mhx2>                   List materials
  warnings <file.mhx2>                    List parse and build warnings
  pose <file.mhx2>                        Skin the bind pose and report drift
  export <file.mhx2> <out.gltf|out.glb>   Export to glTF
  preview [-size N] <file.mhx2> <out>     Render a PNG or WebP preview

Every command also accepts -config, -debug and -textures.

Examples:
  mhx2tool info human.mhx2
  mhx2tool bones human.mhx2
  mhx2tool export human.mhx2 human.glb
  mhx2tool preview -size 256 human.mhx2 human.webp`)
}

// session is the state shared by every command: the effective config and
// the file being inspected.
type session struct {
	cfg      *config.Config
	path     string
	textures *texture.Loader
}

// newSession parses the shared flags plus the command's own from args and
// checks for at least nargs positional arguments.
func newSession(fs *flag.FlagSet, args []string, nargs int, usage string) (*session, []string) {
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	if fs.NArg() < nargs {
		fmt.Fprintln(os.Stderr, "Usage: mhx2tool "+usage)
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

	s := &session{cfg: cfg, path: fs.Arg(0)}
	dir := cfg.Model.TextureDir
	if dir == "" {
		dir = filepath.Dir(s.path)
	}
	s.textures = texture.NewLoader(dir, cfg.Model.MaxTextureSize)
	return s, fs.Args()
}

// parse reads the document without building it.
func (s *session) parse() (*formats.MHX2, formats.Warnings) {
	doc, warnings, err := formats.ParseMHX2File(s.path)
	if err != nil {
		fatal(err)
	}
	return doc, warnings
}

// build parses and builds the model. With skin set, deformers are built
// regardless of the configured pose mode.
func (s *session) build(skin, textures bool) (*formats.MHX2, *model.Model, formats.Warnings) {
	doc, warnings := s.parse()

	opts := s.cfg.BuildOptions()
	if skin {
		opts.PoseOnly = false
	}
	if textures {
		opts.LoadTexture = s.textures.LoadFunc()
	}

	m, err := model.Build(doc, &opts, &warnings)
	if err != nil {
		fatal(err)
	}
	logger.LogWarnings(s.path, warnings)
	return doc, m, warnings
}

func fatal(err error) {
	logger.Sync()
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
