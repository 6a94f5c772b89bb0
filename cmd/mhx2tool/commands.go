package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chewxy/math32"

	"github.com/Faultbox/mhx2/internal/engine/model"
	"github.com/Faultbox/mhx2/internal/export"
	"github.com/Faultbox/mhx2/internal/preview"
	"github.com/Faultbox/mhx2/pkg/formats"
)

func cmdInfo(args []string) {
	s, _ := newSession(flag.NewFlagSet("info", flag.ExitOnError), args, 1, "info <file.mhx2>")
	doc, m, warnings := s.build(false, true)
	defer m.Release()

	printInfo(os.Stdout, s.path, doc, m, warnings)
	if n := len(s.textures.Errors); n > 0 {
		fmt.Printf("Missing: %d textures (see 'warnings')\n", n)
	}
}

func printInfo(w io.Writer, path string, doc *formats.MHX2, m *model.Model, warnings formats.Warnings) {
	fmt.Fprintf(w, "File:       %s\n", path)
	fmt.Fprintf(w, "Version:    %s\n", doc.Version)
	fmt.Fprintf(w, "Skeleton:   %s (%d bones)\n", doc.Skeleton.Name, m.Skeleton.Len())
	fmt.Fprintf(w, "Materials:  %d\n", len(doc.Materials))
	fmt.Fprintf(w, "Geometries: %d\n", len(doc.Geometries))
	fmt.Fprintf(w, "Meshes:     %d\n", len(m.Meshes))
	fmt.Fprintf(w, "Vertices:   %d\n", m.VertexCount())
	fmt.Fprintf(w, "Triangles:  %d\n", m.TriangleCount())
	fmt.Fprintf(w, "Textures:   %d\n", len(m.Textures()))
	if b := m.Bounds(); !b.Empty() {
		size := b.Size()
		fmt.Fprintf(w, "Size:       %.3f x %.3f x %.3f\n", size.X, size.Y, size.Z)
	}
	fmt.Fprintf(w, "Warnings:   %d\n", len(warnings))

	if len(m.Meshes) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Meshes:")
	for _, mesh := range m.Meshes {
		for _, vb := range mesh.VertexBuffers {
			fmt.Fprintf(w, "  %-24s %-20s %6d verts  %s\n", mesh.Name, mesh.MaterialName, vb.VertexCount(), vb.Format)
		}
	}
}

func cmdBones(args []string) {
	fs := flag.NewFlagSet("bones", flag.ExitOnError)
	name := fs.String("bone", "", "Print the record of one bone instead of the tree")
	s, _ := newSession(fs, args, 1, "bones [-bone NAME] <file.mhx2>")

	if *name != "" {
		doc, _ := s.parse()
		b := doc.Skeleton.GetBoneByName(*name)
		if b == nil {
			fatal(fmt.Errorf("bone %q not found", *name))
		}
		printBone(os.Stdout, b)
		return
	}

	_, m, _ := s.build(false, false)
	defer m.Release()

	if m.Skeleton.Len() == 0 {
		fmt.Fprintln(os.Stderr, "No skeleton")
		return
	}
	printBones(os.Stdout, m.Skeleton)
}

// printBones writes the tree depth first, two spaces per level.
func printBones(w io.Writer, s *model.Skeleton) {
	s.Walk(func(h, depth int) bool {
		b := s.Bone(h)
		fmt.Fprintf(w, "%s%s  head(%.3f, %.3f, %.3f)\n",
			strings.Repeat("  ", depth), b.Name, b.Head.X, b.Head.Y, b.Head.Z)
		return true
	})
}

// printBone writes one bone record as it appears in the file.
func printBone(w io.Writer, b *formats.MHX2Bone) {
	parent := b.Parent
	if parent == "" {
		parent = "-"
	}
	fmt.Fprintf(w, "Name:   %s\n", b.Name)
	fmt.Fprintf(w, "Parent: %s\n", parent)
	fmt.Fprintf(w, "Head:   (%.3f, %.3f, %.3f)\n", b.Head.X, b.Head.Y, b.Head.Z)
	fmt.Fprintf(w, "Tail:   (%.3f, %.3f, %.3f)\n", b.Tail.X, b.Tail.Y, b.Tail.Z)
	fmt.Fprintf(w, "Roll:   %.3f\n", b.Roll)
	fmt.Fprintln(w, "Matrix:")
	for _, row := range b.Matrix.Rows() {
		fmt.Fprintf(w, "  %8.3f %8.3f %8.3f %8.3f\n", row[0], row[1], row[2], row[3])
	}
}

func cmdMaterials(args []string) {
	s, _ := newSession(flag.NewFlagSet("materials", flag.ExitOnError), args, 1, "materials <file.mhx2>")
	doc, _ := s.parse()

	if len(doc.Materials) == 0 {
		fmt.Fprintln(os.Stderr, "No materials")
		return
	}
	printMaterials(os.Stdout, doc.Materials)
}

func printMaterials(w io.Writer, mats []formats.MHX2Material) {
	fmt.Fprintf(w, "%-24s %-7s %-6s %s\n", "NAME", "OPACITY", "ALPHA", "DIFFUSE TEXTURE")
	for _, mat := range mats {
		alpha := "no"
		if mat.Transparent {
			alpha = "yes"
		}
		tex := mat.DiffuseTexture
		if tex == "" {
			tex = "-"
		}
		fmt.Fprintf(w, "%-24s %-7.2f %-6s %s\n", mat.Name, mat.Opacity, alpha, tex)
	}
}

func cmdWarnings(args []string) {
	s, _ := newSession(flag.NewFlagSet("warnings", flag.ExitOnError), args, 1, "warnings <file.mhx2>")
	_, m, warnings := s.build(false, true)
	defer m.Release()

	for _, w := range warnings.Strings() {
		fmt.Println(w)
	}
	for _, err := range s.textures.Errors {
		fmt.Println(err)
	}

	total := len(warnings) + len(s.textures.Errors)
	if total == 0 {
		fmt.Fprintln(os.Stderr, "No warnings")
	} else {
		fmt.Fprintf(os.Stderr, "\n(%d warnings)\n", total)
	}
}

func cmdPose(args []string) {
	s, _ := newSession(flag.NewFlagSet("pose", flag.ExitOnError), args, 1, "pose <file.mhx2>")
	_, m, _ := s.build(true, false)
	defer m.Release()

	skins := 0
	for _, d := range m.Deformers {
		skins += len(d.Skins)
	}

	if err := model.Evaluate(m); err != nil {
		fatal(err)
	}

	fmt.Printf("Deformers:        %d\n", len(m.Deformers))
	fmt.Printf("Skins:            %d\n", skins)
	fmt.Printf("Max displacement: %g\n", maxDisplacement(m))
}

// maxDisplacement returns the largest distance between a skinned vertex and
// its bind position.
func maxDisplacement(m *model.Model) float32 {
	var worst float32
	for _, mesh := range m.Meshes {
		for i, vb := range mesh.VertexBuffers {
			if i >= len(mesh.BindPose) {
				continue
			}
			bind := mesh.BindPose[i]
			for off := 0; off+2 < len(vb.Data) && off+2 < len(bind); off += vb.Stride {
				dx := vb.Data[off] - bind[off]
				dy := vb.Data[off+1] - bind[off+1]
				dz := vb.Data[off+2] - bind[off+2]
				worst = max(worst, math32.Sqrt(dx*dx+dy*dy+dz*dz))
			}
		}
	}
	return worst
}

func cmdExport(args []string) {
	s, rest := newSession(flag.NewFlagSet("export", flag.ExitOnError), args, 2, "export <file.mhx2> <out.gltf|out.glb>")
	out := rest[1]

	_, m, _ := s.build(true, true)
	defer m.Release()

	opts := export.Options{Scale: s.cfg.Export.Scale, Binary: s.cfg.Export.Binary}
	if err := export.Save(m, out, opts); err != nil {
		fatal(err)
	}
	fmt.Printf("Exported: %s (%d meshes, %d bones)\n", out, len(m.Meshes), m.Skeleton.Len())
}

func cmdPreview(args []string) {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	size := fs.Int("size", 0, "Image size in pixels (0 = config default)")
	s, rest := newSession(fs, args, 2, "preview [-size N] <file.mhx2> <out.png|out.webp>")
	out := rest[1]

	if *size <= 0 {
		*size = s.cfg.Preview.Size
	}
	def, err := preview.ParseFormat(s.cfg.Preview.Format)
	if err != nil {
		fatal(err)
	}

	_, m, _ := s.build(false, true)
	defer m.Release()

	img := preview.Render(m, *size)

	f, err := os.Create(out)
	if err != nil {
		fatal(err)
	}
	if err := preview.Encode(f, img, preview.FormatFromPath(out, def)); err != nil {
		f.Close()
		fatal(err)
	}
	if err := f.Close(); err != nil {
		fatal(err)
	}
	fmt.Printf("Rendered: %s (%dx%d)\n", out, *size, *size)
}
