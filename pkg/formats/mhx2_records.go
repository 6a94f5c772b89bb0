package formats

import (
	"fmt"

	"github.com/Faultbox/mhx2/pkg/jsondom"
	"github.com/Faultbox/mhx2/pkg/math"
)

// Field tables of every MHX2 record. Keys are the exact member names used
// by MakeHuman's exporter.

var licenseSchema = &schema[MHX2License]{
	name: "license",
	self: "license",
	fields: map[string]fieldFunc[MHX2License]{
		"author":   stringField(func(l *MHX2License) *string { return &l.Author }),
		"license":  stringField(func(l *MHX2License) *string { return &l.License }),
		"homepage": stringField(func(l *MHX2License) *string { return &l.Homepage }),
	},
}

var boneSchema = &schema[MHX2Bone]{
	name: "bone",
	fields: map[string]fieldFunc[MHX2Bone]{
		"name":   stringField(func(b *MHX2Bone) *string { return &b.Name }),
		"parent": stringField(func(b *MHX2Bone) *string { return &b.Parent }),
		"head":   vectorField(func(b *MHX2Bone) *math.Vec3 { return &b.Head }),
		"tail":   vectorField(func(b *MHX2Bone) *math.Vec3 { return &b.Tail }),
		"roll":   numberField(func(b *MHX2Bone) *float32 { return &b.Roll }),
		"matrix": matrixField(func(b *MHX2Bone) *math.Mat4 { return &b.Matrix }),
	},
}

func newMHX2Bone() MHX2Bone {
	return MHX2Bone{Matrix: math.Identity()}
}

var skeletonSchema = &schema[MHX2Skeleton]{
	name: "skeleton",
	self: "skeleton",
	fields: map[string]fieldFunc[MHX2Skeleton]{
		"name":   stringField(func(s *MHX2Skeleton) *string { return &s.Name }),
		"scale":  numberField(func(s *MHX2Skeleton) *float32 { return &s.Scale }),
		"offset": vectorField(func(s *MHX2Skeleton) *math.Vec3 { return &s.Offset }),
		"bones":  listOf(boneSchema, newMHX2Bone, func(s *MHX2Skeleton) *[]MHX2Bone { return &s.Bones }),
	},
}

var materialSchema = &schema[MHX2Material]{
	name: "material",
	fields: map[string]fieldFunc[MHX2Material]{
		"name":               stringField(func(m *MHX2Material) *string { return &m.Name }),
		"diffuse_texture":    stringField(func(m *MHX2Material) *string { return &m.DiffuseTexture }),
		"normal_map_texture": stringField(func(m *MHX2Material) *string { return &m.NormalMapTexture }),

		"ambient_color":  colorField(func(m *MHX2Material) *math.Color { return &m.AmbientColor }),
		"diffuse_color":  colorField(func(m *MHX2Material) *math.Color { return &m.DiffuseColor }),
		"specular_color": colorField(func(m *MHX2Material) *math.Color { return &m.SpecularColor }),
		"emissive_color": colorField(func(m *MHX2Material) *math.Color { return &m.EmissiveColor }),

		"diffuse_map_intensity":      numberField(func(m *MHX2Material) *float32 { return &m.DiffuseMapIntensity }),
		"specular_map_intensity":     numberField(func(m *MHX2Material) *float32 { return &m.SpecularMapIntensity }),
		"transparency_map_intensity": numberField(func(m *MHX2Material) *float32 { return &m.TransparencyMapIntensity }),
		"shininess":                  numberField(func(m *MHX2Material) *float32 { return &m.Shininess }),
		"opacity":                    numberField(func(m *MHX2Material) *float32 { return &m.Opacity }),
		"translucency":               numberField(func(m *MHX2Material) *float32 { return &m.Translucency }),
		"sssRScale":                  numberField(func(m *MHX2Material) *float32 { return &m.SSSRScale }),
		"sssGScale":                  numberField(func(m *MHX2Material) *float32 { return &m.SSSGScale }),
		"sssBScale":                  numberField(func(m *MHX2Material) *float32 { return &m.SSSBScale }),

		"shadeless":       boolField(func(m *MHX2Material) *bool { return &m.Shadeless }),
		"wireframe":       boolField(func(m *MHX2Material) *bool { return &m.Wireframe }),
		"transparent":     boolField(func(m *MHX2Material) *bool { return &m.Transparent }),
		"alphaToCoverage": boolField(func(m *MHX2Material) *bool { return &m.AlphaToCoverage }),
		"backfaceCull":    boolField(func(m *MHX2Material) *bool { return &m.BackfaceCull }),
		"depthless":       boolField(func(m *MHX2Material) *bool { return &m.Depthless }),
		"castShadows":     boolField(func(m *MHX2Material) *bool { return &m.CastShadows }),
		"receiveShadows":  boolField(func(m *MHX2Material) *bool { return &m.ReceiveShadows }),
		"sssEnabled":      boolField(func(m *MHX2Material) *bool { return &m.SSSEnabled }),
	},
}

var meshSchema = &schema[MHX2Mesh]{
	name: "mesh",
	fields: map[string]fieldFunc[MHX2Mesh]{
		"vertices":       parseVertices,
		"faces":          indexLists("face", func(m *MHX2Mesh) *[][]int { return &m.Faces }),
		"uv_coordinates": parseUVCoords,
		"uv_faces":       indexLists("uv face", func(m *MHX2Mesh) *[][]int { return &m.UVFaces }),
		"weights":        parseWeights,
	},
}

func parseVertices(m *MHX2Mesh, n *jsondom.Node, p *mhx2Parser) error {
	if !n.IsContainer() {
		p.warn("Parse mesh - unknown type", n)
		return nil
	}
	for i, c := range n.Children {
		var v math.Vec3
		if err := parseVector(c, &v, p); err != nil {
			return fmt.Errorf("vertex %d: %w", i, err)
		}
		m.Vertices = append(m.Vertices, v)
	}
	return nil
}

func parseUVCoords(m *MHX2Mesh, n *jsondom.Node, p *mhx2Parser) error {
	if !n.IsContainer() {
		p.warn("Parse mesh - unknown type", n)
		return nil
	}
	for i, c := range n.Children {
		var uv math.Vec2
		if err := parseUV(c, &uv, p); err != nil {
			return fmt.Errorf("uv coordinate %d: %w", i, err)
		}
		m.UVCoords = append(m.UVCoords, uv)
	}
	return nil
}

func parseWeights(m *MHX2Mesh, n *jsondom.Node, p *mhx2Parser) error {
	if !n.IsContainer() {
		p.warn("Parse mesh - unknown type", n)
		return nil
	}
	for i, c := range n.Children {
		if c != nil && c.Type == jsondom.Null {
			return fmt.Errorf("weights %d: %w", i, ErrNullValue)
		}
		// Groups are keyed by bone name; unnamed containers only wrap them.
		if c != nil && !c.Named && c.IsContainer() {
			if err := parseWeights(m, c, p); err != nil {
				return err
			}
			continue
		}
		var g MHX2WeightGroup
		if err := parseWeightGroup(c, &g, p); err != nil {
			return err
		}
		if g.Table == nil {
			continue
		}
		m.WeightGroups = append(m.WeightGroups, g)
	}
	return nil
}

var proxySchema = &schema[MHX2Proxy]{
	name: "proxy",
	self: "proxy",
	fields: map[string]fieldFunc[MHX2Proxy]{
		"name":     stringField(func(x *MHX2Proxy) *string { return &x.Name }),
		"type":     stringField(func(x *MHX2Proxy) *string { return &x.Type }),
		"uuid":     stringField(func(x *MHX2Proxy) *string { return &x.UUID }),
		"basemesh": stringField(func(x *MHX2Proxy) *string { return &x.Basemesh }),
		"license":  inPlace(licenseSchema, func(x *MHX2Proxy) *MHX2License { return &x.License }),
		"tags":     parseProxyTags,
		"fitting":  parseProxyFitting,

		"delete_verts":        parseProxyDeleteVerts,
		"vertex_bone_weights": parseProxyBoneWeights,
	},
}

func parseProxyTags(x *MHX2Proxy, n *jsondom.Node, p *mhx2Parser) error {
	if !n.IsContainer() {
		p.warn("Parse proxy - unknown type", n)
		return nil
	}
	for _, c := range n.Children {
		if c.Type != jsondom.String {
			p.warn("Parse proxy - unknown value", c)
			continue
		}
		x.Tags = append(x.Tags, c.Str)
	}
	return nil
}

func parseProxyDeleteVerts(x *MHX2Proxy, n *jsondom.Node, p *mhx2Parser) error {
	if !n.IsContainer() {
		p.warn("Parse proxy - unknown type", n)
		return nil
	}
	for _, c := range n.Children {
		if c.Type != jsondom.Bool {
			p.warn("Parse proxy - unknown value", c)
			continue
		}
		x.DeleteVerts = append(x.DeleteVerts, c.Bool)
	}
	return nil
}

func parseProxyFitting(x *MHX2Proxy, n *jsondom.Node, p *mhx2Parser) error {
	if !n.IsContainer() {
		p.warn("Parse proxy - unknown type", n)
		return nil
	}
	for i, fit := range n.Children {
		if fit == nil {
			return fmt.Errorf("parsing fit %d: %w", i, ErrMissingNode)
		}
		if !fit.IsContainer() {
			p.warn("Parse fit - unknown type", fit)
			continue
		}
		var values []math.Vec3
		for _, c := range fit.Children {
			var v math.Vec3
			if err := parseVector(c, &v, p); err != nil {
				return fmt.Errorf("fit %d: %w", i, err)
			}
			values = append(values, v)
		}
		x.Fitting = append(x.Fitting, values)
	}
	return nil
}

func parseProxyBoneWeights(x *MHX2Proxy, n *jsondom.Node, p *mhx2Parser) error {
	if n.Type == jsondom.Null {
		x.VertexBoneWeights = false
		return nil
	}
	// Proxy skinning is not built, only its presence is recorded.
	p.warn("Parse proxy - vertex bone weights ignored", n)
	x.VertexBoneWeights = true
	return nil
}

var geometrySchema = &schema[MHX2Geometry]{
	name: "geometry",
	fields: map[string]fieldFunc[MHX2Geometry]{
		"name":         stringField(func(g *MHX2Geometry) *string { return &g.Name }),
		"uuid":         stringField(func(g *MHX2Geometry) *string { return &g.UUID }),
		"material":     stringField(func(g *MHX2Geometry) *string { return &g.Material }),
		"scale":        numberField(func(g *MHX2Geometry) *float32 { return &g.Scale }),
		"human":        boolField(func(g *MHX2Geometry) *bool { return &g.IsHuman }),
		"issubdivided": boolField(func(g *MHX2Geometry) *bool { return &g.IsSubdivided }),
		"offset":       vectorField(func(g *MHX2Geometry) *math.Vec3 { return &g.Offset }),
		"license":      inPlace(licenseSchema, func(g *MHX2Geometry) *MHX2License { return &g.License }),

		"mesh":            inPlace(meshSchema, func(g *MHX2Geometry) *MHX2Mesh { return &g.Mesh }),
		"seed_mesh":       inPlace(meshSchema, func(g *MHX2Geometry) *MHX2Mesh { return &g.SeedMesh }),
		"proxy_seed_mesh": inPlace(meshSchema, func(g *MHX2Geometry) *MHX2Mesh { return &g.ProxySeedMesh }),
		"proxy":           parseGeometryProxy,
	},
}

func parseGeometryProxy(g *MHX2Geometry, n *jsondom.Node, p *mhx2Parser) error {
	if n.Type == jsondom.Null {
		g.Proxy = nil
		return nil
	}
	if !n.IsContainer() {
		p.warn("Parse proxy - unknown type", n)
		return nil
	}
	var proxy MHX2Proxy
	if err := parseChildren(proxySchema, &proxy, n, p); err != nil {
		return err
	}
	g.Proxy = &proxy
	return nil
}

var modelSchema = &schema[MHX2]{
	name: "model",
	fields: map[string]fieldFunc[MHX2]{
		"mhx2_version": stringField(func(m *MHX2) *string { return &m.Version }),
		"skeleton":     inPlace(skeletonSchema, func(m *MHX2) *MHX2Skeleton { return &m.Skeleton }),
		"materials":    listOf(materialSchema, NewMHX2Material, func(m *MHX2) *[]MHX2Material { return &m.Materials }),
		"geometries":   listOf(geometrySchema, NewMHX2Geometry, func(m *MHX2) *[]MHX2Geometry { return &m.Geometries }),
	},
}
