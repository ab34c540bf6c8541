// Package gltfio adapts glTF 2.0 documents to the mesh model.
//
// Each glTF mesh becomes one mesh.Mesh. Every triangle of its primitives is a
// face with three loops; TEXCOORD_n is exposed as UV channel "UVChannel_<n+1>"
// with v flipped so it grows upward; COLOR_n become point-domain color
// attributes; the slot table lists the distinct materials of the primitives.
// Writing back regroups each primitive's triangles by material.
package gltfio

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"udim-matclass/internal/logger"
	"udim-matclass/internal/mesh"
)

// Document is a loaded glTF document together with its mesh views.
type Document struct {
	Doc    *gltf.Document
	Meshes []*mesh.Mesh

	sources    []*source
	superseded map[uint32]struct{} // index accessors replaced by Apply
}

// source ties a mesh.Mesh back to the glTF mesh it was read from.
type source struct {
	mesh     int
	faces    []faceSource
	slots    []uint32 // document material index of each original slot
	primSlot []int    // slot every face of a primitive had when read
}

type faceSource struct {
	prim  int
	verts [3]uint32
}

// UVChannelName returns the UV channel name of TEXCOORD_n.
func UVChannelName(n int) string {
	return "UVChannel_" + strconv.Itoa(n+1)
}

// Open reads a .gltf or .glb file.
func Open(path string, log *zap.Logger) (*Document, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltfio: open %s: %w", path, err)
	}
	return FromGLTF(doc, log)
}

// FromGLTF builds mesh views over doc. Meshes with non-triangle primitives
// are exposed with Kind mesh.KindOther and no geometry.
func FromGLTF(doc *gltf.Document, log *zap.Logger) (*Document, error) {
	log = logger.Or(log)
	d := &Document{Doc: doc}
	for i, gm := range doc.Meshes {
		m, src, err := readMesh(doc, i, gm)
		if err != nil {
			return nil, err
		}
		log.Debug("mesh read",
			zap.String("mesh", m.Name),
			zap.Int("faces", len(m.Faces)),
			zap.Int("uv_channels", len(m.UVChannels)),
			zap.Int("color_attributes", len(m.ColorAttributes)),
			zap.Int("materials", len(m.Materials)))
		d.Meshes = append(d.Meshes, m)
		d.sources = append(d.sources, src)
	}
	return d, nil
}

func readMesh(doc *gltf.Document, mi int, gm *gltf.Mesh) (*mesh.Mesh, *source, error) {
	name := gm.Name
	if name == "" {
		name = "mesh_" + strconv.Itoa(mi)
	}
	m := &mesh.Mesh{Name: name, UVChannels: make(map[string][]r2.Vec)}
	src := &source{mesh: mi}

	for _, p := range gm.Primitives {
		if _, ok := p.Attributes[gltf.POSITION]; !ok || p.Mode != gltf.PrimitiveTriangles {
			m.Kind = mesh.KindOther
			return m, src, nil
		}
	}

	uvSets := sharedAttributes(gm.Primitives, "TEXCOORD_")
	colorSets := sharedAttributes(gm.Primitives, "COLOR_")
	colors := make([]mesh.ColorAttribute, len(colorSets))
	for k, n := range colorSets {
		colors[k] = mesh.ColorAttribute{Name: "COLOR_" + strconv.Itoa(n), Domain: mesh.DomainPoint}
	}

	slotOf := make(map[uint32]int)
	vertexBase := 0
	for pi, p := range gm.Primitives {
		count := int(doc.Accessors[p.Attributes[gltf.POSITION]].Count)

		indices, err := readIndices(doc, p, count)
		if err != nil {
			return nil, nil, fmt.Errorf("gltfio: mesh %s primitive %d: %w", name, pi, err)
		}

		uvs := make([][][2]float32, len(uvSets))
		for k, n := range uvSets {
			acr := doc.Accessors[p.Attributes["TEXCOORD_"+strconv.Itoa(n)]]
			uvs[k], err = modeler.ReadTextureCoord(doc, acr, nil)
			if err != nil {
				return nil, nil, fmt.Errorf("gltfio: mesh %s primitive %d: texcoord %d: %w", name, pi, n, err)
			}
			if len(uvs[k]) < count {
				return nil, nil, fmt.Errorf("gltfio: mesh %s primitive %d: texcoord %d has %d values for %d vertices",
					name, pi, n, len(uvs[k]), count)
			}
		}
		for k, n := range colorSets {
			data, err := readColors(doc, doc.Accessors[p.Attributes["COLOR_"+strconv.Itoa(n)]])
			if err != nil {
				return nil, nil, fmt.Errorf("gltfio: mesh %s primitive %d: color %d: %w", name, pi, n, err)
			}
			if len(data) < count {
				return nil, nil, fmt.Errorf("gltfio: mesh %s primitive %d: color %d has %d values for %d vertices",
					name, pi, n, len(data), count)
			}
			colors[k].Data = append(colors[k].Data, data[:count]...)
		}

		slot := mesh.Unassigned
		if p.Material != nil {
			mat := *p.Material
			s, ok := slotOf[mat]
			if !ok {
				if int(mat) >= len(doc.Materials) {
					return nil, nil, fmt.Errorf("gltfio: mesh %s primitive %d: material %d out of range", name, pi, mat)
				}
				s = len(m.Materials)
				slotOf[mat] = s
				m.Materials = append(m.Materials, mesh.Material{Name: materialName(doc, mat)})
				src.slots = append(src.slots, mat)
			}
			slot = s
		}
		src.primSlot = append(src.primSlot, slot)

		for t := 0; t+2 < len(indices); t += 3 {
			tri := [3]uint32{indices[t], indices[t+1], indices[t+2]}
			base := len(m.Loops)
			for _, v := range tri {
				if int(v) >= count {
					return nil, nil, fmt.Errorf("gltfio: mesh %s primitive %d: index %d out of range", name, pi, v)
				}
				m.Loops = append(m.Loops, mesh.Loop{Vertex: vertexBase + int(v)})
				for k, n := range uvSets {
					uv := uvs[k][v]
					ch := UVChannelName(n)
					m.UVChannels[ch] = append(m.UVChannels[ch], r2.Vec{X: float64(uv[0]), Y: 1 - float64(uv[1])})
				}
			}
			m.Faces = append(m.Faces, mesh.Face{Loops: []int{base, base + 1, base + 2}, MaterialIndex: slot})
			src.faces = append(src.faces, faceSource{prim: pi, verts: tri})
		}
		vertexBase += count
	}
	m.ColorAttributes = colors
	return m, src, nil
}

// sharedAttributes returns the set numbers of prefix+N attributes present on
// every primitive, ascending.
func sharedAttributes(prims []*gltf.Primitive, prefix string) []int {
	counts := make(map[int]int)
	for _, p := range prims {
		for attr := range p.Attributes {
			if !strings.HasPrefix(attr, prefix) {
				continue
			}
			n, err := strconv.Atoi(strings.TrimPrefix(attr, prefix))
			if err != nil || n < 0 {
				continue
			}
			counts[n]++
		}
	}
	var sets []int
	for n, c := range counts {
		if c == len(prims) {
			sets = append(sets, n)
		}
	}
	sort.Ints(sets)
	return sets
}

func readIndices(doc *gltf.Document, p *gltf.Primitive, count int) ([]uint32, error) {
	if p.Indices == nil {
		indices := make([]uint32, count)
		for i := range indices {
			indices[i] = uint32(i)
		}
		return indices, nil
	}
	return modeler.ReadIndices(doc, doc.Accessors[*p.Indices], nil)
}

// readColors returns COLOR_n values as RGBA floats in [0,1]. Normalized
// integer components are scaled; RGB accessors get alpha 1.
func readColors(doc *gltf.Document, acr *gltf.Accessor) ([][4]float32, error) {
	raw, err := modeler.ReadAccessor(doc, acr, nil)
	if err != nil {
		return nil, err
	}
	switch v := raw.(type) {
	case [][4]float32:
		return v, nil
	case [][3]float32:
		out := make([][4]float32, len(v))
		for i, c := range v {
			out[i] = [4]float32{c[0], c[1], c[2], 1}
		}
		return out, nil
	case [][4]uint8:
		out := make([][4]float32, len(v))
		for i, c := range v {
			out[i] = [4]float32{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255, float32(c[3]) / 255}
		}
		return out, nil
	case [][3]uint8:
		out := make([][4]float32, len(v))
		for i, c := range v {
			out[i] = [4]float32{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255, 1}
		}
		return out, nil
	case [][4]uint16:
		out := make([][4]float32, len(v))
		for i, c := range v {
			out[i] = [4]float32{float32(c[0]) / 65535, float32(c[1]) / 65535, float32(c[2]) / 65535, float32(c[3]) / 65535}
		}
		return out, nil
	case [][3]uint16:
		out := make([][4]float32, len(v))
		for i, c := range v {
			out[i] = [4]float32{float32(c[0]) / 65535, float32(c[1]) / 65535, float32(c[2]) / 65535, 1}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported color accessor %T", raw)
	}
}

func materialName(doc *gltf.Document, idx uint32) string {
	if name := doc.Materials[idx].Name; name != "" {
		return name
	}
	return "material_" + strconv.Itoa(int(idx))
}
