// Package mesh holds the in-memory host document model the classifiers read
// and mutate: faces with corner loops, named UV channels, color attributes
// and the per-mesh material slot table.
package mesh

import "gonum.org/v1/gonum/spatial/r2"

// Unassigned marks a face that references no material slot.
const Unassigned = -1

// Kind is the geometry type of a host object.
type Kind int

const (
	KindMesh Kind = iota
	// KindOther covers curves, points and lines; never classified.
	KindOther
)

// Domain says how a ColorAttribute is indexed.
type Domain int

const (
	DomainCorner Domain = iota // one value per loop
	DomainPoint                // one value per vertex
)

// Loop is one face corner.
type Loop struct {
	Vertex int
}

// Face is a polygon: an ordered run of global loop indices plus the slot it uses.
type Face struct {
	Loops         []int
	MaterialIndex int
}

// ColorAttribute is a named RGBA array in [0,1]; component 3 is alpha.
type ColorAttribute struct {
	Name   string
	Domain Domain
	Data   [][4]float32
}

// Material is one entry of the slot table.
type Material struct {
	Name string
}

// Mesh is one host object. UV channels are indexed by global loop index.
type Mesh struct {
	Name            string
	Kind            Kind
	Loops           []Loop
	Faces           []Face
	UVChannels      map[string][]r2.Vec
	ColorAttributes []ColorAttribute
	Materials       []Material
}

// UVChannel returns the named UV channel, or (nil, false).
func (m *Mesh) UVChannel(name string) ([]r2.Vec, bool) {
	uv, ok := m.UVChannels[name]
	if !ok || len(uv) < len(m.Loops) {
		return nil, false
	}
	return uv, true
}

// FirstColorAttribute returns the first color attribute, or (nil, false).
func (m *Mesh) FirstColorAttribute() (*ColorAttribute, bool) {
	if len(m.ColorAttributes) == 0 {
		return nil, false
	}
	return &m.ColorAttributes[0], true
}

// LoopColor returns the color of a loop under the attribute's domain.
func (a *ColorAttribute) LoopColor(m *Mesh, loop int) ([4]float32, bool) {
	i := loop
	if a.Domain == DomainPoint {
		if loop < 0 || loop >= len(m.Loops) {
			return [4]float32{}, false
		}
		i = m.Loops[loop].Vertex
	}
	if i < 0 || i >= len(a.Data) {
		return [4]float32{}, false
	}
	return a.Data[i], true
}

// MaterialNames lists the slot table names in order.
func (m *Mesh) MaterialNames() []string {
	names := make([]string, len(m.Materials))
	for i, mat := range m.Materials {
		names[i] = mat.Name
	}
	return names
}
