package gltfio

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"udim-matclass/internal/material"
	"udim-matclass/internal/mesh"
)

// Apply writes the face material indices of every mesh view back into Doc.
// Slots added since reading map to the document material of the same name,
// which is created when missing. Primitives whose faces all kept their
// material are left untouched; the others are split into one primitive per
// material, sharing the original vertex attributes. Index data left
// unreferenced by the split is dropped from the document.
func (d *Document) Apply() error {
	for k, src := range d.sources {
		m := d.Meshes[k]
		if m.Kind != mesh.KindMesh {
			continue
		}
		if len(m.Faces) != len(src.faces) {
			return fmt.Errorf("gltfio: mesh %s: face count changed from %d to %d", m.Name, len(src.faces), len(m.Faces))
		}
		d.applyMesh(m, src)
	}
	d.prune()
	return nil
}

func (d *Document) applyMesh(m *mesh.Mesh, src *source) {
	docMat := make([]uint32, len(m.Materials))
	for i, mat := range m.Materials {
		if i < len(src.slots) {
			docMat[i] = src.slots[i]
			continue
		}
		docMat[i] = d.documentMaterial(mat.Name)
		src.slots = append(src.slots, docMat[i])
	}

	gm := d.Doc.Meshes[src.mesh]
	byPrim := make([][]int, len(gm.Primitives))
	for fi, fs := range src.faces {
		byPrim[fs.prim] = append(byPrim[fs.prim], fi)
	}

	var prims []*gltf.Primitive
	var primSlot []int
	for pi, p := range gm.Primitives {
		faces := byPrim[pi]
		if unchanged(m, faces, src.primSlot[pi]) {
			for _, fi := range faces {
				src.faces[fi].prim = len(prims)
			}
			prims = append(prims, p)
			primSlot = append(primSlot, src.primSlot[pi])
			continue
		}

		if p.Indices != nil {
			if d.superseded == nil {
				d.superseded = make(map[uint32]struct{})
			}
			d.superseded[*p.Indices] = struct{}{}
		}

		var order []int
		groups := make(map[int][]int)
		for _, fi := range faces {
			slot := m.Faces[fi].MaterialIndex
			if _, ok := groups[slot]; !ok {
				order = append(order, slot)
			}
			groups[slot] = append(groups[slot], fi)
		}
		for _, slot := range order {
			indices := make([]uint32, 0, 3*len(groups[slot]))
			for _, fi := range groups[slot] {
				indices = append(indices, src.faces[fi].verts[:]...)
				src.faces[fi].prim = len(prims)
			}

			np := *p
			np.Attributes = make(map[string]uint32, len(p.Attributes))
			for name, acr := range p.Attributes {
				np.Attributes[name] = acr
			}
			np.Indices = gltf.Index(uint32(modeler.WriteIndices(d.Doc, indices)))
			np.Material = nil
			if slot != mesh.Unassigned {
				np.Material = gltf.Index(docMat[slot])
			}
			prims = append(prims, &np)
			primSlot = append(primSlot, slot)
		}
	}
	gm.Primitives = prims
	src.primSlot = primSlot
}

func unchanged(m *mesh.Mesh, faces []int, slot int) bool {
	for _, fi := range faces {
		if m.Faces[fi].MaterialIndex != slot {
			return false
		}
	}
	return true
}

// documentMaterial returns the index of the named document material,
// appending a new one when none matches.
func (d *Document) documentMaterial(name string) uint32 {
	for i, mat := range d.Doc.Materials {
		if material.SameName(mat.Name, name) {
			return uint32(i)
		}
	}
	d.Doc.Materials = append(d.Doc.Materials, &gltf.Material{Name: name})
	return uint32(len(d.Doc.Materials) - 1)
}

// Save applies the mesh views and writes the document. A ".glb" path is
// written as binary glTF, anything else as JSON glTF.
func (d *Document) Save(path string) error {
	if err := d.Apply(); err != nil {
		return err
	}
	var err error
	if strings.EqualFold(filepath.Ext(path), ".glb") {
		err = gltf.SaveBinary(d.Doc, path)
	} else {
		err = gltf.Save(d.Doc, path)
	}
	if err != nil {
		return fmt.Errorf("gltfio: save %s: %w", path, err)
	}
	return nil
}
