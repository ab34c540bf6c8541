// Package material resolves symbolic keys to material slots and writes face
// material indices.
package material

import (
	"golang.org/x/text/unicode/norm"

	"udim-matclass/internal/mesh"
)

// Map resolves a symbolic key (a color bucket name or a decimal material id)
// to a slot index. Build it once per mesh, before classifying faces.
type Map map[string]int

// SameName reports whether two material names are equal after NFC
// normalization, so names written by different tools compare equal.
func SameName(a, b string) bool {
	return norm.NFC.String(a) == norm.NFC.String(b)
}

// Find returns the slot index of the named material, or -1.
func Find(m *mesh.Mesh, name string) int {
	for i, mat := range m.Materials {
		if SameName(mat.Name, name) {
			return i
		}
	}
	return -1
}

// EnsureSlot returns the slot holding the named material, appending one when
// no slot has that name. Calling it again with the same name never adds a
// second slot.
func EnsureSlot(m *mesh.Mesh, name string) int {
	if i := Find(m, name); i >= 0 {
		return i
	}
	m.Materials = append(m.Materials, mesh.Material{Name: name})
	return len(m.Materials) - 1
}

// Assign sets f's material index to mm[key]. When the key is unknown, or maps
// outside slotCount, the face keeps its current index and Assign returns false.
func Assign(f *mesh.Face, key string, mm Map, slotCount int) bool {
	idx, ok := mm[key]
	if !ok || idx < 0 || idx >= slotCount {
		return false
	}
	f.MaterialIndex = idx
	return true
}
