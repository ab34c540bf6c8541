// Package alpha decodes material ids stored in the alpha channel of a color
// attribute. Ids are authored as id/256 and tie back to materials named
// "id<digits>_<anything>".
package alpha

import (
	"math"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"udim-matclass/internal/logger"
	"udim-matclass/internal/mesh"
)

// DefaultScale is the 8-bit quantization step count.
const DefaultScale = 256

// MaterialID is the integer id embedded in a material name.
type MaterialID int

func (id MaterialID) String() string {
	return strconv.Itoa(int(id))
}

var idPattern = regexp.MustCompile(`^id(\d+)_`)

// ParseMaterialID extracts N from a name starting with "idN_".
func ParseMaterialID(name string) (MaterialID, bool) {
	m := idPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return MaterialID(n), true
}

// Decoder turns alpha values into material ids.
type Decoder struct {
	Scale float64
}

// DefaultDecoder returns a Decoder with DefaultScale.
func DefaultDecoder() Decoder {
	return Decoder{Scale: DefaultScale}
}

// Decode returns round(alpha * Scale). Values are not clamped.
func (d Decoder) Decode(alpha float64) MaterialID {
	return MaterialID(math.Round(alpha * d.Scale))
}

// FaceAlpha reads the alpha of a face from its first loop.
func FaceAlpha(m *mesh.Mesh, attr *mesh.ColorAttribute, f mesh.Face) (float64, bool) {
	if len(f.Loops) == 0 {
		return 0, false
	}
	c, ok := attr.LoopColor(m, f.Loops[0])
	if !ok {
		return 0, false
	}
	return float64(c[3]), true
}

// MaterialMap maps decoded ids to slot indices for every slot whose name
// carries an id. Other names are left out; with duplicate ids the last slot
// wins.
func MaterialMap(materials []mesh.Material, log *zap.Logger) map[MaterialID]int {
	log = logger.Or(log)
	out := make(map[MaterialID]int, len(materials))
	for i, mat := range materials {
		id, ok := ParseMaterialID(mat.Name)
		if !ok {
			continue
		}
		if prev, dup := out[id]; dup {
			log.Warn("duplicate material id, later slot wins",
				zap.Stringer("id", id),
				zap.String("dropped", materials[prev].Name),
				zap.String("kept", mat.Name))
		}
		out[id] = i
	}
	return out
}
