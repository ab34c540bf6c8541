// Package udim resolves face UVs to UDIM tiles.
package udim

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/spatial/r2"

	"udim-matclass/internal/mesh"
)

// Base is the id of the tile covering [0,1)x[0,1).
const Base = 1001

// TileID identifies one unit UV square: 1001 + u-offset + 10*v-offset.
type TileID int

func (t TileID) String() string {
	return strconv.Itoa(int(t))
}

// TileFromUV returns the tile containing uv. Negative coordinates floor
// toward minus infinity, so (-0.5, 0) lands in tile 1000.
func TileFromUV(uv r2.Vec) TileID {
	return TileID(Base + int(math.Floor(uv.X)) + 10*int(math.Floor(uv.Y)))
}

// Local strips the integer tile offset, leaving a coordinate in [0,1).
func Local(uv r2.Vec) r2.Vec {
	return r2.Vec{X: uv.X - math.Floor(uv.X), Y: uv.Y - math.Floor(uv.Y)}
}

// Centroid averages the UVs of a face's loops. Faces without loops,
// or with loops outside the channel, report false.
func Centroid(f mesh.Face, channel []r2.Vec) (r2.Vec, bool) {
	if len(f.Loops) == 0 {
		return r2.Vec{}, false
	}
	var sum r2.Vec
	for _, l := range f.Loops {
		if l < 0 || l >= len(channel) {
			return r2.Vec{}, false
		}
		sum = r2.Add(sum, channel[l])
	}
	return r2.Scale(1/float64(len(f.Loops)), sum), true
}
