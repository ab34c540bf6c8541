package udim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"

	"udim-matclass/internal/mesh"
)

func TestTileFromUV(t *testing.T) {
	cases := []struct {
		uv   r2.Vec
		want TileID
	}{
		{r2.Vec{X: 0.3, Y: 0.0}, 1001},
		{r2.Vec{X: 1.1, Y: 0.0}, 1002},
		{r2.Vec{X: 0.0, Y: 1.0}, 1011},
		{r2.Vec{X: 9.99, Y: 2.5}, 1030},
		{r2.Vec{X: -0.5, Y: 0.2}, 1000},
		{r2.Vec{X: 0.5, Y: -0.25}, 991},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, TileFromUV(c.uv), "uv=%v", c.uv)
	}
}

func TestLocal(t *testing.T) {
	got := Local(r2.Vec{X: 1.25, Y: -0.25})
	assert.InDelta(t, 0.25, got.X, 1e-12)
	assert.InDelta(t, 0.75, got.Y, 1e-12)
}

func TestCentroid(t *testing.T) {
	channel := []r2.Vec{{X: 0, Y: 0}, {X: 0.6, Y: 0}, {X: 0.3, Y: 0.6}}

	c, ok := Centroid(mesh.Face{Loops: []int{0, 1, 2}}, channel)
	assert.True(t, ok)
	assert.InDelta(t, 0.3, c.X, 1e-12)
	assert.InDelta(t, 0.2, c.Y, 1e-12)

	_, ok = Centroid(mesh.Face{}, channel)
	assert.False(t, ok, "face without loops")

	_, ok = Centroid(mesh.Face{Loops: []int{0, 7}}, channel)
	assert.False(t, ok, "loop outside channel")
}
