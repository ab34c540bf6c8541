package raster

import (
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// TexelCoord maps uv to the nearest texel of a w x h image.
// px = floor(u*w) mod w and py = floor(v*h) mod h, using a non-negative
// modulo so the lookup wraps at both edges. py counts rows from the bottom
// because v grows upward in UV space.
func TexelCoord(w, h int, uv r2.Vec) (px, py int) {
	px = floorMod(int(math.Floor(uv.X*float64(w))), w)
	py = floorMod(int(math.Floor(uv.Y*float64(h))), h)
	return px, py
}

// SampleNearest returns the RGB of the texel nearest to uv, each in [0,1].
// Alpha is ignored. uv is expected to be tile-relative; integer offsets wrap.
// Accesses tex.Pix directly for performance.
func SampleNearest(tex *image.NRGBA, uv r2.Vec) [3]float64 {
	w := tex.Rect.Dx()
	h := tex.Rect.Dy()
	px, py := TexelCoord(w, h, uv)
	row := h - 1 - py

	i := row*tex.Stride + px*4
	pix := tex.Pix
	return [3]float64{
		float64(pix[i]) / 255,
		float64(pix[i+1]) / 255,
		float64(pix[i+2]) / 255,
	}
}

func floorMod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
