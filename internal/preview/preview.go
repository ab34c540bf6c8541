// Package preview renders the color bucket of every texel of a tile, so an
// artist can see how the classifier reads a texture before running it on
// meshes.
package preview

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/HugoSmits86/nativewebp"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"udim-matclass/internal/classify"
	"udim-matclass/internal/logger"
	"udim-matclass/internal/texture"
)

// BucketMap replaces each texel of img with the swatch of its bucket.
func BucketMap(img *image.NRGBA, rules classify.Rules) *image.NRGBA {
	b := img.Rect
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			rgb := [3]float64{
				float64(img.Pix[i]) / 255,
				float64(img.Pix[i+1]) / 255,
				float64(img.Pix[i+2]) / 255,
			}
			out.SetNRGBA(x, y, rules.Classify(rgb).Swatch())
		}
	}
	return out
}

// Fit shrinks img so neither side exceeds maxSize, keeping the aspect ratio.
// Nearest-neighbor scaling keeps bucket colors pure.
func Fit(img *image.NRGBA, maxSize int) *image.NRGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return img
	}
	dw, dh := maxSize, maxSize
	if w > h {
		dh = max(1, h*maxSize/w)
	} else {
		dw = max(1, w*maxSize/h)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// WriteAtlas writes "<tile>_buckets.webp" for every tile of atlas into dir.
// It returns the written paths in tile order.
func WriteAtlas(dir string, atlas *texture.Atlas, rules classify.Rules, maxSize int, log *zap.Logger) ([]string, error) {
	log = logger.Or(log)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}

	var paths []string
	for _, tile := range atlas.Tiles() {
		img, _ := atlas.Resolve(tile)
		out := filepath.Join(dir, fmt.Sprintf("%d_buckets.webp", tile))
		if err := writeWebP(out, Fit(BucketMap(img, rules), maxSize)); err != nil {
			return paths, err
		}
		counts := rules.Histogram(img)
		log.Debug("preview written",
			zap.String("path", out),
			zap.Int("red", counts[classify.Red]),
			zap.Int("green", counts[classify.Green]),
			zap.Int("blue", counts[classify.Blue]),
			zap.Int("default", counts[classify.Default]))
		paths = append(paths, out)
	}
	return paths, nil
}

func writeWebP(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	if err := nativewebp.Encode(f, img, nil); err != nil {
		f.Close()
		return fmt.Errorf("preview: WebP encode %s: %w", path, err)
	}
	return f.Close()
}
