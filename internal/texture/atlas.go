// Package texture scans a directory of UDIM tiles and decodes them into an
// immutable tile atlas.
package texture

import (
	"image"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"udim-matclass/internal/logger"
	"udim-matclass/internal/udim"
)

// Resolver resolves a UDIM tile to its decoded image.
type Resolver interface {
	Resolve(tile udim.TileID) (*image.NRGBA, bool)
}

// Atlas holds the decoded tiles of one run. It is never mutated after
// LoadAtlas returns, so it can be shared by every mesh of the run.
type Atlas struct {
	tiles map[udim.TileID]*image.NRGBA
}

// NewAtlas builds an atlas from already decoded tiles.
func NewAtlas(tiles map[udim.TileID]*image.NRGBA) *Atlas {
	a := &Atlas{tiles: make(map[udim.TileID]*image.NRGBA, len(tiles))}
	for t, img := range tiles {
		if img != nil {
			a.tiles[t] = img
		}
	}
	return a
}

// LoadAtlas decodes every indexed tile. A tile that fails to decode is left
// out; the returned error combines those failures and is never fatal, the
// atlas is always usable.
func LoadAtlas(idx *Index, log *zap.Logger) (*Atlas, error) {
	log = logger.Or(log)
	a := &Atlas{tiles: make(map[udim.TileID]*image.NRGBA, idx.Len())}

	var errs error
	for _, tile := range idx.Tiles() {
		path, _ := idx.ResolvePath(tile)
		img, err := LoadTexture(path)
		if err != nil {
			log.Debug("texture load failed", zap.Stringer("tile", tile), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		a.tiles[tile] = img
		log.Debug("texture loaded",
			zap.Stringer("tile", tile),
			zap.String("path", path),
			zap.Int("width", img.Rect.Dx()),
			zap.Int("height", img.Rect.Dy()))
	}
	return a, errs
}

// Resolve returns the image of a tile, or (nil, false).
func (a *Atlas) Resolve(tile udim.TileID) (*image.NRGBA, bool) {
	img, ok := a.tiles[tile]
	return img, ok
}

// Tiles returns the loaded tile ids in ascending order.
func (a *Atlas) Tiles() []udim.TileID {
	tiles := make([]udim.TileID, 0, len(a.tiles))
	for t := range a.tiles {
		tiles = append(tiles, t)
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i] < tiles[j] })
	return tiles
}

// Len returns the number of loaded tiles.
func (a *Atlas) Len() int {
	return len(a.tiles)
}
