package texture

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"udim-matclass/internal/logger"
	"udim-matclass/internal/udim"
)

// DefaultExtensions are the texture file types scanned by default.
var DefaultExtensions = []string{".png", ".jpg", ".bmp"}

// Index maps UDIM tile ids to texture file paths.
type Index struct {
	Dir     string
	entries map[udim.TileID]string
	// Rejected lists files with a supported extension but no tile id.
	Rejected []string
}

// ParseTileID reads the tile id from a "<digits>_<anything>.<ext>" file name.
// The run before the first underscore must be all digits and non-zero.
func ParseTileID(name string) (udim.TileID, bool) {
	base := filepath.Base(name)
	cut := strings.IndexByte(base, '_')
	if cut <= 0 {
		return 0, false
	}
	prefix := base[:cut]
	for i := 0; i < len(prefix); i++ {
		if prefix[i] < '0' || prefix[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(prefix)
	if err != nil || n == 0 {
		return 0, false
	}
	return udim.TileID(n), true
}

// BuildIndex lists dir (non-recursively) for texture files with one of exts.
// Entries are visited in file name order, so with duplicate tile ids the
// lexically last file wins.
func BuildIndex(dir string, exts []string, log *zap.Logger) (*Index, error) {
	log = logger.Or(log)
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("texture: scan %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	idx := &Index{Dir: dir, entries: make(map[udim.TileID]string)}
	for _, e := range entries {
		if e.IsDir() || !hasExtension(e.Name(), exts) {
			continue
		}
		tile, ok := ParseTileID(e.Name())
		if !ok {
			log.Debug("texture name has no tile id, skipping", zap.String("file", e.Name()))
			idx.Rejected = append(idx.Rejected, e.Name())
			continue
		}
		path := filepath.Join(dir, e.Name())
		if prev, dup := idx.entries[tile]; dup {
			log.Warn("duplicate tile id, later file wins",
				zap.Stringer("tile", tile),
				zap.String("dropped", filepath.Base(prev)),
				zap.String("kept", e.Name()))
		}
		idx.entries[tile] = path
	}
	return idx, nil
}

func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// ResolvePath returns the file path for a tile, or ("", false).
func (idx *Index) ResolvePath(tile udim.TileID) (string, bool) {
	path, ok := idx.entries[tile]
	return path, ok
}

// Tiles returns the indexed tile ids in ascending order.
func (idx *Index) Tiles() []udim.TileID {
	tiles := make([]udim.TileID, 0, len(idx.entries))
	for t := range idx.entries {
		tiles = append(tiles, t)
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i] < tiles[j] })
	return tiles
}

// Len returns the number of indexed tiles.
func (idx *Index) Len() int {
	return len(idx.entries)
}
