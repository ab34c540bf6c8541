package classify

import (
	"fmt"
	"sort"
)

// Palette names the material each bucket assigns.
type Palette map[Bucket]string

// DefaultPalette returns the stock terrain materials.
func DefaultPalette() Palette {
	return Palette{
		Green:   "id100_r_land_02",
		Red:     "id231_stn_03",
		Blue:    "id55_sand_01",
		Default: "id165_wild_grass_5",
	}
}

// PaletteFromNames builds a Palette from plain bucket-name keys, as found in
// config files. Buckets not named fall back to DefaultPalette.
func PaletteFromNames(names map[string]string) (Palette, error) {
	p := DefaultPalette()
	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b, err := ParseBucket(k)
		if err != nil {
			return nil, err
		}
		if names[k] == "" {
			return nil, fmt.Errorf("classify: empty material name for bucket %q", k)
		}
		p[b] = names[k]
	}
	return p, nil
}
