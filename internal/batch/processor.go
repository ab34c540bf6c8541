// Package batch runs the color and alpha classifiers over a selection of
// meshes, one mesh at a time, and aggregates the outcome.
package batch

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"udim-matclass/internal/alpha"
	"udim-matclass/internal/classify"
	"udim-matclass/internal/logger"
	"udim-matclass/internal/material"
	"udim-matclass/internal/mesh"
	"udim-matclass/internal/raster"
	"udim-matclass/internal/texture"
	"udim-matclass/internal/udim"
)

// DefaultUVChannel is the UV channel sampled by the color classifier.
const DefaultUVChannel = "UVChannel_2"

// Options holds the tunables shared by both classifiers.
type Options struct {
	UVChannel string
	Rules     classify.Rules
	Palette   classify.Palette
	Decoder   alpha.Decoder
	Logger    *zap.Logger
}

// DefaultOptions returns the stock settings.
func DefaultOptions() Options {
	return Options{
		UVChannel: DefaultUVChannel,
		Rules:     classify.DefaultRules(),
		Palette:   classify.DefaultPalette(),
		Decoder:   alpha.DefaultDecoder(),
	}
}

// TextureStats counts what LoadAtlas did with the files of the texture
// directory.
type TextureStats struct {
	Loaded      int
	Rejected    int
	Undecodable int
	// Err combines one ErrDecodeFailure per excluded file, or is nil.
	Err error
}

// LoadAtlas scans dir and decodes its tiles. A missing or unreadable
// directory is a configuration error; files whose name carries no tile id or
// that fail to decode are logged as decode failures and left out.
func LoadAtlas(dir string, exts []string, log *zap.Logger) (*texture.Atlas, TextureStats, error) {
	log = logger.Or(log)
	if dir == "" {
		return nil, TextureStats{}, fmt.Errorf("batch: %w: no texture directory given", ErrConfiguration)
	}
	idx, err := texture.BuildIndex(dir, exts, log)
	if err != nil {
		return nil, TextureStats{}, fmt.Errorf("batch: %w: %w", ErrConfiguration, err)
	}

	var stats TextureStats
	for _, name := range idx.Rejected {
		failure := fmt.Errorf("batch: %w: %s: no tile id in name", ErrDecodeFailure, name)
		log.Warn("texture excluded", zap.String("file", name), zap.Error(failure))
		stats.Rejected++
		stats.Err = multierr.Append(stats.Err, failure)
	}

	atlas, err := texture.LoadAtlas(idx, log)
	for _, e := range multierr.Errors(err) {
		failure := fmt.Errorf("batch: %w: %w", ErrDecodeFailure, e)
		log.Warn("texture excluded", zap.Error(failure))
		stats.Undecodable++
		stats.Err = multierr.Append(stats.Err, failure)
	}
	stats.Loaded = atlas.Len()

	log.Info("texture atlas ready",
		zap.String("dir", dir),
		zap.Int("tiles", stats.Loaded),
		zap.Int("rejected", stats.Rejected),
		zap.Int("undecodable", stats.Undecodable))
	return atlas, stats, nil
}

// RunColor assigns materials from the texture atlas to every face of every
// mesh. Only configuration problems are returned as errors; everything else
// is recorded per mesh in the Report.
func RunColor(meshes []*mesh.Mesh, atlas texture.Resolver, opts Options) (Report, error) {
	log := logger.Or(opts.Logger)
	if len(meshes) == 0 {
		return Report{}, fmt.Errorf("batch: %w: no meshes selected", ErrConfiguration)
	}
	if atlas == nil {
		return Report{}, fmt.Errorf("batch: %w: no texture atlas", ErrConfiguration)
	}
	if opts.UVChannel == "" {
		opts.UVChannel = DefaultUVChannel
	}
	for _, b := range classify.Buckets {
		if opts.Palette[b] == "" {
			return Report{}, fmt.Errorf("batch: %w: no material for bucket %q", ErrConfiguration, b)
		}
	}

	rep := Report{Mode: ModeColor}
	for _, m := range meshes {
		rep.add(colorMesh(m, atlas, opts, log.With(zap.String("mesh", m.Name))))
	}
	return rep, nil
}

func colorMesh(m *mesh.Mesh, atlas texture.Resolver, opts Options, log *zap.Logger) MeshResult {
	res := MeshResult{Name: m.Name, Faces: len(m.Faces)}

	if m.Kind != mesh.KindMesh {
		return res.skip(log, fmt.Errorf("batch: mesh %s: %w: not a polygon mesh", m.Name, ErrMeshPrecondition))
	}
	uvs, ok := m.UVChannel(opts.UVChannel)
	if !ok {
		return res.skip(log, fmt.Errorf("batch: mesh %s: %w: UV channel %q not found",
			m.Name, ErrMeshPrecondition, opts.UVChannel))
	}

	mm := make(material.Map, len(classify.Buckets))
	for _, b := range classify.Buckets {
		mm[string(b)] = material.EnsureSlot(m, opts.Palette[b])
	}

	res.Buckets = make(map[string]int, len(classify.Buckets))
	for i := range m.Faces {
		f := &m.Faces[i]
		center, ok := udim.Centroid(*f, uvs)
		if !ok {
			log.Warn("face has no usable UVs", zap.Int("face", i))
			res.Unassigned++
			continue
		}
		tile := udim.TileFromUV(center)
		img, ok := atlas.Resolve(tile)
		if !ok {
			log.Warn("no texture for tile, face left unassigned",
				zap.Int("face", i),
				zap.Stringer("tile", tile),
				zap.Error(ErrResourceMissing))
			res.Unassigned++
			continue
		}

		bucket := opts.Rules.Classify(raster.SampleNearest(img, udim.Local(center)))
		if !material.Assign(f, string(bucket), mm, len(m.Materials)) {
			log.Warn("no material for bucket, face left unassigned",
				zap.Int("face", i),
				zap.String("bucket", string(bucket)),
				zap.Error(ErrResourceMissing))
			res.Unassigned++
			continue
		}
		res.Buckets[string(bucket)]++
		res.Assigned++
	}

	log.Info("materials assigned from color",
		zap.Int("assigned", res.Assigned),
		zap.Int("unassigned", res.Unassigned))
	return res
}

// RunAlpha assigns materials decoded from the alpha of each mesh's first
// color attribute.
func RunAlpha(meshes []*mesh.Mesh, opts Options) (Report, error) {
	log := logger.Or(opts.Logger)
	if len(meshes) == 0 {
		return Report{}, fmt.Errorf("batch: %w: no meshes selected", ErrConfiguration)
	}
	if opts.Decoder.Scale <= 0 {
		return Report{}, fmt.Errorf("batch: %w: alpha scale must be positive, got %v",
			ErrConfiguration, opts.Decoder.Scale)
	}

	rep := Report{Mode: ModeAlpha}
	for _, m := range meshes {
		rep.add(alphaMesh(m, opts, log.With(zap.String("mesh", m.Name))))
	}
	return rep, nil
}

func alphaMesh(m *mesh.Mesh, opts Options, log *zap.Logger) MeshResult {
	res := MeshResult{Name: m.Name, Faces: len(m.Faces)}

	if m.Kind != mesh.KindMesh {
		return res.skip(log, fmt.Errorf("batch: mesh %s: %w: not a polygon mesh", m.Name, ErrMeshPrecondition))
	}
	attr, ok := m.FirstColorAttribute()
	if !ok {
		return res.skip(log, fmt.Errorf("batch: mesh %s: %w: no color attribute", m.Name, ErrMeshPrecondition))
	}
	if len(m.Materials) == 0 {
		return res.skip(log, fmt.Errorf("batch: mesh %s: %w: no materials", m.Name, ErrMeshPrecondition))
	}
	for _, mat := range m.Materials {
		if _, ok := alpha.ParseMaterialID(mat.Name); !ok {
			log.Debug("material excluded",
				zap.String("material", mat.Name),
				zap.Error(fmt.Errorf("batch: %w: no id in material name", ErrDecodeFailure)))
			res.MaterialsWithoutID++
		}
	}
	ids := alpha.MaterialMap(m.Materials, log)
	if len(ids) == 0 {
		return res.skip(log, fmt.Errorf("batch: mesh %s: %w: no material named like idN_",
			m.Name, ErrMeshPrecondition))
	}

	mm := make(material.Map, len(ids))
	for id, slot := range ids {
		mm[id.String()] = slot
	}

	for i := range m.Faces {
		f := &m.Faces[i]
		a, ok := alpha.FaceAlpha(m, attr, *f)
		if !ok {
			log.Warn("face has no color value", zap.Int("face", i))
			res.Unassigned++
			continue
		}
		id := opts.Decoder.Decode(a)
		if !material.Assign(f, id.String(), mm, len(m.Materials)) {
			log.Warn("no material for decoded id, face left unassigned",
				zap.Int("face", i),
				zap.Float64("alpha", a),
				zap.Stringer("id", id),
				zap.Error(ErrResourceMissing))
			res.Unassigned++
			continue
		}
		res.Assigned++
	}

	log.Info("materials assigned from alpha",
		zap.String("attribute", attr.Name),
		zap.Int("assigned", res.Assigned),
		zap.Int("unassigned", res.Unassigned))
	return res
}
