package batch

import (
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/image/bmp"
	"gonum.org/v1/gonum/spatial/r2"

	"udim-matclass/internal/mesh"
	"udim-matclass/internal/texture"
	"udim-matclass/internal/udim"
)

func solidTile(c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// triangleAt returns a one-triangle mesh whose UVChannel_2 centroid is c.
func triangleAt(name string, c r2.Vec) *mesh.Mesh {
	return &mesh.Mesh{
		Name:  name,
		Loops: []mesh.Loop{{Vertex: 0}, {Vertex: 1}, {Vertex: 2}},
		Faces: []mesh.Face{{Loops: []int{0, 1, 2}, MaterialIndex: mesh.Unassigned}},
		UVChannels: map[string][]r2.Vec{
			"UVChannel_1": {{}, {}, {}},
			"UVChannel_2": {
				{X: c.X - 0.1, Y: c.Y - 0.1},
				{X: c.X + 0.1, Y: c.Y - 0.1},
				{X: c.X, Y: c.Y + 0.2},
			},
		},
	}
}

func observed(level zapcore.Level) (Options, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	opts := DefaultOptions()
	opts.Logger = zap.New(core)
	return opts, logs
}

func TestRunColorSolidRedTile(t *testing.T) {
	m := triangleAt("ground", r2.Vec{X: 0.3, Y: 0.2})
	atlas := texture.NewAtlas(map[udim.TileID]*image.NRGBA{
		1001: solidTile(color.NRGBA{255, 0, 0, 255}),
	})

	opts, _ := observed(zapcore.InfoLevel)
	rep, err := RunColor([]*mesh.Mesh{m}, atlas, opts)
	require.NoError(t, err)

	red := -1
	for i, mat := range m.Materials {
		if mat.Name == "id231_stn_03" {
			red = i
		}
	}
	require.NotEqual(t, -1, red, "red material slot was added")
	assert.Equal(t, red, m.Faces[0].MaterialIndex)
	assert.Equal(t, 1, rep.MeshesProcessed)
	assert.Equal(t, 1, rep.FacesAssigned)
	assert.Equal(t, map[string]int{"red": 1}, rep.Meshes[0].Buckets)
}

func writeTile(t *testing.T, path string, c color.NRGBA) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	switch filepath.Ext(path) {
	case ".jpg":
		require.NoError(t, jpeg.Encode(f, solidTile(c), &jpeg.Options{Quality: 100}))
	case ".bmp":
		require.NoError(t, bmp.Encode(f, solidTile(c)))
	default:
		require.NoError(t, png.Encode(f, solidTile(c)))
	}
}

func TestRunColorTilesFromDisk(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, filepath.Join(dir, "1001_BC.png"), color.NRGBA{255, 0, 0, 255})
	writeTile(t, filepath.Join(dir, "1002_BC.jpg"), color.NRGBA{0, 255, 0, 255})
	writeTile(t, filepath.Join(dir, "1011_BC.bmp"), color.NRGBA{0, 0, 255, 255})

	opts, _ := observed(zapcore.InfoLevel)
	atlas, stats, err := LoadAtlas(dir, nil, opts.Logger)
	require.NoError(t, err)
	require.NoError(t, stats.Err)
	assert.Equal(t, []udim.TileID{1001, 1002, 1011}, atlas.Tiles())
	assert.Equal(t, 3, stats.Loaded)

	red := triangleAt("red", r2.Vec{X: 0.3, Y: 0.2})
	green := triangleAt("green", r2.Vec{X: 1.3, Y: 0.2})
	blue := triangleAt("blue", r2.Vec{X: 0.3, Y: 1.2})
	rep, err := RunColor([]*mesh.Mesh{red, green, blue}, atlas, opts)
	require.NoError(t, err)

	assert.Equal(t, 3, rep.FacesAssigned)
	assert.Equal(t, "id231_stn_03", red.Materials[red.Faces[0].MaterialIndex].Name)
	assert.Equal(t, "id100_r_land_02", green.Materials[green.Faces[0].MaterialIndex].Name)
	assert.Equal(t, "id55_sand_01", blue.Materials[blue.Faces[0].MaterialIndex].Name)
}

func TestLoadAtlasCountsDecodeFailures(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, filepath.Join(dir, "1001_BC.png"), color.NRGBA{255, 0, 0, 255})
	writeTile(t, filepath.Join(dir, "mask.png"), color.NRGBA{255, 0, 0, 255})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1002_BC.jpg"), []byte("not a jpeg"), 0o644))

	core, logs := observer.New(zapcore.WarnLevel)
	atlas, stats, err := LoadAtlas(dir, nil, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, 1, atlas.Len())
	assert.Equal(t, TextureStats{Loaded: 1, Rejected: 1, Undecodable: 1, Err: stats.Err}, stats)
	assert.ErrorIs(t, stats.Err, ErrDecodeFailure)

	excluded := logs.FilterMessage("texture excluded").All()
	require.Len(t, excluded, 2)
	for _, e := range excluded {
		assert.Contains(t, e.ContextMap()["error"], ErrDecodeFailure.Error())
	}

	var rep Report
	rep.AddTextures(stats)
	assert.Equal(t, 1, rep.TexturesRejected)
	assert.Equal(t, 1, rep.TexturesUndecodable)
}

func TestRunColorEnsuresPaletteOnce(t *testing.T) {
	m := triangleAt("ground", r2.Vec{X: 0.5, Y: 0.5})
	m.Materials = []mesh.Material{{Name: "id55_sand_01"}}
	atlas := texture.NewAtlas(map[udim.TileID]*image.NRGBA{
		1001: solidTile(color.NRGBA{0, 0, 255, 255}),
	})

	opts, _ := observed(zapcore.InfoLevel)
	_, err := RunColor([]*mesh.Mesh{m}, atlas, opts)
	require.NoError(t, err)
	_, err = RunColor([]*mesh.Mesh{m}, atlas, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"id55_sand_01", "id231_stn_03", "id100_r_land_02", "id165_wild_grass_5"},
		m.MaterialNames())
	assert.Equal(t, 0, m.Faces[0].MaterialIndex, "blue reuses the existing slot")
}

func TestRunColorSamplesTileLocalUV(t *testing.T) {
	// Left half green, right half red; tile 1002 covers u in [1,2).
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{0, 255, 0, 255})
	img.SetNRGBA(1, 0, color.NRGBA{255, 0, 0, 255})
	atlas := texture.NewAtlas(map[udim.TileID]*image.NRGBA{1002: img})

	left := triangleAt("left", r2.Vec{X: 1.25, Y: 0.5})
	right := triangleAt("right", r2.Vec{X: 1.75, Y: 0.5})

	opts, _ := observed(zapcore.InfoLevel)
	_, err := RunColor([]*mesh.Mesh{left, right}, atlas, opts)
	require.NoError(t, err)

	assert.Equal(t, "id100_r_land_02", left.Materials[left.Faces[0].MaterialIndex].Name)
	assert.Equal(t, "id231_stn_03", right.Materials[right.Faces[0].MaterialIndex].Name)
}

func TestRunColorMissingUVChannelSkipsMesh(t *testing.T) {
	bad := triangleAt("no_uv", r2.Vec{X: 0.3, Y: 0.2})
	delete(bad.UVChannels, "UVChannel_2")
	bad.Faces = append(bad.Faces, mesh.Face{Loops: []int{0, 1, 2}, MaterialIndex: 0})
	bad.Materials = []mesh.Material{{Name: "keep"}}
	good := triangleAt("good", r2.Vec{X: 0.3, Y: 0.2})

	atlas := texture.NewAtlas(map[udim.TileID]*image.NRGBA{
		1001: solidTile(color.NRGBA{255, 0, 0, 255}),
	})
	opts, logs := observed(zapcore.WarnLevel)
	rep, err := RunColor([]*mesh.Mesh{bad, good}, atlas, opts)
	require.NoError(t, err)

	assert.Equal(t, mesh.Unassigned, bad.Faces[0].MaterialIndex)
	assert.Equal(t, 0, bad.Faces[1].MaterialIndex)
	assert.Equal(t, []string{"keep"}, bad.MaterialNames(), "skipped mesh is not mutated")

	assert.Equal(t, 1, rep.MeshesSkipped)
	assert.Equal(t, 1, rep.MeshesProcessed)
	assert.Equal(t, 2, rep.FacesUnassigned)
	assert.True(t, rep.Meshes[0].Skipped)
	assert.ErrorIs(t, rep.Meshes[0].Err(), ErrMeshPrecondition)
	assert.Equal(t, 1, logs.FilterMessage("mesh skipped").Len())

	assert.NotEqual(t, mesh.Unassigned, good.Faces[0].MaterialIndex, "sibling mesh still processed")
}

func TestRunColorNonNumericTextureLeavesFaceUnassigned(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "abc.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, solidTile(color.NRGBA{255, 0, 0, 255})))
	require.NoError(t, f.Close())

	opts, logs := observed(zapcore.DebugLevel)
	atlas, stats, err := LoadAtlas(dir, nil, opts.Logger)
	require.NoError(t, err)
	assert.Equal(t, 0, atlas.Len())
	assert.Equal(t, 1, stats.Rejected)

	m := triangleAt("ground", r2.Vec{X: 0.3, Y: 0.2})
	rep, err := RunColor([]*mesh.Mesh{m}, atlas, opts)
	require.NoError(t, err)

	assert.Equal(t, mesh.Unassigned, m.Faces[0].MaterialIndex)
	assert.Equal(t, 1, rep.FacesUnassigned)

	missing := logs.FilterMessage("no texture for tile, face left unassigned").All()
	require.Len(t, missing, 1)
	assert.Equal(t, "1001", missing[0].ContextMap()["tile"])
}

func TestRunColorConfigurationErrors(t *testing.T) {
	atlas := texture.NewAtlas(nil)

	_, err := RunColor(nil, atlas, DefaultOptions())
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = RunColor([]*mesh.Mesh{triangleAt("m", r2.Vec{})}, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrConfiguration)

	_, _, err = LoadAtlas("", nil, nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, _, err = LoadAtlas(filepath.Join(t.TempDir(), "missing"), nil, nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestRunColorSkipsNonMesh(t *testing.T) {
	m := triangleAt("curve", r2.Vec{X: 0.3, Y: 0.2})
	m.Kind = mesh.KindOther
	opts, _ := observed(zapcore.InfoLevel)

	rep, err := RunColor([]*mesh.Mesh{m}, texture.NewAtlas(nil), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.MeshesSkipped)
	assert.Empty(t, m.Materials)
}

func alphaMeshFixture(alphas ...float32) *mesh.Mesh {
	m := &mesh.Mesh{Name: "terrain"}
	attr := mesh.ColorAttribute{Name: "Col", Domain: mesh.DomainCorner}
	for _, a := range alphas {
		base := len(m.Loops)
		for k := 0; k < 3; k++ {
			m.Loops = append(m.Loops, mesh.Loop{Vertex: base + k})
			attr.Data = append(attr.Data, [4]float32{1, 1, 1, a})
		}
		m.Faces = append(m.Faces, mesh.Face{Loops: []int{base, base + 1, base + 2}, MaterialIndex: 0})
	}
	m.ColorAttributes = []mesh.ColorAttribute{attr}
	return m
}

func TestRunAlphaAssignsDecodedID(t *testing.T) {
	m := alphaMeshFixture(100.0/256, 55.0/256, 7.0/256)
	m.Materials = []mesh.Material{{Name: "plain"}, {Name: "id55_sand_01"}, {Name: "id100_x"}}

	opts, logs := observed(zapcore.WarnLevel)
	rep, err := RunAlpha([]*mesh.Mesh{m}, opts)
	require.NoError(t, err)

	assert.Equal(t, 2, m.Faces[0].MaterialIndex)
	assert.Equal(t, 1, m.Faces[1].MaterialIndex)
	assert.Equal(t, 0, m.Faces[2].MaterialIndex, "unknown id keeps the prior index")
	assert.Equal(t, 2, rep.FacesAssigned)
	assert.Equal(t, 1, rep.FacesUnassigned)
	assert.Equal(t, 1, logs.FilterMessage("no material for decoded id, face left unassigned").Len())
	assert.Equal(t, []string{"plain", "id55_sand_01", "id100_x"}, m.MaterialNames(), "alpha path never adds slots")
}

func TestRunAlphaSkips(t *testing.T) {
	noColor := alphaMeshFixture(0.5)
	noColor.ColorAttributes = nil
	noColor.Materials = []mesh.Material{{Name: "id128_a"}}

	noMaterials := alphaMeshFixture(0.5)

	noIDs := alphaMeshFixture(0.5)
	noIDs.Materials = []mesh.Material{{Name: "Material.001"}}

	ok := alphaMeshFixture(0.5)
	ok.Materials = []mesh.Material{{Name: "id128_a"}}

	opts, _ := observed(zapcore.InfoLevel)
	rep, err := RunAlpha([]*mesh.Mesh{noColor, noMaterials, noIDs, ok}, opts)
	require.NoError(t, err)

	assert.Equal(t, 3, rep.MeshesSkipped)
	assert.Equal(t, 1, rep.MeshesProcessed)
	assert.Equal(t, 1, rep.MaterialsWithoutID, "Material.001 is excluded")
	for _, r := range rep.Meshes[:3] {
		assert.ErrorIs(t, r.Err(), ErrMeshPrecondition, r.Name)
	}
	assert.Equal(t, 0, ok.Faces[0].MaterialIndex)
	assert.Equal(t, 1, rep.FacesAssigned)
}

func TestRunAlphaConfigurationErrors(t *testing.T) {
	_, err := RunAlpha(nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrConfiguration)

	opts := DefaultOptions()
	opts.Decoder.Scale = 0
	_, err = RunAlpha([]*mesh.Mesh{alphaMeshFixture(0)}, opts)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestWriteReport(t *testing.T) {
	rep := Report{Mode: ModeAlpha}
	rep.add(MeshResult{Name: "a", Faces: 3, Assigned: 2, Unassigned: 1})
	rep.add(MeshResult{Name: "b", Faces: 1, Unassigned: 1, Skipped: true, Reason: "no color attribute"})

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteReport(path, rep))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Report
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 1, got.MeshesProcessed)
	assert.Equal(t, 1, got.MeshesSkipped)
	assert.Equal(t, 2, got.FacesAssigned)
	assert.Equal(t, 2, got.FacesUnassigned)
	assert.Equal(t, "no color attribute", got.Meshes[1].Reason)
}
