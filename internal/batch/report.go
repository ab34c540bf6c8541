package batch

import (
	"encoding/json"
	"os"

	"go.uber.org/zap"
)

// Classification modes.
const (
	ModeColor = "color"
	ModeAlpha = "alpha"
)

// MeshResult is the outcome of classifying one mesh.
type MeshResult struct {
	Name       string         `json:"name"`
	Faces      int            `json:"faces"`
	Assigned   int            `json:"assigned"`
	Unassigned int            `json:"unassigned"`
	Buckets    map[string]int `json:"buckets,omitempty"`
	Skipped    bool           `json:"skipped"`
	Reason     string         `json:"reason,omitempty"`

	// MaterialsWithoutID counts slots the alpha classifier could not use.
	MaterialsWithoutID int `json:"materials_without_id,omitempty"`

	err error
}

// Err returns why the mesh was skipped, or nil.
func (r MeshResult) Err() error {
	return r.err
}

func (r MeshResult) skip(log *zap.Logger, err error) MeshResult {
	log.Warn("mesh skipped", zap.Error(err))
	r.Skipped = true
	r.Reason = err.Error()
	r.Unassigned = r.Faces
	r.err = err
	return r
}

// Report aggregates a run: processed vs skipped meshes and faces, and the
// inputs excluded as decode failures.
type Report struct {
	Mode            string `json:"mode"`
	MeshesProcessed int    `json:"meshes_processed"`
	MeshesSkipped   int    `json:"meshes_skipped"`
	FacesAssigned   int    `json:"faces_assigned"`
	FacesUnassigned int    `json:"faces_unassigned"`

	TexturesLoaded      int `json:"textures_loaded,omitempty"`
	TexturesRejected    int `json:"textures_rejected,omitempty"`
	TexturesUndecodable int `json:"textures_undecodable,omitempty"`
	MaterialsWithoutID  int `json:"materials_without_id,omitempty"`

	Meshes []MeshResult `json:"meshes"`
}

// AddTextures records the outcome of LoadAtlas.
func (r *Report) AddTextures(s TextureStats) {
	r.TexturesLoaded = s.Loaded
	r.TexturesRejected = s.Rejected
	r.TexturesUndecodable = s.Undecodable
}

func (r *Report) add(m MeshResult) {
	r.Meshes = append(r.Meshes, m)
	if m.Skipped {
		r.MeshesSkipped++
	} else {
		r.MeshesProcessed++
	}
	r.FacesAssigned += m.Assigned
	r.FacesUnassigned += m.Unassigned
	r.MaterialsWithoutID += m.MaterialsWithoutID
}

// WriteReport writes the report as indented JSON.
func WriteReport(path string, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
