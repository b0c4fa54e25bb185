package metadata

import (
	"encoding/json"

	"github.com/zhan520/entwine/internal/schema"
	"github.com/zhan520/entwine/internal/spatial"
)

// doc is the on-disk shape of entwine[-<id>].json: a plain mirror of
// Metadata's exported state plus its set-once SRS, which otherwise lives
// behind a mutex and wouldn't round-trip through encoding/json directly.
type doc struct {
	Version          string         `json:"version"`
	NativeConforming spatial.Bounds `json:"nativeConforming"`
	NativeCubic      spatial.Bounds `json:"nativeCubic"`
	ScaledConforming spatial.Bounds `json:"scaledConforming"`
	ScaledCubic      spatial.Bounds `json:"scaledCubic"`
	Scale            spatial.Vec3   `json:"scale"`
	Offset           spatial.Vec3   `json:"offset"`
	Schema           schema.Schema  `json:"schema"`
	Subset           *Subset        `json:"subset,omitempty"`
	BuildID          string         `json:"buildId"`
	SRS              string         `json:"srs,omitempty"`
}

// MarshalJSON writes m as entwine[-<id>].json's contents.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(doc{
		Version:          Version,
		NativeConforming: m.NativeConforming,
		NativeCubic:      m.NativeCubic,
		ScaledConforming: m.ScaledConforming,
		ScaledCubic:      m.ScaledCubic,
		Scale:            m.Delta.Scale,
		Offset:           m.Delta.Offset,
		Schema:           m.Schema,
		Subset:           m.Subset,
		BuildID:          m.BuildID,
		SRS:              m.SRS(),
	})
}

// UnmarshalJSON restores m from a previously persisted entwine.json.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var d doc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	m.NativeConforming = d.NativeConforming
	m.NativeCubic = d.NativeCubic
	m.ScaledConforming = d.ScaledConforming
	m.ScaledCubic = d.ScaledCubic
	m.Delta = spatial.Delta{Scale: d.Scale, Offset: d.Offset}
	m.Schema = d.Schema
	m.Subset = d.Subset
	m.BuildID = d.BuildID
	if d.SRS != "" {
		m.SetSRS(d.SRS)
	}
	return nil
}
