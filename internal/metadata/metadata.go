package metadata

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/zhan520/entwine/internal/config"
	"github.com/zhan520/entwine/internal/schema"
	"github.com/zhan520/entwine/internal/spatial"
)

// Subset identifies this build as covering one partition of a larger,
// multi-subset build (mirrors config.Subset but lives on Metadata once
// resolved, since a merge rewrites it as subsets are folded in).
type Subset struct {
	Id uint64
	Of uint64
}

// Metadata is the index's top-level persisted record: bounds in every
// form the addressing scheme needs, the point schema, the build's version
// and build identifier, and the (optional) subset this build covers.
type Metadata struct {
	NativeConforming spatial.Bounds
	NativeCubic      spatial.Bounds
	ScaledConforming spatial.Bounds
	ScaledCubic      spatial.Bounds

	Delta  spatial.Delta
	Schema schema.Schema

	Subset *Subset

	BuildID string

	srsMu sync.Mutex
	srs   string
}

// Version is the on-disk metadata format version this build writes.
const Version = "1.0.0"

// New creates metadata for a fresh build from native bounds and config.
func New(nativeBounds spatial.Bounds, cfg config.Config, sch schema.Schema) *Metadata {
	cubic := nativeBounds.Cubify()
	delta := cfg.Delta()

	scaledConforming := spatial.Bounds{
		Min: delta.ToScaled(nativeBounds.Min),
		Max: delta.ToScaled(nativeBounds.Max),
	}
	scaledCubic := spatial.Bounds{
		Min: delta.ToScaled(cubic.Min),
		Max: delta.ToScaled(cubic.Max),
	}

	m := &Metadata{
		NativeConforming: nativeBounds,
		NativeCubic:      cubic,
		ScaledConforming: scaledConforming,
		ScaledCubic:      scaledCubic,
		Delta:            delta,
		Schema:           sch,
		BuildID:          uuid.NewString(),
	}
	if cfg.Subset != nil {
		m.Subset = &Subset{Id: cfg.Subset.Id, Of: cfg.Subset.Of}
	}
	return m
}

// SRS returns the spatial reference system string, or "" if not yet set.
func (m *Metadata) SRS() string {
	m.srsMu.Lock()
	defer m.srsMu.Unlock()
	return m.srs
}

// SetSRS sets the SRS exactly once; later calls are no-ops so the first
// file previewed during a build wins, matching the concurrency model's
// "Metadata.srs is set-once under a mutex" rule.
func (m *Metadata) SetSRS(srs string) {
	m.srsMu.Lock()
	defer m.srsMu.Unlock()
	if m.srs == "" {
		m.srs = srs
	}
}

// Postfix returns the "-<subsetId>" filename suffix used by shared-depth
// chunk and metadata files, or "" when this build owns the whole tree.
func (m *Metadata) Postfix() string {
	if m.Subset == nil {
		return ""
	}
	return "-" + strconv.FormatUint(m.Subset.Id, 10)
}

// Merge folds other's state into m: widens bounds if needed and adopts
// other's SRS if m has none yet. Merge itself does not check that m and
// other describe compatible builds (same schema, same delta); that check
// belongs to the caller (Builder.Merge), which returns a MergeError on
// mismatch.
func (m *Metadata) Merge(other *Metadata) {
	m.NativeConforming = m.NativeConforming.Grow(other.NativeConforming.Min).Grow(other.NativeConforming.Max)
	if m.srs == "" {
		m.SetSRS(other.SRS())
	}
}
