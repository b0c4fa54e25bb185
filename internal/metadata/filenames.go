package metadata

import "github.com/zhan520/entwine/internal/spatial"

// MetaFilename returns "entwine[-<id>].json" for this build.
func (m *Metadata) MetaFilename() string { return "entwine" + m.Postfix() + ".json" }

// ParamsFilename returns "entwine-params[-<id>].json" for this build.
func (m *Metadata) ParamsFilename() string { return "entwine-params" + m.Postfix() + ".json" }

// FilesFilename returns "entwine-files[-<id>].json" for this build.
func (m *Metadata) FilesFilename() string { return "entwine-files" + m.Postfix() + ".json" }

// ChunkFilename returns "<d>-<x>-<y>-<z>[-<id>].<ext>" for key. Depths
// shallower than sharedDepth (= spatial.SharedDepth(m.Subset.Of)) are the
// replicated prefix every subset writes independently, so the subset
// postfix distinguishes one subset's copy of that shallow key from
// another's; at sharedDepth and below, spatial.SubsetOwner has already
// routed each point to exactly one subset, so the key is exclusively
// owned and needs no postfix to avoid collision.
func (m *Metadata) ChunkFilename(key spatial.Key, sharedDepth uint32, ext string) string {
	postfix := ""
	if key.Depth < sharedDepth {
		postfix = m.Postfix()
	}
	return key.String() + postfix + "." + ext
}

// ChunkIndexFilename returns "entwine-chunks[-<id>].json" for this build:
// the chunk tree's topology (which keys exist and whether each had split),
// persisted alongside the chunk payloads so a later reload can walk the
// tree shape without an Endpoint listing capability.
func (m *Metadata) ChunkIndexFilename() string { return "entwine-chunks" + m.Postfix() + ".json" }
