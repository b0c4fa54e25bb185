// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hierarchy

import (
	"encoding/json"

	"github.com/zhan520/entwine/internal/spatial"
)

// BlockDepth is the fixed tree depth at which hierarchy nodes are grouped
// into block files: every node at or above BlockDepth gets its own block
// keyed by its own "d-x-y-z"; deeper nodes fold into their ancestor's
// block at BlockDepth. This mirrors the checkpoint format's one-file-per-
// host granularity (a fixed depth, not a dynamic size threshold) — see the
// Open Question resolution in DESIGN.md.
const BlockDepth = 6

// ancestorAt returns the key of key's ancestor at depth d (d <= key.Depth).
func ancestorAt(key spatial.Key, d uint32) spatial.Key {
	if key.Depth <= d {
		return key
	}
	shift := key.Depth - d
	a := spatial.Key{Depth: d}
	a.Position[0] = key.Position[0] >> shift
	a.Position[1] = key.Position[1] >> shift
	a.Position[2] = key.Position[2] >> shift
	return a
}

// blockKeyFor returns the block a node belongs to.
func blockKeyFor(key spatial.Key) spatial.Key {
	if key.Depth <= BlockDepth {
		return key
	}
	return ancestorAt(key, BlockDepth)
}

// Blocks partitions a hierarchy snapshot into per-block JSON-ready maps,
// one per distinct block key, each mapping "d-x-y-z" -> count.
func Blocks(counts map[spatial.Key]uint64) map[spatial.Key]map[string]uint64 {
	blocks := make(map[spatial.Key]map[string]uint64)
	for key, count := range counts {
		bk := blockKeyFor(key)
		b, ok := blocks[bk]
		if !ok {
			b = make(map[string]uint64)
			blocks[bk] = b
		}
		b[key.String()] = count
	}
	return blocks
}

// MarshalBlock serializes one block to JSON.
func MarshalBlock(block map[string]uint64) ([]byte, error) {
	return json.Marshal(block)
}

// UnmarshalBlock parses one persisted block, returning per-key counts.
func UnmarshalBlock(data []byte) (map[spatial.Key]uint64, error) {
	var raw map[string]uint64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[spatial.Key]uint64, len(raw))
	for s, count := range raw {
		k, err := spatial.ParseKey(s)
		if err != nil {
			return nil, err
		}
		out[k] = count
	}
	return out, nil
}

// BlockFilename returns the "h/<d>-<x>-<y>-<z>.json" path for a block key,
// relative to the index's output endpoint.
func BlockFilename(blockKey spatial.Key) string {
	return "h/" + blockKey.String() + ".json"
}
