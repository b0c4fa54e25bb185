// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package builder

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strconv"

	"github.com/zhan520/entwine/internal/chunk"
	"github.com/zhan520/entwine/internal/entwineerr"
	"github.com/zhan520/entwine/internal/hierarchy"
	"github.com/zhan520/entwine/internal/metadata"
	"github.com/zhan520/entwine/internal/registry"
	"github.com/zhan520/entwine/internal/spatial"
)

var (
	errNotSubsetZero = errors.New("merge target must be subset 0")
	errNotSubset     = errors.New("merge source must be a subset build")
	errMetaMismatch  = errors.New("merge source has a different delta or schema")
)

// awaken reloads a previously saved index's metadata, manifest and
// hierarchy from b.endpoint rather than reinitialising them.
func (b *Builder) awaken(ctx context.Context) error {
	m := &metadata.Metadata{}
	metaName := "entwine.json"
	if b.cfg.Subset != nil {
		metaName = "entwine-" + strconv.FormatUint(b.cfg.Subset.Id, 10) + ".json"
	}
	raw, err := b.endpoint.Get(ctx, metaName)
	if err != nil {
		return entwineerr.New(entwineerr.StorageError, metaName, err)
	}
	if err := m.UnmarshalJSON(raw); err != nil {
		return entwineerr.New(entwineerr.StorageError, metaName, err)
	}
	b.Metadata = m

	filesRaw, err := b.endpoint.Get(ctx, m.FilesFilename())
	if err != nil {
		return entwineerr.New(entwineerr.StorageError, m.FilesFilename(), err)
	}
	var filesDoc struct {
		Files []metadata.FileInfo `json:"files"`
	}
	if err := json.Unmarshal(filesRaw, &filesDoc); err != nil {
		return entwineerr.New(entwineerr.StorageError, m.FilesFilename(), err)
	}
	b.Manifest = metadata.NewManifest(nil)
	b.Manifest.Files = filesDoc.Files

	b.Hier = hierarchy.New()
	// Without a listing capability on Endpoint, only the root block (the
	// one guaranteed to exist) is re-read; deeper blocks awaken lazily
	// as chunks are re-touched during a resumed build. See DESIGN.md.
	rootBlock := hierarchy.BlockFilename(spatial.Key{})
	if blockRaw, err := b.endpoint.Get(ctx, rootBlock); err == nil {
		if counts, err := hierarchy.UnmarshalBlock(blockRaw); err == nil {
			b.Hier.Load(counts)
		}
	}

	chunkCfg := chunk.Config{Splits: uint32(b.cfg.Splits), OverflowDepth: b.cfg.OverflowDepth, OverflowRatio: b.cfg.OverflowRatio}
	b.Registry = registry.New(b.Metadata.ScaledCubic, chunkCfg, b.Hier, b.endpoint, b.codec)
	b.Registry.SetNamer(chunkNamer(b.Metadata, b.codec))

	indexRaw, err := b.endpoint.Get(ctx, b.Metadata.ChunkIndexFilename())
	if err != nil {
		// No persisted chunk index: either a build saved before this
		// index existed, or a build that never reached Save. Either way
		// the registry stays a fresh, empty tree, matching prior behavior.
		return nil
	}
	var entries []registry.ChunkIndexEntry
	if err := json.Unmarshal(indexRaw, &entries); err != nil {
		return entwineerr.New(entwineerr.StorageError, b.Metadata.ChunkIndexFilename(), err)
	}
	if err := b.Registry.Reload(ctx, entries, b.pool); err != nil {
		return err
	}
	return nil
}

func (b *Builder) saveMetadata(ctx context.Context) error {
	data, err := b.Metadata.MarshalJSON()
	if err != nil {
		return entwineerr.New(entwineerr.StorageError, b.Metadata.MetaFilename(), err)
	}
	if err := b.endpoint.Put(ctx, b.Metadata.MetaFilename(), data); err != nil {
		return entwineerr.New(entwineerr.StorageError, b.Metadata.MetaFilename(), err)
	}

	filesDoc := struct {
		Files []metadata.FileInfo `json:"files"`
	}{Files: b.Manifest.Snapshot()}
	filesData, err := json.Marshal(filesDoc)
	if err != nil {
		return entwineerr.New(entwineerr.StorageError, b.Metadata.FilesFilename(), err)
	}
	if err := b.endpoint.Put(ctx, b.Metadata.FilesFilename(), filesData); err != nil {
		return entwineerr.New(entwineerr.StorageError, b.Metadata.FilesFilename(), err)
	}
	return nil
}

// saveChunkIndex persists the chunk tree's topology (Registry.Index)
// alongside its payloads, so a later awaken can Reload real cells rather
// than starting from an empty tree.
func (b *Builder) saveChunkIndex(ctx context.Context) error {
	data, err := json.Marshal(b.Registry.Index())
	if err != nil {
		return entwineerr.New(entwineerr.StorageError, b.Metadata.ChunkIndexFilename(), err)
	}
	if err := b.endpoint.Put(ctx, b.Metadata.ChunkIndexFilename(), data); err != nil {
		return entwineerr.New(entwineerr.StorageError, b.Metadata.ChunkIndexFilename(), err)
	}
	return nil
}

func (b *Builder) saveHierarchy(ctx context.Context) error {
	blocks := hierarchy.Blocks(b.Hier.Snapshot())
	for blockKey, block := range blocks {
		data, err := hierarchy.MarshalBlock(block)
		if err != nil {
			return entwineerr.New(entwineerr.StorageError, blockKey.String(), err)
		}
		name := hierarchy.BlockFilename(blockKey)
		if err := b.endpoint.Put(ctx, name, data); err != nil {
			return entwineerr.New(entwineerr.StorageError, name, err)
		}
	}
	return nil
}

// Merge requires b to be subset 0 (the primary, 0-based per
// original_source's merger.cpp convention: setSubsetId(0)) and other a
// sibling subset build with the same delta and schema: it cycles other's
// work and clip pools to quiescence, then folds other's registry and
// metadata into b's. Registry.Merge counts each of other's cells into b's
// hierarchy as it reinserts them, so other's hierarchy is not added again.
func (b *Builder) Merge(other *Builder) error {
	if b.Metadata.Subset == nil || b.Metadata.Subset.Id != 0 {
		return entwineerr.New(entwineerr.MergeError, b.Metadata.MetaFilename(), errNotSubsetZero)
	}
	if other.Metadata.Subset == nil {
		return entwineerr.New(entwineerr.MergeError, other.Metadata.MetaFilename(), errNotSubset)
	}
	if b.Metadata.Delta != other.Metadata.Delta || !reflect.DeepEqual(b.Metadata.Schema, other.Metadata.Schema) {
		return entwineerr.New(entwineerr.MergeError, other.Metadata.MetaFilename(), errMetaMismatch)
	}

	other.workPool.Cycle()
	other.clipPool.Cycle()

	if err := b.Registry.Merge(other.Registry); err != nil {
		return err
	}
	b.Metadata.Merge(other.Metadata)
	return nil
}
