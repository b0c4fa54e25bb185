// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package storage provides the chunk storage adapter: capability
// interfaces selected once at Metadata construction (no runtime
// monkey-patching), grounded on the archive package's ArchiveBackend
// interface and its "switch cfg.Kind" dispatch.
package storage

import "context"

// Endpoint is a byte-addressed read/write target: a local directory or a
// remote bucket. It owns no chunk-format knowledge; that's ChunkCodec's
// job, kept separate so an endpoint can serve both laszip and binary
// builds without caring which.
type Endpoint interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Exists(ctx context.Context, key string) (bool, error)
}
