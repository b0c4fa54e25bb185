// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zhan520/entwine/internal/entwineerr"
	"github.com/zhan520/entwine/internal/storage"
	"github.com/zhan520/entwine/pkg/log"
)

const maxFetchRetries = 8

// fetchToLocal resolves one input path to a local, readable file: a plain
// local path is returned as-is; anything else is fetched through
// endpoint and written into tmpDir. Fetch is retried up to 8 times with
// linear backoff in seconds starting at 0, per the concurrency model's
// timeout policy.
func fetchToLocal(ctx context.Context, path, tmpDir string, endpoint storage.Endpoint) (string, error) {
	if !isRemote(path) {
		return path, nil
	}

	key := strings.TrimPrefix(path, "s3://")
	if i := strings.Index(key, "/"); i >= 0 {
		key = key[i+1:]
	}

	var lastErr error
	for attempt := 0; attempt < maxFetchRetries; attempt++ {
		if attempt > 0 {
			log.Debugf("fetch retry %d/%d for %s: %v", attempt, maxFetchRetries, path, lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		data, err := endpoint.Get(ctx, key)
		if err != nil {
			lastErr = err
			continue
		}

		local := filepath.Join(tmpDir, filepath.Base(key))
		if err := os.WriteFile(local, data, 0o644); err != nil {
			return "", err
		}
		return local, nil
	}

	return "", entwineerr.New(entwineerr.FetchError, path, errors.Join(lastErr, errors.New("exhausted retries")))
}

func isRemote(path string) bool {
	return strings.Contains(path, "://")
}
