// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTmpConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTmpConfig(t, `{"input": "a.las", "output": "./out"}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, Default.Splits, cfg.Splits)
	assert.Equal(t, Default.OverflowDepth, cfg.OverflowDepth)
	assert.Equal(t, Default.DataStorage, cfg.DataStorage)
	assert.Equal(t, StringList{"a.las"}, cfg.Input)
}

func TestLoadThreadsCombined(t *testing.T) {
	path := writeTmpConfig(t, `{"input": "a.las", "output": "./out", "threads": 16}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), cfg.Threads.Work)
	assert.Equal(t, uint64(4), cfg.Threads.Clip)
}

func TestLoadThreadsSplitPair(t *testing.T) {
	path := writeTmpConfig(t, `{"input": "a.las", "output": "./out", "threads": [10, 3]}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), cfg.Threads.Work)
	assert.Equal(t, uint64(3), cfg.Threads.Clip)
}

func TestLoadMissingOutputFails(t *testing.T) {
	path := writeTmpConfig(t, `{"input": "a.las"}`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeTmpConfig(t, `{"input": "a.las", "output": "./out", "bogus": true}`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadScaleScalarOrVec3(t *testing.T) {
	path := writeTmpConfig(t, `{"input": "a.las", "output": "./out", "scale": 0.001}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.001, cfg.Scale.X)
	assert.Equal(t, 0.001, cfg.Scale.Z)

	path2 := writeTmpConfig(t, `{"input": "a.las", "output": "./out", "scale": [0.1, 0.2, 0.3]}`)
	cfg2, err := Load(path2)
	require.NoError(t, err)
	assert.Equal(t, 0.1, cfg2.Scale.X)
	assert.Equal(t, 0.3, cfg2.Scale.Z)
}

func TestDataStorageExtension(t *testing.T) {
	assert.Equal(t, "laz", DataStorageLaszip.Extension())
	assert.Equal(t, "bin", DataStorageBinary.Extension())
}

func TestLoadDerivesSleepCountWhenUnset(t *testing.T) {
	path := writeTmpConfig(t, `{"input": "a.las", "output": "./out", "threads": 12}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultSleepCount(12), cfg.SleepCount)
}

func TestLoadKeepsExplicitSleepCount(t *testing.T) {
	path := writeTmpConfig(t, `{"input": "a.las", "output": "./out", "sleepCount": 7}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), cfg.SleepCount)
}

func TestLoadRejectsRemoteTmp(t *testing.T) {
	path := writeTmpConfig(t, `{"input": "a.las", "output": "./out", "tmp": "s3://bucket/scratch"}`)

	_, err := Load(path)
	require.Error(t, err)
}
