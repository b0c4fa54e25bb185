// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads and validates the build configuration described in
// the top-level config JSON: input files, output endpoint, chunking
// parameters, storage formats and the optional subset/reprojection blocks.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/zhan520/entwine/internal/entwineerr"
	"github.com/zhan520/entwine/internal/spatial"
)

// StringList accepts either a single string or a JSON array of strings, per
// the config table's "string | [string]" input field.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringList{single}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = list
	return nil
}

// Reprojection describes an optional SRS transform applied during fetch.
type Reprojection struct {
	In     string `json:"in"`
	Out    string `json:"out"`
	Hammer bool   `json:"hammer,omitempty"`
}

// Subset identifies which portion of a partitioned build this run covers.
type Subset struct {
	Id uint64 `json:"id"`
	Of uint64 `json:"of"`
}

// Threads holds the combined worker count, or a split (work, clip) pair.
type Threads struct {
	Work uint64
	Clip uint64
}

// UnmarshalJSON accepts either a single combined thread count or a
// [work, clip] pair, per the config table's "u64 | [u64, u64]" field.
func (t *Threads) UnmarshalJSON(data []byte) error {
	var combined uint64
	if err := json.Unmarshal(data, &combined); err == nil {
		// Reserve roughly a quarter of the pool for clipping, matching the
		// "heuristic" default spec.md leaves for sleepCount's sibling knob.
		clip := combined / 4
		if clip == 0 {
			clip = 1
		}
		*t = Threads{Work: combined, Clip: clip}
		return nil
	}

	var pair [2]uint64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	*t = Threads{Work: pair[0], Clip: pair[1]}
	return nil
}

// DataStorage enumerates chunk payload formats.
type DataStorage string

const (
	DataStorageLaszip DataStorage = "laszip"
	DataStorageBinary DataStorage = "binary"
)

// Extension returns the file suffix used for chunk blobs of this kind.
func (d DataStorage) Extension() string {
	if d == DataStorageBinary {
		return "bin"
	}
	return "laz"
}

// HierarchyStorage enumerates hierarchy block formats. JSON is the only
// kind spec.md names.
type HierarchyStorage string

const HierarchyStorageJSON HierarchyStorage = "json"

// Config is the full set of top-level fields recognised in the build
// config JSON.
type Config struct {
	Input  StringList `json:"input"`
	Output string     `json:"output"`
	Tmp    string   `json:"tmp"`

	Threads Threads `json:"threads"`

	Splits        uint64  `json:"splits"`
	OverflowDepth uint64  `json:"overflowDepth"`
	OverflowRatio float64 `json:"overflowRatio"`

	DataStorage      DataStorage      `json:"dataStorage"`
	HierarchyStorage HierarchyStorage `json:"hierarchyStorage"`

	SleepCount   uint64 `json:"sleepCount"`
	TrustHeaders bool   `json:"trustHeaders"`
	Force        bool   `json:"force"`

	Scale  spatial.Vec3 `json:"scale"`
	Offset spatial.Vec3 `json:"offset"`

	Reprojection *Reprojection `json:"reprojection,omitempty"`
	Subset       *Subset       `json:"subset,omitempty"`

	Verbose bool `json:"verbose"`
}

// Default holds the field defaults from the config table; Load starts from
// a copy of this and overlays whatever the caller's JSON sets.
var Default = Config{
	Tmp:              os.TempDir(),
	Threads:          Threads{Work: 8, Clip: 2},
	Splits:           8,
	OverflowDepth:    4,
	OverflowRatio:    0.5,
	DataStorage:      DataStorageLaszip,
	HierarchyStorage: HierarchyStorageJSON,
	TrustHeaders:     true,
	Scale:            spatial.Vec3{X: 0.01, Y: 0.01, Z: 0.01},
}

// Delta builds the spatial.Delta implied by this config's scale/offset.
func (c Config) Delta() spatial.Delta {
	return spatial.Delta{Scale: c.Scale, Offset: c.Offset}
}

// DefaultSleepCount derives the clipper's sleep count (inserts between
// clips) from the work thread count when a config leaves sleepCount unset:
// 65536 inserts per work thread, and never fewer than 65536.
func DefaultSleepCount(workThreads uint64) uint64 {
	if workThreads == 0 {
		return 65536
	}
	return workThreads * 65536
}

// checkTmpIsLocal rejects a tmp directory expressed as a remote URL; tmp is
// scratch space for in-progress chunk serialization and must be reachable
// through the local filesystem regardless of where output/input point.
func checkTmpIsLocal(tmp string) error {
	u, err := url.Parse(tmp)
	if err != nil || u.Scheme == "" || u.Scheme == "file" {
		return nil
	}
	return fmt.Errorf("tmp must be a local path, got scheme %q", u.Scheme)
}

// Load reads, schema-validates and decodes the config file at path,
// overlaying it onto Default. Unknown fields are rejected so typos in a
// hand-written config surface as a ConfigError rather than being silently
// ignored.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, entwineerr.New(entwineerr.ConfigError, path, err)
	}

	if err := Validate(raw); err != nil {
		return Config{}, entwineerr.New(entwineerr.ConfigError, path, err)
	}

	cfg := Default
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, entwineerr.New(entwineerr.ConfigError, path, err)
	}

	if len(cfg.Input) == 0 {
		return Config{}, entwineerr.New(entwineerr.ConfigError, path, errors.New("at least one input file required"))
	}
	if cfg.Output == "" {
		return Config{}, entwineerr.New(entwineerr.ConfigError, path, errors.New("output endpoint required"))
	}
	if err := checkTmpIsLocal(cfg.Tmp); err != nil {
		return Config{}, entwineerr.New(entwineerr.ConfigError, path, err)
	}
	if cfg.SleepCount == 0 {
		cfg.SleepCount = DefaultSleepCount(cfg.Threads.Work)
	}

	return cfg, nil
}
