// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metadata holds the index's persisted, non-chunk state: bounds,
// schema, SRS, the build's parameter record, and the file manifest.
// Struct shape follows the metric store config's typed-struct-plus-
// package-default pattern; bounds/cubify semantics follow
// original_source's metadata.cpp.
package metadata

import "sync"

// FileStatus is the lifecycle of one input file's insertion.
type FileStatus string

const (
	Outstanding FileStatus = "Outstanding"
	Inserted    FileStatus = "Inserted"
	Omitted     FileStatus = "Omitted"
	Error       FileStatus = "Error"
)

// FileInfo is one manifest entry.
type FileInfo struct {
	Path        string     `json:"path"`
	Status      FileStatus `json:"status"`
	Inserted    uint64     `json:"inserted"`
	OutOfBounds uint64     `json:"outOfBounds"`
	// ForeignSubset counts points that fell within the index's bounds but
	// outside this build's own subset partition (see spatial.SubsetOwner):
	// legitimately skipped, not an error, and kept distinct from
	// OutOfBounds so a subset build's conservation count stays meaningful.
	ForeignSubset uint64 `json:"foreignSubset,omitempty"`
	Message       string `json:"message,omitempty"`
}

// Manifest is the append-only list of input files with per-file status,
// awakened (loaded) at build start.
type Manifest struct {
	mu      sync.Mutex
	Files   []FileInfo `json:"files"`
	claimed map[int]bool
}

// NewManifest creates a manifest with every path marked Outstanding.
func NewManifest(paths []string) *Manifest {
	m := &Manifest{Files: make([]FileInfo, len(paths)), claimed: make(map[int]bool)}
	for i, p := range paths {
		m.Files[i] = FileInfo{Path: p, Status: Outstanding}
	}
	return m
}

// Next returns the next Outstanding, not-yet-claimed file's index. It
// returns ok=false once every file has left the Outstanding state or been
// claimed by a concurrent caller.
func (m *Manifest) Next() (index int, info FileInfo, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, f := range m.Files {
		if f.Status == Outstanding && !m.claimed[i] {
			return i, f, true
		}
	}
	return 0, FileInfo{}, false
}

// Claim marks index as being worked on so a subsequent Next call skips it.
// The claim lives only in memory and Complete does not clear it; once
// Complete has recorded a status, Next skips the file by status as well.
func (m *Manifest) Claim(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimed == nil {
		m.claimed = make(map[int]bool)
	}
	m.claimed[index] = true
}

// Complete records the outcome of inserting the file at index.
func (m *Manifest) Complete(index int, status FileStatus, insertedCount, outOfBounds, foreignSubset uint64, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := &m.Files[index]
	f.Status = status
	f.Inserted = insertedCount
	f.OutOfBounds = outOfBounds
	f.ForeignSubset = foreignSubset
	f.Message = message
}

// Snapshot returns a copy of the manifest's files, safe to serialize
// without holding the manifest lock.
func (m *Manifest) Snapshot() []FileInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FileInfo, len(m.Files))
	copy(out, m.Files)
	return out
}
