// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics exposes build progress as prometheus gauges/counters,
// grounded on the teacher's own use of
// github.com/prometheus/client_golang in its HTTP server. Entirely
// optional: a build with no status address configured never serves these,
// and incrementing them against an unregistered registry is a cheap
// no-op.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PointsInserted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "entwine",
		Name:      "points_inserted_total",
		Help:      "Total points successfully routed into the registry.",
	})
	PointsOutOfBounds = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "entwine",
		Name:      "points_out_of_bounds_total",
		Help:      "Total points rejected for falling outside configured bounds.",
	})
	FilesInserted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "entwine",
		Name:      "files_inserted_total",
		Help:      "Total input files successfully inserted.",
	})
	FilesErrored = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "entwine",
		Name:      "files_errored_total",
		Help:      "Total input files that failed insertion.",
	})
	ChunksResident = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "entwine",
		Name:      "chunks_resident",
		Help:      "Chunks currently held in memory.",
	})
	ChunksPersisted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "entwine",
		Name:      "chunks_persisted_total",
		Help:      "Total chunk persistence operations.",
	})
)

// Registry is the collector set a statusserver exposes on /metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		PointsInserted,
		PointsOutOfBounds,
		FilesInserted,
		FilesErrored,
		ChunksResident,
		ChunksPersisted,
	)
}
