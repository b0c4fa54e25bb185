// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package statusserver serves build progress and prometheus metrics over
// HTTP, grounded on the teacher's cmd/cc-backend wiring of gorilla/mux and
// gorilla/handlers. It is entirely optional: cmd/entwine only starts one
// when the -status-addr flag is set.
package statusserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zhan520/entwine/internal/metrics"
	"github.com/zhan520/entwine/pkg/log"
)

// Progress is the current snapshot served at /status.
type Progress struct {
	InsertedFiles int    `json:"insertedFiles"`
	ErroredFiles  int    `json:"erroredFiles"`
	TotalFiles    int    `json:"totalFiles"`
	Inserted      uint64 `json:"inserted"`
}

// Server serves /status and /metrics on addr until its context is
// cancelled.
type Server struct {
	addr string

	mu       sync.RWMutex
	progress Progress
}

// New creates a status server; call Run to start serving.
func New(addr string) *Server {
	return &Server{addr: addr}
}

// Set updates the progress snapshot /status reports.
func (s *Server) Set(p Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = p
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	p := s.progress
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// server fails to start.
func (s *Server) Run(ctx context.Context) error {
	router := mux.NewRouter()
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         s.addr,
		Handler:      handlers.LoggingHandler(log.InfoWriter, router),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
