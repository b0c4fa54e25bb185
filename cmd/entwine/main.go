// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command entwine builds or merges a spatial index from a JSON config
// file, following cmd/cc-backend's flag/signal/graceful-shutdown wiring.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/zhan520/entwine/internal/builder"
	"github.com/zhan520/entwine/internal/config"
	"github.com/zhan520/entwine/internal/entwineerr"
	"github.com/zhan520/entwine/internal/executor"
	"github.com/zhan520/entwine/internal/merger"
	"github.com/zhan520/entwine/internal/metadata"
	"github.com/zhan520/entwine/internal/statusserver"
	"github.com/zhan520/entwine/pkg/log"
)

// exit codes per the config table's CLI wrapper contract.
const (
	exitOK   = 0
	exitConf = 1
	exitFail = 2
)

func main() {
	cliInit()
	log.SetLogLevel(flagLogLevel)
	log.SetLogDateTime(flagLogDateTime)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("loading .env failed: %s", err.Error())
	}

	cfg, err := config.Load(flagConfigFile)
	if err != nil {
		log.Errorf("config error: %s", err.Error())
		os.Exit(exitConf)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("received shutdown signal, finishing in-flight work...")
		cancel()
	}()

	var status *statusserver.Server
	if flagStatusAddr != "" {
		status = statusserver.New(flagStatusAddr)
		go func() {
			if err := status.Run(ctx); err != nil {
				log.Errorf("status server stopped: %s", err.Error())
			}
		}()
	}

	if flagMerge {
		runMerge(ctx, cfg)
		return
	}

	exec := executor.CSVExecutor{}
	b, err := builder.New(ctx, cfg, exec)
	if err != nil {
		log.Errorf("build init failed: %s", err.Error())
		os.Exit(exitFromErr(err))
	}

	b.Go(ctx, flagMaxFiles)

	stopReporting := make(chan struct{})
	if status != nil {
		go watchProgress(status, b, stopReporting)
	}

	err = b.Save(ctx)
	close(stopReporting)
	if err != nil {
		log.Errorf("save failed: %s", err.Error())
		os.Exit(exitFromErr(err))
	}

	log.Info("build complete")
	os.Exit(exitOK)
}

func runMerge(ctx context.Context, cfg config.Config) {
	m, err := merger.New(ctx, cfg, executor.CSVExecutor{})
	if err != nil {
		log.Errorf("merge init failed: %s", err.Error())
		os.Exit(exitFromErr(err))
	}

	if err := m.Go(ctx); err != nil {
		log.Errorf("merge failed: %s", err.Error())
		os.Exit(exitFromErr(err))
	}

	log.Info("merge complete")
	os.Exit(exitOK)
}

// watchProgress reports Manifest state to status every second until
// stop is closed, letting /status reflect an in-progress build rather
// than only the final tally.
func watchProgress(status *statusserver.Server, b *builder.Builder, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			reportProgress(status, b)
			return
		case <-ticker.C:
			reportProgress(status, b)
		}
	}
}

func reportProgress(status *statusserver.Server, b *builder.Builder) {
	snap := b.Manifest.Snapshot()
	p := statusserver.Progress{TotalFiles: len(snap)}
	for _, f := range snap {
		switch f.Status {
		case metadata.Inserted:
			p.InsertedFiles++
			p.Inserted += f.Inserted
		case metadata.Error:
			p.ErroredFiles++
		}
	}
	status.Set(p)
}

func exitFromErr(err error) int {
	var ee *entwineerr.Error
	if errors.As(err, &ee) && ee.Kind == entwineerr.ConfigError {
		return exitConf
	}
	return exitFail
}
