// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import "flag"

var (
	flagConfigFile, flagStatusAddr, flagLogLevel string
	flagMerge                                    bool
	flagMaxFiles                                 int
	flagLogDateTime                              bool
)

func cliInit() {
	flag.StringVar(&flagConfigFile, "config", "./entwine.json", "Path to the build config `file`")
	flag.BoolVar(&flagMerge, "merge", false, "Reconcile every subset of the partitioned build at config.output into subset 0, then exit")
	flag.StringVar(&flagStatusAddr, "status-addr", "", "Address to serve build progress and metrics on, e.g. :7070 (disabled if empty)")
	flag.IntVar(&flagMaxFiles, "max-files", 0, "Stop after submitting this many files (0 means no limit)")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "Sets the logging level: `[debug, info, warn, err, crit]`")
	flag.BoolVar(&flagLogDateTime, "logdate", false, "Add date and time to log messages")
	flag.Parse()
}
