// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"flag"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	versionKey     = "version"
	httpAddrKey    = "http-addr"
	chainIDKey     = "chain-id"
	parallelismKey = "parallelism"
	pruneWindowKey = "prune-window"
	manifestKey    = "manifest"
	logLevelKey    = "log-level"
)

func buildFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("slated", flag.ContinueOnError)

	fs.Bool(versionKey, false, "If true, prints version and quits")
	fs.String(httpAddrKey, ":9650", "Address the RPC server listens on")
	fs.Uint(chainIDKey, 4, "Chain id written at genesis")
	fs.Int(parallelismKey, 0, "Parallel execution workers, 0 runs blocks sequentially")
	fs.Uint64(pruneWindowKey, 1000, "Historical versions retained behind the latest one")
	fs.String(manifestKey, "", "Path to a package manifest configuring the ledger")
	fs.String(logLevelKey, "info", "Log level")

	return fs
}

// getViper returns the viper environment for the daemon
func getViper() (*viper.Viper, error) {
	v := viper.New()

	fs := buildFlagSet()
	pflag.CommandLine.AddGoFlagSet(fs)
	pflag.Parse()
	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	return v, nil
}
