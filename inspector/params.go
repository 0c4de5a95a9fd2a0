// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"flag"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	uriKey     = "uri"
	accountKey = "account"
	pathKey    = "path"
	versionKey = "at-version"
)

func buildFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("slate-inspector", flag.ContinueOnError)

	fs.String(uriKey, "http://127.0.0.1:9650", "Ledger RPC endpoint")
	fs.String(accountKey, "", "Account address to inspect")
	fs.String(pathKey, "", "Resource name to read historically, with -at-version")
	fs.Uint64(versionKey, 0, "Ledger version to read the resource at")

	return fs
}

// getViper returns the viper environment for the inspector
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
