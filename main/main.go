// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"net/http"
	"os"

	log "github.com/inconshreveable/log15"

	"github.com/slatevm/slate/harness"
	"github.com/slatevm/slate/manifest"
	"github.com/slatevm/slate/service"
	"github.com/slatevm/slate/vm"
)

func main() {
	v, err := getViper()
	if err != nil {
		fmt.Printf("couldn't get config: %s\n", err)
		os.Exit(1)
	}

	// Print version and exit
	if v.GetBool(versionKey) {
		fmt.Printf("%s@%s\n", vm.Name, vm.Version)
		os.Exit(0)
	}

	level, err := log.LvlFromString(v.GetString(logLevelKey))
	if err != nil {
		fmt.Printf("invalid log level: %s\n", err)
		os.Exit(1)
	}
	log.Root().SetHandler(log.LvlFilterHandler(level, log.StreamHandler(os.Stdout, log.TerminalFormat())))

	config := harness.Config{
		ChainID:     uint32(v.GetUint(chainIDKey)),
		Parallelism: v.GetInt(parallelismKey),
		PruneWindow: v.GetUint64(pruneWindowKey),
	}

	var ledger *harness.Harness
	if path := v.GetString(manifestKey); path != "" {
		m, err := manifest.ParseFile(path)
		if err != nil {
			log.Error("couldn't load manifest", "path", path, "err", err)
			os.Exit(1)
		}
		ledger, err = harness.NewFromManifest(m, config)
		if err != nil {
			log.Error("couldn't boot ledger from manifest", "err", err)
			os.Exit(1)
		}
	} else {
		ledger, err = harness.New(config)
		if err != nil {
			log.Error("couldn't boot ledger", "err", err)
			os.Exit(1)
		}
	}
	defer func() { _ = ledger.Close() }()

	handler, err := service.NewHandler(ledger)
	if err != nil {
		log.Error("couldn't create RPC handler", "err", err)
		os.Exit(1)
	}

	addr := v.GetString(httpAddrKey)
	log.Info("serving ledger RPC", "addr", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Error("server returned an error", "err", err)
		os.Exit(1)
	}
}
