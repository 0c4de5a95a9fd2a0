// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// The inspector is a read-only CLI over a running ledger service: it
// prints where the ledger stands, what an account holds, and what a
// resource looked like at a past version.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"

	"github.com/slatevm/slate/client"
)

func main() {
	v, err := getViper()
	if err != nil {
		fmt.Printf("couldn't get config: %s\n", err)
		os.Exit(1)
	}

	cli := client.New(v.GetString(uriKey))
	ctx := context.Background()

	version, rootHash, watermark, err := cli.GetLedgerInfo(ctx)
	if err != nil {
		fmt.Printf("couldn't reach ledger: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("ledger version: %d\n", version)
	fmt.Printf("root hash:      %s\n", rootHash)
	fmt.Printf("prune watermark: %d\n", watermark)

	account := v.GetString(accountKey)
	if account == "" {
		return
	}
	addr, err := ids.ShortFromString(account)
	if err != nil {
		fmt.Printf("invalid account address %q: %s\n", account, err)
		os.Exit(1)
	}

	balance, seq, authKey, err := cli.GetAccount(ctx, addr)
	if err != nil {
		fmt.Printf("couldn't read account: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("\naccount %s\n", addr)
	fmt.Printf("  balance:         %d\n", balance)
	fmt.Printf("  sequence number: %d\n", seq)
	fmt.Printf("  auth key:        %s\n", authKey)

	path := v.GetString(pathKey)
	if path == "" {
		return
	}
	atVersion := v.GetUint64(versionKey)
	value, exists, err := cli.GetHistoricalValue(ctx, addr, path, atVersion)
	if err != nil {
		fmt.Printf("couldn't read %s at version %d: %s\n", path, atVersion, err)
		os.Exit(1)
	}
	if !exists {
		fmt.Printf("\n%s did not exist at version %d\n", path, atVersion)
		return
	}
	encoded, err := formatting.EncodeWithChecksum(formatting.Hex, value)
	if err != nil {
		fmt.Printf("couldn't encode value: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("\n%s at version %d: %s\n", path, atVersion, encoded)
}
