// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"context"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"
	cjson "github.com/ava-labs/avalanchego/utils/json"
	"github.com/ava-labs/avalanchego/utils/rpc"

	"github.com/slatevm/slate/service"
	"github.com/slatevm/slate/types"
)

// Client defines ledger service client operations.
type Client interface {
	// SubmitTransaction executes a signed transaction and returns its id,
	// final status name, whether it was discarded, and the gas it used.
	SubmitTransaction(ctx context.Context, txn *types.SignedTransaction) (ids.ID, string, bool, uint64, error)

	// GetAccount fetches the balance, sequence number, and auth key of an
	// account.
	GetAccount(ctx context.Context, addr ids.ShortID) (uint64, uint64, ids.ShortID, error)

	// GetLedgerInfo fetches the latest version, root hash, and prune
	// watermark.
	GetLedgerInfo(ctx context.Context) (uint64, ids.ID, uint64, error)

	// GetHistoricalValue reads a resource as of a past ledger version.
	GetHistoricalValue(ctx context.Context, addr ids.ShortID, path string, version uint64) ([]byte, bool, error)

	// Health checks service liveness.
	Health(ctx context.Context) (bool, error)
}

// New creates a new client object.
func New(uri string) Client {
	req := rpc.NewEndpointRequester(uri, "", "slate")
	return &client{req: req}
}

type client struct {
	req rpc.EndpointRequester
}

func (cli *client) SubmitTransaction(ctx context.Context, txn *types.SignedTransaction) (ids.ID, string, bool, uint64, error) {
	txBytes, err := txn.Bytes()
	if err != nil {
		return ids.Empty, "", false, 0, err
	}
	encoded, err := formatting.EncodeWithChecksum(formatting.Hex, txBytes)
	if err != nil {
		return ids.Empty, "", false, 0, err
	}

	resp := new(service.SubmitTransactionReply)
	err = cli.req.SendRequest(ctx,
		"submitTransaction",
		&service.SubmitTransactionArgs{TxBytes: encoded},
		resp,
	)
	if err != nil {
		return ids.Empty, "", false, 0, err
	}
	return resp.TxID, resp.Status, resp.Discarded, uint64(resp.GasUsed), nil
}

func (cli *client) GetAccount(ctx context.Context, addr ids.ShortID) (uint64, uint64, ids.ShortID, error) {
	resp := new(service.GetAccountReply)
	err := cli.req.SendRequest(ctx,
		"getAccount",
		&service.GetAccountArgs{Address: addr},
		resp,
	)
	if err != nil {
		return 0, 0, ids.ShortEmpty, err
	}
	return uint64(resp.Balance), uint64(resp.SequenceNumber), resp.AuthKey, nil
}

func (cli *client) GetLedgerInfo(ctx context.Context) (uint64, ids.ID, uint64, error) {
	resp := new(service.GetLedgerInfoReply)
	err := cli.req.SendRequest(ctx, "getLedgerInfo", &struct{}{}, resp)
	if err != nil {
		return 0, ids.Empty, 0, err
	}
	return uint64(resp.Version), resp.RootHash, uint64(resp.PruneWatermark), nil
}

func (cli *client) GetHistoricalValue(ctx context.Context, addr ids.ShortID, path string, version uint64) ([]byte, bool, error) {
	resp := new(service.GetHistoricalValueReply)
	err := cli.req.SendRequest(ctx,
		"getHistoricalValue",
		&service.GetHistoricalValueArgs{
			Address: addr,
			Path:    path,
			Version: cjson.Uint64(version),
		},
		resp,
	)
	if err != nil {
		return nil, false, err
	}
	if !resp.Exists {
		return nil, false, nil
	}
	value, err := formatting.Decode(formatting.Hex, resp.Value)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (cli *client) Health(ctx context.Context) (bool, error) {
	resp := new(service.HealthReply)
	err := cli.req.SendRequest(ctx, "health", &struct{}{}, resp)
	if err != nil {
		return false, err
	}
	return resp.Healthy, nil
}
