// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package service exposes a ledger over JSON-RPC.
package service

import (
	"errors"
	"net/http"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"
	cjson "github.com/ava-labs/avalanchego/utils/json"

	"github.com/slatevm/slate/harness"
	"github.com/slatevm/slate/types"
)

// Name is the service namespace RPC methods are registered under.
const Name = "slate"

var errUnknownAccount = errors.New("account does not exist")

// Service is the RPC front end of a ledger.
type Service struct {
	ledger *harness.Harness
}

// New wraps [ledger] in an RPC service.
func New(ledger *harness.Harness) *Service {
	return &Service{ledger: ledger}
}

// SubmitTransactionArgs carries one hex-encoded signed transaction.
type SubmitTransactionArgs struct {
	TxBytes string `json:"txBytes"`
}

// SubmitTransactionReply reports how the transaction was committed.
type SubmitTransactionReply struct {
	TxID      ids.ID       `json:"txID"`
	Status    string       `json:"status"`
	Discarded bool         `json:"discarded"`
	GasUsed   cjson.Uint64 `json:"gasUsed"`
}

// SubmitTransaction executes one signed transaction as its own block.
func (s *Service) SubmitTransaction(_ *http.Request, args *SubmitTransactionArgs, reply *SubmitTransactionReply) error {
	log.Info("slate.submitTransaction called")

	txBytes, err := formatting.Decode(formatting.Hex, args.TxBytes)
	if err != nil {
		return err
	}
	txn, err := types.ParseSignedTransaction(txBytes)
	if err != nil {
		return err
	}

	out, err := s.ledger.ExecuteTransaction(txn)
	if err != nil {
		return err
	}
	txID, err := txn.ID()
	if err != nil {
		return err
	}

	reply.TxID = txID
	reply.Status = out.Status.Code.String()
	reply.Discarded = out.Status.Discarded
	reply.GasUsed = cjson.Uint64(out.GasUsed)
	return nil
}

// GetAccountArgs names one account.
type GetAccountArgs struct {
	Address ids.ShortID `json:"address"`
}

// GetAccountReply is the latest view of an account.
type GetAccountReply struct {
	Balance        cjson.Uint64 `json:"balance"`
	SequenceNumber cjson.Uint64 `json:"sequenceNumber"`
	AuthKey        ids.ShortID  `json:"authKey"`
}

// GetAccount returns the balance, sequence number, and auth key of an
// account.
func (s *Service) GetAccount(_ *http.Request, args *GetAccountArgs, reply *GetAccountReply) error {
	log.Info("slate.getAccount called", "address", args.Address)

	account, err := s.ledger.ReadAccountResource(args.Address)
	if err != nil {
		return err
	}
	if account == nil {
		return errUnknownAccount
	}
	balance, err := s.ledger.ReadBalance(args.Address)
	if err != nil {
		return err
	}

	reply.Balance = cjson.Uint64(balance)
	reply.SequenceNumber = cjson.Uint64(account.SequenceNumber)
	reply.AuthKey = account.AuthKey
	return nil
}

// GetAccountStateArgs names one account.
type GetAccountStateArgs struct {
	Address ids.ShortID `json:"address"`
}

// GetAccountStateReply lists what the account stores.
type GetAccountStateReply struct {
	Resources cjson.Uint64 `json:"resources"`
	Modules   []string     `json:"modules"`
}

// GetAccountState summarizes everything stored under an account.
func (s *Service) GetAccountState(_ *http.Request, args *GetAccountStateArgs, reply *GetAccountStateReply) error {
	log.Info("slate.getAccountState called", "address", args.Address)

	accountState, err := s.ledger.ReadAccountState(args.Address)
	if err != nil {
		return err
	}
	reply.Resources = cjson.Uint64(len(accountState.Resources()))
	reply.Modules = []string{}
	for _, entry := range accountState.Entries {
		if len(entry.Path) > 0 && entry.Path[0] == types.PathTagCode {
			reply.Modules = append(reply.Modules, string(entry.Path[1:]))
		}
	}
	return nil
}

// GetLedgerInfoReply describes where the ledger stands.
type GetLedgerInfoReply struct {
	Version        cjson.Uint64 `json:"version"`
	RootHash       ids.ID       `json:"rootHash"`
	ChainID        cjson.Uint32 `json:"chainID"`
	BlockTime      cjson.Uint64 `json:"blockTime"`
	PruneWatermark cjson.Uint64 `json:"pruneWatermark"`
}

// GetLedgerInfo returns the latest version, root hash, chain id, and
// prune watermark.
func (s *Service) GetLedgerInfo(_ *http.Request, _ *struct{}, reply *GetLedgerInfoReply) error {
	log.Info("slate.getLedgerInfo called")

	version, err := s.ledger.LedgerVersion()
	if err != nil {
		return err
	}
	watermark, err := s.ledger.Store().PruneWatermark()
	if err != nil {
		return err
	}

	reply.Version = cjson.Uint64(version)
	reply.RootHash = s.ledger.RootHash()
	reply.ChainID = cjson.Uint32(s.ledger.TxnConfig().ChainID)
	reply.BlockTime = cjson.Uint64(s.ledger.BlockTime())
	reply.PruneWatermark = cjson.Uint64(watermark)
	return nil
}

// GetHistoricalValueArgs addresses one state slot at a version.
type GetHistoricalValueArgs struct {
	Address ids.ShortID  `json:"address"`
	Path    string       `json:"path"`
	Version cjson.Uint64 `json:"version"`
}

// GetHistoricalValueReply is the hex-encoded value, empty when the key
// did not exist at that version.
type GetHistoricalValueReply struct {
	Value  string `json:"value"`
	Exists bool   `json:"exists"`
}

// GetHistoricalValue reads a resource as of a past ledger version.
func (s *Service) GetHistoricalValue(_ *http.Request, args *GetHistoricalValueArgs, reply *GetHistoricalValueReply) error {
	log.Info("slate.getHistoricalValue called", "address", args.Address, "version", uint64(args.Version))

	key := types.ResourceKey(args.Address, args.Path)
	value, err := s.ledger.Store().GetByVersion(key, uint64(args.Version))
	switch {
	case err == nil:
		encoded, err := formatting.EncodeWithChecksum(formatting.Hex, value)
		if err != nil {
			return err
		}
		reply.Value = encoded
		reply.Exists = true
		return nil
	case errors.Is(err, database.ErrNotFound):
		// Absent at that version, which pruned history must not be
		// mistaken for.
		return nil
	default:
		return err
	}
}

// Health reports service liveness.
func (s *Service) Health(_ *http.Request, _ *struct{}, reply *HealthReply) error {
	log.Info("slate.health called")
	version, err := s.ledger.LedgerVersion()
	if err != nil {
		return err
	}
	reply.Healthy = true
	reply.Version = cjson.Uint64(version)
	return nil
}

// HealthReply reports liveness plus the latest version.
type HealthReply struct {
	Healthy bool         `json:"healthy"`
	Version cjson.Uint64 `json:"version"`
}
