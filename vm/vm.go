// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"errors"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/version"

	"github.com/slatevm/slate/state"
	"github.com/slatevm/slate/types"
)

const Name = "slatevm"

var (
	Version = version.NewDefaultVersion(0, 2, 1)

	// ErrStartup is returned when the on-chain configuration a VM needs
	// is missing from the state it boots from.
	ErrStartup = errors.New("vm startup failed: on-chain config not found")
)

// VM validates and executes transactions against a state view. It is a
// pure state-transition function: all of its configuration is read from
// on-chain state at construction, and every execution result is
// expressed as a TransactionOutput rather than applied anywhere.
type VM struct {
	config     types.VMConfig
	ledger     types.VersionConfig
	publishing types.PublishingOption
	chainID    uint32
}

// New boots a VM from the configuration stored in [view]. Missing
// configuration is a startup failure, not a per-transaction one.
func New(view state.View) (*VM, error) {
	config, err := state.GetVMConfig(view)
	if err != nil {
		return nil, err
	}
	ledger, err := state.GetVersionConfig(view)
	if err != nil {
		return nil, err
	}
	publishing, err := state.GetPublishingOption(view)
	if err != nil {
		return nil, err
	}
	chainID, err := state.GetChainIDConfig(view)
	if err != nil {
		return nil, err
	}
	if config == nil || ledger == nil || publishing == nil || chainID == nil {
		log.Error("VM startup failed: on-chain config not found")
		return nil, ErrStartup
	}
	return &VM{
		config:     *config,
		ledger:     *ledger,
		publishing: *publishing,
		chainID:    chainID.ID,
	}, nil
}

// NewWithConfig builds a VM directly from configuration, bypassing
// state. Genesis and tests use it; everything else should boot with New.
func NewWithConfig(config types.VMConfig, ledger types.VersionConfig, publishing types.PublishingOption, chainID uint32) *VM {
	return &VM{
		config:     config,
		ledger:     ledger,
		publishing: publishing,
		chainID:    chainID,
	}
}

// Config returns the gas configuration the VM runs with.
func (vm *VM) Config() types.VMConfig { return vm.config }

// ChainID returns the chain the VM accepts transactions for.
func (vm *VM) ChainID() uint32 { return vm.chainID }

// LedgerVersion returns the on-chain version gate.
func (vm *VM) LedgerVersion() types.VersionConfig { return vm.ledger }
