// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"github.com/ava-labs/avalanchego/ids"

	"github.com/slatevm/slate/types"
)

// AccountView gives typed access to one account's resources through any
// state view.
type AccountView struct {
	addr ids.ShortID
	view View
}

func NewAccountView(view View, addr ids.ShortID) *AccountView {
	return &AccountView{addr: addr, view: view}
}

// Address returns the account this view reads.
func (a *AccountView) Address() ids.ShortID { return a.addr }

// GetAccountResource returns the account resource, or nil if the
// account does not exist.
func (a *AccountView) GetAccountResource() (*types.AccountResource, error) {
	blob, ok, err := GetValue(a.view, types.ResourceKey(a.addr, types.AccountResourceName))
	if err != nil || !ok {
		return nil, err
	}
	resource := &types.AccountResource{}
	if err := types.Unmarshal(blob, resource); err != nil {
		return nil, err
	}
	return resource, nil
}

// GetBalanceResource returns the balance resource, or nil if the
// account holds no balance.
func (a *AccountView) GetBalanceResource() (*types.BalanceResource, error) {
	blob, ok, err := GetValue(a.view, types.ResourceKey(a.addr, types.BalanceResourceName))
	if err != nil || !ok {
		return nil, err
	}
	resource := &types.BalanceResource{}
	if err := types.Unmarshal(blob, resource); err != nil {
		return nil, err
	}
	return resource, nil
}

// Balance returns the account's coins, zero for a missing balance.
func (a *AccountView) Balance() (uint64, error) {
	resource, err := a.GetBalanceResource()
	if err != nil || resource == nil {
		return 0, err
	}
	return resource.Coins, nil
}

// Exists reports whether the account resource is present.
func (a *AccountView) Exists() (bool, error) {
	resource, err := a.GetAccountResource()
	return resource != nil, err
}

// GetVMConfig reads the on-chain VM configuration.
func GetVMConfig(view View) (*types.VMConfig, error) {
	blob, ok, err := GetValue(view, types.ConfigKey(types.VMConfigName))
	if err != nil || !ok {
		return nil, err
	}
	config := &types.VMConfig{}
	if err := types.Unmarshal(blob, config); err != nil {
		return nil, err
	}
	return config, nil
}

// GetVersionConfig reads the on-chain ledger version.
func GetVersionConfig(view View) (*types.VersionConfig, error) {
	blob, ok, err := GetValue(view, types.ConfigKey(types.VersionConfigName))
	if err != nil || !ok {
		return nil, err
	}
	config := &types.VersionConfig{}
	if err := types.Unmarshal(blob, config); err != nil {
		return nil, err
	}
	return config, nil
}

// GetChainIDConfig reads the on-chain chain identity.
func GetChainIDConfig(view View) (*types.ChainIDConfig, error) {
	blob, ok, err := GetValue(view, types.ConfigKey(types.ChainIDConfigName))
	if err != nil || !ok {
		return nil, err
	}
	config := &types.ChainIDConfig{}
	if err := types.Unmarshal(blob, config); err != nil {
		return nil, err
	}
	return config, nil
}

// GetPublishingOption reads the on-chain module publishing gate.
func GetPublishingOption(view View) (*types.PublishingOption, error) {
	blob, ok, err := GetValue(view, types.ConfigKey(types.PublishingOptionName))
	if err != nil || !ok {
		return nil, err
	}
	option := &types.PublishingOption{}
	if err := types.Unmarshal(blob, option); err != nil {
		return nil, err
	}
	return option, nil
}
