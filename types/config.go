// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package types

// Config entry names under ConfigAddress.
const (
	VMConfigName         = "vm_config"
	VersionConfigName    = "version"
	PublishingOptionName = "publishing_option"
	ChainIDConfigName    = "chain_id"
)

// GasConstants bound what a transaction may cost and charge.
type GasConstants struct {
	// Hard cap on the serialized size of a signed transaction.
	MaxTransactionSizeBytes uint64 `serialize:"true" json:"maxTransactionSizeBytes"`
	// Upper bound on the max gas amount any transaction may declare.
	MaximumNumberOfGasUnits uint64 `serialize:"true" json:"maximumNumberOfGasUnits"`
	// Bounds on the declared gas unit price.
	MinPricePerGasUnit uint64 `serialize:"true" json:"minPricePerGasUnit"`
	MaxPricePerGasUnit uint64 `serialize:"true" json:"maxPricePerGasUnit"`
	// Floor charged to every transaction regardless of size.
	MinTransactionGasUnits uint64 `serialize:"true" json:"minTransactionGasUnits"`
	// Per-byte surcharge for transactions larger than the cutoff.
	IntrinsicGasPerByte     uint64 `serialize:"true" json:"intrinsicGasPerByte"`
	LargeTransactionCutoff  uint64 `serialize:"true" json:"largeTransactionCutoff"`
	// Charge per write op committed to global state.
	GlobalWriteGasPerOp uint64 `serialize:"true" json:"globalWriteGasPerOp"`
}

// DefaultGasConstants returns the constants written at genesis.
func DefaultGasConstants() GasConstants {
	return GasConstants{
		MaxTransactionSizeBytes: 4096,
		MaximumNumberOfGasUnits: 4_000_000,
		MinPricePerGasUnit:      0,
		MaxPricePerGasUnit:      10_000,
		MinTransactionGasUnits:  600,
		IntrinsicGasPerByte:     8,
		LargeTransactionCutoff:  600,
		GlobalWriteGasPerOp:     300,
	}
}

// IntrinsicGas returns the minimum gas a transaction of [sizeBytes]
// must be able to pay for: the flat floor, plus a per-byte surcharge on
// the portion above the large-transaction cutoff.
func (g GasConstants) IntrinsicGas(sizeBytes uint64) uint64 {
	if sizeBytes <= g.LargeTransactionCutoff {
		return g.MinTransactionGasUnits
	}
	return g.MinTransactionGasUnits + (sizeBytes-g.LargeTransactionCutoff)*g.IntrinsicGasPerByte
}

// VMConfig is the on-chain VM configuration.
type VMConfig struct {
	GasConstants GasConstants `serialize:"true" json:"gasConstants"`
}

// DefaultVMConfig returns the configuration written at genesis.
func DefaultVMConfig() VMConfig {
	return VMConfig{GasConstants: DefaultGasConstants()}
}

// VersionConfig is the on-chain ledger version gate.
type VersionConfig struct {
	Major uint64 `serialize:"true" json:"major"`
}

// PublishingOption controls whether non-root accounts may publish
// modules.
type PublishingOption struct {
	Open bool `serialize:"true" json:"open"`
}

// ChainIDConfig pins the chain every transaction must name.
type ChainIDConfig struct {
	ID uint32 `serialize:"true" json:"id"`
}
