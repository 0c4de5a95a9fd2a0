// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"bytes"

	"github.com/ava-labs/avalanchego/ids"
)

// Path domain tags. The first byte of a state path says what kind of
// data lives under it.
const (
	PathTagCode     byte = 0x00
	PathTagResource byte = 0x01
	PathTagRaw      byte = 0x02
)

// Well-known addresses. The root account holds mint authority and is the
// only sender allowed to submit direct write sets. On-chain configuration
// lives under its own reserved address.
var (
	RootAddress   = ids.ShortID{0x01}
	ConfigAddress = ids.ShortID{0x02}
)

// StateKey addresses a single slot of ledger state: a resource, a
// published module, or a raw config entry under an account address.
type StateKey struct {
	Address ids.ShortID `serialize:"true" json:"address"`
	Path    []byte      `serialize:"true" json:"path"`
}

// ResourcePath returns the state path for the named resource.
func ResourcePath(name string) []byte {
	return append([]byte{PathTagResource}, []byte(name)...)
}

// CodePath returns the state path for the named published module.
func CodePath(name string) []byte {
	return append([]byte{PathTagCode}, []byte(name)...)
}

// RawPath returns the state path for a raw entry, used for on-chain
// configuration values.
func RawPath(name string) []byte {
	return append([]byte{PathTagRaw}, []byte(name)...)
}

// ResourceKey is shorthand for the key of [name] resource under [addr].
func ResourceKey(addr ids.ShortID, name string) StateKey {
	return StateKey{Address: addr, Path: ResourcePath(name)}
}

// CodeKey is shorthand for the key of module [name] under [addr].
func CodeKey(addr ids.ShortID, name string) StateKey {
	return StateKey{Address: addr, Path: CodePath(name)}
}

// ConfigKey is shorthand for the key of config entry [name].
func ConfigKey(name string) StateKey {
	return StateKey{Address: ConfigAddress, Path: RawPath(name)}
}

// Bytes returns the canonical database key for this state key:
// the address followed by the path. All ordering of state keys is
// bytewise over this representation.
func (k StateKey) Bytes() []byte {
	b := make([]byte, 0, len(k.Address)+len(k.Path))
	b = append(b, k.Address[:]...)
	return append(b, k.Path...)
}

// Compare orders two state keys bytewise over their canonical bytes.
func (k StateKey) Compare(other StateKey) int {
	return bytes.Compare(k.Bytes(), other.Bytes())
}

// IsCode reports whether this key addresses published module code.
func (k StateKey) IsCode() bool {
	return len(k.Path) > 0 && k.Path[0] == PathTagCode
}

// IsResource reports whether this key addresses an account resource.
func (k StateKey) IsResource() bool {
	return len(k.Path) > 0 && k.Path[0] == PathTagResource
}

func (k StateKey) String() string {
	if len(k.Path) == 0 {
		return k.Address.String()
	}
	return k.Address.String() + "/" + string(k.Path[1:])
}
