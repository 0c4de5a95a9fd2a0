// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"errors"

	"github.com/ava-labs/avalanchego/codec"
	"github.com/ava-labs/avalanchego/codec/linearcodec"
	"github.com/ava-labs/avalanchego/utils/wrappers"
)

const (
	// CodecVersion is the current default codec version
	CodecVersion = 0
)

var (
	// Codec does serialization and deserialization for all ledger types
	Codec codec.Manager

	errWrongCodecVersion = errors.New("wrong codec version")
)

func init() {
	c := linearcodec.NewDefault()
	Codec = codec.NewDefaultManager()

	errs := wrappers.Errs{}

	// Payload implementations must be registered so the interface field
	// of RawTransaction round-trips.
	errs.Add(
		c.RegisterType(&Transfer{}),
		c.RegisterType(&CreateAccount{}),
		c.RegisterType(&Mint{}),
		c.RegisterType(&RotateAuthKey{}),
		c.RegisterType(&Publish{}),
		c.RegisterType(&WriteSetPayload{}),
	)

	errs.Add(
		Codec.RegisterCodec(CodecVersion, c),
	)
	if errs.Errored() {
		panic(errs.Err)
	}
}

// Marshal serializes [value] at the current codec version.
func Marshal(value interface{}) ([]byte, error) {
	return Codec.Marshal(CodecVersion, value)
}

// Unmarshal deserializes [b] into [value], rejecting bytes produced by
// a different codec version.
func Unmarshal(b []byte, value interface{}) error {
	version, err := Codec.Unmarshal(b, value)
	if err != nil {
		return err
	}
	if version != CodecVersion {
		return errWrongCodecVersion
	}
	return nil
}
