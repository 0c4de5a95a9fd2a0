// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"github.com/ava-labs/avalanchego/ids"
)

// Event type tags emitted by the VM.
const (
	EventTypeSentPayment     = "sent_payment"
	EventTypeReceivedPayment = "received_payment"
	EventTypeAccountCreated  = "account_created"
	EventTypeMint            = "mint"
	EventTypeModulePublished = "module_published"
)

// EventKey globally identifies an event stream: the account that created
// the stream plus a per-account creation number.
type EventKey struct {
	Address        ids.ShortID `serialize:"true" json:"address"`
	CreationNumber uint64      `serialize:"true" json:"creationNumber"`
}

// EventHandle lives inside an account resource and tracks the next
// sequence number of its stream.
type EventHandle struct {
	Counter uint64   `serialize:"true" json:"counter"`
	Key     EventKey `serialize:"true" json:"key"`
}

// NewEventHandle returns an empty handle for stream [creationNumber]
// under [addr].
func NewEventHandle(addr ids.ShortID, creationNumber uint64) EventHandle {
	return EventHandle{
		Key: EventKey{Address: addr, CreationNumber: creationNumber},
	}
}

// PaymentEvent is the data payload of sent/received/mint events.
type PaymentEvent struct {
	Amount       uint64      `serialize:"true" json:"amount"`
	Counterparty ids.ShortID `serialize:"true" json:"counterparty"`
}

// ContractEvent is a single event emitted during transaction execution.
type ContractEvent struct {
	Key            EventKey `serialize:"true" json:"key"`
	SequenceNumber uint64   `serialize:"true" json:"sequenceNumber"`
	Type           string   `serialize:"true" json:"type"`
	Data           []byte   `serialize:"true" json:"data"`
}
