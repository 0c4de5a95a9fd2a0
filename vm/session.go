// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"github.com/ava-labs/avalanchego/ids"

	"github.com/slatevm/slate/state"
	"github.com/slatevm/slate/types"
)

// session accumulates the state mutations and events of a single
// transaction before they are frozen into an output. A discarded
// session simply never gets finished.
type session struct {
	view   state.View
	writes map[string]types.WriteOp
	events []types.ContractEvent
}

func newSession(view state.View) *session {
	return &session{
		view:   view,
		writes: make(map[string]types.WriteOp),
	}
}

// get reads through pending writes down to the underlying view.
func (s *session) get(key types.StateKey) ([]byte, bool, error) {
	if op, ok := s.writes[string(key.Bytes())]; ok {
		if op.Deletion {
			return nil, false, nil
		}
		return op.Value, true, nil
	}
	return state.GetValue(s.view, key)
}

func (s *session) put(key types.StateKey, value []byte) {
	s.writes[string(key.Bytes())] = types.WriteOp{Key: key, Value: value}
}

func (s *session) delete(key types.StateKey) {
	s.writes[string(key.Bytes())] = types.WriteOp{Key: key, Deletion: true}
}

// getAccount returns the account resource of [addr], nil if absent.
func (s *session) getAccount(addr ids.ShortID) (*types.AccountResource, error) {
	blob, ok, err := s.get(types.ResourceKey(addr, types.AccountResourceName))
	if err != nil || !ok {
		return nil, err
	}
	resource := &types.AccountResource{}
	if err := types.Unmarshal(blob, resource); err != nil {
		return nil, err
	}
	return resource, nil
}

func (s *session) setAccount(addr ids.ShortID, resource *types.AccountResource) error {
	blob, err := types.Marshal(resource)
	if err != nil {
		return err
	}
	s.put(types.ResourceKey(addr, types.AccountResourceName), blob)
	return nil
}

// getBalance returns the coin balance of [addr], zero if absent.
func (s *session) getBalance(addr ids.ShortID) (uint64, error) {
	blob, ok, err := s.get(types.ResourceKey(addr, types.BalanceResourceName))
	if err != nil || !ok {
		return 0, err
	}
	resource := &types.BalanceResource{}
	if err := types.Unmarshal(blob, resource); err != nil {
		return 0, err
	}
	return resource.Coins, nil
}

func (s *session) setBalance(addr ids.ShortID, coins uint64) error {
	blob, err := types.Marshal(&types.BalanceResource{Coins: coins})
	if err != nil {
		return err
	}
	s.put(types.ResourceKey(addr, types.BalanceResourceName), blob)
	return nil
}

// hasModule reports whether [addr] already published module [name].
func (s *session) hasModule(addr ids.ShortID, name string) (bool, error) {
	_, ok, err := s.get(types.CodeKey(addr, name))
	return ok, err
}

// emit appends an event to [handle]'s stream and advances its counter.
// The caller is responsible for writing the mutated account resource
// holding the handle back to the session.
func (s *session) emit(handle *types.EventHandle, eventType string, data []byte) {
	s.events = append(s.events, types.ContractEvent{
		Key:            handle.Key,
		SequenceNumber: handle.Counter,
		Type:           eventType,
		Data:           data,
	})
	handle.Counter++
}

// finish freezes the session into a write set and its events.
func (s *session) finish() (types.WriteSet, []types.ContractEvent, error) {
	m := types.NewWriteSetMut()
	for _, op := range s.writes {
		if op.Deletion {
			m.Delete(op.Key)
			continue
		}
		m.Put(op.Key, op.Value)
	}
	ws, err := m.Freeze()
	if err != nil {
		return types.WriteSet{}, nil, err
	}
	return ws, s.events, nil
}

// writeCount returns the number of distinct keys the session mutated.
func (s *session) writeCount() uint64 {
	return uint64(len(s.writes))
}
