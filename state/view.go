// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"sort"

	"github.com/ava-labs/avalanchego/database"

	"github.com/slatevm/slate/types"
)

// View is read-only access to ledger state at some point in time.
// Missing keys surface database.ErrNotFound.
type View interface {
	Get(key types.StateKey) ([]byte, error)
}

// GetValue reads [key] through [view], mapping absence to (nil, false)
// instead of an error.
func GetValue(view View, key types.StateKey) ([]byte, bool, error) {
	value, err := view.Get(key)
	switch err {
	case nil:
		return value, true, nil
	case database.ErrNotFound:
		return nil, false, nil
	default:
		return nil, false, err
	}
}

// CachedView wraps a base view with a read-through cache and records
// every key read through it. The executor uses the recorded read set
// both to detect conflicts between speculatively executed transactions
// and to carry touched state alongside a chunk's outputs.
type CachedView struct {
	base   View
	values map[string]cachedValue
	reads  []types.StateKey
}

type cachedValue struct {
	value  []byte
	exists bool
}

func NewCachedView(base View) *CachedView {
	return &CachedView{
		base:   base,
		values: make(map[string]cachedValue),
	}
}

func (v *CachedView) Get(key types.StateKey) ([]byte, error) {
	ck := string(key.Bytes())
	if cached, ok := v.values[ck]; ok {
		if !cached.exists {
			return nil, database.ErrNotFound
		}
		return cached.value, nil
	}

	value, err := v.base.Get(key)
	switch err {
	case nil:
		v.values[ck] = cachedValue{value: value, exists: true}
	case database.ErrNotFound:
		v.values[ck] = cachedValue{}
	default:
		return nil, err
	}
	v.reads = append(v.reads, key)
	return value, err
}

// ReadSet returns the distinct keys read through this view, sorted.
func (v *CachedView) ReadSet() []types.StateKey {
	seen := make(map[string]struct{}, len(v.reads))
	keys := make([]types.StateKey, 0, len(v.reads))
	for _, key := range v.reads {
		ck := string(key.Bytes())
		if _, ok := seen[ck]; ok {
			continue
		}
		seen[ck] = struct{}{}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })
	return keys
}

// ReadsIntersect reports whether any recorded read hits a key in [keys],
// given as canonical key bytes.
func (v *CachedView) ReadsIntersect(keys map[string]struct{}) bool {
	for _, key := range v.reads {
		if _, ok := keys[string(key.Bytes())]; ok {
			return true
		}
	}
	return false
}

// OverlayView is a base view shadowed by an in-memory write overlay.
// The executor stages committed transaction writes here so later
// transactions in the same block observe them.
type OverlayView struct {
	base   View
	values map[string]overlayEntry
}

type overlayEntry struct {
	value   []byte
	deleted bool
}

func NewOverlayView(base View) *OverlayView {
	return &OverlayView{
		base:   base,
		values: make(map[string]overlayEntry),
	}
}

func (v *OverlayView) Get(key types.StateKey) ([]byte, error) {
	if entry, ok := v.values[string(key.Bytes())]; ok {
		if entry.deleted {
			return nil, database.ErrNotFound
		}
		return entry.value, nil
	}
	return v.base.Get(key)
}

// ApplyWriteSet lays [ws] over the view.
func (v *OverlayView) ApplyWriteSet(ws types.WriteSet) {
	for _, op := range ws.Ops {
		v.values[string(op.Key.Bytes())] = overlayEntry{
			value:   op.Value,
			deleted: op.Deletion,
		}
	}
}

// Dirty reports whether the overlay shadows any key at all.
func (v *OverlayView) Dirty() bool { return len(v.values) > 0 }
