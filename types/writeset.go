// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"bytes"
	"errors"
	"sort"
)

var errDuplicateWriteKey = errors.New("write set contains duplicate key")

// WriteOp is a single state mutation: either a new value for a key or
// the deletion of that key.
type WriteOp struct {
	Key      StateKey `serialize:"true" json:"key"`
	Value    []byte   `serialize:"true" json:"value"`
	Deletion bool     `serialize:"true" json:"deletion"`
}

// WriteSet is the frozen output of a transaction: its write ops sorted
// by key with no duplicates. A WriteSet is only produced by
// WriteSetMut.Freeze, which enforces both properties.
type WriteSet struct {
	Ops []WriteOp `serialize:"true" json:"ops"`
}

// WriteSetMut accumulates write ops in arbitrary order before freezing.
type WriteSetMut struct {
	ops []WriteOp
}

func NewWriteSetMut() *WriteSetMut {
	return &WriteSetMut{}
}

// Put records a value write for [key].
func (m *WriteSetMut) Put(key StateKey, value []byte) {
	m.ops = append(m.ops, WriteOp{Key: key, Value: value})
}

// Delete records a deletion of [key].
func (m *WriteSetMut) Delete(key StateKey) {
	m.ops = append(m.ops, WriteOp{Key: key, Deletion: true})
}

// Len returns the number of ops recorded so far.
func (m *WriteSetMut) Len() int { return len(m.ops) }

// Freeze sorts the recorded ops by key and returns them as a WriteSet.
// Duplicate keys are rejected rather than resolved silently.
func (m *WriteSetMut) Freeze() (WriteSet, error) {
	ops := make([]WriteOp, len(m.ops))
	copy(ops, m.ops)
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].Key.Compare(ops[j].Key) < 0
	})
	for i := 1; i < len(ops); i++ {
		if ops[i-1].Key.Compare(ops[i].Key) == 0 {
			return WriteSet{}, errDuplicateWriteKey
		}
	}
	return WriteSet{Ops: ops}, nil
}

// Get returns the op for [key], if the write set contains one.
func (ws WriteSet) Get(key StateKey) (WriteOp, bool) {
	target := key.Bytes()
	i := sort.Search(len(ws.Ops), func(i int) bool {
		return bytes.Compare(ws.Ops[i].Key.Bytes(), target) >= 0
	})
	if i < len(ws.Ops) && bytes.Equal(ws.Ops[i].Key.Bytes(), target) {
		return ws.Ops[i], true
	}
	return WriteOp{}, false
}

// Keys returns the canonical key bytes of every op, in order.
func (ws WriteSet) Keys() [][]byte {
	keys := make([][]byte, len(ws.Ops))
	for i, op := range ws.Ops {
		keys[i] = op.Key.Bytes()
	}
	return keys
}

// Len returns the number of ops in the write set.
func (ws WriteSet) Len() int { return len(ws.Ops) }

// Merge returns a write set containing [ws] overridden by [other]:
// where both touch a key, [other] wins.
func (ws WriteSet) Merge(other WriteSet) (WriteSet, error) {
	m := NewWriteSetMut()
	for _, op := range ws.Ops {
		if _, overridden := other.Get(op.Key); overridden {
			continue
		}
		m.ops = append(m.ops, op)
	}
	m.ops = append(m.ops, other.Ops...)
	return m.Freeze()
}
