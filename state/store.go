// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/ava-labs/avalanchego/database/versiondb"
	"github.com/ava-labs/avalanchego/ids"

	"github.com/slatevm/slate/types"
)

const (
	valueCacheSize = 8192

	versionLen = 8
)

var (
	// These are prefixes for db keys.
	// It's important to set different prefixes for each separate database objects.
	currentStatePrefix   = []byte("current")
	versionedStatePrefix = []byte("versioned")
	journalPrefix        = []byte("journal")
	singletonStatePrefix = []byte("singleton")

	isInitializedKey  = []byte{0x00}
	latestVersionKey  = []byte{0x01}
	pruneWatermarkKey = []byte{0x02}

	// ErrPruned is returned when reading a version below the prune
	// watermark.
	ErrPruned = errors.New("version has been pruned")

	versionedTombstone = []byte{0x00}
	versionedValueTag  = byte(0x01)

	_ View = (*Store)(nil)
)

// Store is the versioned ledger state database. The latest value of
// every key is kept directly; every write is additionally journaled
// under the version that produced it so historical reads work until the
// pruner discards them.
type Store struct {
	baseDB      *versiondb.Database
	currentDB   database.Database
	versionedDB database.Database
	journalDB   database.Database
	singletonDB database.Database

	valueCache cache.Cacher
}

func NewStore(db database.Database) *Store {
	baseDB := versiondb.New(db)
	return &Store{
		baseDB:      baseDB,
		currentDB:   prefixdb.New(currentStatePrefix, baseDB),
		versionedDB: prefixdb.New(versionedStatePrefix, baseDB),
		journalDB:   prefixdb.New(journalPrefix, baseDB),
		singletonDB: prefixdb.New(singletonStatePrefix, baseDB),
		valueCache:  &cache.LRU{Size: valueCacheSize},
	}
}

// Get returns the latest value of [key].
func (s *Store) Get(key types.StateKey) ([]byte, error) {
	keyBytes := key.Bytes()
	if value, ok := s.valueCache.Get(string(keyBytes)); ok {
		if value == nil {
			return nil, database.ErrNotFound
		}
		return value.([]byte), nil
	}

	value, err := s.currentDB.Get(keyBytes)
	switch err {
	case nil:
		s.valueCache.Put(string(keyBytes), value)
		return value, nil
	case database.ErrNotFound:
		s.valueCache.Put(string(keyBytes), nil)
		return nil, database.ErrNotFound
	default:
		return nil, err
	}
}

// GetByVersion returns the value of [key] as of [version]: the newest
// write at or below it. Reading below the prune watermark fails with
// ErrPruned.
func (s *Store) GetByVersion(key types.StateKey, version uint64) ([]byte, error) {
	watermark, err := s.PruneWatermark()
	if err != nil {
		return nil, err
	}
	if version < watermark {
		return nil, ErrPruned
	}

	keyBytes := key.Bytes()
	iter := s.versionedDB.NewIteratorWithPrefix(keyBytes)
	defer iter.Release()

	var (
		best      []byte
		bestFound bool
	)
	for iter.Next() {
		// The prefix iterator can surface entries of longer keys that
		// share these key bytes; their entry keys have a different
		// length.
		entryVersion, ok := versionFromEntryKey(iter.Key(), len(keyBytes))
		if !ok {
			continue
		}
		if entryVersion > version {
			break
		}
		best = iter.Value()
		bestFound = true
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	if !bestFound {
		return nil, database.ErrNotFound
	}
	if len(best) == 0 || best[0] != versionedValueTag {
		// Tombstone: the key was deleted at or before [version].
		return nil, database.ErrNotFound
	}
	return best[1:], nil
}

// ApplyWriteSet writes [ws] as the state transition of [version]:
// current values, versioned copies, and the version journal all move
// together. The batch is staged until Commit.
func (s *Store) ApplyWriteSet(ws types.WriteSet, version uint64) error {
	for _, op := range ws.Ops {
		keyBytes := op.Key.Bytes()
		if op.Deletion {
			if err := s.currentDB.Delete(keyBytes); err != nil {
				return err
			}
			if err := s.versionedDB.Put(entryKey(keyBytes, version), versionedTombstone); err != nil {
				return err
			}
			s.valueCache.Put(string(keyBytes), nil)
			continue
		}
		if err := s.currentDB.Put(keyBytes, op.Value); err != nil {
			return err
		}
		tagged := make([]byte, 0, len(op.Value)+1)
		tagged = append(tagged, versionedValueTag)
		tagged = append(tagged, op.Value...)
		if err := s.versionedDB.Put(entryKey(keyBytes, version), tagged); err != nil {
			return err
		}
		s.valueCache.Put(string(keyBytes), op.Value)
	}

	journalBytes, err := types.Marshal(&ws)
	if err != nil {
		return err
	}
	if err := s.journalDB.Put(packVersion(version), journalBytes); err != nil {
		return err
	}
	return s.singletonDB.Put(latestVersionKey, packVersion(version))
}

// GetJournal returns the write set committed at [version].
func (s *Store) GetJournal(version uint64) (types.WriteSet, error) {
	blob, err := s.journalDB.Get(packVersion(version))
	if err != nil {
		return types.WriteSet{}, err
	}
	ws := types.WriteSet{}
	if err := types.Unmarshal(blob, &ws); err != nil {
		return types.WriteSet{}, err
	}
	return ws, nil
}

// LatestVersion returns the most recently applied version.
func (s *Store) LatestVersion() (uint64, error) {
	b, err := s.singletonDB.Get(latestVersionKey)
	if err != nil {
		return 0, err
	}
	return unpackVersion(b)
}

// PruneWatermark returns the lowest readable version.
func (s *Store) PruneWatermark() (uint64, error) {
	b, err := s.singletonDB.Get(pruneWatermarkKey)
	if err == database.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return unpackVersion(b)
}

// SetPruneWatermark persists the lowest readable version.
func (s *Store) SetPruneWatermark(version uint64) error {
	return s.singletonDB.Put(pruneWatermarkKey, packVersion(version))
}

// DeleteVersion removes the journal of [version] and the versioned
// entries it produced, except entries that are still the newest write
// of their key at or below [watermark]. Those stay so historical reads
// at readable versions keep finding state last written before the
// watermark. The latest values are untouched.
func (s *Store) DeleteVersion(version, watermark uint64) error {
	ws, err := s.GetJournal(version)
	if err == database.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	for _, op := range ws.Ops {
		keyBytes := op.Key.Bytes()
		superseded, err := s.supersededBy(keyBytes, version, watermark)
		if err != nil {
			return err
		}
		if !superseded {
			continue
		}
		if err := s.versionedDB.Delete(entryKey(keyBytes, version)); err != nil {
			return err
		}
	}
	return s.journalDB.Delete(packVersion(version))
}

// supersededBy reports whether [keyBytes] was written again after
// [version] but no later than [watermark].
func (s *Store) supersededBy(keyBytes []byte, version, watermark uint64) (bool, error) {
	iter := s.versionedDB.NewIteratorWithStartAndPrefix(entryKey(keyBytes, version+1), keyBytes)
	defer iter.Release()
	for iter.Next() {
		entryVersion, ok := versionFromEntryKey(iter.Key(), len(keyBytes))
		if !ok {
			continue
		}
		return entryVersion <= watermark, iter.Error()
	}
	return false, iter.Error()
}

// GetAccountState assembles everything stored under [addr] from the
// latest state.
func (s *Store) GetAccountState(addr ids.ShortID) (*types.AccountState, error) {
	iter := s.currentDB.NewIteratorWithPrefix(addr[:])
	defer iter.Release()

	accountState := &types.AccountState{}
	for iter.Next() {
		path := make([]byte, len(iter.Key())-len(addr))
		copy(path, iter.Key()[len(addr):])
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		accountState.Insert(path, value)
	}
	return accountState, iter.Error()
}

// IsInitialized reports whether genesis has been applied.
func (s *Store) IsInitialized() (bool, error) {
	return s.singletonDB.Has(isInitializedKey)
}

// SetInitialized marks genesis as applied.
func (s *Store) SetInitialized() error {
	return s.singletonDB.Put(isInitializedKey, nil)
}

// Commit commits pending operations to baseDB
func (s *Store) Commit() error {
	return s.baseDB.Commit()
}

// Abort discards pending operations.
func (s *Store) Abort() {
	s.baseDB.Abort()
}

// Close closes the underlying base database
func (s *Store) Close() error {
	return s.baseDB.Close()
}

// ClearCache drops the value cache, forcing reads through to disk.
func (s *Store) ClearCache() {
	s.valueCache.Flush()
}

func packVersion(version uint64) []byte {
	b := make([]byte, versionLen)
	binary.BigEndian.PutUint64(b, version)
	return b
}

func unpackVersion(b []byte) (uint64, error) {
	if len(b) != versionLen {
		return 0, fmt.Errorf("invalid version encoding length %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

func entryKey(keyBytes []byte, version uint64) []byte {
	b := make([]byte, 0, len(keyBytes)+versionLen)
	b = append(b, keyBytes...)
	return append(b, packVersion(version)...)
}

func versionFromEntryKey(entryKey []byte, keyLen int) (uint64, bool) {
	if len(entryKey) != keyLen+versionLen {
		return 0, false
	}
	return binary.BigEndian.Uint64(entryKey[keyLen:]), true
}
