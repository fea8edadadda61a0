// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package chainstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/0xsoniclabs/abab/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/snappy"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Key layout:
//
//	'h' + hash    -> snappy-compressed header RLP
//	'n' + number  -> canonical hash at that height (8-byte big endian number)
//	"head"        -> hash of the chain head
var headKey = []byte("head")

func headerKey(hash common.Hash) []byte {
	return append([]byte{'h'}, hash[:]...)
}

func numberKey(number uint64) []byte {
	key := make([]byte, 9)
	key[0] = 'n'
	binary.BigEndian.PutUint64(key[1:], number)
	return key
}

// LevelDBStore is a persistent header store backed by a LevelDB instance.
// Header payloads are snappy-compressed before being written.
type LevelDBStore struct {
	db *leveldb.DB

	mu   sync.RWMutex
	head *chain.Header // < cached chain head, nil if the store is empty
}

// OpenLevelDB opens (or creates) a header store at the given directory.
func OpenLevelDB(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		// Header payloads are compressed before insertion.
		Compression: opt.NoCompression,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open header store: %w", err)
	}
	store := &LevelDBStore{db: db}
	if err := store.loadHead(); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return store, nil
}

func (s *LevelDBStore) loadHead() error {
	hash, err := s.db.Get(headKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read head pointer: %w", err)
	}
	head, err := s.Get(common.BytesToHash(hash))
	if err != nil {
		return fmt.Errorf("failed to load head header: %w", err)
	}
	s.head = head
	return nil
}

func (s *LevelDBStore) Put(header *chain.Header) error {
	encoded, err := header.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}
	hash := header.Hash()

	batch := new(leveldb.Batch)
	batch.Put(headerKey(hash), snappy.Encode(nil, encoded))
	batch.Put(numberKey(header.Number), hash[:])

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.head == nil || header.Number >= s.head.Number {
		batch.Put(headKey, hash[:])
		if err := s.db.Write(batch, nil); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		s.head = header.Copy()
		return nil
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

func (s *LevelDBStore) Get(hash common.Hash) (*chain.Header, error) {
	compressed, err := s.db.Get(headerKey(hash), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	encoded, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress header: %w", err)
	}
	return chain.DecodeHeader(encoded)
}

func (s *LevelDBStore) Canonical(number uint64) (*chain.Header, error) {
	hash, err := s.db.Get(numberKey(number), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read canonical hash: %w", err)
	}
	return s.Get(common.BytesToHash(hash))
}

func (s *LevelDBStore) Head() (*chain.Header, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.head == nil {
		return nil, ErrNotFound
	}
	return s.head.Copy(), nil
}

// Flush re-writes the head pointer with a synced write, forcing everything
// written before it into durable storage.
func (s *LevelDBStore) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.head == nil {
		return nil
	}
	hash := s.head.Hash()
	if err := s.db.Put(headKey, hash[:], &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("failed to sync header store: %w", err)
	}
	return nil
}

func (s *LevelDBStore) Close() error {
	return errors.Join(s.Flush(), s.db.Close())
}
