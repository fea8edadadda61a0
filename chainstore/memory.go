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
	"sync"

	"github.com/0xsoniclabs/abab/chain"
	"github.com/ethereum/go-ethereum/common"
)

// MemoryStore is an in-memory header store. It is primarily intended for
// testing and development setups that do not need persistence.
type MemoryStore struct {
	mu        sync.RWMutex
	headers   map[common.Hash]*chain.Header
	canonical map[uint64]common.Hash
	head      *chain.Header
}

// NewMemoryStore creates an empty in-memory header store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		headers:   map[common.Hash]*chain.Header{},
		canonical: map[uint64]common.Hash{},
	}
}

func (s *MemoryStore) Put(header *chain.Header) error {
	copied := header.Copy()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers[copied.Hash()] = copied
	s.canonical[copied.Number] = copied.Hash()
	if s.head == nil || copied.Number >= s.head.Number {
		s.head = copied
	}
	return nil
}

func (s *MemoryStore) Get(hash common.Hash) (*chain.Header, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	header, found := s.headers[hash]
	if !found {
		return nil, ErrNotFound
	}
	return header.Copy(), nil
}

func (s *MemoryStore) Canonical(number uint64) (*chain.Header, error) {
	s.mu.RLock()
	hash, found := s.canonical[number]
	s.mu.RUnlock()
	if !found {
		return nil, ErrNotFound
	}
	return s.Get(hash)
}

func (s *MemoryStore) Head() (*chain.Header, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.head == nil {
		return nil, ErrNotFound
	}
	return s.head.Copy(), nil
}

func (s *MemoryStore) Flush() error { return nil }

func (s *MemoryStore) Close() error { return nil }
