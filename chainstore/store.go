// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package chainstore persists sealed block headers. Headers are indexed by
// their hash and by their canonical block number; the highest stored number
// is tracked as the chain head.
package chainstore

import (
	"errors"

	"github.com/0xsoniclabs/abab/chain"
	"github.com/ethereum/go-ethereum/common"
)

// ErrNotFound is returned when a requested header is not in the store.
var ErrNotFound = errors.New("header not found")

// Store is a header database. Implementations must be safe for concurrent
// use.
type Store interface {
	// Put inserts a sealed header. A header at or above the current head
	// number becomes the new head.
	Put(header *chain.Header) error

	// Get retrieves a header by its hash.
	Get(hash common.Hash) (*chain.Header, error)

	// Canonical retrieves the header holding the given block number.
	Canonical(number uint64) (*chain.Header, error)

	// Head retrieves the current chain head, or ErrNotFound if the store is
	// empty.
	Head() (*chain.Header, error)

	// Flush forces all buffered writes to durable storage.
	Flush() error

	// Close flushes and releases the store.
	Close() error
}
