// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package signer holds the key material a consensus engine signs messages
// and proposals with. A Signer without a key refuses to sign; engines treat
// such nodes as observers.
package signer

import (
	"crypto/ecdsa"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNoSigningKey is returned when signing is requested on a Signer without
// key material.
var ErrNoSigningKey = errors.New("no signing key configured")

// Signer signs consensus payloads with a secp256k1 key. The zero value is a
// keyless observer signer; keys can be installed at any time via Use.
type Signer struct {
	mu      sync.RWMutex
	key     *ecdsa.PrivateKey
	address common.Address
}

// Use installs the given key. Subsequent signatures are produced with it.
// Passing nil removes the current key, reverting to an observer signer.
func (s *Signer) Use(key *ecdsa.PrivateKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = key
	if key == nil {
		s.address = common.Address{}
		return
	}
	s.address = crypto.PubkeyToAddress(key.PublicKey)
}

// Sign produces a 65-byte [R || S || V] signature of the given hash.
func (s *Signer) Sign(hash common.Hash) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return nil, ErrNoSigningKey
	}
	return crypto.Sign(hash[:], s.key)
}

// Address returns the address of the installed key, or the zero address for
// an observer signer.
func (s *Signer) Address() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// IsAddress reports whether the installed key belongs to the given address.
// An observer signer matches no address.
func (s *Signer) IsAddress(address common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != nil && s.address == address
}
