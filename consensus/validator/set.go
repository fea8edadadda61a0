// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package validator tracks the set of addresses authorized to participate in
// consensus. The set is fixed at engine construction; primaries are selected
// round-robin over the list order.
package validator

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Set is an immutable list of validator addresses.
type Set struct {
	list    []common.Address
	members map[common.Address]struct{}
}

// NewSet creates a validator set from the given list. The list must be
// non-empty and free of duplicates; its order determines primary rotation.
func NewSet(list []common.Address) (*Set, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("validator set must not be empty")
	}
	members := make(map[common.Address]struct{}, len(list))
	for _, address := range list {
		if _, dup := members[address]; dup {
			return nil, fmt.Errorf("duplicate validator %s", address)
		}
		members[address] = struct{}{}
	}
	return &Set{
		list:    append([]common.Address(nil), list...),
		members: members,
	}, nil
}

// Contains reports whether the address is a member of the set.
func (s *Set) Contains(address common.Address) bool {
	_, found := s.members[address]
	return found
}

// Count returns the number of validators in the set.
func (s *Set) Count() int {
	return len(s.list)
}

// Get returns the validator selected by the given nonce, rotating
// round-robin through the list.
func (s *Set) Get(nonce uint64) common.Address {
	return s.list[nonce%uint64(len(s.list))]
}

// List returns a copy of the validator list in rotation order.
func (s *Set) List() []common.Address {
	return append([]common.Address(nil), s.list...)
}
