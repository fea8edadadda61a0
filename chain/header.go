// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package chain defines the block header type shared by the consensus engine
// and the header store. Headers carry an opaque list of seal fields whose
// interpretation is left to the engine that produced them.
package chain

import (
	"fmt"

	"github.com/0xsoniclabs/abab/bloom"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Header is an EVM-style block header. Field order defines the canonical
// RLP encoding and must not be changed.
type Header struct {
	ParentHash   common.Hash
	UnclesHash   common.Hash
	Author       common.Address
	StateRoot    common.Hash
	TxRoot       common.Hash
	ReceiptsRoot common.Hash
	LogsBloom    bloom.Bloom
	Difficulty   *uint256.Int
	Number       uint64
	GasLimit     uint64
	GasUsed      uint64
	Timestamp    uint64
	Extra        []byte

	// Seal holds the engine-specific seal fields. Each entry is itself an
	// RLP-encoded value.
	Seal [][]byte
}

// Hash returns the Keccak-256 hash of the full header encoding, including
// the seal fields. This is the hash headers are referenced by on the chain.
func (h *Header) Hash() common.Hash {
	encoded, err := rlp.EncodeToBytes(h)
	if err != nil {
		// All field types are encodable; an error here is a programming bug.
		panic(fmt.Sprintf("failed to encode header: %v", err))
	}
	return crypto.Keccak256Hash(encoded)
}

// BareHash returns the Keccak-256 hash of the header encoding without the
// seal fields. Consensus messages vote on bare hashes, since the seal is
// only complete once the votes themselves are collected.
func (h *Header) BareHash() common.Hash {
	encoded, err := rlp.EncodeToBytes(h.bareFields())
	if err != nil {
		panic(fmt.Sprintf("failed to encode bare header: %v", err))
	}
	return crypto.Keccak256Hash(encoded)
}

// WithSeal returns a copy of the header carrying the given seal fields.
func (h *Header) WithSeal(seal [][]byte) *Header {
	sealed := h.Copy()
	sealed.Seal = make([][]byte, len(seal))
	for i, field := range seal {
		sealed.Seal[i] = append([]byte(nil), field...)
	}
	return sealed
}

// Copy returns a deep copy of the header.
func (h *Header) Copy() *Header {
	c := *h
	if h.Difficulty != nil {
		c.Difficulty = new(uint256.Int).Set(h.Difficulty)
	}
	c.Extra = append([]byte(nil), h.Extra...)
	c.Seal = make([][]byte, len(h.Seal))
	for i, field := range h.Seal {
		c.Seal[i] = append([]byte(nil), field...)
	}
	return &c
}

// Encode returns the canonical RLP encoding of the header.
func (h *Header) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(h)
}

// DecodeHeader decodes a header from its canonical RLP encoding. Trailing
// data is rejected.
func DecodeHeader(data []byte) (*Header, error) {
	header := new(Header)
	if err := rlp.DecodeBytes(data, header); err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}
	return header, nil
}

func (h *Header) bareFields() []interface{} {
	difficulty := h.Difficulty
	if difficulty == nil {
		difficulty = uint256.NewInt(0)
	}
	return []interface{}{
		h.ParentHash,
		h.UnclesHash,
		h.Author,
		h.StateRoot,
		h.TxRoot,
		h.ReceiptsRoot,
		h.LogsBloom,
		difficulty,
		h.Number,
		h.GasLimit,
		h.GasUsed,
		h.Timestamp,
		h.Extra,
	}
}
