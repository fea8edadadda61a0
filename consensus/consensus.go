// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package consensus defines the boundary between a consensus engine and the
// client embedding it: the callbacks an engine needs from its host, the seal
// results it produces, and the error taxonomy shared by all verification
// paths.
package consensus

//go:generate mockgen -source consensus.go -destination client_mocks.go -package consensus

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Client is the engine's view of its host. The host relays consensus
// messages between peers, drives block production, and accepts completed
// seals for import.
type Client interface {
	// UpdateSealing prompts the host to (re)assemble a pending block and
	// offer it to the engine for sealing.
	UpdateSealing()

	// SubmitSeal delivers the complete seal for the block with the given
	// bare hash.
	SubmitSeal(hash common.Hash, seal [][]byte)

	// BroadcastConsensusMessage relays an encoded consensus message to all
	// connected peers.
	BroadcastConsensusMessage(data []byte)
}

// SealKind describes the outcome of a seal generation attempt.
type SealKind int

const (
	// SealNone indicates that no seal could be produced at this time.
	SealNone SealKind = iota
	// SealProposal indicates a proposal seal that still requires votes.
	SealProposal
	// SealRegular indicates a complete seal.
	SealRegular
)

// Seal is the result of a seal generation attempt.
type Seal struct {
	Kind   SealKind
	Fields [][]byte
}

// NoSeal reports that sealing is not possible right now.
func NoSeal() Seal { return Seal{Kind: SealNone} }

// ProposalSeal wraps seal fields of a block proposal.
func ProposalSeal(fields [][]byte) Seal {
	return Seal{Kind: SealProposal, Fields: fields}
}

// RegularSeal wraps the seal fields of a fully committed block.
func RegularSeal(fields [][]byte) Seal {
	return Seal{Kind: SealRegular, Fields: fields}
}

// ErrZeroBlockNumber is returned when a sealed block claims number zero,
// which is reserved for the genesis block.
var ErrZeroBlockNumber = errors.New("block number must not be zero")

// NotAuthorizedError is returned when a message or seal signature resolves
// to an address outside the validator set.
type NotAuthorizedError struct {
	Address common.Address
}

func (e *NotAuthorizedError) Error() string {
	return fmt.Sprintf("address %s is not an authorized validator", e.Address)
}

// NotPrimaryError is returned when a proposal is signed by a validator other
// than the primary of its view.
type NotPrimaryError struct {
	Expected common.Address
	Found    common.Address
}

func (e *NotPrimaryError) Error() string {
	return fmt.Sprintf("proposal signed by %s, but primary of the view is %s", e.Found, e.Expected)
}

// DoubleVoteError is returned when a validator signs conflicting votes for
// the same round.
type DoubleVoteError struct {
	Sender common.Address
}

func (e *DoubleVoteError) Error() string {
	return fmt.Sprintf("double vote detected from validator %s", e.Sender)
}

// SealArityError is returned when a header carries the wrong number of seal
// fields.
type SealArityError struct {
	Expected int
	Found    int
}

func (e *SealArityError) Error() string {
	return fmt.Sprintf("invalid seal arity: expected %d fields, found %d", e.Expected, e.Found)
}

// SignatureCountError is returned when a seal carries an out-of-bounds
// number of commit signatures. Max < 0 means unbounded.
type SignatureCountError struct {
	Min   int
	Max   int
	Found int
}

func (e *SignatureCountError) Error() string {
	if e.Max < 0 {
		return fmt.Sprintf("invalid signature count: found %d, want at least %d", e.Found, e.Min)
	}
	return fmt.Sprintf("invalid signature count: found %d, want between %d and %d", e.Found, e.Min, e.Max)
}

// GasLimitError is returned when a header's gas limit leaves the bounds
// derived from its parent.
type GasLimitError struct {
	Min   uint64
	Max   uint64
	Found uint64
}

func (e *GasLimitError) Error() string {
	return fmt.Sprintf("gas limit %d out of bounds (%d, %d)", e.Found, e.Min, e.Max)
}
