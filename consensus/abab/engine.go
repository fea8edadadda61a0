// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package abab implements the Abab BFT consensus engine: a round-robin
// proof-of-authority protocol in which the primary of each view proposes a
// block and the remaining validators vote on it. A block is committed once
// more than two thirds of the validator set sign its bare hash; an idle view
// is abandoned once more than one third of the set requests a view change.
//
// Block seals carry four fields:
//
//	0: consensus view
//	1: proposal signature
//	2: view change signatures (proposal seals only)
//	3: commit signatures (committed seals only)
package abab

import (
	"crypto/ecdsa"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/0xsoniclabs/abab/chain"
	"github.com/0xsoniclabs/abab/consensus"
	"github.com/0xsoniclabs/abab/consensus/signer"
	"github.com/0xsoniclabs/abab/consensus/validator"
	"github.com/0xsoniclabs/abab/consensus/votes"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
)

const sealFieldCount = 4

// Seal field indices.
const (
	sealFieldView = iota
	sealFieldProposal
	sealFieldViewChanges
	sealFieldCommits
)

// RewardState is the slice of the state interface the engine touches when
// closing a block.
type RewardState interface {
	AddBalance(address common.Address, amount *uint256.Int)
}

// Engine implements the Abab consensus algorithm.
type Engine struct {
	params     Params
	validators *validator.Set
	votes      *votes.Collector
	signer     signer.Signer
	log        zerolog.Logger

	height atomic.Uint64 // < current consensus height
	view   atomic.Uint64 // < current consensus view

	mu       sync.Mutex
	proposal *common.Hash // < bare hash of the proposed block, nil if none
	client   consensus.Client

	transition *transition
}

// New creates an engine for the given parameters. The view change timer
// starts immediately; Stop must be called to release it.
func New(params Params, log zerolog.Logger) (*Engine, error) {
	params = params.withDefaults()
	validators, err := validator.NewSet(params.Validators)
	if err != nil {
		return nil, fmt.Errorf("invalid engine parameters: %w", err)
	}
	engine := &Engine{
		params:     params,
		validators: validators,
		votes:      votes.NewCollector(),
		log:        log.With().Str("target", "engine").Logger(),
	}
	engine.height.Store(1)
	engine.transition = startTransition(params.ViewTimeout, engine.Step)
	return engine, nil
}

// Name returns the engine name.
func (e *Engine) Name() string { return "Abab" }

// SealFields returns the number of seal fields the engine produces.
func (e *Engine) SealFields() int { return sealFieldCount }

// Height returns the current consensus height.
func (e *Engine) Height() uint64 { return e.height.Load() }

// View returns the current consensus view.
func (e *Engine) View() uint64 { return e.view.Load() }

// RegisterClient connects the engine to its host.
func (e *Engine) RegisterClient(client consensus.Client) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.client = client
}

// SetSigner installs the key this engine signs messages and proposals with.
func (e *Engine) SetSigner(key *ecdsa.PrivateKey) {
	e.signer.Use(key)
}

// IsSealer reports whether the given address participates in sealing.
func (e *Engine) IsSealer(address common.Address) bool {
	return e.validators.Contains(address)
}

// ViewPrimary returns the validator designated to propose in the given view.
func (e *Engine) ViewPrimary(height, view uint64) common.Address {
	return e.validators.Get(height + view)
}

// Stop terminates the engine's background timer.
func (e *Engine) Stop() {
	e.transition.Stop()
}

// Step is invoked on each view change timeout. It broadcasts a view change
// for the current round and rebroadcasts retained messages to bring lagging
// peers up to speed.
func (e *Engine) Step() {
	e.transition.Rearm()
	e.broadcastViewChange()
	for _, raw := range e.votes.MessagesUpTo(e.height.Load(), e.view.Load()) {
		e.broadcastMessage(raw)
	}
}

// GenerateSeal attempts to produce a proposal seal for the given block.
// Only the primary of the current view may propose, at most one proposal
// per view, and only once enough view change votes justify a new proposal.
func (e *Engine) GenerateSeal(header *chain.Header) consensus.Seal {
	if !e.isSignerPrimary() || e.pendingProposal() != nil || !e.isNewView() {
		return consensus.NoSeal()
	}

	height := header.Number
	view := e.view.Load()
	bareHash := header.BareHash()
	vote := NewVote(height, view, bareHash)

	signature, err := e.signer.Sign(vote.Hash())
	if err != nil {
		e.log.Warn().Err(err).Msg("could not sign proposal, signing key unavailable")
		return consensus.NoSeal()
	}
	message := &Message{Signature: signature, Vote: vote}
	e.votes.Add(votes.Vote{
		Round:     vote.Round(),
		Sender:    e.signer.Address(),
		Signature: signature,
		Raw:       message.Encode(),
	})
	e.setProposal(&bareHash)
	e.log.Debug().
		Stringer("block", bareHash).
		Uint64("height", height).
		Uint64("view", view).
		Msg("submitting proposal")

	viewChanges := e.votes.Signatures(NewViewChange(height, view).Round())
	return consensus.ProposalSeal([][]byte{
		mustEncode(view),
		mustEncode(signature),
		encodeSignatureList(viewChanges),
		emptyListRLP,
	})
}

// HandleMessage processes a consensus message received from a peer. Fresh
// valid messages are relayed to all other peers.
func (e *Engine) HandleMessage(data []byte) error {
	message, err := DecodeMessage(data)
	if err != nil {
		return err
	}
	if e.votes.IsOldOrKnown(message.Vote.Height, message.Signature) {
		return nil
	}
	sender, err := message.Recover()
	if err != nil {
		return err
	}
	if !e.validators.Contains(sender) {
		return &consensus.NotAuthorizedError{Address: sender}
	}
	conflict, fresh := e.votes.Add(votes.Vote{
		Round:     message.Vote.Round(),
		Sender:    sender,
		Signature: message.Signature,
		Raw:       data,
	})
	if conflict != nil {
		return &consensus.DoubleVoteError{Sender: sender}
	}
	if !fresh {
		return nil
	}
	e.log.Trace().
		Stringer("sender", sender).
		Uint64("height", message.Vote.Height).
		Uint64("view", message.Vote.View).
		Bool("viewChange", message.Vote.ViewChange).
		Msg("handling a valid consensus message")
	e.broadcastMessage(data)
	e.handleValid(message)
	return nil
}

// OnCloseBlock bestows the block reward on the block author.
func (e *Engine) OnCloseBlock(header *chain.Header, state RewardState) {
	if e.params.BlockReward.IsZero() {
		return
	}
	state.AddBalance(header.Author, e.params.BlockReward)
}

// PopulateFromParent derives the engine-controlled header fields from the
// parent: the difficulty is inherited, the gas limit is nudged toward the
// floor target by at most a bound-divisor fraction per block.
func (e *Engine) PopulateFromParent(header, parent *chain.Header, gasFloorTarget uint64) {
	header.Difficulty = uint256.NewInt(0)
	if parent.Difficulty != nil {
		header.Difficulty.Set(parent.Difficulty)
	}
	divisor := e.params.GasLimitBoundDivisor
	limit := parent.GasLimit
	if limit < gasFloorTarget {
		header.GasLimit = min(gasFloorTarget, limit+limit/divisor-1)
	} else {
		header.GasLimit = max(gasFloorTarget, limit-limit/divisor+1)
	}
}

// ExtraInfo returns engine-specific information about a sealed header.
func (e *Engine) ExtraInfo(header *chain.Header) map[string]string {
	proposal, err := ProposalFromHeader(header)
	if err != nil {
		return map[string]string{"error": err.Error()}
	}
	return map[string]string{
		"signature": common.Bytes2Hex(proposal.Signature),
		"height":    strconv.FormatUint(proposal.Vote.Height, 10),
		"view":      strconv.FormatUint(proposal.Vote.View, 10),
		"blockHash": proposal.Vote.BlockHash.Hex(),
	}
}

// VerifyBlockBasic performs cheap structural seal checks.
func (e *Engine) VerifyBlockBasic(header *chain.Header) error {
	if len(header.Seal) != sealFieldCount {
		return &consensus.SealArityError{Expected: sealFieldCount, Found: len(header.Seal)}
	}
	for _, field := range header.Seal {
		if len(field) == 0 {
			return &consensus.SignatureCountError{Min: 1, Max: -1, Found: 0}
		}
	}
	return nil
}

// VerifyBlockUnordered checks the seal signatures of a header without
// requiring its parent. Committed blocks must carry more than two thirds of
// distinct authorized commit signatures; anything below that threshold must
// be a proposal with an empty commit list, signed by the primary of its view.
func (e *Engine) VerifyBlockUnordered(header *chain.Header) error {
	proposal, err := ProposalFromHeader(header)
	if err != nil {
		return err
	}
	primary, err := proposal.Recover()
	if err != nil {
		return err
	}
	if !e.validators.Contains(primary) {
		return &consensus.NotAuthorizedError{Address: primary}
	}

	commitSignatures, err := decodeSignatureList(header.Seal[sealFieldCommits])
	if err != nil {
		return err
	}
	origins := make(map[common.Address]struct{}, len(commitSignatures))
	for _, signature := range commitSignatures {
		address, cached := e.votes.Sender(signature)
		if !cached {
			// Commit signatures vote on the same round as the proposal.
			commit := &Message{Signature: signature, Vote: proposal.Vote}
			if address, err = commit.Recover(); err != nil {
				return err
			}
		}
		if !e.validators.Contains(address) {
			return &consensus.NotAuthorizedError{Address: address}
		}
		if _, dup := origins[address]; dup {
			e.log.Warn().Stringer("validator", address).Msg("duplicate signature on the seal")
			return &consensus.DoubleVoteError{Sender: address}
		}
		origins[address] = struct{}{}
	}

	if !e.isAboveThreshold(len(origins)) {
		// Not a committed block, so it has to be a proposal: an empty
		// commit list signed by the primary of its view.
		if len(commitSignatures) != 0 {
			return &consensus.SignatureCountError{Min: 0, Max: 0, Found: len(commitSignatures)}
		}
		if expected := e.ViewPrimary(proposal.Vote.Height, proposal.Vote.View); expected != primary {
			return &consensus.NotPrimaryError{Expected: expected, Found: primary}
		}
	}
	return nil
}

// VerifyBlockFamily checks header fields that depend on the parent.
func (e *Engine) VerifyBlockFamily(header, parent *chain.Header) error {
	if header.Number == 0 {
		return consensus.ErrZeroBlockNumber
	}
	divisor := e.params.GasLimitBoundDivisor
	minLimit := parent.GasLimit - parent.GasLimit/divisor
	maxLimit := parent.GasLimit + parent.GasLimit/divisor
	if header.GasLimit <= minLimit || header.GasLimit >= maxLimit {
		return &consensus.GasLimitError{Min: minLimit, Max: maxLimit, Found: header.GasLimit}
	}
	return nil
}

// IsProposal inspects a verified header and reports whether it is a proposal
// still awaiting votes. Observing a committed seal advances the engine to
// the next height; observing a proposal for the current round records it and
// rearms the view change timer.
func (e *Engine) IsProposal(header *chain.Header) bool {
	proposal, err := ProposalFromHeader(header)
	if err != nil {
		return false
	}
	commitSignatures, err := decodeSignatureList(header.Seal[sealFieldCommits])
	if err != nil {
		return false
	}
	if len(commitSignatures) != 0 {
		e.log.Debug().Uint64("height", proposal.Vote.Height).Msg("received a commit")
		e.toNextHeight(proposal.Vote.Height)
		return false
	}

	primary, err := proposal.Recover()
	if err != nil {
		return false
	}
	e.log.Debug().
		Stringer("primary", primary).
		Uint64("height", proposal.Vote.Height).
		Uint64("view", proposal.Vote.View).
		Msg("received a new proposal")

	if proposal.Vote.Height == e.height.Load() {
		if proposal.Vote.View > e.view.Load() {
			// A valid proposal for a later view proves the network moved on.
			e.view.Store(proposal.Vote.View)
		}
		if proposal.Vote.View == e.view.Load() {
			hash := proposal.Vote.BlockHash
			e.setProposal(&hash)
			e.transition.Rearm()
		}
	}
	e.votes.Add(votes.Vote{
		Round:     proposal.Vote.Round(),
		Sender:    primary,
		Signature: proposal.Signature,
		Raw:       proposal.Encode(),
	})
	return true
}

// --- internal transitions ---

// handleValid reacts to a message that passed all checks. Only messages for
// the current height can affect the engine state.
func (e *Engine) handleValid(message *Message) {
	if message.Vote.Height != e.height.Load() {
		return
	}

	if message.Vote.ViewChange {
		if e.isSignerPrimary() && e.isNewView() {
			// Enough validators gave up on the previous proposal; prompt the
			// host to assemble a block for us to propose.
			e.updateSealing()
		}
		return
	}

	if !e.isSignerPrimary() {
		return
	}
	if !e.isAboveThreshold(e.votes.CountAligned(message.Vote.Round())) {
		return
	}
	proposal := e.pendingProposal()
	if proposal == nil || *proposal != message.Vote.BlockHash {
		return
	}

	// Commit the block using the complete signature set.
	proposalSig, commitSigs, ok := e.votes.SealSignatures(message.Vote.Round(), e.signer.Address())
	if !ok {
		e.log.Warn().Msg("vote threshold reached but proposal signature missing")
		return
	}
	// The seal carries the view the signatures commit to, which can trail
	// the current view when the view advanced while votes were arriving.
	e.log.Trace().Int("votes", len(commitSigs)).Msg("collected seal")
	e.submitSeal(*proposal, [][]byte{
		mustEncode(message.Vote.View),
		mustEncode(proposalSig),
		emptyListRLP,
		encodeSignatureList(commitSigs),
	})
	e.toNextHeight(message.Vote.Height)
}

// broadcastViewChange signs and distributes a view change for the current
// round, counting the own vote first.
func (e *Engine) broadcastViewChange() {
	vote := NewViewChange(e.height.Load(), e.view.Load())
	signature, err := e.signer.Sign(vote.Hash())
	if err != nil {
		e.log.Trace().Err(err).Msg("could not sign a view change")
		return
	}
	message := &Message{Signature: signature, Vote: vote}
	raw := message.Encode()
	e.votes.Add(votes.Vote{
		Round:     vote.Round(),
		Sender:    e.signer.Address(),
		Signature: signature,
		Raw:       raw,
	})
	e.log.Debug().
		Uint64("height", vote.Height).
		Uint64("view", vote.View).
		Msg("broadcasting view change")
	e.handleValid(message)
	e.broadcastMessage(raw)
}

// toNextHeight resets the per-height consensus state. The height only ever
// moves forward; commits for heights the engine already passed are ignored.
func (e *Engine) toNextHeight(height uint64) {
	next := height + 1
	for {
		current := e.height.Load()
		if next <= current {
			return
		}
		if e.height.CompareAndSwap(current, next) {
			break
		}
	}
	e.log.Debug().Uint64("height", next).Msg("transitioning to next height")
	e.view.Store(0)
	e.setProposal(nil)
	e.votes.Prune(next)
	e.transition.Rearm()
}

func (e *Engine) isSignerPrimary() bool {
	primary := e.ViewPrimary(e.height.Load(), e.view.Load())
	return e.signer.IsAddress(primary)
}

func (e *Engine) isAboveThreshold(n int) bool {
	return n > e.validators.Count()*2/3
}

// isNewView reports whether enough validators demanded a view change to
// justify a new proposal.
func (e *Engine) isNewView() bool {
	round := NewViewChange(e.height.Load(), e.view.Load()).Round()
	return e.votes.CountAligned(round) > e.validators.Count()/3
}

func (e *Engine) pendingProposal() *common.Hash {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.proposal
}

func (e *Engine) setProposal(hash *common.Hash) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.proposal = hash
}

func (e *Engine) currentClient() consensus.Client {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client
}

func (e *Engine) broadcastMessage(data []byte) {
	if client := e.currentClient(); client != nil {
		client.BroadcastConsensusMessage(data)
	}
}

func (e *Engine) updateSealing() {
	if client := e.currentClient(); client != nil {
		client.UpdateSealing()
	}
}

func (e *Engine) submitSeal(hash common.Hash, seal [][]byte) {
	if client := e.currentClient(); client != nil {
		client.SubmitSeal(hash, seal)
	}
}

func mustEncode(value interface{}) []byte {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		panic(fmt.Sprintf("failed to encode seal field: %v", err))
	}
	return encoded
}
