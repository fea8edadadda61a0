// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package votes accumulates signed consensus votes and answers the threshold
// queries the engine needs: how many validators are aligned behind a block,
// who equivocated, and which signatures make up a seal.
package votes

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Round identifies what is being voted on: a (height, view) pair and either
// a block hash or a view change.
type Round struct {
	Height     uint64
	View       uint64
	ViewChange bool
	// BlockHash is the bare hash voted for; zero for view changes.
	BlockHash common.Hash
}

// step scopes sender uniqueness: one vote per validator per step.
type step struct {
	height     uint64
	view       uint64
	viewChange bool
}

func (r Round) step() step {
	return step{height: r.Height, view: r.View, viewChange: r.ViewChange}
}

// Vote is a single signed consensus vote.
type Vote struct {
	Round     Round
	Sender    common.Address
	Signature []byte
	// Raw is the full encoded message, kept for rebroadcasts.
	Raw []byte
}

// Collector accumulates votes. It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	rounds  map[Round]*roundVotes
	cast    map[step]map[common.Address]Round // < first round a sender voted in a step
	senders map[string]common.Address        // < signature -> recovered sender
	oldest  uint64                           // < heights below are dropped
}

type roundVotes struct {
	signatures map[common.Address][]byte
	order      []common.Address
	raws       [][]byte
}

// NewCollector creates an empty vote collector.
func NewCollector() *Collector {
	return &Collector{
		rounds:  make(map[Round]*roundVotes),
		cast:    make(map[step]map[common.Address]Round),
		senders: make(map[string]common.Address),
	}
}

// Add records a vote. It returns the conflicting round if the sender already
// voted differently in the same step (an equivocation), and whether the vote
// was fresh. Votes for pruned heights and exact duplicates are not fresh.
func (c *Collector) Add(v Vote) (conflict *Round, fresh bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v.Round.Height < c.oldest {
		return nil, false
	}

	step := v.Round.step()
	if prior, voted := c.cast[step][v.Sender]; voted {
		if prior == v.Round {
			return nil, false // exact duplicate
		}
		return &prior, false
	}

	round := c.rounds[v.Round]
	if round == nil {
		round = &roundVotes{signatures: make(map[common.Address][]byte)}
		c.rounds[v.Round] = round
	}
	round.signatures[v.Sender] = v.Signature
	round.order = append(round.order, v.Sender)
	round.raws = append(round.raws, v.Raw)

	if c.cast[step] == nil {
		c.cast[step] = make(map[common.Address]Round)
	}
	c.cast[step][v.Sender] = v.Round
	c.senders[string(v.Signature)] = v.Sender
	return nil, true
}

// IsOldOrKnown reports whether a message can be skipped without recovering
// its sender: either its height was pruned or its signature was seen before.
func (c *Collector) IsOldOrKnown(height uint64, signature []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if height < c.oldest {
		return true
	}
	_, known := c.senders[string(signature)]
	return known
}

// Sender returns the sender previously recorded for the given signature,
// sparing a fresh public key recovery.
func (c *Collector) Sender(signature []byte) (common.Address, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sender, found := c.senders[string(signature)]
	return sender, found
}

// CountAligned returns the number of validators that voted for exactly the
// given round.
func (c *Collector) CountAligned(r Round) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	round := c.rounds[r]
	if round == nil {
		return 0
	}
	return len(round.signatures)
}

// Signatures returns all signatures collected for the given round, in
// arrival order.
func (c *Collector) Signatures(r Round) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	round := c.rounds[r]
	if round == nil {
		return nil
	}
	signatures := make([][]byte, 0, len(round.order))
	for _, sender := range round.order {
		signatures = append(signatures, round.signatures[sender])
	}
	return signatures
}

// SealSignatures assembles the signature material of a seal for the given
// vote round: the proposer's own signature and all aligned signatures in
// arrival order. ok is false if the proposer has not voted for the round.
func (c *Collector) SealSignatures(r Round, proposer common.Address) (proposal []byte, commits [][]byte, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	round := c.rounds[r]
	if round == nil {
		return nil, nil, false
	}
	proposal, ok = round.signatures[proposer]
	if !ok {
		return nil, nil, false
	}
	commits = make([][]byte, 0, len(round.order))
	for _, sender := range round.order {
		commits = append(commits, round.signatures[sender])
	}
	return proposal, commits, true
}

// MessagesUpTo returns the raw encodings of all retained votes up to and
// including the given (height, view), for catching up lagging peers.
func (c *Collector) MessagesUpTo(height, view uint64) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var raws [][]byte
	for r, round := range c.rounds {
		if r.Height > height || (r.Height == height && r.View > view) {
			continue
		}
		for _, raw := range round.raws {
			if raw != nil {
				raws = append(raws, raw)
			}
		}
	}
	return raws
}

// Prune drops all votes below the given height. Later votes for pruned
// heights are rejected as old.
func (c *Collector) Prune(oldestKept uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if oldestKept <= c.oldest {
		return
	}
	c.oldest = oldestKept
	for r, round := range c.rounds {
		if r.Height >= oldestKept {
			continue
		}
		for _, sender := range round.order {
			delete(c.senders, string(round.signatures[sender]))
		}
		delete(c.rounds, r)
		delete(c.cast, r.step())
	}
}
