// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package gossip

import (
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// Pool admission errors.
var (
	ErrOversizedMessage  = errors.New("envelope exceeds the maximum message size")
	ErrExpired           = errors.New("envelope is expired")
	ErrInsufficientWork  = errors.New("envelope does not meet the work target")
	ErrDuplicateEnvelope = errors.New("envelope is already pooled")
)

// Pool holds the envelopes a node is currently flooding. Admission requires
// a minimum proof of work; envelopes are dropped once their expiry passes.
type Pool struct {
	target int // < required leading zero bits of work
	log    zerolog.Logger

	mu        sync.Mutex
	envelopes []*Envelope
	known     map[common.Hash]struct{}
}

// NewPool creates a pool admitting envelopes with at least target leading
// zero bits of work.
func NewPool(target int, log zerolog.Logger) *Pool {
	return &Pool{
		target: target,
		log:    log.With().Str("target", "gossip").Logger(),
		known:  map[common.Hash]struct{}{},
	}
}

// Add admits an envelope into the pool. Expired envelopes encountered during
// insertion are evicted.
func (p *Pool) Add(envelope *Envelope, now time.Time) error {
	encoded := envelope.Encode()
	if len(encoded) > MaxMessageSize {
		return ErrOversizedMessage
	}
	if envelope.Expiry <= uint64(now.Unix()) {
		return ErrExpired
	}
	if work := envelope.Work(); work < p.target {
		p.log.Debug().Int("work", work).Int("required", p.target).Msg("rejecting weak envelope")
		return ErrInsufficientWork
	}
	hash := envelope.Hash()

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, dup := p.known[hash]; dup {
		return ErrDuplicateEnvelope
	}
	p.evict(now)
	p.known[hash] = struct{}{}
	p.envelopes = append(p.envelopes, envelope)
	return nil
}

// Envelopes returns the envelopes that are still live at the given time.
func (p *Pool) Envelopes(now time.Time) []*Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evict(now)
	return append([]*Envelope(nil), p.envelopes...)
}

// Len returns the number of pooled envelopes, including any not yet evicted
// expired ones.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.envelopes)
}

// Prune evicts expired envelopes and returns how many were dropped.
func (p *Pool) Prune(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.evict(now)
}

// evict drops expired envelopes. Callers must hold the lock. Hashes of
// evicted envelopes stay known, so re-gossiped stale envelopes remain
// suppressed as duplicates until they fail the expiry check anyway.
func (p *Pool) evict(now time.Time) int {
	deadline := uint64(now.Unix())
	live := p.envelopes[:0]
	for _, envelope := range p.envelopes {
		if envelope.Expiry > deadline {
			live = append(live, envelope)
		}
	}
	dropped := len(p.envelopes) - len(live)
	if dropped > 0 {
		p.log.Debug().Int("dropped", dropped).Msg("evicted expired envelopes")
	}
	p.envelopes = live
	return dropped
}
