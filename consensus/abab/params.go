// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package abab

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// DefaultViewTimeout is the view change timeout applied when the chain spec
// does not configure one.
const DefaultViewTimeout = time.Second

// DefaultGasLimitBoundDivisor bounds gas limit adjustments between blocks
// when the chain spec does not configure a divisor.
const DefaultGasLimitBoundDivisor = 1024

// Params configures an Abab engine instance.
type Params struct {
	// GasLimitBoundDivisor bounds the per-block gas limit adjustment.
	GasLimitBoundDivisor uint64
	// Validators lists the authorized sealers in primary rotation order.
	Validators []common.Address
	// ViewTimeout is the idle time after which a view change is broadcast.
	ViewTimeout time.Duration
	// BlockReward is bestowed on the block author when a block is closed.
	BlockReward *uint256.Int
}

// withDefaults fills unset optional parameters.
func (p Params) withDefaults() Params {
	if p.GasLimitBoundDivisor == 0 {
		p.GasLimitBoundDivisor = DefaultGasLimitBoundDivisor
	}
	if p.ViewTimeout <= 0 {
		p.ViewTimeout = DefaultViewTimeout
	}
	if p.BlockReward == nil {
		p.BlockReward = uint256.NewInt(0)
	}
	return p
}
