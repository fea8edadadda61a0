// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package spec loads JSON chain specifications. A spec names the chain,
// configures the consensus engine, and fixes the genesis block parameters.
// Quantities are hex-encoded strings ("0x400") as customary for chain specs;
// plain JSON numbers are accepted as well.
package spec

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/0xsoniclabs/abab/chain"
	"github.com/0xsoniclabs/abab/consensus/abab"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Spec is a parsed chain specification.
type Spec struct {
	Name    string  `json:"name"`
	Engine  Engine  `json:"engine"`
	Genesis Genesis `json:"genesis"`
}

// Engine selects and configures the consensus engine.
type Engine struct {
	Abab *AbabEngine `json:"abab"`
}

// AbabEngine wraps the parameter block of the Abab engine.
type AbabEngine struct {
	Params AbabParams `json:"params"`
}

// AbabParams mirrors the engine parameter section of the spec file.
type AbabParams struct {
	GasLimitBoundDivisor Quantity     `json:"gasLimitBoundDivisor"`
	Validators           ValidatorSet `json:"validators"`
	// View timeout in milliseconds. Optional, engine default applies.
	Timeout *Quantity `json:"timeout"`
	// Block reward in wei. Optional, defaults to zero.
	BlockReward *Quantity `json:"blockReward"`
}

// ValidatorSet lists the addresses authorized to seal blocks.
type ValidatorSet struct {
	List []common.Address `json:"list"`
}

// Genesis fixes the parameters of block zero.
type Genesis struct {
	Author     common.Address `json:"author"`
	Difficulty Quantity       `json:"difficulty"`
	GasLimit   Quantity       `json:"gasLimit"`
	Timestamp  Quantity       `json:"timestamp"`
	ExtraData  hexutil.Bytes  `json:"extraData"`
}

// Quantity is an unsigned integer that unmarshals from hex strings,
// decimal strings, or JSON numbers.
type Quantity uint64

// UnmarshalJSON implements json.Unmarshaler.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if len(text) >= 2 && text[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		text = s
	}
	base := 10
	if rest, ok := strings.CutPrefix(text, "0x"); ok {
		text, base = rest, 16
	}
	value, err := strconv.ParseUint(text, base, 64)
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", text, err)
	}
	*q = Quantity(value)
	return nil
}

// Load parses a chain specification from the given reader and validates it.
func Load(r io.Reader) (*Spec, error) {
	var spec Spec
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("failed to parse chain spec: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// LoadFile parses a chain specification from the named file.
func LoadFile(path string) (*Spec, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chain spec: %w", err)
	}
	defer file.Close()
	return Load(file)
}

func (s *Spec) validate() error {
	if s.Engine.Abab == nil {
		return fmt.Errorf("chain spec %q configures no supported engine", s.Name)
	}
	params := &s.Engine.Abab.Params
	if params.GasLimitBoundDivisor == 0 {
		return fmt.Errorf("chain spec %q: gas limit bound divisor must not be zero", s.Name)
	}
	if len(params.Validators.List) == 0 {
		return fmt.Errorf("chain spec %q: validator list must not be empty", s.Name)
	}
	seen := make(map[common.Address]struct{}, len(params.Validators.List))
	for _, address := range params.Validators.List {
		if _, dup := seen[address]; dup {
			return fmt.Errorf("chain spec %q: duplicate validator %s", s.Name, address)
		}
		seen[address] = struct{}{}
	}
	return nil
}

// EngineParams converts the spec's engine section into engine parameters.
func (s *Spec) EngineParams() abab.Params {
	specParams := &s.Engine.Abab.Params
	params := abab.Params{
		GasLimitBoundDivisor: uint64(specParams.GasLimitBoundDivisor),
		Validators:           append([]common.Address(nil), specParams.Validators.List...),
		ViewTimeout:          abab.DefaultViewTimeout,
		BlockReward:          uint256.NewInt(0),
	}
	if specParams.Timeout != nil {
		params.ViewTimeout = time.Duration(*specParams.Timeout) * time.Millisecond
	}
	if specParams.BlockReward != nil {
		params.BlockReward = uint256.NewInt(uint64(*specParams.BlockReward))
	}
	return params
}

// GenesisHeader constructs the header of block zero. The genesis seal is a
// zero view, an empty signature, and two empty signature lists.
func (s *Spec) GenesisHeader() *chain.Header {
	emptyList := []byte{0xc0}
	zeroView, _ := rlp.EncodeToBytes(uint64(0))
	emptySignature, _ := rlp.EncodeToBytes([]byte{})
	return &chain.Header{
		Author:     s.Genesis.Author,
		Difficulty: uint256.NewInt(uint64(s.Genesis.Difficulty)),
		GasLimit:   uint64(s.Genesis.GasLimit),
		Timestamp:  uint64(s.Genesis.Timestamp),
		Extra:      append([]byte(nil), s.Genesis.ExtraData...),
		Seal:       [][]byte{zeroView, emptySignature, emptyList, emptyList},
	}
}
