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
	"fmt"
	"io"

	"github.com/0xsoniclabs/abab/chain"
	"github.com/0xsoniclabs/abab/consensus"
	"github.com/0xsoniclabs/abab/consensus/votes"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// SignatureLength is the length of a recoverable secp256k1 signature.
const SignatureLength = 65

// emptyListRLP is the encoding of an empty list, used for vacant seal fields.
var emptyListRLP = []byte{0xc0}

// ViewVote is the voted-on content of a consensus message: either a vote for
// a block at a (height, view), or a view change at a (height, view).
//
// Wire formats:
//
//	vote:        [height, view, blockHash]
//	view change: [height, view]
type ViewVote struct {
	Height     uint64
	View       uint64
	BlockHash  common.Hash
	ViewChange bool
}

// NewVote creates a block vote.
func NewVote(height, view uint64, blockHash common.Hash) ViewVote {
	return ViewVote{Height: height, View: view, BlockHash: blockHash}
}

// NewViewChange creates a view change vote.
func NewViewChange(height, view uint64) ViewVote {
	return ViewVote{Height: height, View: view, ViewChange: true}
}

// Encode returns the RLP encoding of the vote body.
func (v ViewVote) Encode() []byte {
	var encoded []byte
	var err error
	if v.ViewChange {
		encoded, err = rlp.EncodeToBytes([]interface{}{v.Height, v.View})
	} else {
		encoded, err = rlp.EncodeToBytes([]interface{}{v.Height, v.View, v.BlockHash})
	}
	if err != nil {
		panic(fmt.Sprintf("failed to encode vote: %v", err))
	}
	return encoded
}

// Hash returns the Keccak-256 hash of the vote body. This is the payload
// validators sign.
func (v ViewVote) Hash() common.Hash {
	return crypto.Keccak256Hash(v.Encode())
}

// Round maps the vote onto a collector round.
func (v ViewVote) Round() votes.Round {
	return votes.Round{
		Height:     v.Height,
		View:       v.View,
		ViewChange: v.ViewChange,
		BlockHash:  v.BlockHash,
	}
}

// Message is a signed consensus message as transmitted between validators.
// Wire format: [signature, voteBody].
type Message struct {
	Signature []byte
	Vote      ViewVote
}

// EncodeRLP implements rlp.Encoder.
func (m *Message) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, []interface{}{m.Signature, rlp.RawValue(m.Vote.Encode())})
}

// DecodeRLP implements rlp.Decoder.
func (m *Message) DecodeRLP(s *rlp.Stream) error {
	if _, err := s.List(); err != nil {
		return err
	}
	signature, err := s.Bytes()
	if err != nil {
		return err
	}
	if len(signature) != SignatureLength {
		return fmt.Errorf("invalid signature length %d", len(signature))
	}
	if _, err := s.List(); err != nil {
		return err
	}
	vote := ViewVote{ViewChange: true}
	if vote.Height, err = s.Uint64(); err != nil {
		return err
	}
	if vote.View, err = s.Uint64(); err != nil {
		return err
	}
	if s.MoreDataInList() {
		if err := s.Decode(&vote.BlockHash); err != nil {
			return err
		}
		vote.ViewChange = false
	}
	if err := s.ListEnd(); err != nil {
		return err
	}
	if err := s.ListEnd(); err != nil {
		return err
	}
	m.Signature = signature
	m.Vote = vote
	return nil
}

// Encode returns the RLP encoding of the message.
func (m *Message) Encode() []byte {
	encoded, err := rlp.EncodeToBytes(m)
	if err != nil {
		panic(fmt.Sprintf("failed to encode message: %v", err))
	}
	return encoded
}

// DecodeMessage decodes a consensus message. Trailing data is rejected.
func DecodeMessage(data []byte) (*Message, error) {
	message := new(Message)
	if err := rlp.DecodeBytes(data, message); err != nil {
		return nil, fmt.Errorf("failed to decode consensus message: %w", err)
	}
	return message, nil
}

// Recover returns the address of the validator that signed the message.
func (m *Message) Recover() (common.Address, error) {
	hash := m.Vote.Hash()
	public, err := crypto.SigToPub(hash[:], m.Signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover message signer: %w", err)
	}
	return crypto.PubkeyToAddress(*public), nil
}

// ProposalFromHeader reconstructs the proposer's vote from a header's seal:
// the view from seal field 0, the proposal signature from seal field 1, and
// the voted hash as the header's bare hash.
func ProposalFromHeader(header *chain.Header) (*Message, error) {
	if len(header.Seal) != sealFieldCount {
		return nil, &consensus.SealArityError{Expected: sealFieldCount, Found: len(header.Seal)}
	}
	var view uint64
	if err := rlp.DecodeBytes(header.Seal[sealFieldView], &view); err != nil {
		return nil, fmt.Errorf("failed to decode seal view: %w", err)
	}
	var signature []byte
	if err := rlp.DecodeBytes(header.Seal[sealFieldProposal], &signature); err != nil {
		return nil, fmt.Errorf("failed to decode proposal signature: %w", err)
	}
	if len(signature) != SignatureLength {
		return nil, fmt.Errorf("invalid proposal signature length %d", len(signature))
	}
	return &Message{
		Signature: signature,
		Vote:      NewVote(header.Number, view, header.BareHash()),
	}, nil
}

// encodeSignatureList encodes signatures as an RLP list of byte strings.
func encodeSignatureList(signatures [][]byte) []byte {
	encoded, err := rlp.EncodeToBytes(signatures)
	if err != nil {
		panic(fmt.Sprintf("failed to encode signature list: %v", err))
	}
	return encoded
}

// decodeSignatureList decodes an RLP list of signatures from a seal field.
func decodeSignatureList(field []byte) ([][]byte, error) {
	var signatures [][]byte
	if err := rlp.DecodeBytes(field, &signatures); err != nil {
		return nil, fmt.Errorf("failed to decode signature list: %w", err)
	}
	for _, signature := range signatures {
		if len(signature) != SignatureLength {
			return nil, fmt.Errorf("invalid signature length %d in seal", len(signature))
		}
	}
	return signatures, nil
}
