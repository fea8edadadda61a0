// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package gossip implements the envelope layer used to flood consensus
// messages between nodes. Envelopes carry an opaque, possibly encrypted
// payload and are rate limited by a proof of work over their content.
package gossip

import (
	"errors"
	"fmt"
	"io"
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// MaxMessageSize is the maximum tolerated encoded envelope size.
const MaxMessageSize = 1 << 16

// ErrOneAESField is returned when an envelope encoding carries only one of
// the two AES fields.
var ErrOneAESField = errors.New("only one of the AES fields included")

// sealAttempts bounds the nonce search in Seal.
const sealAttempts = 1 << 24

// ErrCouldNotSeal is returned when the nonce search gives up before reaching
// the work target.
var ErrCouldNotSeal = errors.New("could not find a nonce reaching the work target")

// Envelope is the unit passed over the network. The payload is opaque; when
// the AES fields are set it is encrypted and they carry the nonce and salt
// needed to decrypt it. Wire format is an 8-field RLP list:
//
//	[version, expiry, ttl, topic, aesNonce, aesSalt, payload, workNonce]
//
// An envelope is either encrypted (both AES fields set) or plain (both
// empty); anything else is rejected on decode.
type Envelope struct {
	Version   uint64
	Expiry    uint64 // < expiration, unix seconds
	TTL       uint64 // < time to live, seconds
	Topic     uint32
	AESNonce  []byte
	AESSalt   []byte
	Payload   []byte
	WorkNonce *uint256.Int
}

// EncodeRLP implements rlp.Encoder.
func (e *Envelope) EncodeRLP(w io.Writer) error {
	nonce := e.WorkNonce
	if nonce == nil {
		nonce = uint256.NewInt(0)
	}
	return rlp.Encode(w, []interface{}{
		e.Version, e.Expiry, e.TTL, e.Topic,
		e.AESNonce, e.AESSalt, e.Payload, nonce,
	})
}

// DecodeRLP implements rlp.Decoder.
func (e *Envelope) DecodeRLP(s *rlp.Stream) error {
	var encoded struct {
		Version   uint64
		Expiry    uint64
		TTL       uint64
		Topic     uint32
		AESNonce  []byte
		AESSalt   []byte
		Payload   []byte
		WorkNonce *uint256.Int
	}
	if err := s.Decode(&encoded); err != nil {
		return err
	}
	if (len(encoded.AESNonce) == 0) != (len(encoded.AESSalt) == 0) {
		return ErrOneAESField
	}
	*e = Envelope(encoded)
	// Empty byte fields decode as empty slices; normalize to nil so that
	// decoded envelopes compare equal to constructed ones.
	e.AESNonce = normalize(e.AESNonce)
	e.AESSalt = normalize(e.AESSalt)
	e.Payload = normalize(e.Payload)
	return nil
}

// Encode returns the RLP encoding of the envelope.
func (e *Envelope) Encode() []byte {
	encoded, err := rlp.EncodeToBytes(e)
	if err != nil {
		panic(fmt.Sprintf("failed to encode envelope: %v", err))
	}
	return encoded
}

// DecodeEnvelope decodes an envelope. Trailing data is rejected.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	envelope := new(Envelope)
	if err := rlp.DecodeBytes(data, envelope); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	return envelope, nil
}

// Hash returns the Keccak-256 hash of the full envelope encoding, used for
// duplicate suppression.
func (e *Envelope) Hash() common.Hash {
	return crypto.Keccak256Hash(e.Encode())
}

// body returns the encoding of the envelope without its work nonce. This is
// the content the proof of work commits to.
func (e *Envelope) body() []byte {
	encoded, err := rlp.EncodeToBytes([]interface{}{
		e.Version, e.Expiry, e.TTL, e.Topic,
		e.AESNonce, e.AESSalt, e.Payload,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to encode envelope body: %v", err))
	}
	return encoded
}

// Work returns the number of leading zero bits in the proof of work hash of
// the envelope.
func (e *Envelope) Work() int {
	nonce := e.WorkNonce
	if nonce == nil {
		nonce = uint256.NewInt(0)
	}
	nonceBytes := nonce.Bytes32()
	return leadingZeroBits(crypto.Keccak256Hash(e.body(), nonceBytes[:]))
}

// Seal searches for a work nonce giving the envelope at least target leading
// zero bits of work. The search is bounded; unreachable targets fail with
// ErrCouldNotSeal.
func (e *Envelope) Seal(target int) error {
	body := e.body()
	nonce := new(uint256.Int)
	for attempt := uint64(0); attempt < sealAttempts; attempt++ {
		nonce.SetUint64(attempt)
		nonceBytes := nonce.Bytes32()
		if leadingZeroBits(crypto.Keccak256Hash(body, nonceBytes[:])) >= target {
			e.WorkNonce = nonce
			return nil
		}
	}
	return ErrCouldNotSeal
}

func leadingZeroBits(hash common.Hash) int {
	zeros := 0
	for _, b := range hash {
		zeros += bits.LeadingZeros8(b)
		if b != 0 {
			break
		}
	}
	return zeros
}

// Message is the decrypted content of an envelope payload. The signature is
// optional; when present it covers the Keccak-256 hash of the payload.
// Wire format: [flags, padding, payload] or [flags, padding, payload, signature].
type Message struct {
	Flags     byte
	Padding   []byte
	Payload   []byte
	Signature []byte
}

// EncodeRLP implements rlp.Encoder.
func (m *Message) EncodeRLP(w io.Writer) error {
	if len(m.Signature) == 0 {
		return rlp.Encode(w, []interface{}{m.Flags, m.Padding, m.Payload})
	}
	return rlp.Encode(w, []interface{}{m.Flags, m.Padding, m.Payload, m.Signature})
}

// DecodeRLP implements rlp.Decoder.
func (m *Message) DecodeRLP(s *rlp.Stream) error {
	if _, err := s.List(); err != nil {
		return err
	}
	flags, err := s.Uint64()
	if err != nil {
		return err
	}
	if flags > 0xff {
		return fmt.Errorf("invalid message flags %d", flags)
	}
	decoded := Message{Flags: byte(flags)}
	if decoded.Padding, err = s.Bytes(); err != nil {
		return err
	}
	if decoded.Payload, err = s.Bytes(); err != nil {
		return err
	}
	if s.MoreDataInList() {
		if decoded.Signature, err = s.Bytes(); err != nil {
			return err
		}
		if len(decoded.Signature) != crypto.SignatureLength {
			return fmt.Errorf("invalid message signature length %d", len(decoded.Signature))
		}
	}
	if err := s.ListEnd(); err != nil {
		return err
	}
	decoded.Padding = normalize(decoded.Padding)
	decoded.Payload = normalize(decoded.Payload)
	*m = decoded
	return nil
}

func normalize(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

// Encode returns the RLP encoding of the message.
func (m *Message) Encode() []byte {
	encoded, err := rlp.EncodeToBytes(m)
	if err != nil {
		panic(fmt.Sprintf("failed to encode message: %v", err))
	}
	return encoded
}

// DecodeGossipMessage decodes a message from an envelope payload.
func DecodeGossipMessage(data []byte) (*Message, error) {
	message := new(Message)
	if err := rlp.DecodeBytes(data, message); err != nil {
		return nil, fmt.Errorf("failed to decode gossip message: %w", err)
	}
	return message, nil
}

// Recover returns the address that signed the message payload, or an error
// if the message is unsigned.
func (m *Message) Recover() (common.Address, error) {
	if len(m.Signature) == 0 {
		return common.Address{}, errors.New("message is not signed")
	}
	hash := crypto.Keccak256Hash(m.Payload)
	public, err := crypto.SigToPub(hash[:], m.Signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover message signer: %w", err)
	}
	return crypto.PubkeyToAddress(*public), nil
}
