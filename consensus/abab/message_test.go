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
	"testing"

	"github.com/0xsoniclabs/abab/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"
)

func signedMessage(t *testing.T, vote ViewVote) (*Message, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hash := vote.Hash()
	signature, err := crypto.Sign(hash[:], key)
	require.NoError(t, err)
	return &Message{Signature: signature, Vote: vote}, crypto.PubkeyToAddress(key.PublicKey)
}

func TestMessage_VoteEncodingRoundTrip(t *testing.T) {
	require := require.New(t)

	message, _ := signedMessage(t, NewVote(3, 1, common.HexToHash("0xbeef")))
	decoded, err := DecodeMessage(message.Encode())
	require.NoError(err)
	require.Equal(message, decoded)
	require.False(decoded.Vote.ViewChange)
}

func TestMessage_ViewChangeEncodingRoundTrip(t *testing.T) {
	require := require.New(t)

	message, _ := signedMessage(t, NewViewChange(5, 2))
	decoded, err := DecodeMessage(message.Encode())
	require.NoError(err)
	require.Equal(message, decoded)
	require.True(decoded.Vote.ViewChange)
	require.Equal(common.Hash{}, decoded.Vote.BlockHash)
}

func TestMessage_DecodingRejectsTrailingData(t *testing.T) {
	require := require.New(t)

	message, _ := signedMessage(t, NewVote(1, 0, common.HexToHash("0x01")))
	_, err := DecodeMessage(append(message.Encode(), 0x00))
	require.Error(err)
}

func TestMessage_DecodingRejectsShortSignatures(t *testing.T) {
	require := require.New(t)

	encoded, err := rlp.EncodeToBytes([]interface{}{
		[]byte{0x01, 0x02}, // not a 65-byte signature
		rlp.RawValue(NewViewChange(1, 0).Encode()),
	})
	require.NoError(err)
	_, err = DecodeMessage(encoded)
	require.ErrorContains(err, "signature length")
}

func TestMessage_RecoverReturnsTheSigner(t *testing.T) {
	require := require.New(t)

	message, signerAddress := signedMessage(t, NewVote(7, 0, common.HexToHash("0xabcd")))
	recovered, err := message.Recover()
	require.NoError(err)
	require.Equal(signerAddress, recovered)
}

func TestMessage_VoteHashesDifferByContent(t *testing.T) {
	require := require.New(t)

	base := NewVote(1, 0, common.HexToHash("0x01"))
	require.NotEqual(base.Hash(), NewVote(2, 0, common.HexToHash("0x01")).Hash())
	require.NotEqual(base.Hash(), NewVote(1, 1, common.HexToHash("0x01")).Hash())
	require.NotEqual(base.Hash(), NewVote(1, 0, common.HexToHash("0x02")).Hash())
	require.NotEqual(base.Hash(), NewViewChange(1, 0).Hash())
}

func TestMessage_ProposalFromHeaderReconstructsTheVote(t *testing.T) {
	require := require.New(t)

	header := &chain.Header{Number: 4}
	vote := NewVote(4, 1, header.BareHash())
	message, _ := signedMessage(t, vote)

	header.Seal = [][]byte{
		mustEncode(uint64(1)),
		mustEncode(message.Signature),
		emptyListRLP,
		emptyListRLP,
	}
	proposal, err := ProposalFromHeader(header)
	require.NoError(err)
	require.Equal(vote, proposal.Vote)
	require.Equal(message.Signature, proposal.Signature)
}

func TestMessage_ProposalFromHeaderRejectsWrongArity(t *testing.T) {
	require := require.New(t)

	header := &chain.Header{Number: 1, Seal: [][]byte{{0x80}}}
	_, err := ProposalFromHeader(header)
	require.Error(err)
}

func TestMessage_SignatureListRoundTrip(t *testing.T) {
	require := require.New(t)

	message1, _ := signedMessage(t, NewVote(1, 0, common.HexToHash("0x01")))
	message2, _ := signedMessage(t, NewVote(1, 0, common.HexToHash("0x01")))
	signatures := [][]byte{message1.Signature, message2.Signature}

	decoded, err := decodeSignatureList(encodeSignatureList(signatures))
	require.NoError(err)
	require.Equal(signatures, decoded)

	empty, err := decodeSignatureList(emptyListRLP)
	require.NoError(err)
	require.Empty(empty)
}

func TestMessage_SignatureListRejectsMalformedEntries(t *testing.T) {
	require := require.New(t)

	_, err := decodeSignatureList(encodeSignatureList([][]byte{{0x01}}))
	require.ErrorContains(err, "signature length")
}

func BenchmarkMessage_EncodeDecode(b *testing.B) {
	vote := NewVote(1, 0, common.HexToHash("0x01"))
	hash := vote.Hash()
	key, _ := crypto.GenerateKey()
	signature, _ := crypto.Sign(hash[:], key)
	message := &Message{Signature: signature, Vote: vote}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		encoded := message.Encode()
		if _, err := DecodeMessage(encoded); err != nil {
			b.Fatal(err)
		}
	}
}
