// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package chain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func testHeader() *Header {
	return &Header{
		ParentHash: common.HexToHash("0x01"),
		Author:     common.HexToAddress("0xc6d9d2cd449a754c494264e1809c50e34d64562b"),
		StateRoot:  common.HexToHash("0x02"),
		Difficulty: uint256.NewInt(131072),
		Number:     7,
		GasLimit:   3141562,
		GasUsed:    21000,
		Timestamp:  1234567890,
		Extra:      []byte("extra"),
		Seal:       [][]byte{{0x80}, {0xc0}},
	}
}

func TestHeader_EncodingRoundTrip(t *testing.T) {
	require := require.New(t)

	header := testHeader()
	encoded, err := header.Encode()
	require.NoError(err)

	decoded, err := DecodeHeader(encoded)
	require.NoError(err)
	require.Equal(header, decoded)
}

func TestHeader_DecodingRejectsTrailingData(t *testing.T) {
	require := require.New(t)

	encoded, err := testHeader().Encode()
	require.NoError(err)

	_, err = DecodeHeader(append(encoded, 0x00))
	require.Error(err)
}

func TestHeader_HashCoversSealFields(t *testing.T) {
	require := require.New(t)

	header := testHeader()
	other := header.WithSeal([][]byte{{0x01}, {0xc0}})

	require.NotEqual(header.Hash(), other.Hash())
	require.Equal(header.BareHash(), other.BareHash())
}

func TestHeader_BareHashIgnoresSealOnly(t *testing.T) {
	require := require.New(t)

	header := testHeader()
	other := header.Copy()
	other.Number++

	require.NotEqual(header.BareHash(), other.BareHash())
}

func TestHeader_WithSealDoesNotAliasInput(t *testing.T) {
	require := require.New(t)

	seal := [][]byte{{0x80}, {0xc0}}
	header := testHeader().WithSeal(seal)
	seal[0][0] = 0xff

	require.Equal(byte(0x80), header.Seal[0][0])
}

func TestHeader_CopyIsDeep(t *testing.T) {
	require := require.New(t)

	header := testHeader()
	clone := header.Copy()
	clone.Difficulty.SetUint64(1)
	clone.Extra[0] = 'X'
	clone.Seal[0][0] = 0xff

	require.Equal(uint64(131072), header.Difficulty.Uint64())
	require.Equal(byte('e'), header.Extra[0])
	require.Equal(byte(0x80), header.Seal[0][0])
}

func TestHeader_NilDifficultyHashesAsZero(t *testing.T) {
	require := require.New(t)

	header := testHeader()
	header.Difficulty = nil
	zeroed := testHeader()
	zeroed.Difficulty = uint256.NewInt(0)

	require.Equal(zeroed.BareHash(), header.BareHash())
}

func BenchmarkHeader_Hash(b *testing.B) {
	header := testHeader()
	for i := 0; i < b.N; i++ {
		_ = header.Hash()
	}
}
