// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package spec

import (
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const testSpec = `{
	"name": "TestAbab",
	"engine": {
		"abab": {
			"params": {
				"gasLimitBoundDivisor": "0x0400",
				"validators": {
					"list": ["0xc6d9d2cd449a754c494264e1809c50e34d64562b"]
				},
				"blockReward": "0x50"
			}
		}
	},
	"genesis": {
		"author": "0x0000000000000000000000000000000000000000",
		"difficulty": "0x20000",
		"gasLimit": "0x2fefd8",
		"timestamp": "0x00"
	}
}`

func TestSpec_ParsesEngineParams(t *testing.T) {
	require := require.New(t)

	spec, err := Load(strings.NewReader(testSpec))
	require.NoError(err)
	require.Equal("TestAbab", spec.Name)

	params := spec.EngineParams()
	require.Equal(uint64(0x400), params.GasLimitBoundDivisor)
	require.Equal([]common.Address{
		common.HexToAddress("0xc6d9d2cd449a754c494264e1809c50e34d64562b"),
	}, params.Validators)
	require.Equal(uint64(0x50), params.BlockReward.Uint64())
	require.Equal(time.Second, params.ViewTimeout, "timeout should default when absent")
}

func TestSpec_TimeoutIsParsedAsMilliseconds(t *testing.T) {
	require := require.New(t)

	withTimeout := strings.Replace(testSpec,
		`"blockReward": "0x50"`,
		`"blockReward": "0x50", "timeout": 250`, 1)
	spec, err := Load(strings.NewReader(withTimeout))
	require.NoError(err)
	require.Equal(250*time.Millisecond, spec.EngineParams().ViewTimeout)
}

func TestSpec_GenesisHeaderIsSealedWithEmptySeal(t *testing.T) {
	require := require.New(t)

	spec, err := Load(strings.NewReader(testSpec))
	require.NoError(err)

	genesis := spec.GenesisHeader()
	require.Equal(uint64(0), genesis.Number)
	require.Equal(uint64(0x2fefd8), genesis.GasLimit)
	require.Equal(uint64(0x20000), genesis.Difficulty.Uint64())
	require.Len(genesis.Seal, 4)
	require.Equal([]byte{0xc0}, genesis.Seal[2])
	require.Equal([]byte{0xc0}, genesis.Seal[3])
}

func TestSpec_RejectsEmptyValidatorList(t *testing.T) {
	require := require.New(t)

	broken := strings.Replace(testSpec,
		`["0xc6d9d2cd449a754c494264e1809c50e34d64562b"]`, `[]`, 1)
	_, err := Load(strings.NewReader(broken))
	require.ErrorContains(err, "validator list")
}

func TestSpec_RejectsDuplicateValidators(t *testing.T) {
	require := require.New(t)

	broken := strings.Replace(testSpec,
		`["0xc6d9d2cd449a754c494264e1809c50e34d64562b"]`,
		`["0xc6d9d2cd449a754c494264e1809c50e34d64562b",
		  "0xc6d9d2cd449a754c494264e1809c50e34d64562b"]`, 1)
	_, err := Load(strings.NewReader(broken))
	require.ErrorContains(err, "duplicate validator")
}

func TestSpec_RejectsZeroGasLimitBoundDivisor(t *testing.T) {
	require := require.New(t)

	broken := strings.Replace(testSpec, `"0x0400"`, `"0x0"`, 1)
	_, err := Load(strings.NewReader(broken))
	require.ErrorContains(err, "divisor")
}

func TestSpec_RejectsMissingEngine(t *testing.T) {
	require := require.New(t)

	_, err := Load(strings.NewReader(`{"name": "empty", "engine": {}}`))
	require.ErrorContains(err, "no supported engine")
}

func TestQuantity_AcceptsHexDecimalAndNumbers(t *testing.T) {
	require := require.New(t)

	for input, want := range map[string]Quantity{
		`"0x400"`: 0x400,
		`"1024"`:  1024,
		`2048`:    2048,
	} {
		var q Quantity
		require.NoError(q.UnmarshalJSON([]byte(input)), "input %s", input)
		require.Equal(want, q, "input %s", input)
	}

	var q Quantity
	require.Error(q.UnmarshalJSON([]byte(`"0xzz"`)))
	require.Error(q.UnmarshalJSON([]byte(`"-5"`)))
}
