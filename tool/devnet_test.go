// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDevnetConfig_DefaultsApplyWithoutAFile(t *testing.T) {
	require := require.New(t)

	config, err := loadDevnetConfig("")
	require.NoError(err)
	require.Equal(defaultDevnetConfig(), config)
	require.NoError(config.validate())
}

func TestDevnetConfig_FileValuesOverrideDefaults(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "devnet.toml")
	require.NoError(os.WriteFile(path, []byte(`
validators = 7
blocks = 2
timeout_ms = 250
data_dir = "/tmp/abab-devnet"
`), 0o600))

	config, err := loadDevnetConfig(path)
	require.NoError(err)
	require.Equal(7, config.Validators)
	require.Equal(2, config.Blocks)
	require.Equal(uint64(250), config.TimeoutMs)
	require.Equal("/tmp/abab-devnet", config.DataDir)
	// Unset keys keep their defaults.
	require.Equal(defaultDevnetConfig().WorkTarget, config.WorkTarget)
	require.Equal(defaultDevnetConfig().GasLimit, config.GasLimit)
}

func TestDevnetConfig_RejectsDegenerateNetworks(t *testing.T) {
	require := require.New(t)

	config := defaultDevnetConfig()
	config.Validators = 1
	require.Error(config.validate())

	config = defaultDevnetConfig()
	config.Blocks = 0
	require.Error(config.validate())
}

func TestDevnet_SealsBlocksInMemory(t *testing.T) {
	config := defaultDevnetConfig()
	config.Validators = 3
	config.Blocks = 3
	config.WorkTarget = 4

	require.NoError(t, runDevnet(config, zerolog.Nop()))
}

func TestDevnet_SealsBlocksWithPersistence(t *testing.T) {
	config := defaultDevnetConfig()
	config.Validators = 2
	config.Blocks = 2
	config.WorkTarget = 4
	config.DataDir = t.TempDir()

	require.NoError(t, runDevnet(config, zerolog.Nop()))
}
