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
	"fmt"

	"github.com/0xsoniclabs/abab/spec"
	"github.com/urfave/cli/v2"
)

var SpecCmd = cli.Command{
	Action:    doCheckSpec,
	Name:      "spec",
	Usage:     "validate a chain spec and print its engine configuration",
	ArgsUsage: "<spec file>",
}

func doCheckSpec(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("missing chain spec file parameter")
	}

	loaded, err := spec.LoadFile(context.Args().Get(0))
	if err != nil {
		return err
	}
	params := loaded.EngineParams()
	genesis := loaded.GenesisHeader()

	fmt.Printf("Chain:                   %s\n", loaded.Name)
	fmt.Printf("Engine:                  Abab\n")
	fmt.Printf("Gas limit bound divisor: %d\n", params.GasLimitBoundDivisor)
	fmt.Printf("View timeout:            %v\n", params.ViewTimeout)
	fmt.Printf("Block reward:            %s wei\n", params.BlockReward)
	fmt.Printf("Validators:              %d\n", len(params.Validators))
	for i, validator := range params.Validators {
		fmt.Printf("  %3d: %s\n", i, validator)
	}
	fmt.Printf("Genesis hash:            %s\n", genesis.Hash())
	return nil
}
