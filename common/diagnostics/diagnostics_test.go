// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package diagnostics

import (
	"flag"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestDiagnostics_WrappedActionIsExecuted(t *testing.T) {
	require := require.New(t)

	diagnosticsFlag := &cli.IntFlag{Name: "diagnostic-port"}
	cpuProfileFlag := &cli.StringFlag{Name: "cpuprofile"}
	traceFlag := &cli.StringFlag{Name: "tracefile"}

	executed := false
	action := AddPerformanceDiagnosticsAction(func(*cli.Context) error {
		executed = true
		return nil
	}, diagnosticsFlag, cpuProfileFlag, traceFlag)

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.Int("diagnostic-port", 0, "")
	set.String("cpuprofile", "", "")
	set.String("tracefile", "", "")
	ctx := cli.NewContext(cli.NewApp(), set, nil)

	require.NoError(action(ctx))
	require.True(executed)
}

func TestDiagnostics_CpuProfileIsWrittenWhenRequested(t *testing.T) {
	require := require.New(t)

	profile := filepath.Join(t.TempDir(), "cpu.prof")

	diagnosticsFlag := &cli.IntFlag{Name: "diagnostic-port"}
	cpuProfileFlag := &cli.StringFlag{Name: "cpuprofile"}
	traceFlag := &cli.StringFlag{Name: "tracefile"}

	action := AddPerformanceDiagnosticsAction(func(*cli.Context) error {
		return nil
	}, diagnosticsFlag, cpuProfileFlag, traceFlag)

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.Int("diagnostic-port", 0, "")
	set.String("cpuprofile", profile, "")
	set.String("tracefile", "", "")
	require.NoError(set.Set("cpuprofile", profile))
	ctx := cli.NewContext(cli.NewApp(), set, nil)

	require.NoError(action(ctx))
	require.FileExists(profile)
}

func TestDiagnostics_TotalSystemMemoryIsNonZero(t *testing.T) {
	require := require.New(t)
	require.NotZero(TotalSystemMemory())
}
