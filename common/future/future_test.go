// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package future

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFuture_FulfilledValueCanBeAwaited(t *testing.T) {
	require := require.New(t)

	promise, future := Create[int]()
	go promise.Fulfill(42)
	require.Equal(42, future.Await())
}

func TestFuture_ImmediateIsAlreadyFulfilled(t *testing.T) {
	require := require.New(t)

	future := Immediate("done")
	require.Equal("done", future.Await())
}

func TestFuture_ThenTransformsTheResult(t *testing.T) {
	require := require.New(t)

	promise, future := Create[int]()
	doubled := Then(future, func(v int) int { return v * 2 })
	promise.Fulfill(21)
	require.Equal(42, doubled.Await())
}
