// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package result

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResult_OkCarriesValue(t *testing.T) {
	require := require.New(t)

	value, err := Ok(12).Get()
	require.NoError(err)
	require.Equal(12, value)
}

func TestResult_ErrCarriesError(t *testing.T) {
	require := require.New(t)

	injected := fmt.Errorf("injected")
	_, err := Err[int](injected).Get()
	require.ErrorIs(err, injected)
}

func TestResult_WrapFoldsValueErrorPairs(t *testing.T) {
	require := require.New(t)

	value, err := Wrap(7, nil).Get()
	require.NoError(err)
	require.Equal(7, value)

	injected := fmt.Errorf("injected")
	_, err = Wrap(7, injected).Get()
	require.ErrorIs(err, injected)
}
