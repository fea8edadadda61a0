// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package chainstore

import (
	"fmt"
	"testing"

	"github.com/0xsoniclabs/abab/chain"
	"github.com/stretchr/testify/require"
)

func TestAsyncStore_ReadsObserveQueuedWrites(t *testing.T) {
	require := require.New(t)

	store := NewAsyncStore(NewMemoryStore())
	defer func() { require.NoError(store.Close()) }()

	header := testHeader(1)
	require.NoError(store.Put(header))

	restored, err := store.Get(header.Hash())
	require.NoError(err)
	require.Equal(header, restored)
}

func TestAsyncStore_HeadHashResolvesAfterPendingWrites(t *testing.T) {
	require := require.New(t)

	store := NewAsyncStore(NewMemoryStore())
	defer func() { require.NoError(store.Close()) }()

	header := testHeader(3)
	require.NoError(store.Put(header))

	hash, err := store.HeadHash().Await().Get()
	require.NoError(err)
	require.Equal(header.Hash(), hash)
}

func TestAsyncStore_HeadHashOnEmptyStoreFails(t *testing.T) {
	require := require.New(t)

	store := NewAsyncStore(NewMemoryStore())
	defer func() { require.NoError(store.Close()) }()

	_, err := store.HeadHash().Await().Get()
	require.ErrorIs(err, ErrNotFound)
}

// brokenStore fails all writes, for testing issue collection.
type brokenStore struct {
	MemoryStore
}

func (s *brokenStore) Put(*chain.Header) error {
	return fmt.Errorf("disk on fire")
}

func TestAsyncStore_WriteIssuesSurfaceOnFlush(t *testing.T) {
	require := require.New(t)

	store := NewAsyncStore(&brokenStore{})
	require.NoError(store.Put(testHeader(1)))

	err := store.Flush()
	require.ErrorContains(err, "disk on fire")

	// Collected issues are reported once.
	require.NoError(store.Check())
	require.NoError(store.Close())
}

func TestAsyncStore_CloseReportsPendingIssues(t *testing.T) {
	require := require.New(t)

	store := NewAsyncStore(&brokenStore{})
	require.NoError(store.Put(testHeader(1)))
	require.ErrorContains(store.Close(), "disk on fire")
}

func TestAsyncStore_ManyIssuesAreTruncated(t *testing.T) {
	require := require.New(t)

	store := NewAsyncStore(&brokenStore{})
	for i := range 20 {
		require.NoError(store.Put(testHeader(uint64(i))))
	}
	err := store.Close()
	require.ErrorContains(err, "disk on fire")
	require.ErrorContains(err, "10 additional errors truncated")
}

func TestIssueCollector_IgnoresNilIssues(t *testing.T) {
	require := require.New(t)

	collector := issueCollector{}
	collector.HandleIssue(nil)
	require.NoError(collector.Collect())
}
