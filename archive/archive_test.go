// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package archive

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	archive, err := Open(filepath.Join(t.TempDir(), "messages.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, archive.Close()) })
	return archive
}

func testEntry(height uint64, sender byte, signature byte) Entry {
	sig := make([]byte, 65)
	sig[0] = signature
	return Entry{
		Height:    height,
		View:      0,
		BlockHash: common.HexToHash("0x01"),
		Sender:    common.Address{sender},
		Signature: sig,
		Raw:       []byte{0xc2, signature, sender},
	}
}

func TestArchive_RecordAndReadBack(t *testing.T) {
	require := require.New(t)
	archive := openTestArchive(t)

	entry := testEntry(1, 0xaa, 0x01)
	entry.View = 2
	entry.ViewChange = true
	require.NoError(archive.Record(entry))

	entries, err := archive.MessagesAt(1)
	require.NoError(err)
	require.Equal([]Entry{entry}, entries)
}

func TestArchive_MessagesAreOrderedByInsertion(t *testing.T) {
	require := require.New(t)
	archive := openTestArchive(t)

	first := testEntry(1, 0xaa, 0x01)
	second := testEntry(1, 0xbb, 0x02)
	require.NoError(archive.Record(first))
	require.NoError(archive.Record(second))

	entries, err := archive.MessagesAt(1)
	require.NoError(err)
	require.Equal([]Entry{first, second}, entries)
}

func TestArchive_DuplicateSignaturesAreIgnored(t *testing.T) {
	require := require.New(t)
	archive := openTestArchive(t)

	entry := testEntry(1, 0xaa, 0x01)
	require.NoError(archive.Record(entry))
	require.NoError(archive.Record(entry))

	count, err := archive.Count()
	require.NoError(err)
	require.Equal(uint64(1), count)
}

func TestArchive_MessagesBySenderCrossHeights(t *testing.T) {
	require := require.New(t)
	archive := openTestArchive(t)

	require.NoError(archive.Record(testEntry(1, 0xaa, 0x01)))
	require.NoError(archive.Record(testEntry(2, 0xaa, 0x02)))
	require.NoError(archive.Record(testEntry(2, 0xbb, 0x03)))

	entries, err := archive.MessagesBy(common.Address{0xaa})
	require.NoError(err)
	require.Len(entries, 2)
	require.Equal(uint64(1), entries[0].Height)
	require.Equal(uint64(2), entries[1].Height)
}

func TestArchive_PruneDropsOldHeights(t *testing.T) {
	require := require.New(t)
	archive := openTestArchive(t)

	require.NoError(archive.Record(testEntry(1, 0xaa, 0x01)))
	require.NoError(archive.Record(testEntry(2, 0xaa, 0x02)))
	require.NoError(archive.Record(testEntry(3, 0xaa, 0x03)))

	require.NoError(archive.Prune(3))

	count, err := archive.Count()
	require.NoError(err)
	require.Equal(uint64(1), count)

	entries, err := archive.MessagesAt(3)
	require.NoError(err)
	require.Len(entries, 1)
}

func TestArchive_SurvivesReopening(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "messages.db")

	archive, err := Open(path)
	require.NoError(err)
	require.NoError(archive.Record(testEntry(1, 0xaa, 0x01)))
	require.NoError(archive.Close())

	reopened, err := Open(path)
	require.NoError(err)
	defer func() { require.NoError(reopened.Close()) }()

	count, err := reopened.Count()
	require.NoError(err)
	require.Equal(uint64(1), count)
}
