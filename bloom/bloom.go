// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package bloom implements the 2048-bit log bloom filter used in block
// headers. Each element sets three bits derived from the Keccak-256 hash of
// its content, allowing logs to be probed without replaying blocks.
package bloom

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Size is the byte length of a Bloom.
const Size = 256

// Bloom is a 2048-bit filter over log addresses and topics. The zero value
// is the empty filter. Bit indices grow from the end of the array, matching
// the big-endian integer interpretation used on the wire.
type Bloom [Size]byte

// Add accrues the given data into the filter.
func (b *Bloom) Add(data []byte) {
	i1, v1, i2, v2, i3, v3 := bloomPositions(data)
	b[i1] |= v1
	b[i2] |= v2
	b[i3] |= v3
}

// Contains reports whether the data may have been added to the filter.
// False positives are possible, false negatives are not.
func (b *Bloom) Contains(data []byte) bool {
	i1, v1, i2, v2, i3, v3 := bloomPositions(data)
	return b[i1]&v1 == v1 && b[i2]&v2 == v2 && b[i3]&v3 == v3
}

// AddBloom merges another filter into this one.
func (b *Bloom) AddBloom(other *Bloom) {
	for i := range b {
		b[i] |= other[i]
	}
}

// Empty reports whether no bit of the filter is set.
func (b *Bloom) Empty() bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// Hex returns the filter as an unprefixed hexadecimal string.
func (b *Bloom) Hex() string {
	return hex.EncodeToString(b[:])
}

// FromHex parses an unprefixed hexadecimal string into a Bloom.
func FromHex(s string) (Bloom, error) {
	var b Bloom
	raw, err := hex.DecodeString(s)
	if err != nil {
		return b, fmt.Errorf("invalid bloom encoding: %w", err)
	}
	if len(raw) != Size {
		return b, fmt.Errorf("invalid bloom length: got %d bytes, want %d", len(raw), Size)
	}
	copy(b[:], raw)
	return b, nil
}

// bloomPositions computes the three (byte index, bit mask) pairs for the
// given data. Each pair is taken from two bytes of the Keccak-256 hash,
// reduced to the low 11 bits.
func bloomPositions(data []byte) (i1 uint, v1 byte, i2 uint, v2 byte, i3 uint, v3 byte) {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(data)
	hash := hasher.Sum(nil)

	b1 := (uint(hash[0])<<8 | uint(hash[1])) & 0x7ff
	b2 := (uint(hash[2])<<8 | uint(hash[3])) & 0x7ff
	b3 := (uint(hash[4])<<8 | uint(hash[5])) & 0x7ff

	i1, v1 = Size-1-b1/8, byte(1)<<(b1%8)
	i2, v2 = Size-1-b2/8, byte(1)<<(b2%8)
	i3, v3 = Size-1-b3/8, byte(1)<<(b3%8)
	return
}
