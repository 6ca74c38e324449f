// getuid
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of getuid.
//
// getuid is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// getuid is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with getuid; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package getuid

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testKeyA = [KeySize]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	testKeyB = [KeySize]byte{0xFF, 0xEE, 0xDD, 0xCC, 0xBB, 0xAA, 0x99, 0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11, 0x00}
)

func mustTable(t *testing.T, creds ...Credential) *CredentialTable {
	t.Helper()
	table, err := NewCredentialTable(creds...)
	require.NoError(t, err)
	return table
}

func TestResolver_NonRandomFamiliesPassThrough(t *testing.T) {
	t.Parallel()

	families := []CardFamily{
		FamilyUnknown,
		FamilyFeliCa,
		FamilyMifareMini,
		FamilyMifareClassic1K,
		FamilyMifareClassic4K,
		FamilyMifareUltralight,
		FamilyMifareUltralightC,
		FamilyNTAG21x,
	}
	resolver := NewResolver(mustTable(t, Credential{ApplicationID: 0x17, KeySlot: 7, Key: testKeyA}))

	for _, family := range families {
		t.Run(family.String(), func(t *testing.T) {
			t.Parallel()
			card := NewMockCard("04112233", family)

			uid, err := resolver.Resolve(card)

			require.NoError(t, err)
			assert.Equal(t, "04112233", uid)
			assert.Empty(t, card.Calls, "no protocol calls expected")
		})
	}
}

func TestResolver_LongDESFireUIDPassesThrough(t *testing.T) {
	t.Parallel()
	card := NewMockCard("04811A4AAE2780", FamilyMifareDESFire)
	resolver := NewResolver(mustTable(t, Credential{ApplicationID: 0x17, KeySlot: 7, Key: testKeyA}))

	uid, err := resolver.Resolve(card)

	require.NoError(t, err)
	assert.Equal(t, "04811a4aae2780", uid)
	assert.Empty(t, card.Calls)
}

func TestResolver_RandomUIDAuthenticates(t *testing.T) {
	t.Parallel()
	card := NewMockCard("808b7a4d", FamilyMifareDESFire).WithApplication(0x000017, 7, testKeyA)
	card.BackendUID = "04811a4aae2780"
	resolver := NewResolver(mustTable(t, Credential{ApplicationID: 0x000017, KeySlot: 7, Key: testKeyA}))

	uid, err := resolver.Resolve(card)

	require.NoError(t, err)
	assert.Equal(t, "04811a4aae2780", uid)
	assert.Equal(t, []string{
		"Connect",
		"SelectApplication(000017)",
		"Authenticate(7)",
		"CardUID",
		"Disconnect",
	}, card.Calls)
}

func TestResolver_TriesCredentialsInOrder(t *testing.T) {
	t.Parallel()
	// Only the third credential matches; the first names a missing
	// application, the second uses the wrong key.
	card := NewMockCard("808b7a4d", FamilyMifareDESFire).
		WithApplication(0x000018, 1, testKeyA).
		WithApplication(0x000019, 2, testKeyB)
	card.BackendUID = "04aabbccddeeff"
	resolver := NewResolver(mustTable(t,
		Credential{ApplicationID: 0x000017, KeySlot: 7, Key: testKeyA},
		Credential{ApplicationID: 0x000018, KeySlot: 1, Key: testKeyB},
		Credential{ApplicationID: 0x000019, KeySlot: 2, Key: testKeyB},
		Credential{ApplicationID: 0x00001A, KeySlot: 3, Key: testKeyA},
	))

	uid, err := resolver.Resolve(card)

	require.NoError(t, err)
	assert.Equal(t, "04aabbccddeeff", uid)
	assert.Equal(t, []string{
		"Connect",
		"SelectApplication(000017)",
		"SelectApplication(000018)",
		"Authenticate(1)",
		"SelectApplication(000019)",
		"Authenticate(2)",
		"CardUID",
		"Disconnect",
	}, card.Calls)
}

func TestResolver_NeverReadsUIDBeforeAuthentication(t *testing.T) {
	t.Parallel()
	card := NewMockCard("808b7a4d", FamilyMifareDESFire).WithApplication(0x000017, 7, testKeyB)
	card.BackendUID = "04811a4aae2780"
	resolver := NewResolver(mustTable(t,
		Credential{ApplicationID: 0x000017, KeySlot: 7, Key: testKeyA},
		Credential{ApplicationID: 0x000017, KeySlot: 6, Key: testKeyB},
	))

	_, err := resolver.Resolve(card)

	require.ErrorIs(t, err, ErrUIDNotFound)
	assert.NotContains(t, card.Calls, "CardUID")
	assert.Equal(t, "Disconnect", card.Calls[len(card.Calls)-1])
}

func TestResolver_EmptyTableDoesNotConnect(t *testing.T) {
	t.Parallel()
	card := NewMockCard("808b7a4d", FamilyMifareDESFire)

	for _, resolver := range []*Resolver{NewResolver(nil), NewResolver(mustTable(t))} {
		uid, err := resolver.Resolve(card)

		require.ErrorIs(t, err, ErrUIDNotFound)
		require.ErrorIs(t, err, ErrNoCredentials)
		assert.Empty(t, uid)
	}
	assert.Empty(t, card.Calls)
}

func TestResolver_ConnectFailure(t *testing.T) {
	t.Parallel()
	card := NewMockCard("808b7a4d", FamilyMifareDESFire).WithApplication(0x000017, 7, testKeyA)
	card.ConnectErr = errors.New("RATS failed")
	resolver := NewResolver(mustTable(t, Credential{ApplicationID: 0x000017, KeySlot: 7, Key: testKeyA}))

	_, err := resolver.Resolve(card)

	require.ErrorIs(t, err, ErrUIDNotFound)
	assert.Equal(t, []string{"Connect"}, card.Calls)
}

// Not parallel: swaps the package logger.
func TestResolver_ConnectFailureLogsOnlyAtDebug(t *testing.T) {
	prev := *Logger()
	t.Cleanup(func() {
		SetLogger(prev)
		SetDebugEnabled(false)
	})

	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	resolve := func() {
		card := NewMockCard("808b7a4d", FamilyMifareDESFire).WithApplication(0x000017, 7, testKeyA)
		card.ConnectErr = errors.New("RATS failed")
		resolver := NewResolver(mustTable(t, Credential{ApplicationID: 0x000017, KeySlot: 7, Key: testKeyA}))
		_, err := resolver.Resolve(card)
		require.ErrorIs(t, err, ErrUIDNotFound)
	}

	SetDebugEnabled(false)
	resolve()
	assert.Empty(t, buf.String())

	SetDebugEnabled(true)
	resolve()
	assert.Contains(t, buf.String(), `"level":"debug"`)
	assert.Contains(t, buf.String(), "RATS failed")
	assert.NotContains(t, buf.String(), `"level":"warn"`)
}

func TestResolver_SameCardResolvesToSameUID(t *testing.T) {
	t.Parallel()
	resolver := NewResolver(mustTable(t, Credential{ApplicationID: 0x000017, KeySlot: 7, Key: testKeyA}))

	// Each presentation shows a different random UID
	var uids []string
	for _, random := range []string{"808b7a4d", "08f1c2d3"} {
		card := NewMockCard(random, FamilyMifareDESFire).WithApplication(0x000017, 7, testKeyA)
		card.BackendUID = "04811a4aae2780"
		uid, err := resolver.Resolve(card)
		require.NoError(t, err)
		uids = append(uids, uid)
	}

	assert.Equal(t, uids[0], uids[1])
}

func TestResolver_ResolveFirstStopsAtFirstUID(t *testing.T) {
	t.Parallel()
	resolver := NewResolver(mustTable(t, Credential{ApplicationID: 0x000017, KeySlot: 7, Key: testKeyA}))

	locked := NewMockCard("808b7a4d", FamilyMifareDESFire)
	classic := NewMockCard("04112233", FamilyMifareClassic1K)
	later := NewMockCard("04aabbcc", FamilyMifareClassic1K)

	uid, ok := resolver.ResolveFirst([]Card{locked, classic, later})

	assert.True(t, ok)
	assert.Equal(t, "04112233", uid)
	assert.Equal(t, []string{"Connect", "SelectApplication(000017)", "Disconnect"}, locked.Calls)
	assert.Empty(t, later.Calls)
}

func TestResolver_ResolveFirstNothingResolves(t *testing.T) {
	t.Parallel()
	resolver := NewResolver(nil)

	uid, ok := resolver.ResolveFirst([]Card{NewMockCard("808b7a4d", FamilyMifareDESFire)})

	assert.False(t, ok)
	assert.Empty(t, uid)

	_, ok = resolver.ResolveFirst(nil)
	assert.False(t, ok)
}
