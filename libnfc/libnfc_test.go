//go:build libnfc

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

package libnfc

import (
	"errors"
	"testing"
	"time"

	"github.com/ZaparooProject/getuid"
	"github.com/clausecker/nfc/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err      error
		sentinel error
		name     string
		want     getuid.ErrorType
		code     int
	}{
		{name: "timeout", err: nfc.Error(nfc.ETIMEOUT), sentinel: getuid.ErrPollTimeout, want: getuid.ErrorTypeTimeout, code: nfc.ETIMEOUT},
		{name: "io", err: nfc.Error(nfc.EIO), sentinel: getuid.ErrDeviceIO, want: getuid.ErrorTypeTransient, code: nfc.EIO},
		{name: "chip", err: nfc.Error(nfc.ECHIP), sentinel: getuid.ErrDeviceFailure, want: getuid.ErrorTypePermanent, code: nfc.ECHIP},
		{name: "invalid argument", err: nfc.Error(nfc.EINVARG), sentinel: getuid.ErrDeviceFailure, want: getuid.ErrorTypePermanent, code: nfc.EINVARG},
		{name: "not an nfc error", err: errors.New("device closed"), sentinel: getuid.ErrDeviceFailure, want: getuid.ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := translate("poll target", "pn532_uart:/dev/ttyUSB0", tt.err)

			require.ErrorIs(t, err, tt.sentinel)
			require.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.want, getuid.GetErrorType(err))

			var devErr *getuid.DeviceError
			require.ErrorAs(t, err, &devErr)
			assert.Equal(t, tt.code, devErr.Code)
		})
	}
}

func TestToModulation(t *testing.T) {
	t.Parallel()

	want := []nfc.Modulation{
		{Type: nfc.ISO14443a, BaudRate: nfc.Nbr106},
		{Type: nfc.Felica, BaudRate: nfc.Nbr424},
		{Type: nfc.Felica, BaudRate: nfc.Nbr212},
	}
	for i, m := range getuid.DefaultModulations {
		got, err := toModulation(m)
		require.NoError(t, err)
		assert.Equal(t, want[i], got)
	}

	_, err := toModulation(getuid.Modulation{Type: getuid.ModulationType(99), BaudRate: getuid.BaudRate106})
	require.Error(t, err)
	_, err = toModulation(getuid.Modulation{Type: getuid.ModulationISO14443A, BaudRate: getuid.BaudRate(847)})
	require.Error(t, err)
}

func TestPollPeriod(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 300*time.Millisecond, pollPeriod(getuid.DefaultPollPeriod))
	assert.Equal(t, 150*time.Millisecond, pollPeriod(1))
	assert.Equal(t, 2250*time.Millisecond, pollPeriod(15))
}

func TestTargetCard(t *testing.T) {
	t.Parallel()

	felica := &nfc.FelicaTarget{ID: [8]byte{0x01, 0x2E, 0x4C, 0xD9, 0xA2, 0xB3, 0xC4, 0xD5}}
	ntag := &nfc.ISO14443aTarget{Sak: 0x00, UIDLen: 7, UID: [10]byte{0x04, 0xA1, 0xB2, 0xC3, 0xD4, 0xE5, 0xF6}}
	mini := &nfc.ISO14443aTarget{Sak: 0x09, UIDLen: 4, UID: [10]byte{0x1A, 0x2B, 0x3C, 0x4D}}
	other := &nfc.ISO14443aTarget{Sak: 0x20, UIDLen: 4, UID: [10]byte{0x08, 0x01, 0x02, 0x03}}

	tests := []struct {
		target nfc.Target
		name   string
		uid    string
		family getuid.CardFamily
	}{
		{name: "felica", target: felica, uid: "012e4cd9a2b3c4d5", family: getuid.FamilyFeliCa},
		{name: "ntag21x", target: ntag, uid: "04a1b2c3d4e5f6", family: getuid.FamilyNTAG21x},
		{name: "mini", target: mini, uid: "1a2b3c4d", family: getuid.FamilyMifareMini},
		{name: "other iso14443a", target: other, uid: "08010203", family: getuid.FamilyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			card := targetCard(tt.target)
			require.NotNil(t, card)
			assert.Equal(t, tt.uid, card.UID())
			assert.Equal(t, tt.family, card.Family())
			require.ErrorIs(t, card.Connect(), getuid.ErrCardNotSupported)
		})
	}

	assert.Nil(t, targetCard(nil))
	assert.Nil(t, targetCard(&nfc.ISO14443aTarget{UIDLen: 0}))
}
