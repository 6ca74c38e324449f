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
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// MaxApplicationID is the largest DESFire application identifier (24 bits).
	MaxApplicationID = 0xFFFFFF
	// MaxKeySlot is the highest key number a DESFire application can hold.
	MaxKeySlot = 13
	// KeySize is the length of an AES-128 key in bytes.
	KeySize = 16
)

// Credential is one (application, key slot, AES key) triple tried against a
// DESFire card with random UID enabled.
type Credential struct {
	ApplicationID uint32
	KeySlot       byte
	Key           [KeySize]byte
}

// NewCredential validates its arguments and builds a Credential.
func NewCredential(aid uint32, keySlot byte, key []byte) (Credential, error) {
	if aid > MaxApplicationID {
		return Credential{}, fmt.Errorf("%w: application id %#x exceeds 24 bits", ErrInvalidCredential, aid)
	}
	if keySlot > MaxKeySlot {
		return Credential{}, fmt.Errorf("%w: key slot %d out of range 0-%d", ErrInvalidCredential, keySlot, MaxKeySlot)
	}
	if len(key) != KeySize {
		return Credential{}, fmt.Errorf("%w: key is %d bytes, want %d", ErrInvalidCredential, len(key), KeySize)
	}

	cred := Credential{ApplicationID: aid, KeySlot: keySlot}
	copy(cred.Key[:], key)
	return cred, nil
}

// ParseKey decodes a hex encoded AES key. Whitespace and colons are ignored.
func ParseKey(s string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ':':
			return -1
		}
		return r
	}, s)

	key, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key is %d bytes, want %d", ErrInvalidCredential, len(key), KeySize)
	}
	return key, nil
}

// String never includes key material.
func (c Credential) String() string {
	return fmt.Sprintf("AID:%06x key:%d", c.ApplicationID, c.KeySlot)
}

// CredentialTable is the ordered, read-only list of credentials. Order is
// trial order.
type CredentialTable struct {
	creds []Credential
}

// NewCredentialTable validates every entry and returns the table. The first
// invalid entry is reported as a *CredentialError.
func NewCredentialTable(creds ...Credential) (*CredentialTable, error) {
	table := &CredentialTable{creds: make([]Credential, 0, len(creds))}
	for i, c := range creds {
		if _, err := NewCredential(c.ApplicationID, c.KeySlot, c.Key[:]); err != nil {
			return nil, &CredentialError{Index: i, AID: c.ApplicationID, Err: err}
		}
		table.creds = append(table.creds, c)
	}
	return table, nil
}

// Len returns the number of credentials.
func (t *CredentialTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.creds)
}

// Credentials returns a copy of the table in trial order.
func (t *CredentialTable) Credentials() []Credential {
	if t == nil {
		return nil
	}
	out := make([]Credential, len(t.creds))
	copy(out, t.creds)
	return out
}
