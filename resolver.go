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
	"fmt"
	"strings"
)

// randomUIDHexLen is the hex length of a 4 byte UID. DESFire cards with
// random UID enabled always present a 4 byte UID; longer ones are fixed.
const randomUIDHexLen = 8

// Resolver turns a detected card into its canonical UID.
type Resolver struct {
	credentials *CredentialTable
}

// NewResolver creates a resolver that tries credentials in table order.
// A nil table behaves like an empty one.
func NewResolver(credentials *CredentialTable) *Resolver {
	if credentials == nil {
		credentials = &CredentialTable{}
	}
	return &Resolver{credentials: credentials}
}

// Credentials returns the table the resolver tries.
func (r *Resolver) Credentials() *CredentialTable {
	return r.credentials
}

// Resolve returns the UID of card. Cards that do not randomize their UID are
// answered from the native UID without any protocol traffic. Randomized
// DESFire UIDs are replaced by the backend UID read after authenticating with
// the first credential that works. ErrUIDNotFound is returned when no
// credential works.
func (r *Resolver) Resolve(card Card) (string, error) {
	uid := strings.ToLower(card.UID())
	family := card.Family()
	debugf("UID:%s NAME:%s", uid, card.Name())

	if !family.RandomUIDCapable() {
		return uid, nil
	}
	if len(uid) > randomUIDHexLen {
		return uid, nil
	}
	if r.credentials.Len() == 0 {
		return "", fmt.Errorf("%w: %s has random UID %s: %w", ErrUIDNotFound, family, uid, ErrNoCredentials)
	}

	debugln("desfire connect")
	if err := card.Connect(); err != nil {
		debugf("desfire connect (%s): %v", uid, err)
		return "", fmt.Errorf("%w: connect: %w", ErrUIDNotFound, err)
	}

	for _, cred := range r.credentials.creds {
		backend, err := r.tryCredential(card, cred)
		if err != nil {
			debugf("%s: %v", cred, err)
			continue
		}

		if err := card.Disconnect(); err != nil {
			debugf("desfire disconnect (%s): %v", cred, err)
		}
		debugf("%s: found uid %s", cred, backend)
		return backend, nil
	}

	if err := card.Disconnect(); err != nil {
		debugf("desfire disconnect: %v", err)
	}
	return "", fmt.Errorf("%w: no credential matched random UID %s", ErrUIDNotFound, uid)
}

// tryCredential runs one select, authenticate, get-UID sequence.
func (*Resolver) tryCredential(card Card, cred Credential) (string, error) {
	if err := card.SelectApplication(cred.ApplicationID); err != nil {
		return "", fmt.Errorf("select application: %w", err)
	}
	if err := card.Authenticate(cred.KeySlot, cred.Key); err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}
	uid, err := card.CardUID()
	if err != nil {
		return "", fmt.Errorf("get card uid: %w", err)
	}
	if uid == "" {
		return "", fmt.Errorf("get card uid: %w", ErrUIDNotFound)
	}
	return strings.ToLower(uid), nil
}

// ResolveFirst resolves the cards of a batch in order and returns the first
// UID found.
func (r *Resolver) ResolveFirst(cards []Card) (string, bool) {
	for _, card := range cards {
		uid, err := r.Resolve(card)
		if err == nil {
			return uid, true
		}
		debugf("skipping card: %v", err)
	}
	return "", false
}
