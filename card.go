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
	"errors"
	"fmt"
	"strings"
)

// CardFamily is the card type reported by the card-protocol library.
type CardFamily int

// Card families
const (
	FamilyUnknown CardFamily = iota
	FamilyFeliCa
	FamilyMifareMini
	FamilyMifareClassic1K
	FamilyMifareClassic4K
	FamilyMifareDESFire
	FamilyMifareUltralight
	FamilyMifareUltralightC
	FamilyNTAG21x
)

func (f CardFamily) String() string {
	switch f {
	case FamilyFeliCa:
		return "FeliCa"
	case FamilyMifareMini:
		return "MIFARE Mini"
	case FamilyMifareClassic1K:
		return "MIFARE Classic 1k"
	case FamilyMifareClassic4K:
		return "MIFARE Classic 4k"
	case FamilyMifareDESFire:
		return "MIFARE DESFire"
	case FamilyMifareUltralight:
		return "MIFARE Ultralight"
	case FamilyMifareUltralightC:
		return "MIFARE Ultralight C"
	case FamilyNTAG21x:
		return "NTAG21x"
	default:
		return "unknown"
	}
}

// RandomUIDCapable reports whether cards of this family may present a
// randomized UID at the wireless layer.
func (f CardFamily) RandomUIDCapable() bool {
	return f == FamilyMifareDESFire
}

// Card is one card found by a poll. It is valid until its batch is released.
type Card interface {
	// UID returns the native UID as lowercase hex.
	UID() string

	// Name returns a human readable card name, for diagnostics only.
	Name() string

	// Family returns the card type.
	Family() CardFamily

	// Connect opens a layer-4 session (wrapped native command mode).
	Connect() error

	// SelectApplication selects the application with the given 24 bit id.
	SelectApplication(aid uint32) error

	// Authenticate runs AES mutual authentication with the key in keySlot.
	Authenticate(keySlot byte, key [KeySize]byte) error

	// CardUID reads the backend UID over the authenticated channel and
	// returns it as lowercase hex.
	CardUID() (string, error)

	// Disconnect ends the session.
	Disconnect() error
}

// CardProtocol enumerates the cards currently in the field of a device.
type CardProtocol interface {
	ListCards(device Device) (*CardBatch, error)
}

// CardBatch holds the cards found by one poll. The cards must not be used
// after Release.
type CardBatch struct {
	release func()
	Cards   []Card
}

// NewCardBatch returns a batch that calls release once when released.
func NewCardBatch(cards []Card, release func()) *CardBatch {
	return &CardBatch{Cards: cards, release: release}
}

// Release frees every card of the batch.
func (b *CardBatch) Release() {
	if b == nil {
		return
	}
	if b.release != nil {
		b.release()
		b.release = nil
	}
	b.Cards = nil
}

// EnumerateCards runs list and recovers from a panic raised while it wraps a
// card type the protocol library does not support. The cards built by
// fallback are returned in that case. Ordinary errors from list are returned
// unchanged.
func EnumerateCards(list func() (*CardBatch, error), fallback func() []Card) (*CardBatch, error) {
	batch, err := recoverList(list)
	if err == nil || !errors.Is(err, ErrCardNotSupported) {
		return batch, err
	}

	var cards []Card
	if fallback != nil {
		cards = fallback()
	}
	if len(cards) == 0 {
		return nil, err
	}
	debugf("card enumeration: %v, using poll target", err)
	return NewCardBatch(cards, nil), nil
}

func recoverList(list func() (*CardBatch, error)) (batch *CardBatch, err error) {
	defer func() {
		if r := recover(); r != nil {
			batch = nil
			err = fmt.Errorf("%w: %v", ErrCardNotSupported, r)
		}
	}()
	return list()
}

// PassthroughCard is a card known only from its poll target. It reports its
// native UID and supports no protocol operations.
type PassthroughCard struct {
	NativeUID  string
	CardName   string
	CardFamily CardFamily
}

// NewPassthroughCard creates a card that answers with uid.
func NewPassthroughCard(uid, name string, family CardFamily) *PassthroughCard {
	return &PassthroughCard{NativeUID: strings.ToLower(uid), CardName: name, CardFamily: family}
}

// UID returns the native UID.
func (c *PassthroughCard) UID() string { return c.NativeUID }

// Name returns the card name.
func (c *PassthroughCard) Name() string { return c.CardName }

// Family returns the card family.
func (c *PassthroughCard) Family() CardFamily { return c.CardFamily }

// Connect is not supported.
func (*PassthroughCard) Connect() error { return ErrCardNotSupported }

// SelectApplication is not supported.
func (*PassthroughCard) SelectApplication(uint32) error { return ErrCardNotSupported }

// Authenticate is not supported.
func (*PassthroughCard) Authenticate(byte, [KeySize]byte) error { return ErrCardNotSupported }

// CardUID is not supported.
func (*PassthroughCard) CardUID() (string, error) { return "", ErrCardNotSupported }

// Disconnect is not supported.
func (*PassthroughCard) Disconnect() error { return ErrCardNotSupported }
