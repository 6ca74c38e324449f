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
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ZaparooProject/getuid"
	"github.com/clausecker/freefare"
	"github.com/clausecker/nfc/v2"
)

// CardProtocol enumerates cards with libfreefare. Tags returned by
// freefare.GetTags can later be connected to, unlike tags built from the
// poll result, so every poll is followed by a fresh enumeration. Card types
// the freefare wrapper cannot represent (FeliCa, MIFARE Mini, NTAG21x) are
// answered from the poll target instead.
type CardProtocol struct{}

// NewCardProtocol returns a libfreefare card protocol.
func NewCardProtocol() *CardProtocol {
	return &CardProtocol{}
}

// ListCards returns the cards currently in the field of device.
func (*CardProtocol) ListCards(device getuid.Device) (*getuid.CardBatch, error) {
	dev, ok := device.(*Device)
	if !ok {
		return nil, fmt.Errorf("device %T is not a libnfc device", device)
	}
	if dev.closed {
		return nil, getuid.ErrLinkClosed
	}

	return getuid.EnumerateCards(func() (*getuid.CardBatch, error) {
		tags, err := freefare.GetTags(dev.dev)
		if err != nil {
			return nil, fmt.Errorf("get tags: %w", err)
		}
		cards := make([]getuid.Card, 0, len(tags))
		for _, tag := range tags {
			cards = append(cards, &Card{tag: tag})
		}
		// freefare releases tags with the garbage collector
		return getuid.NewCardBatch(cards, nil), nil
	}, func() []getuid.Card {
		if card := targetCard(dev.target); card != nil {
			return []getuid.Card{card}
		}
		return nil
	})
}

// ISO14443A SAK values of the card types freefare does not wrap
const (
	sakMifareMini = 0x09
	sakType2      = 0x00
)

// targetCard builds a passthrough card from a poll target.
func targetCard(target nfc.Target) getuid.Card {
	switch t := target.(type) {
	case *nfc.FelicaTarget:
		return getuid.NewPassthroughCard(hex.EncodeToString(t.ID[:]), getuid.FamilyFeliCa.String(), getuid.FamilyFeliCa)
	case *nfc.ISO14443aTarget:
		n := t.UIDLen
		if n <= 0 || n > len(t.UID) {
			return nil
		}
		family := getuid.FamilyUnknown
		switch t.Sak {
		case sakMifareMini:
			family = getuid.FamilyMifareMini
		case sakType2:
			// Ultralight is wrapped by freefare, so a type 2 tag that
			// failed enumeration is an NTAG21x
			family = getuid.FamilyNTAG21x
		}
		return getuid.NewPassthroughCard(hex.EncodeToString(t.UID[:n]), family.String(), family)
	default:
		return nil
	}
}

// Card wraps a libfreefare tag.
type Card struct {
	tag freefare.Tag
}

// UID returns the native UID in lowercase hex.
func (c *Card) UID() string {
	return strings.ToLower(c.tag.UID())
}

// Name returns libfreefare's friendly name for the tag.
func (c *Card) Name() string {
	return c.tag.String()
}

// Family maps the libfreefare tag type.
func (c *Card) Family() getuid.CardFamily {
	switch c.tag.Type() {
	case freefare.DESFire:
		return getuid.FamilyMifareDESFire
	case freefare.Classic1k:
		return getuid.FamilyMifareClassic1K
	case freefare.Classic4k:
		return getuid.FamilyMifareClassic4K
	case freefare.Ultralight:
		return getuid.FamilyMifareUltralight
	case freefare.UltralightC:
		return getuid.FamilyMifareUltralightC
	default:
		return getuid.FamilyUnknown
	}
}

func (c *Card) desfire() (freefare.DESFireTag, error) {
	dt, ok := c.tag.(freefare.DESFireTag)
	if !ok {
		return dt, getuid.ErrCardNotSupported
	}
	return dt, nil
}

// Connect opens a DESFire session in wrapped native command mode.
func (c *Card) Connect() error {
	dt, err := c.desfire()
	if err != nil {
		return err
	}
	if err := dt.Connect(); err != nil {
		return fmt.Errorf("mifare_desfire_connect: %w", err)
	}
	return nil
}

// SelectApplication selects a DESFire application.
func (c *Card) SelectApplication(aid uint32) error {
	dt, err := c.desfire()
	if err != nil {
		return err
	}
	if aid > getuid.MaxApplicationID {
		return fmt.Errorf("application id %#x: %w", aid, getuid.ErrInvalidCredential)
	}
	if err := dt.SelectApplication(freefare.NewDESFireAid(aid)); err != nil {
		return fmt.Errorf("select AID:%06x: %w", aid, err)
	}
	return nil
}

// Authenticate runs DESFire AES authentication.
func (c *Card) Authenticate(keySlot byte, key [getuid.KeySize]byte) error {
	dt, err := c.desfire()
	if err != nil {
		return err
	}
	aesKey := freefare.NewDESFireAESKey(key, 0)
	if aesKey == nil {
		return errors.New("could not create AES key")
	}
	if err := dt.Authenticate(keySlot, *aesKey); err != nil {
		return fmt.Errorf("authenticate key %d: %w", keySlot, err)
	}
	return nil
}

// CardUID reads the real UID over the authenticated channel.
func (c *Card) CardUID() (string, error) {
	dt, err := c.desfire()
	if err != nil {
		return "", err
	}
	uid, err := dt.CardUID()
	if err != nil {
		return "", fmt.Errorf("get card uid: %w", err)
	}
	return strings.ToLower(uid), nil
}

// Disconnect sends DESELECT.
func (c *Card) Disconnect() error {
	dt, err := c.desfire()
	if err != nil {
		return err
	}
	if err := dt.Disconnect(); err != nil {
		return fmt.Errorf("mifare_desfire_disconnect: %w", err)
	}
	return nil
}
