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

// Package libnfc implements the reader and card collaborators on top of
// libnfc and libfreefare.
package libnfc

import (
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/getuid"
	"github.com/clausecker/nfc/v2"
)

// Driver opens libnfc devices.
type Driver struct{}

// NewDriver returns a libnfc driver.
func NewDriver() *Driver {
	return &Driver{}
}

// ListDevices returns the connection strings libnfc knows about.
func (*Driver) ListDevices() ([]string, error) {
	devices, err := nfc.ListDevices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}

// Open opens the device at path; an empty path opens the first device.
func (*Driver) Open(path string) (getuid.Device, error) {
	dev, err := nfc.Open(path)
	if err != nil {
		return nil, translate("open", path, err)
	}
	return &Device{dev: dev, path: path}, nil
}

// Device wraps an open libnfc device.
type Device struct {
	dev    nfc.Device
	target nfc.Target // selected by the last successful poll
	path   string
	closed bool
}

// NFC returns the wrapped libnfc device.
func (d *Device) NFC() nfc.Device {
	return d.dev
}

// InitiatorInit puts the device into initiator mode.
func (d *Device) InitiatorInit() error {
	if d.closed {
		return getuid.ErrLinkClosed
	}
	if err := d.dev.InitiatorInit(); err != nil {
		return translate("initiator init", d.path, err)
	}
	return nil
}

var properties = map[getuid.Property]int{
	getuid.PropertyActivateField:  nfc.ActivateField,
	getuid.PropertyHandleCRC:      nfc.HandleCRC,
	getuid.PropertyHandleParity:   nfc.HandleParity,
	getuid.PropertyAutoISO14443_4: nfc.AutoISO14443_4,
}

// SetPropertyBool sets a boolean libnfc property.
func (d *Device) SetPropertyBool(property getuid.Property, value bool) error {
	if d.closed {
		return getuid.ErrLinkClosed
	}
	p, ok := properties[property]
	if !ok {
		return fmt.Errorf("unsupported property %s", property)
	}
	if err := d.dev.SetPropertyBool(p, value); err != nil {
		return translate("set property "+property.String(), d.path, err)
	}
	return nil
}

// PollTarget runs nfc_initiator_poll_target.
func (d *Device) PollTarget(modulations []getuid.Modulation, pollCount, period byte) (bool, error) {
	if d.closed {
		return false, getuid.ErrLinkClosed
	}

	mods := make([]nfc.Modulation, 0, len(modulations))
	for _, m := range modulations {
		mod, err := toModulation(m)
		if err != nil {
			return false, err
		}
		mods = append(mods, mod)
	}

	d.target = nil
	count, target, err := d.dev.InitiatorPollTarget(mods, int(pollCount), pollPeriod(period))
	if err != nil {
		return false, translate("poll target", d.path, err)
	}
	if count > 0 {
		d.target = target
	}
	return count > 0, nil
}

// pollPeriod converts a period in units of 150ms.
func pollPeriod(units byte) time.Duration {
	return time.Duration(units) * 150 * time.Millisecond
}

func toModulation(m getuid.Modulation) (nfc.Modulation, error) {
	var mod nfc.Modulation
	switch m.Type {
	case getuid.ModulationISO14443A:
		mod.Type = nfc.ISO14443a
	case getuid.ModulationFeliCa:
		mod.Type = nfc.Felica
	default:
		return mod, fmt.Errorf("unsupported modulation type %d", m.Type)
	}
	switch m.BaudRate {
	case getuid.BaudRate106:
		mod.BaudRate = nfc.Nbr106
	case getuid.BaudRate212:
		mod.BaudRate = nfc.Nbr212
	case getuid.BaudRate424:
		mod.BaudRate = nfc.Nbr424
	default:
		return mod, fmt.Errorf("unsupported baud rate %d", m.BaudRate)
	}
	return mod, nil
}

// LastError returns the device's last error.
func (d *Device) LastError() error {
	if d.closed {
		return getuid.ErrLinkClosed
	}
	return d.dev.LastError()
}

// Connection returns the connection string of the device.
func (d *Device) Connection() string {
	if d.closed {
		return d.path
	}
	return d.dev.Connection()
}

// Close closes the device. Closing twice is a no-op.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.dev.Close(); err != nil {
		return translate("close", d.path, err)
	}
	return nil
}

// translate maps libnfc error codes onto the getuid error classes.
func translate(op, path string, err error) error {
	var nfcErr nfc.Error
	if !errors.As(err, &nfcErr) {
		return getuid.NewDeviceError(op, path, 0, fmt.Errorf("%w: %w", getuid.ErrDeviceFailure, err))
	}
	return getuid.NewDeviceError(op, path, int(nfcErr), fmt.Errorf("%w: %w", classify(int(nfcErr)), err))
}

func classify(code int) error {
	switch code {
	case nfc.ETIMEOUT:
		return getuid.ErrPollTimeout
	case nfc.EIO:
		return getuid.ErrDeviceIO
	default:
		return getuid.ErrDeviceFailure
	}
}
