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

// Property is a boolean reader setting applied during link configuration.
type Property int

const (
	// PropertyActivateField switches the RF field on or off.
	PropertyActivateField Property = iota
	// PropertyHandleCRC lets the reader append and check CRC bytes.
	PropertyHandleCRC
	// PropertyHandleParity lets the reader generate and check parity bits.
	PropertyHandleParity
	// PropertyAutoISO14443_4 makes the reader send RATS on select so layer-4
	// cards are activated automatically.
	PropertyAutoISO14443_4
)

func (p Property) String() string {
	switch p {
	case PropertyActivateField:
		return "ACTIVATE_FIELD"
	case PropertyHandleCRC:
		return "HANDLE_CRC"
	case PropertyHandleParity:
		return "HANDLE_PARITY"
	case PropertyAutoISO14443_4:
		return "AUTO_ISO14443_4"
	default:
		return "UNKNOWN"
	}
}

// ModulationType is the RF modulation family of a poll profile.
type ModulationType int

// Modulation types
const (
	ModulationISO14443A ModulationType = iota + 1
	ModulationFeliCa
)

// BaudRate in kbps.
type BaudRate int

// Baud rates
const (
	BaudRate106 BaudRate = 106
	BaudRate212 BaudRate = 212
	BaudRate424 BaudRate = 424
)

// Modulation is one modulation/bitrate profile polled for.
type Modulation struct {
	Type     ModulationType
	BaudRate BaudRate
}

// DefaultModulations covers MIFARE (ISO14443A) and both FeliCa bitrates.
var DefaultModulations = []Modulation{
	{Type: ModulationISO14443A, BaudRate: BaudRate106},
	{Type: ModulationFeliCa, BaudRate: BaudRate424},
	{Type: ModulationFeliCa, BaudRate: BaudRate212},
}

const (
	// DefaultPollCount asks the reader to poll until the period elapses.
	DefaultPollCount byte = 0xFF
	// DefaultPollPeriod is expressed in units of 150ms.
	DefaultPollPeriod byte = 2
)

// Driver enumerates and opens reader devices.
type Driver interface {
	// ListDevices returns the connection strings of all known readers.
	ListDevices() ([]string, error)

	// Open connects to the reader at path. The returned device is not yet
	// configured.
	Open(path string) (Device, error)
}

// Device is an open reader handle.
//
// Thread Safety: Device is NOT thread-safe. The reader link is owned by a
// single goroutine for its whole lifetime.
type Device interface {
	// InitiatorInit puts the reader into initiator mode.
	InitiatorInit() error

	// SetPropertyBool changes a boolean reader property.
	SetPropertyBool(property Property, value bool) error

	// PollTarget waits up to pollCount*period*150ms for a target matching one
	// of the modulations. It returns true when a target was found. A poll
	// that neither finds a target nor fails returns false and a nil error.
	// Timeouts wrap ErrPollTimeout and benign I/O errors wrap ErrDeviceIO.
	PollTarget(modulations []Modulation, pollCount, period byte) (bool, error)

	// LastError returns the last error recorded by the device, or nil.
	LastError() error

	// Connection returns the connection string the device was opened with.
	Connection() string

	// Close releases the handle. Closing twice is a no-op.
	Close() error
}
