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

/*
Package getuid resolves stable UIDs of contactless cards presented to an NFC
reader, including MIFARE DESFire cards with random UID enabled.

Cards that present a fixed UID are answered directly. A DESFire card with
random UID shows a fresh 4 byte UID on every activation; its real UID can only
be read after authenticating to one of its applications. The Resolver tries
the configured credentials in order and returns the backend UID read with the
first one that works.

Basic Usage:

	import (
	    "github.com/ZaparooProject/getuid"
	    "github.com/ZaparooProject/getuid/libnfc"
	    "github.com/ZaparooProject/getuid/polling"
	)

	key, _ := getuid.ParseKey("00112233445566778899aabbccddeeff")
	cred, err := getuid.NewCredential(0x000017, 7, key)
	if err != nil {
	    log.Fatal(err)
	}
	table, err := getuid.NewCredentialTable(cred)
	if err != nil {
	    log.Fatal(err)
	}

	link, err := getuid.OpenLink(libnfc.NewDriver(), "pn532_uart:/dev/ttyUSB0")
	if err != nil {
	    log.Fatal(err)
	}
	defer link.Close()

	session, err := polling.NewSession(link, libnfc.NewCardProtocol(),
	    getuid.NewResolver(table), nil)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(session.Request())

Reader Recovery:

Poll timeouts are retried immediately and benign I/O errors after a short
pause. Any other reader error closes the device and reopens it until it comes
back; Link.Reset never gives up.

Error Handling:

Device errors wrap one of ErrPollTimeout, ErrDeviceIO or ErrDeviceFailure:

	if getuid.IsTransient(err) {
	    // retry on the same link
	}

Thread Safety:

Link and Session are not thread-safe. One goroutine owns the reader.
*/
package getuid
