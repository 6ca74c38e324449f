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

// Package uart offers serial ports as pn532_uart reader candidates.
package uart

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/ZaparooProject/getuid/detection"
	"go.bug.st/serial/enumerator"
)

// DriverName is the reader driver used for serial readers.
const DriverName = "pn532_uart"

// listPorts is replaced in tests.
var listPorts = enumerator.GetDetailedPortsList

type detector struct{}

// New creates a new serial port detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "uart"
}

// Detect lists serial ports, skipping blocklisted USB adapters and ports that
// cannot carry a reader.
func (*detector) Detect(_ context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	devices := make([]detection.DeviceInfo, 0, len(ports))
	for _, port := range ports {
		if port == nil || !candidatePort(port.Name) {
			continue
		}

		info := detection.DeviceInfo{
			Transport: "uart",
			Driver:    DriverName,
			Path:      port.Name,
			Name:      port.Name,
			Metadata:  map[string]string{},
		}
		if port.IsUSB {
			vidpid := detection.FormatVIDPID(port.VID, port.PID)
			if detection.IsBlocked(vidpid, opts.Blocklist) {
				continue
			}
			info.Metadata["vidpid"] = vidpid
			info.Metadata["serial"] = port.SerialNumber
			if port.Product != "" {
				info.Name = fmt.Sprintf("%s (%s)", port.Product, port.Name)
			}
		}
		devices = append(devices, info)
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// candidatePort drops ports that never host a reader: Bluetooth serial
// profiles and the macOS dial-in twins of callout devices.
func candidatePort(name string) bool {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "bluetooth") {
		return false
	}
	if runtime.GOOS == "darwin" && strings.HasPrefix(name, "/dev/tty.") {
		return false
	}
	return true
}
