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

// Package i2c offers I2C buses as pn532_i2c reader candidates.
package i2c

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ZaparooProject/getuid/detection"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// DriverName is the reader driver used for I2C readers.
const DriverName = "pn532_i2c"

// bus is the part of an i2creg.Ref the detector needs.
type bus struct {
	Name   string
	Number int
}

// listBuses is replaced in tests.
var listBuses = func() ([]bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	refs := i2creg.All()
	buses := make([]bus, 0, len(refs))
	for _, ref := range refs {
		buses = append(buses, bus{Name: ref.Name, Number: ref.Number})
	}
	return buses, nil
}

type detector struct{}

// New creates a new I2C detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "i2c"
}

// Detect offers every registered I2C bus. The reader driver probes the
// PN532 address itself when the candidate is opened.
func (*detector) Detect(_ context.Context, _ *detection.Options) ([]detection.DeviceInfo, error) {
	if runtime.GOOS != "linux" {
		return nil, detection.ErrUnsupportedPlatform
	}

	buses, err := listBuses()
	if err != nil {
		return nil, err
	}

	devices := make([]detection.DeviceInfo, 0, len(buses))
	for _, b := range buses {
		if b.Number < 0 {
			continue
		}
		path := fmt.Sprintf("/dev/i2c-%d", b.Number)
		devices = append(devices, detection.DeviceInfo{
			Transport: "i2c",
			Driver:    DriverName,
			Path:      path,
			Name:      fmt.Sprintf("I2C bus %s", b.Name),
			Metadata:  map[string]string{"bus": b.Name},
		})
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}
