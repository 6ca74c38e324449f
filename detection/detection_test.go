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

package detection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		devicePath  string
		ignorePaths []string
		expected    bool
	}{
		{name: "empty ignore list", devicePath: "/dev/ttyUSB0", ignorePaths: []string{}},
		{name: "empty device path", devicePath: "", ignorePaths: []string{"/dev/ttyUSB0"}},
		{name: "exact match", devicePath: "/dev/ttyUSB0", ignorePaths: []string{"/dev/ttyUSB0"}, expected: true},
		{name: "windows port", devicePath: "com2", ignorePaths: []string{"COM2"}, expected: true},
		{name: "case insensitive", devicePath: "/dev/ttyUSB0", ignorePaths: []string{"/DEV/TTYUSB0"}, expected: true},
		{name: "no match", devicePath: "/dev/ttyUSB1", ignorePaths: []string{"/dev/ttyUSB0"}},
		{name: "relative components", devicePath: "/dev/../dev/ttyACM0", ignorePaths: []string{"/dev/ttyACM0"}, expected: true},
		{name: "i2c bus", devicePath: "/dev/i2c-1", ignorePaths: []string{"", "/dev/i2c-1"}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsPathIgnored(tt.devicePath, tt.ignorePaths))
		})
	}
}

func TestIsBlocked(t *testing.T) {
	t.Parallel()

	blocklist := []string{"10c4:ea60", " 1A86:7523 "}
	assert.True(t, IsBlocked("10C4:EA60", blocklist))
	assert.True(t, IsBlocked("1a86:7523", blocklist))
	assert.False(t, IsBlocked("0403:6001", blocklist))
	assert.False(t, IsBlocked("", blocklist))
	assert.False(t, IsBlocked("10C4:EA60", DefaultBlocklist()))
}

func TestFormatVIDPID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "10C4:EA60", FormatVIDPID("10c4", "ea60"))
	assert.Equal(t, "0403:6001", FormatVIDPID(" 0403", "6001 "))
	assert.Empty(t, FormatVIDPID("", "6001"))
	assert.Empty(t, FormatVIDPID("xyz", "6001"))
}

func TestDeviceInfo_Connstring(t *testing.T) {
	t.Parallel()
	info := DeviceInfo{Driver: "pn532_uart", Path: "/dev/ttyUSB0"}
	assert.Equal(t, "pn532_uart:/dev/ttyUSB0", info.Connstring())
}

type fakeDetector struct {
	err       error
	transport string
	devices   []DeviceInfo
}

func (f *fakeDetector) Transport() string { return f.transport }

func (f *fakeDetector) Detect(context.Context, *Options) ([]DeviceInfo, error) {
	return f.devices, f.err
}

// withDetectors swaps the registry for the duration of a test.
func withDetectors(t *testing.T, list ...Detector) {
	t.Helper()
	detectorsMu.Lock()
	saved := detectors
	detectors = map[string]Detector{}
	detectorsMu.Unlock()
	for _, d := range list {
		RegisterDetector(d)
	}
	t.Cleanup(func() {
		detectorsMu.Lock()
		detectors = saved
		detectorsMu.Unlock()
	})
}

//nolint:paralleltest // mutates the detector registry
func TestDetectAll(t *testing.T) {
	i2cBus := DeviceInfo{Transport: "i2c", Driver: "pn532_i2c", Path: "/dev/i2c-1"}
	usb0 := DeviceInfo{Transport: "uart", Driver: "pn532_uart", Path: "/dev/ttyUSB0"}
	usb1 := DeviceInfo{Transport: "uart", Driver: "pn532_uart", Path: "/dev/ttyUSB1"}

	t.Run("serial before i2c", func(t *testing.T) {
		withDetectors(t,
			&fakeDetector{transport: "i2c", devices: []DeviceInfo{i2cBus}},
			&fakeDetector{transport: "uart", devices: []DeviceInfo{usb0, usb1}},
		)

		devices, err := DetectAll(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, []DeviceInfo{usb0, usb1, i2cBus}, devices)
	})

	t.Run("ignored paths and failing detectors", func(t *testing.T) {
		withDetectors(t,
			&fakeDetector{transport: "i2c", err: ErrUnsupportedPlatform},
			&fakeDetector{transport: "uart", devices: []DeviceInfo{usb0, usb1}},
		)

		devices, err := DetectAll(context.Background(), &Options{IgnorePaths: []string{"/dev/ttyUSB0"}})

		require.NoError(t, err)
		assert.Equal(t, []DeviceInfo{usb1}, devices)
	})

	t.Run("nothing found", func(t *testing.T) {
		withDetectors(t, &fakeDetector{transport: "uart", err: errors.New("no ports")})

		_, err := DetectAll(context.Background(), nil)

		require.ErrorIs(t, err, ErrNoDevicesFound)
	})

	t.Run("cancelled", func(t *testing.T) {
		withDetectors(t, &fakeDetector{transport: "uart", devices: []DeviceInfo{usb0}})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := DetectAll(ctx, nil)

		require.ErrorIs(t, err, context.Canceled)
	})
}
