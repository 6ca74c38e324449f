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

// Package detection finds reader connection strings that the reader driver
// did not enumerate on its own.
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Detection errors
var (
	ErrNoDevicesFound      = errors.New("no devices found")
	ErrUnsupportedPlatform = errors.New("platform not supported")
)

// DeviceInfo describes a candidate reader.
type DeviceInfo struct {
	Metadata  map[string]string
	Transport string
	Path      string
	Name      string
	Driver    string
}

// Connstring returns the reader connection string, e.g. "pn532_uart:/dev/ttyUSB0".
func (d DeviceInfo) Connstring() string {
	return fmt.Sprintf("%s:%s", d.Driver, d.Path)
}

// Options control a detection pass.
type Options struct {
	// IgnorePaths are device paths that are never offered.
	IgnorePaths []string
	// Blocklist holds USB VID:PID pairs that are never offered.
	Blocklist []string
}

// DefaultOptions returns the default detection options.
func DefaultOptions() Options {
	return Options{Blocklist: DefaultBlocklist()}
}

// Detector finds candidates on one transport.
type Detector interface {
	Transport() string
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

var (
	detectorsMu sync.Mutex
	detectors   = map[string]Detector{}
)

// transportOrder is the order candidates are offered in.
var transportOrder = map[string]int{"uart": 0, "i2c": 1}

// RegisterDetector makes a detector available to DetectAll. Detector
// packages call it from init.
func RegisterDetector(d Detector) {
	detectorsMu.Lock()
	defer detectorsMu.Unlock()
	detectors[d.Transport()] = d
}

func registered() []Detector {
	detectorsMu.Lock()
	defer detectorsMu.Unlock()
	list := make([]Detector, 0, len(detectors))
	for _, d := range detectors {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool {
		return transportOrder[list[i].Transport()] < transportOrder[list[j].Transport()]
	})
	return list
}

// DetectAll runs every registered detector. Detector failures are skipped;
// ErrNoDevicesFound is returned when no detector found anything.
func DetectAll(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}

	var devices []DeviceInfo
	for _, d := range registered() {
		select {
		case <-ctx.Done():
			return devices, fmt.Errorf("detection interrupted: %w", ctx.Err())
		default:
		}

		found, err := d.Detect(ctx, opts)
		if err != nil {
			continue
		}
		for _, dev := range found {
			if IsPathIgnored(dev.Path, opts.IgnorePaths) {
				continue
			}
			devices = append(devices, dev)
		}
	}

	if len(devices) == 0 {
		return nil, ErrNoDevicesFound
	}
	return devices, nil
}
