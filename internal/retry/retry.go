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

// Package retry holds the retry helpers used by the reader link.
package retry

import (
	"time"
)

// Operation is attempted until it returns a nil error.
type Operation[T any] func() (T, error)

// Config controls a retry loop.
type Config struct {
	// OnRetry is called after each failed attempt, before sleeping.
	OnRetry func(attempt int, err error)
	// Sleep waits between attempts. Defaults to time.Sleep.
	Sleep func(time.Duration)
	// Description names the operation in diagnostics.
	Description string
	// Delay is the fixed pause between attempts.
	Delay time.Duration
}

func (c Config) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if c.Sleep != nil {
		c.Sleep(d)
		return
	}
	time.Sleep(d)
}

// Forever runs operation until it succeeds, pausing Delay after every
// failure. It never gives up; the returned int is the number of failed
// attempts.
func Forever[T any](config Config, operation Operation[T]) (T, int) {
	for attempt := 1; ; attempt++ {
		result, err := operation()
		if err == nil {
			return result, attempt - 1
		}
		if config.OnRetry != nil {
			config.OnRetry(attempt, err)
		}
		config.sleep(config.Delay)
	}
}
