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
	"time"
)

// Option configures a Link.
type Option func(*Link) error

// WithLinkConfig replaces the whole link configuration.
func WithLinkConfig(config *LinkConfig) Option {
	return func(l *Link) error {
		if config == nil {
			return errors.New("link config cannot be nil")
		}
		l.config = config
		return nil
	}
}

// WithResetDelay sets the pause between reset attempts.
func WithResetDelay(delay time.Duration) Option {
	return func(l *Link) error {
		l.config.ResetDelay = delay
		return nil
	}
}

// WithModulations sets the modulation profiles polled for.
func WithModulations(mods ...Modulation) Option {
	return func(l *Link) error {
		l.config.Modulations = append([]Modulation(nil), mods...)
		return nil
	}
}

// WithPollPeriod sets the poll period in units of 150ms.
func WithPollPeriod(period byte) Option {
	return func(l *Link) error {
		l.config.PollPeriod = period
		return nil
	}
}

// WithSleeper replaces time.Sleep for reset delays.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(l *Link) error {
		l.config.Sleep = sleep
		return nil
	}
}
