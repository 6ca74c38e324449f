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

package polling

import (
	"sync/atomic"

	"github.com/ZaparooProject/getuid"
)

// Metrics is a snapshot of the session counters.
type Metrics struct {
	Requests        int64 // Requests answered or in progress
	PollCycles      int64 // Poll attempts issued
	Timeouts        int64 // Polls that ended without a card
	TransientErrors int64 // Benign I/O errors retried in place
	Resets          int64 // Reader link resets
	CardsSeen       int64 // Cards enumerated across all polls
	Unresolved      int64 // Polls whose cards all failed resolution
}

type counters struct {
	requests        atomic.Int64
	pollCycles      atomic.Int64
	timeouts        atomic.Int64
	transientErrors atomic.Int64
	resets          atomic.Int64
	cardsSeen       atomic.Int64
	unresolved      atomic.Int64
}

// Metrics returns the session counters.
func (s *Session) Metrics() Metrics {
	return Metrics{
		Requests:        s.metrics.requests.Load(),
		PollCycles:      s.metrics.pollCycles.Load(),
		Timeouts:        s.metrics.timeouts.Load(),
		TransientErrors: s.metrics.transientErrors.Load(),
		Resets:          s.metrics.resets.Load(),
		CardsSeen:       s.metrics.cardsSeen.Load(),
		Unresolved:      s.metrics.unresolved.Load(),
	}
}

func (s *Session) logMetrics() {
	m := s.Metrics()
	getuid.Logger().Debug().
		Int64("requests", m.Requests).
		Int64("poll_cycles", m.PollCycles).
		Int64("timeouts", m.Timeouts).
		Int64("transient_errors", m.TransientErrors).
		Int64("resets", m.Resets).
		Int64("cards_seen", m.CardsSeen).
		Int64("unresolved", m.Unresolved).
		Int("request_polls", s.state.Polls).
		Msg("request resolved")
}
