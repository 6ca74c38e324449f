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
	"errors"
	"time"
)

// RequestState is the state of the request cycle.
type RequestState int

const (
	// StateIdle waits for a trigger from the caller.
	StateIdle RequestState = iota
	// StatePolling polls the reader until a card yields a UID.
	StatePolling
	// StateRecovering resets the reader link after a hardware error.
	StateRecovering
	// StateReporting writes the resolved UID to the caller.
	StateReporting
)

func (s RequestState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateRecovering:
		return "recovering"
	case StateReporting:
		return "reporting"
	default:
		return "unknown"
	}
}

// ErrNoUIDInPoll is recorded when a poll found cards but none resolved.
var ErrNoUIDInPoll = errors.New("no card in poll yielded a uid")

// CycleState tracks the request in progress.
type CycleState struct {
	RequestStart time.Time
	LastPoll     time.Time
	LastUID      string
	State        RequestState
	Polls        int
}

// TransitionToPolling starts a new request.
func (cs *CycleState) TransitionToPolling() {
	cs.State = StatePolling
	cs.RequestStart = time.Now()
	cs.LastPoll = time.Time{}
	cs.LastUID = ""
	cs.Polls = 0
}

// RecordPoll counts one poll attempt.
func (cs *CycleState) RecordPoll() {
	cs.Polls++
	cs.LastPoll = time.Now()
}

// TransitionToRecovering marks a reset in progress.
func (cs *CycleState) TransitionToRecovering() {
	cs.State = StateRecovering
}

// TransitionToReporting records the resolved UID.
func (cs *CycleState) TransitionToReporting(uid string) {
	cs.State = StateReporting
	cs.LastUID = uid
}

// TransitionToIdle ends the request.
func (cs *CycleState) TransitionToIdle() {
	cs.State = StateIdle
}

// ResumePolling returns to polling after a reset.
func (cs *CycleState) ResumePolling() {
	cs.State = StatePolling
}
