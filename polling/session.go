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

// Package polling answers caller requests by polling the reader until a card
// yields a UID.
package polling

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ZaparooProject/getuid"
)

// Config holds configuration options for the Session
type Config struct {
	// Sleep replaces time.Sleep for pacing delays.
	Sleep func(time.Duration)
	// PollDelay separates poll attempts to bound RF duty cycle and CPU use.
	PollDelay time.Duration
	// TransientDelay is the pause after a benign I/O error.
	TransientDelay time.Duration
}

// DefaultConfig returns default session configuration
func DefaultConfig() *Config {
	return &Config{
		PollDelay:      50 * time.Millisecond,
		TransientDelay: 50 * time.Millisecond,
	}
}

// Session answers caller requests with resolved UIDs, one request at a time.
//
// Thread Safety: Session is NOT thread-safe apart from Metrics, which may be
// read from other goroutines.
type Session struct {
	link     *getuid.Link
	cards    getuid.CardProtocol
	resolver *getuid.Resolver
	config   *Config
	metrics  counters
	state    CycleState
}

// NewSession creates a session on an open link.
func NewSession(
	link *getuid.Link,
	cards getuid.CardProtocol,
	resolver *getuid.Resolver,
	config *Config,
) (*Session, error) {
	if link == nil {
		return nil, errors.New("link cannot be nil")
	}
	if cards == nil {
		return nil, errors.New("card protocol cannot be nil")
	}
	if resolver == nil {
		resolver = getuid.NewResolver(nil)
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &Session{
		link:     link,
		cards:    cards,
		resolver: resolver,
		config:   config,
	}, nil
}

// Serve reads triggers from r and writes one UID line to w per newline
// received. It returns nil at end of input and an error when reading from r
// or writing to w fails.
func (s *Session) Serve(r io.Reader, w io.Writer) error {
	in := bufio.NewReader(r)
	out := bufio.NewWriter(w)

	for {
		b, err := in.ReadByte()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not read from client: %w", err)
		}
		if b != '\n' {
			continue
		}

		uid := s.Request()
		if err := s.report(out, uid); err != nil {
			return err
		}
	}
}

func (s *Session) report(out *bufio.Writer, uid string) error {
	defer s.state.TransitionToIdle()

	getuid.Logger().Debug().Str("uid", uid).Msg("forward token")
	if _, err := out.WriteString(uid + "\n"); err != nil {
		return fmt.Errorf("could not write to client: %w", err)
	}
	if err := out.Flush(); err != nil {
		return fmt.Errorf("could not write to client: %w", err)
	}
	return nil
}

// Request polls until a card yields a UID and returns it. It blocks until
// then, resetting the reader link as often as needed.
func (s *Session) Request() string {
	s.state.TransitionToPolling()
	s.metrics.requests.Add(1)

	if err := s.link.InitiatorInit(); err != nil {
		getuid.Logger().Debug().Err(err).Msg("initiator init")
	}

	for {
		uid, err := s.pollOnce()
		if err == nil {
			s.state.TransitionToReporting(uid)
			s.logMetrics()
			return uid
		}
		if errors.Is(err, errRetryNow) {
			continue
		}
		s.sleep(s.config.PollDelay)
	}
}

// errRetryNow asks the loop to poll again without the pacing delay.
var errRetryNow = errors.New("retry without delay")

// pollOnce runs a single poll attempt and classifies its outcome.
func (s *Session) pollOnce() (string, error) {
	s.state.RecordPoll()
	s.metrics.pollCycles.Add(1)

	found, err := s.link.Poll()
	switch {
	case err == nil && !found:
		// Success code without a target; poll again
		return "", errRetryNow
	case err == nil:
		return s.resolveDetected()
	case getuid.IsTimeout(err):
		s.metrics.timeouts.Add(1)
		return "", errRetryNow
	case getuid.IsTransient(err):
		s.metrics.transientErrors.Add(1)
		getuid.Logger().Debug().Err(err).Msg("transient poll error")
		s.sleep(s.config.TransientDelay)
		return "", errRetryNow
	default:
		getuid.Logger().Error().Err(err).Str("path", s.link.Path()).Msg("poll failed")
		s.state.TransitionToRecovering()
		s.link.Reset()
		s.metrics.resets.Add(1)
		s.state.ResumePolling()
		return "", err
	}
}

// resolveDetected enumerates the cards in the field and resolves them in
// order until one yields a UID.
func (s *Session) resolveDetected() (string, error) {
	batch, err := s.cards.ListCards(s.link.Device())
	if err != nil || batch == nil {
		getuid.Logger().Debug().Err(err).Msg("list cards")
		return "", errRetryNow
	}
	defer batch.Release()

	s.metrics.cardsSeen.Add(int64(len(batch.Cards)))
	uid, ok := s.resolver.ResolveFirst(batch.Cards)
	if !ok {
		s.metrics.unresolved.Add(1)
		return "", ErrNoUIDInPoll
	}
	return uid, nil
}

func (s *Session) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if s.config.Sleep != nil {
		s.config.Sleep(d)
		return
	}
	time.Sleep(d)
}

// State returns the current request state.
func (s *Session) State() CycleState {
	return s.state
}

// Link returns the reader link used by the session.
func (s *Session) Link() *getuid.Link {
	return s.link
}

// Close closes the reader link.
func (s *Session) Close() error {
	if err := s.link.Close(); err != nil {
		return fmt.Errorf("failed to close link: %w", err)
	}
	return nil
}
