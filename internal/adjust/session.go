/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package adjust implements the provisional editing workflow: a session
// snapshots the document's anchor and style, writes changes straight into the
// document, and on cancel writes the snapshot back.
package adjust

import (
	"errors"
	"log/slog"
	"time"

	"mojist/internal/domain"
	applog "mojist/internal/log"

	"github.com/google/uuid"
)

var (
	ErrSessionClosed = errors.New("adjustment session closed")
	ErrInvalidStep   = errors.New("invalid nudge step")
)

// Auto-repeat timing for a held nudge button.
const (
	RepeatDelay    = 500 * time.Millisecond
	RepeatInterval = 100 * time.Millisecond
)

// ValidSteps lists the nudge steps a session accepts.
var ValidSteps = []int{1, 5, 10}

// Target is the document surface a session edits.
type Target interface {
	Snapshot() domain.EditState
	Restore(domain.EditState)
	Anchor() domain.Anchor
	SetAnchor(x, y int)
	SetStyle(domain.StylePatch)
	SetFontSizeClamped(n int)
	SetOutlineWidthClamped(n int)
}

// Controller owns at most one open session.
type Controller struct {
	target Target
	sched  Scheduler
	cur    *Session
	log    *slog.Logger
}

// NewController returns a closed controller. A nil scheduler uses timers
// that run callbacks on the timer goroutine.
func NewController(t Target, s Scheduler) *Controller {
	if s == nil {
		s = TimerScheduler{}
	}
	return &Controller{target: t, sched: s, log: applog.WithComponent("adjust")}
}

// Open starts a session. When one is already open it is returned with
// reopened set.
func (c *Controller) Open() (s *Session, reopened bool) {
	if c.cur != nil {
		return c.cur, true
	}
	s = &Session{
		c:        c,
		id:       uuid.NewString(),
		snapshot: c.target.Snapshot(),
		step:     1,
	}
	s.log = applog.WithSession(c.log, s.id)
	c.cur = s
	s.log.Debug("session opened", "anchor_x", s.snapshot.Anchor.X, "anchor_y", s.snapshot.Anchor.Y)
	return s, false
}

// Current returns the open session or nil.
func (c *Controller) Current() *Session { return c.cur }

func (c *Controller) IsOpen() bool { return c.cur != nil }

// Session is one open adjustment. It is not safe for concurrent use; timer
// callbacks must be delivered on the owner thread via the scheduler.
type Session struct {
	c        *Controller
	id       string
	snapshot domain.EditState
	step     int
	closed   bool

	timer   Timer
	holding domain.Direction
	gen     int

	log *slog.Logger
}

func (s *Session) ID() string                 { return s.id }
func (s *Session) Step() int                  { return s.step }
func (s *Session) Closed() bool               { return s.closed }
func (s *Session) Snapshot() domain.EditState { return s.snapshot }

func (s *Session) SetStep(n int) error {
	if s.closed {
		return ErrSessionClosed
	}
	for _, v := range ValidSteps {
		if v == n {
			s.step = n
			return nil
		}
	}
	return ErrInvalidStep
}

// Nudge moves the anchor one step in dir.
func (s *Session) Nudge(dir domain.Direction) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.move(dir)
	return nil
}

func (s *Session) move(dir domain.Direction) {
	dx, dy := dir.Delta()
	a := s.c.target.Anchor().Offset(dx*s.step, dy*s.step)
	s.c.target.SetAnchor(a.X, a.Y)
}

// Press nudges once and starts auto-repeat: after RepeatDelay, then every
// RepeatInterval until Release.
func (s *Session) Press(dir domain.Direction) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.stopRepeat()
	s.holding = dir
	s.move(dir)
	s.schedule(RepeatDelay)
	return nil
}

func (s *Session) schedule(d time.Duration) {
	gen := s.gen
	s.timer = s.c.sched.AfterFunc(d, func() { s.fire(gen) })
}

func (s *Session) fire(gen int) {
	// a stale callback can still arrive after Release when it was already posted
	if s.closed || gen != s.gen || s.timer == nil {
		return
	}
	s.move(s.holding)
	s.schedule(RepeatInterval)
}

// Release stops auto-repeat.
func (s *Session) Release() { s.stopRepeat() }

func (s *Session) stopRepeat() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

// Repeating reports whether an auto-repeat is pending.
func (s *Session) Repeating() bool { return s.timer != nil }

func (s *Session) SetFontSize(n int) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.c.target.SetFontSizeClamped(n)
	return nil
}

func (s *Session) SetOutlineWidth(n int) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.c.target.SetOutlineWidthClamped(n)
	return nil
}

func (s *Session) SetFillColor(c string) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.c.target.SetStyle(domain.StylePatch{FillColor: &c})
	return nil
}

func (s *Session) SetOutlineColor(c string) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.c.target.SetStyle(domain.StylePatch{OutlineColor: &c})
	return nil
}

// Confirm keeps the current document values and closes the session.
func (s *Session) Confirm() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.close()
	s.log.Debug("session confirmed")
	return nil
}

// Cancel writes the snapshot back into the document and closes the session.
func (s *Session) Cancel() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.close()
	s.c.target.Restore(s.snapshot)
	s.log.Debug("session cancelled")
	return nil
}

func (s *Session) close() {
	s.stopRepeat()
	s.closed = true
	if s.c.cur == s {
		s.c.cur = nil
	}
}
