/*
   Scheduler: cycle-accurate hardware event table.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

// Package scheduler replaces the usual per-device polling loop with a small
// fixed-capacity priority table of pending hardware events (spec section
// 2 item 2 and section 4.2). Unlike a sorted event list, every slot is
// addressed directly by event ID, and an "earliest deadline" value is kept
// up to date incrementally so the execution loop's "how long until the next
// thing happens" query is O(1) rather than a scan.
package scheduler

import (
	"fmt"
	"log/slog"
	"math"
)

// Event identifies one of the fixed hardware event kinds named in spec
// section 4.2. The implementation note in spec section 9 permits a wider
// table than the reference's nine slots; this one has ten, one per event
// kind below.
type Event int

const (
	Timer0 Event = iota
	Timer1
	Timer2
	VBlank
	HBlank
	CDROM
	CDROMDeferred
	CDROMIrq
	DMA
	SIOIrq
	NumEvents
)

// Never is the deadline sentinel meaning "no active events".
const Never = uint64(math.MaxUint64)

// Callback runs when an event's deadline is reached. Callbacks must not
// raise guest exceptions or suspend (spec section 4.2); the normal case is
// that a callback reschedules itself for the next period.
type Callback func()

type slot struct {
	active   bool
	deadline uint64
	cb       Callback
}

// Scheduler is the passive event table described in spec section 4.2. It
// does not own time: the caller (the execution loop) advances
// global_cycles and must call Dispatch whenever a deadline may have been
// crossed.
type Scheduler struct {
	slots    [NumEvents]slot
	earliest uint64
	earlyID  int // -1 if no active slot
}

// New returns an empty scheduler with no active events.
func New() *Scheduler {
	return &Scheduler{earliest: Never, earlyID: -1}
}

// Schedule installs or replaces the deadline and callback for id. If the
// new deadline is earlier than or equal to the cached earliest, the cache
// update is O(1); otherwise, if id *was* the cached earliest and its new
// deadline is later, a linear rescan restores the cache (spec section 4.2).
func (s *Scheduler) Schedule(id Event, absCycle uint64, cb Callback) {
	if debugEnabled {
		slog.Debug("scheduler: event scheduled", "id", id, "deadline", absCycle)
	}
	wasEarliest := s.earlyID == int(id)
	s.slots[id] = slot{active: true, deadline: absCycle, cb: cb}

	switch {
	case absCycle <= s.earliest:
		s.earliest = absCycle
		s.earlyID = int(id)
	case wasEarliest:
		s.rescan()
	}
}

// Remove deactivates id. Idempotent: removing an already-inactive event is
// a no-op (spec section 5, Cancellation).
func (s *Scheduler) Remove(id Event) {
	if !s.slots[id].active {
		return
	}
	s.slots[id].active = false
	if s.earlyID == int(id) {
		s.rescan()
	}
}

// Active reports whether id currently has a pending deadline.
func (s *Scheduler) Active(id Event) bool {
	return s.slots[id].active
}

// Deadline returns id's current absolute deadline and whether it is active.
func (s *Scheduler) Deadline(id Event) (uint64, bool) {
	return s.slots[id].deadline, s.slots[id].active
}

// Earliest returns the cached earliest deadline over all active slots, or
// Never if none are active (spec section 8, testable property).
func (s *Scheduler) Earliest() uint64 {
	return s.earliest
}

// Dispatch fires every active slot whose deadline has been reached, in
// deadline order, with slots that share a deadline fired in ascending
// event-ID order (spec section 4.2, Ordering). Each event fires at most once
// per call. Each callback runs to completion before the next is considered;
// callbacks may call Schedule again, which is the normal self-rearming case.
// After the pass, if the cache was invalidated by a fired slot that nothing
// rescheduled, it is restored by a rescan.
func (s *Scheduler) Dispatch(currentCycle uint64) {
	firedEarliest := false
	var fired [NumEvents]bool
	for {
		next := Event(-1)
		for id := Event(0); id < NumEvents; id++ {
			sl := &s.slots[id]
			if fired[id] || !sl.active || sl.deadline > currentCycle {
				continue
			}
			if next < 0 || sl.deadline < s.slots[next].deadline {
				next = id
			}
		}
		if next < 0 {
			break
		}
		fired[next] = true
		if int(next) == s.earlyID {
			firedEarliest = true
		}
		sl := &s.slots[next]
		sl.active = false
		cb := sl.cb
		cb()
	}
	if firedEarliest {
		s.rescan()
	}
}

// debugEnabled gates the package's Debug-level logging, set by Debug.
var debugEnabled bool

// Debug enables verbose logging for this package. The only option this
// component exposes is "DEBUG".
func Debug(option string) error {
	if option != "DEBUG" {
		return fmt.Errorf("scheduler: unknown debug option %q", option)
	}
	debugEnabled = true
	return nil
}

// rescan restores the cached earliest deadline by a linear scan. With at
// most NumEvents slots (spec section 4.2: count is small, <=16), this is
// cheap and keeps the common-path Schedule/Remove calls O(1).
func (s *Scheduler) rescan() {
	s.earliest = Never
	s.earlyID = -1
	for id := Event(0); id < NumEvents; id++ {
		sl := &s.slots[id]
		if sl.active && sl.deadline < s.earliest {
			s.earliest = sl.deadline
			s.earlyID = int(id)
		}
	}
}
