// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"math/rand"
	"strings"
	"sync/atomic"
	"time"
)

// =============================================================================
// INCREMENTAL REVEAL
// =============================================================================

// Reveal pacing. Each visible unit waits the base delay plus a uniform random
// jitter before the next unit appears.
const (
	DefaultRevealDelay  = 10 * time.Millisecond
	DefaultRevealJitter = 15 * time.Millisecond
)

// Scheduler defers a callback by a delay. The production scheduler uses real
// timers; tests substitute a synchronous one so reveals complete instantly
// and deterministically.
type Scheduler interface {
	Schedule(delay time.Duration, fn func())
}

// TimerScheduler runs callbacks on real timers.
type TimerScheduler struct{}

func (TimerScheduler) Schedule(delay time.Duration, fn func()) {
	time.AfterFunc(delay, fn)
}

// SyncScheduler ignores the delay and runs the callback inline. Reveal steps
// recurse through it, so it is only suitable for bounded content.
type SyncScheduler struct{}

func (SyncScheduler) Schedule(_ time.Duration, fn func()) {
	fn()
}

// Sink receives revealed markup. Appended chunks are always well formed:
// a whole tag, a whole entity, or whole runes, never a split token.
type Sink interface {
	Append(chunk string)
	ScrollToBottom()
}

// Revealer streams formatted markup to a sink one unit at a time.
//
// Markup is split into segments of tags and text. Tags append atomically with
// no delay so the sink never holds a half-open tag; text appends rune by
// rune, except that an "&...;" entity appends as one unit. Skip may be called
// from any goroutine; the in-flight reveal flushes everything that has not
// yet appeared, exactly once, and completes.
type Revealer struct {
	sink  Sink
	sched Scheduler

	baseDelay time.Duration
	jitter    time.Duration

	skip atomic.Bool

	// Cursor over the current reveal. Only the step chain touches these;
	// there is at most one outstanding scheduled step.
	segments []segment
	runes    []rune // decoded runes of the current text segment
	segIdx   int
	runeIdx  int
	onDone   func()
	active   bool
}

// segment is one slice of split markup. Tag segments append atomically; text
// segments are paced, even when they happen to start with a bare "<".
type segment struct {
	text string
	tag  bool
}

// NewRevealer creates a revealer with default pacing.
func NewRevealer(sink Sink, sched Scheduler) *Revealer {
	return &Revealer{
		sink:      sink,
		sched:     sched,
		baseDelay: DefaultRevealDelay,
		jitter:    DefaultRevealJitter,
	}
}

// SetDelays overrides the pacing, for config-tuned or instant reveals.
func (r *Revealer) SetDelays(base, jitter time.Duration) {
	r.baseDelay = base
	r.jitter = jitter
}

// Active reports whether a reveal is in flight.
func (r *Revealer) Active() bool {
	return r.active
}

// Skip requests that the in-flight reveal flush its remaining content on its
// next step. Safe to call from any goroutine, or with no reveal in flight.
func (r *Revealer) Skip() {
	r.skip.Store(true)
}

// Reveal starts streaming markup to the sink. onDone fires exactly once when
// the full content has been appended, whether paced out or skipped. A reveal
// must not be started while another is active.
func (r *Revealer) Reveal(markup string, onDone func()) {
	r.skip.Store(false)
	r.segments = splitTags(markup)
	r.segIdx = 0
	r.runeIdx = 0
	r.runes = nil
	r.onDone = onDone
	r.active = true
	r.step()
}

func (r *Revealer) step() {
	if r.skip.Load() {
		r.flush()
		return
	}

	for r.segIdx < len(r.segments) {
		seg := r.segments[r.segIdx]

		if seg.tag {
			r.sink.Append(seg.text)
			r.segIdx++
			continue
		}

		if r.runes == nil {
			r.runes = []rune(seg.text)
		}
		if r.runeIdx >= len(r.runes) {
			r.segIdx++
			r.runeIdx = 0
			r.runes = nil
			continue
		}

		r.sink.Append(r.nextUnit())
		r.sink.ScrollToBottom()
		r.sched.Schedule(r.delay(), r.step)
		return
	}

	r.finish()
}

// nextUnit consumes one visible unit from the current text segment: a whole
// "&...;" entity when one starts here, otherwise a single rune.
func (r *Revealer) nextUnit() string {
	if r.runes[r.runeIdx] == '&' {
		for end := r.runeIdx + 1; end < len(r.runes); end++ {
			if r.runes[end] == ';' {
				unit := string(r.runes[r.runeIdx : end+1])
				r.runeIdx = end + 1
				return unit
			}
		}
	}
	unit := string(r.runes[r.runeIdx])
	r.runeIdx++
	return unit
}

// flush appends everything not yet revealed in one chunk. The remainder of
// the current text segment is taken from the rune cursor, never from the
// segment start, so nothing appears twice.
func (r *Revealer) flush() {
	var b strings.Builder
	if r.runes != nil {
		if r.runeIdx < len(r.runes) {
			b.WriteString(string(r.runes[r.runeIdx:]))
		}
		r.segIdx++
	}
	for ; r.segIdx < len(r.segments); r.segIdx++ {
		b.WriteString(r.segments[r.segIdx].text)
	}
	if b.Len() > 0 {
		r.sink.Append(b.String())
		r.sink.ScrollToBottom()
	}
	r.finish()
}

func (r *Revealer) finish() {
	r.segments = nil
	r.runes = nil
	r.segIdx = 0
	r.runeIdx = 0
	r.active = false
	if done := r.onDone; done != nil {
		r.onDone = nil
		done()
	}
}

func (r *Revealer) delay() time.Duration {
	if r.jitter <= 0 {
		return r.baseDelay
	}
	return r.baseDelay + time.Duration(rand.Int63n(int64(r.jitter)))
}

// splitTags splits markup into an interleaving of tag and text segments,
// preserving every byte. Empty segments are dropped. Tag-ness comes from the
// match positions, never from re-inspecting segment content.
func splitTags(markup string) []segment {
	matches := anyTagRE.FindAllStringIndex(markup, -1)
	var segs []segment
	prev := 0
	for _, m := range matches {
		if m[0] > prev {
			segs = append(segs, segment{text: markup[prev:m[0]]})
		}
		segs = append(segs, segment{text: markup[m[0]:m[1]], tag: true})
		prev = m[1]
	}
	if prev < len(markup) {
		segs = append(segs, segment{text: markup[prev:]})
	}
	return segs
}
