// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package registry is the single source of truth for chat sessions.
//
// It reconciles two views of the same data: All Sessions (the durable,
// possibly large history) and the Open Tab Set (the small, insertion-ordered
// set of sessions currently surfaced as tabs). A session can exist in All
// Sessions without being open; reopening re-hydrates the stored session
// rather than recreating it, so history is never truncated by a close.
//
// All operations are synchronous and local. Invariants maintained across
// every operation, including error paths:
//   - the active selection is either empty or a member of the Open Tab Set
//   - every open session is present in All Sessions
package registry

import (
	"sort"

	"github.com/duetchat/duet-tui/internal/model"
	"github.com/duetchat/duet-tui/internal/storage"
)

// =============================================================================
// REGISTRY
// =============================================================================

// Registry owns the full session history and the open tab set for one user.
type Registry struct {
	store   *storage.Store
	userKey string

	all    []*model.Session // durable history, append order
	open   []*model.Session // open tabs, insertion order
	active string           // "" or an ID present in open

	// onChange fires after any mutation that affects what is displayed
	// (tabs or active conversation). Render passes hang off this hook.
	onChange func()
}

// New creates a registry backed by the given store and user partition,
// loading the durable history immediately.
func New(store *storage.Store, userKey string) *Registry {
	return &Registry{
		store:   store,
		userKey: userKey,
		all:     store.Load(userKey),
	}
}

// SetChangeHook registers the callback fired after visible mutations.
func (r *Registry) SetChangeHook(fn func()) {
	r.onChange = fn
}

func (r *Registry) fireChange() {
	if r.onChange != nil {
		r.onChange()
	}
}

// =============================================================================
// LIFECYCLE OPERATIONS
// =============================================================================

// StartNew creates, registers, persists, and activates an empty session.
//
// If kind is empty it toggles from the active session's kind, defaulting to
// Diszi when nothing is active. The new session enters both the Open Tab Set
// and All Sessions immediately, zero messages and all, so navigating away
// and back preserves it.
func (r *Registry) StartNew(kind model.Kind) *model.Session {
	if kind == "" {
		if active := r.Active(); active != nil {
			kind = active.Kind.Other()
		} else {
			kind = model.DefaultKind
		}
	}

	sess := model.NewSession(kind)
	r.open = append(r.open, sess)
	r.upsert(sess)
	r.persist()
	r.active = sess.ID
	r.fireChange()
	return sess
}

// Activate makes the session with the given id the active selection.
//
// If the id is not currently open it is hydrated from All Sessions into the
// Open Tab Set; existing message history is reused, never recreated. An id
// known to neither set is a silent no-op.
func (r *Registry) Activate(id string) bool {
	if r.openIndex(id) < 0 {
		hist := r.findAll(id)
		if hist == nil {
			return false
		}
		r.open = append(r.open, hist)
	}
	r.active = id
	r.fireChange()
	return true
}

// Close removes a session from the Open Tab Set only; its All Sessions entry
// survives for history. Closing the active tab reassigns the selection to
// the first remaining open tab, or clears it when none remain.
func (r *Registry) Close(id string) {
	idx := r.openIndex(id)
	if idx < 0 {
		return
	}
	r.open = append(r.open[:idx], r.open[idx+1:]...)

	if r.active == id {
		if len(r.open) > 0 {
			r.active = r.open[0].ID
		} else {
			r.active = ""
		}
	}
	r.fireChange()
}

// Delete permanently removes a session from All Sessions and, if present,
// from the Open Tab Set, reassigning the active selection per the Close rule.
func (r *Registry) Delete(id string) {
	for i, s := range r.all {
		if s.ID == id {
			r.all = append(r.all[:i], r.all[i+1:]...)
			break
		}
	}
	r.persist()
	r.Close(id)
	r.fireChange()
}

// ClearAll wipes the entire history, open set, and active selection.
func (r *Registry) ClearAll() error {
	r.all = []*model.Session{}
	r.open = nil
	r.active = ""
	err := r.store.Clear(r.userKey)
	r.fireChange()
	return err
}

// =============================================================================
// MUTATION PERSISTENCE
// =============================================================================

// PersistMutation stamps the session's update time, upserts it into All
// Sessions by id, and writes the whole list through to the store. Must be
// called after every message append. The durable write is best-effort; a
// failed write never violates in-memory invariants.
func (r *Registry) PersistMutation(sess *model.Session) error {
	sess.Touch()
	r.upsert(sess)
	return r.persist()
}

// upsert replaces the All Sessions entry with a matching id, or appends.
func (r *Registry) upsert(sess *model.Session) {
	for i, s := range r.all {
		if s.ID == sess.ID {
			r.all[i] = sess
			return
		}
	}
	r.all = append(r.all, sess)
}

// persist serializes the entire All Sessions list to the store.
func (r *Registry) persist() error {
	return r.store.Save(r.userKey, r.all)
}

// =============================================================================
// QUERIES
// =============================================================================

// Active returns the active session, or nil when no selection exists.
func (r *Registry) Active() *model.Session {
	if r.active == "" {
		return nil
	}
	if idx := r.openIndex(r.active); idx >= 0 {
		return r.open[idx]
	}
	return nil
}

// ActiveID returns the active session id, or "" when none is active.
func (r *Registry) ActiveID() string {
	return r.active
}

// OpenTabs returns the open sessions in insertion order.
func (r *Registry) OpenTabs() []*model.Session {
	tabs := make([]*model.Session, len(r.open))
	copy(tabs, r.open)
	return tabs
}

// OpenCount returns the number of open tabs.
func (r *Registry) OpenCount() int {
	return len(r.open)
}

// IsOpen reports whether the id is in the Open Tab Set.
func (r *Registry) IsOpen(id string) bool {
	return r.openIndex(id) >= 0
}

// FindOpenByKind returns the first open session of the given persona kind,
// or nil. The orchestrator uses this to avoid spawning duplicate sessions
// when one of that kind is already open.
func (r *Registry) FindOpenByKind(kind model.Kind) *model.Session {
	for _, s := range r.open {
		if s.Kind == kind {
			return s
		}
	}
	return nil
}

// History returns all known sessions, most recently updated first.
func (r *Registry) History() []*model.Session {
	hist := make([]*model.Session, len(r.all))
	copy(hist, r.all)
	sort.SliceStable(hist, func(i, j int) bool {
		return hist[i].UpdatedAt > hist[j].UpdatedAt
	})
	return hist
}

// =============================================================================
// HELPERS
// =============================================================================

func (r *Registry) openIndex(id string) int {
	for i, s := range r.open {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) findAll(id string) *model.Session {
	for _, s := range r.all {
		if s.ID == id {
			return s
		}
	}
	return nil
}
