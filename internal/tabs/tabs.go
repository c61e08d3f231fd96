// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tabs projects the registry's open tab set into tab bar entries and
// routes tab gestures back to it.
package tabs

import (
	"github.com/duetchat/duet-tui/internal/model"
	"github.com/duetchat/duet-tui/internal/registry"
)

// maxLabelWidth bounds a tab label in display cells before truncation.
const maxLabelWidth = 16

// Entry is one renderable tab.
type Entry struct {
	ID     string
	Label  string
	Kind   model.Kind
	Accent string
	Active bool
}

// Controller reads tab state from the registry and dispatches gestures.
type Controller struct {
	registry *registry.Registry
}

// NewController creates a controller over the given registry.
func NewController(reg *registry.Registry) *Controller {
	return &Controller{registry: reg}
}

// Visible reports whether the tab bar renders at all. An empty open set
// hides the bar entirely.
func (c *Controller) Visible() bool {
	return c.registry.OpenCount() > 0
}

// Entries returns the open tabs in insertion order. Labels derive from the
// session's first message, falling back to the persona name for sessions
// with no messages yet, and truncate to a fixed cell width.
func (c *Controller) Entries() []Entry {
	open := c.registry.OpenTabs()
	active := c.registry.ActiveID()

	entries := make([]Entry, 0, len(open))
	for _, sess := range open {
		entries = append(entries, Entry{
			ID:     sess.ID,
			Label:  sess.TruncatedTitle(maxLabelWidth),
			Kind:   sess.Kind,
			Accent: model.PersonaFor(sess.Kind).AccentColor,
			Active: sess.ID == active,
		})
	}
	return entries
}

// Select activates the tab with the given id.
func (c *Controller) Select(id string) {
	c.registry.Activate(id)
}

// Close closes the tab with the given id. History survives; only the tab
// goes away.
func (c *Controller) Close(id string) {
	c.registry.Close(id)
}

// Cycle activates the next open tab after the current one, wrapping around.
// With zero or one tab open it does nothing.
func (c *Controller) Cycle() {
	open := c.registry.OpenTabs()
	if len(open) < 2 {
		return
	}
	active := c.registry.ActiveID()
	for i, sess := range open {
		if sess.ID == active {
			c.registry.Activate(open[(i+1)%len(open)].ID)
			return
		}
	}
	c.registry.Activate(open[0].ID)
}
