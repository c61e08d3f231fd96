// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package modes holds the user's persona and response-mode selection.
//
// The selection applies to the next outgoing message only; it has its own
// lifecycle, independent of sessions. Changing the persona here never touches
// the session registry directly - the coupling happens at send time in the
// orchestrator.
package modes

import (
	"github.com/duetchat/duet-tui/internal/model"
)

// =============================================================================
// SELECTOR
// =============================================================================

// Config is the {persona, mode} pair read by the send path.
type Config struct {
	Persona string
	Mode    model.Mode
}

// Selector holds the current persona/mode choice.
type Selector struct {
	persona model.Persona
	mode    model.Mode
}

// NewSelector returns a selector defaulted to the first persona and its
// first mode (Diszi / Thinking).
func NewSelector() *Selector {
	p := model.PersonaFor(model.DefaultKind)
	return &Selector{
		persona: p,
		mode:    p.DefaultMode(),
	}
}

// SetMode overwrites the selection with the given persona label and mode.
// An unknown persona label is ignored. A mode that is illegal for the
// persona clamps to that persona's first legal mode: the terminal front end
// cannot structurally prevent illegal pairs the way a grouped dropdown can.
func (s *Selector) SetMode(personaLabel string, mode model.Mode) {
	p, ok := model.PersonaByLabel(personaLabel)
	if !ok {
		return
	}
	if !p.HasMode(mode) {
		mode = p.DefaultMode()
	}
	s.persona = p
	s.mode = mode
}

// SetPersona switches personas and resets the mode to the persona's default.
// Used to keep the selector in sync when the active tab changes persona.
func (s *Selector) SetPersona(personaLabel string) {
	p, ok := model.PersonaByLabel(personaLabel)
	if !ok {
		return
	}
	s.persona = p
	s.mode = p.DefaultMode()
}

// CurrentConfig returns the current {persona, mode} pair. Pure read.
func (s *Selector) CurrentConfig() Config {
	return Config{Persona: s.persona.Label, Mode: s.mode}
}

// PersonaKind returns the session kind implied by the selected persona.
func (s *Selector) PersonaKind() model.Kind {
	return s.persona.Kind
}

// Modes returns the legal modes for the selected persona, for menu display.
func (s *Selector) Modes() []model.Mode {
	return s.persona.Modes
}
