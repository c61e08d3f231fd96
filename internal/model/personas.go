// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// PERSONA KIND
// =============================================================================

// Kind identifies which persona a session is bound to.
// It doubles as the storage partition key suffix for sub-model preferences.
type Kind string

const (
	KindDiszi Kind = "diszi"
	KindZily  Kind = "zily"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// Valid reports whether the kind is a known persona kind.
func (k Kind) Valid() bool {
	_, ok := Personas[k]
	return ok
}

// Other returns the opposite persona kind. Used by the toggle rule when a new
// session is started without an explicit kind.
func (k Kind) Other() Kind {
	if k == KindDiszi {
		return KindZily
	}
	return KindDiszi
}

// =============================================================================
// RESPONSE MODES
// =============================================================================

// Mode is a response-style selector scoped to a persona.
type Mode string

const (
	ModeThinking Mode = "Thinking"
	ModePlan     Mode = "Plan"
	ModeFast     Mode = "Fast"
	ModeWrite    Mode = "Write"
	ModeRoleplay Mode = "Roleplay"
)

// =============================================================================
// PERSONA TYPE
// =============================================================================

// Persona describes a selectable AI identity: its display label, theming,
// default sub-model, and the response modes it exposes.
type Persona struct {
	// Kind is the persona identifier used in wire requests and storage keys.
	Kind Kind

	// Label is the human-readable display name.
	Label string

	// Description is shown on the welcome screen.
	Description string

	// Modes lists the legal response modes, first entry is the default.
	Modes []Mode

	// DefaultModel is the sub-model used when no preference is configured.
	DefaultModel string

	// AccentColor is the persona's theme color (truecolor hex).
	AccentColor string

	// Suggestions are the welcome-screen prompt chips.
	Suggestions []string
}

// =============================================================================
// PERSONA REGISTRY
// =============================================================================

// Personas is the registry of known personas.
var Personas = map[Kind]Persona{
	KindDiszi: {
		Kind:         KindDiszi,
		Label:        "Diszi",
		Description:  "Your Analytical AI Assistant",
		Modes:        []Mode{ModeThinking, ModePlan, ModeFast},
		DefaultModel: "gemma:2b",
		AccentColor:  "#60A5FA",
		Suggestions: []string{
			"Analyze this code", "Explain OAuth", "Optimize algo", "SQL vs NoSQL",
		},
	},
	KindZily: {
		Kind:         KindZily,
		Label:        "Zily",
		Description:  "Your Creative AI Companion",
		Modes:        []Mode{ModeThinking, ModeWrite, ModeRoleplay, ModeFast},
		DefaultModel: "gemma:2b",
		AccentColor:  "#C084FC",
		Suggestions: []string{
			"Sci-fi story", "Creative caption", "App ideas", "Coding poem",
		},
	},
}

// DefaultKind is the persona used when nothing is active and no kind is given.
const DefaultKind = KindDiszi

// PersonaFor returns the persona bound to a kind, falling back to the default
// persona for unknown kinds so callers never dereference a zero Persona.
func PersonaFor(kind Kind) Persona {
	if p, ok := Personas[kind]; ok {
		return p
	}
	return Personas[DefaultKind]
}

// PersonaByLabel looks up a persona by its display label (case-sensitive,
// matching the labels offered by the selector UI).
func PersonaByLabel(label string) (Persona, bool) {
	for _, p := range Personas {
		if p.Label == label {
			return p, true
		}
	}
	return Persona{}, false
}

// =============================================================================
// PERSONA METHODS
// =============================================================================

// HasMode reports whether the mode is legal for this persona.
func (p Persona) HasMode(m Mode) bool {
	for _, mode := range p.Modes {
		if mode == m {
			return true
		}
	}
	return false
}

// DefaultMode returns the persona's first legal mode.
func (p Persona) DefaultMode() Mode {
	if len(p.Modes) == 0 {
		return ModeThinking
	}
	return p.Modes[0]
}
