// Package plan defines the training-program data model shared by the
// parser, the change engine and the store: sessions, programs and the
// create/remove actions proposed by the coach model.
package plan

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire format for session dates, minute resolution.
const DateLayout = "2006-01-02 15:04"

// FilterDateLayout is the day-only format accepted by range filters.
const FilterDateLayout = "02-01-2006"

// MinSessionGap is the minimum spacing allowed between any two sessions
// in a persisted program.
const MinSessionGap = 6 * time.Hour

// Session is one scheduled training activity.
type Session struct {
	Date        string  `json:"date"`
	Type        string  `json:"type_de_seance"`
	Distance    float64 `json:"distance"`
	Description string  `json:"description"`
}

// Time parses the session date. The date is validated at creation time,
// so a parse error here indicates a corrupted record.
func (s Session) Time() (time.Time, error) {
	return time.Parse(DateLayout, s.Date)
}

// Program is the full per-user state: athlete profile plus the ordered
// session list. The profile is opaque to the core and passed through as-is.
type Program struct {
	Profile  map[string]any `json:"profile"`
	Sessions []Session      `json:"sessions"`
}

// NewProgram returns an empty program with non-nil fields, the shape
// returned for users with no stored record.
func NewProgram() *Program {
	return &Program{
		Profile:  map[string]any{},
		Sessions: []Session{},
	}
}

// ActionKind discriminates the two action variants.
type ActionKind string

const (
	// ActionCreate adds a new session to the program.
	ActionCreate ActionKind = "create"
	// ActionRemove deletes every session at an exact date.
	ActionRemove ActionKind = "remove"
)

// KnownKinds lists the accepted action kinds.
var KnownKinds = []ActionKind{ActionCreate, ActionRemove}

// Action is a proposed mutation extracted from model text. The variant is
// resolved at parse time: a remove carries only a date, with the session
// fields zeroed so every action has a uniform shape downstream.
type Action struct {
	Kind        ActionKind `json:"type_action"`
	Date        string     `json:"date"`
	Type        string     `json:"type_de_seance"`
	Distance    float64    `json:"distance"`
	Description string     `json:"description"`
}

// Session returns the session a create action describes.
func (a Action) Session() Session {
	return Session{
		Date:        a.Date,
		Type:        a.Type,
		Distance:    a.Distance,
		Description: a.Description,
	}
}

func (a Action) String() string {
	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Sprintf("%s %s", a.Kind, a.Date)
	}
	return string(b)
}
