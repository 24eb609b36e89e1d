package plan

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ParseDate parses a session date and enforces the 5-minute grid.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, &ValidationError{
			Field:  "date",
			Reason: fmt.Sprintf("%q does not match %s", date, DateLayout),
		}
	}
	if t.Minute()%5 != 0 {
		return time.Time{}, &ValidationError{
			Field:  "date",
			Reason: fmt.Sprintf("%q minutes must be a multiple of 5", date),
		}
	}
	return t, nil
}

// ValidateSession checks the four session fields for a creation.
func ValidateSession(s Session) error {
	if _, err := ParseDate(s.Date); err != nil {
		return err
	}
	if strings.TrimSpace(s.Type) == "" {
		return &ValidationError{Field: "type_de_seance", Reason: "must not be empty"}
	}
	if s.Distance <= 0 {
		return &ValidationError{
			Field:  "distance",
			Reason: fmt.Sprintf("must be positive, got %v", s.Distance),
		}
	}
	if strings.TrimSpace(s.Description) == "" {
		return &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	return nil
}

// ValidateAction checks an action against the general schema: the date
// must parse and the kind must be known. Create actions additionally
// carry a full valid session.
func ValidateAction(a Action) error {
	switch a.Kind {
	case ActionRemove:
		if _, err := ParseDate(a.Date); err != nil {
			return err
		}
		return nil
	case ActionCreate:
		return ValidateSession(a.Session())
	default:
		return &ValidationError{
			Field:  "type_action",
			Reason: fmt.Sprintf("%q is not one of: create, remove", string(a.Kind)),
		}
	}
}

// CheckSpacing verifies the minimum-spacing invariant pairwise across the
// whole session set. It returns an *OverlapError for the first conflicting
// pair found, or nil.
func CheckSpacing(sessions []Session) error {
	times := make([]time.Time, len(sessions))
	for i, s := range sessions {
		t, err := s.Time()
		if err != nil {
			return &ValidationError{
				Field:  "date",
				Reason: fmt.Sprintf("session %q has an unparseable date", s.Date),
			}
		}
		times[i] = t
	}
	for i := range sessions {
		for j := i + 1; j < len(sessions); j++ {
			gap := times[i].Sub(times[j])
			if gap < 0 {
				gap = -gap
			}
			if gap < MinSessionGap {
				return &OverlapError{First: sessions[i].Date, Second: sessions[j].Date}
			}
		}
	}
	return nil
}

// SortSessions orders sessions by date ascending in place. Sessions with
// unparseable dates keep their relative order at the end.
func SortSessions(sessions []Session) {
	sortByDate(sessions, false)
}

// SortSessionsDesc orders sessions by date descending in place.
func SortSessionsDesc(sessions []Session) {
	sortByDate(sessions, true)
}

func sortByDate(sessions []Session, desc bool) {
	key := func(s Session) int64 {
		t, err := s.Time()
		if err != nil {
			// Unparseable dates sort after everything else.
			return int64(1) << 62
		}
		return t.Unix()
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := key(sessions[i]), key(sessions[j])
		if desc {
			return a > b
		}
		return a < b
	})
}
