package plan

import (
	"errors"
	"testing"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		wantErr bool
	}{
		{"Valid", "2025-01-10 06:00", false},
		{"ValidFiveMinuteGrid", "2025-01-10 18:35", false},
		{"MinutesOffGrid", "2025-01-10 06:03", true},
		{"DayOnly", "2025-01-10", true},
		{"WrongOrder", "10-01-2025 06:00", true},
		{"Garbage", "next tuesday", true},
		{"Empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDate(tt.date)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.date, err, tt.wantErr)
			}
			if err != nil {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("error is not a *ValidationError: %v", err)
				}
			}
		})
	}
}

func TestValidateAction(t *testing.T) {
	valid := Action{
		Kind:        ActionCreate,
		Date:        "2025-01-10 06:00",
		Type:        "Tempo",
		Distance:    8,
		Description: "threshold work",
	}

	tests := []struct {
		name    string
		mutate  func(a Action) Action
		wantErr bool
	}{
		{"ValidCreate", func(a Action) Action { return a }, false},
		{"RemoveDateOnly", func(a Action) Action {
			return Action{Kind: ActionRemove, Date: a.Date}
		}, false},
		{"RemoveBadDate", func(a Action) Action {
			return Action{Kind: ActionRemove, Date: "not a date"}
		}, true},
		{"UnknownKind", func(a Action) Action { a.Kind = "update"; return a }, true},
		{"EmptyKind", func(a Action) Action { a.Kind = ""; return a }, true},
		{"ZeroDistance", func(a Action) Action { a.Distance = 0; return a }, true},
		{"NegativeDistance", func(a Action) Action { a.Distance = -3; return a }, true},
		{"EmptyType", func(a Action) Action { a.Type = ""; return a }, true},
		{"BlankDescription", func(a Action) Action { a.Description = "  "; return a }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAction(tt.mutate(valid))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateAction() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckSpacing(t *testing.T) {
	mk := func(dates ...string) []Session {
		out := make([]Session, len(dates))
		for i, d := range dates {
			out[i] = Session{Date: d, Type: "Endurance", Distance: 10, Description: "easy"}
		}
		return out
	}

	t.Run("EmptyAndSingle", func(t *testing.T) {
		if err := CheckSpacing(nil); err != nil {
			t.Fatalf("empty set: %v", err)
		}
		if err := CheckSpacing(mk("2025-01-10 06:00")); err != nil {
			t.Fatalf("single session: %v", err)
		}
	})

	t.Run("ExactlySixHoursApart", func(t *testing.T) {
		if err := CheckSpacing(mk("2025-01-10 06:00", "2025-01-10 12:00")); err != nil {
			t.Fatalf("6h gap should pass: %v", err)
		}
	})

	t.Run("FiveHoursApart", func(t *testing.T) {
		err := CheckSpacing(mk("2025-01-10 06:00", "2025-01-10 11:00"))
		var oerr *OverlapError
		if !errors.As(err, &oerr) {
			t.Fatalf("want *OverlapError, got %v", err)
		}
		if oerr.First != "2025-01-10 06:00" || oerr.Second != "2025-01-10 11:00" {
			t.Errorf("conflict pair = (%q, %q)", oerr.First, oerr.Second)
		}
	})

	t.Run("ConflictAcrossUnsortedSet", func(t *testing.T) {
		// The violating pair is not adjacent in input order.
		err := CheckSpacing(mk("2025-01-12 06:00", "2025-01-10 06:00", "2025-01-10 09:00"))
		var oerr *OverlapError
		if !errors.As(err, &oerr) {
			t.Fatalf("want *OverlapError, got %v", err)
		}
	})
}

func TestSortSessions(t *testing.T) {
	sessions := []Session{
		{Date: "2025-01-12 06:00"},
		{Date: "2025-01-10 06:00"},
		{Date: "2025-01-11 18:30"},
	}
	SortSessions(sessions)
	want := []string{"2025-01-10 06:00", "2025-01-11 18:30", "2025-01-12 06:00"}
	for i, w := range want {
		if sessions[i].Date != w {
			t.Fatalf("ascending[%d] = %q, want %q", i, sessions[i].Date, w)
		}
	}

	SortSessionsDesc(sessions)
	for i, w := range []string{"2025-01-12 06:00", "2025-01-11 18:30", "2025-01-10 06:00"} {
		if sessions[i].Date != w {
			t.Fatalf("descending[%d] = %q, want %q", i, sessions[i].Date, w)
		}
	}
}
