package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"stride/internal/plan"
)

const icsTimeLayout = "20060102T150405Z"

// estimateDurationMinutes guesses how long a session takes from its
// distance and a per-type pace assumption (min/km).
func estimateDurationMinutes(session plan.Session) int {
	pace := 6.0
	lower := strings.ToLower(session.Type)
	switch {
	case strings.Contains(lower, "tempo"):
		pace = 5.0
	case strings.Contains(lower, "interval"):
		pace = 5.5
	}
	return int(session.Distance * pace)
}

// icsEscape escapes text per RFC 5545.
func icsEscape(s string) string {
	r := strings.NewReplacer("\\", "\\\\", ";", "\\;", ",", "\\,", "\n", "\\n")
	return r.Replace(s)
}

// renderICS serializes the sessions as a VCALENDAR feed. Unparseable
// session dates are skipped rather than breaking the whole feed.
func renderICS(sessions []plan.Session, now time.Time) string {
	var b strings.Builder
	writeLine := func(line string) {
		b.WriteString(line)
		b.WriteString("\r\n")
	}

	writeLine("BEGIN:VCALENDAR")
	writeLine("PRODID:-//Stride Running Coach//EN")
	writeLine("VERSION:2.0")
	writeLine("CALSCALE:GREGORIAN")
	writeLine("METHOD:PUBLISH")
	writeLine("X-WR-CALNAME:Running Training Program")

	stamp := now.UTC().Format(icsTimeLayout)
	for _, session := range sessions {
		start, err := session.Time()
		if err != nil {
			continue
		}
		end := start.Add(time.Duration(estimateDurationMinutes(session)) * time.Minute)

		writeLine("BEGIN:VEVENT")
		writeLine("UID:" + uuid.NewString())
		writeLine("DTSTAMP:" + stamp)
		writeLine("DTSTART:" + start.UTC().Format(icsTimeLayout))
		writeLine("DTEND:" + end.UTC().Format(icsTimeLayout))
		writeLine(fmt.Sprintf("SUMMARY:%s - %gkm", icsEscape(session.Type), session.Distance))
		writeLine(fmt.Sprintf("DESCRIPTION:Type: %s\\nDistance: %gkm\\nDescription: %s",
			icsEscape(session.Type), session.Distance, icsEscape(session.Description)))
		writeLine("CATEGORIES:Running,Training")
		writeLine("STATUS:CONFIRMED")
		writeLine("END:VEVENT")
	}
	writeLine("END:VCALENDAR")
	return b.String()
}

// handleCalendar serves the per-user ICS feed. The token travels in the
// path because calendar clients cannot set headers.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		s.writeError(w, http.StatusUnauthorized, "missing user token")
		return
	}
	sessions, err := s.store.GetSorted(token, "asc")
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=running_program_%s.ics", token))
	fmt.Fprint(w, renderICS(sessions, time.Now()))
}

func (s *Server) handleCalendarURL(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	feed := fmt.Sprintf("%s://%s/api/calendar/%s/calendar.ics", scheme, r.Host, user)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"urls": map[string]string{
			"feed": feed,
			"ical": fmt.Sprintf("webcal://%s/api/calendar/%s/calendar.ics", r.Host, user),
		},
	})
}
