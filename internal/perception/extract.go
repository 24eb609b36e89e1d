// Package perception turns raw coach-model output into structured program
// mutations. The model replies in loose prose that may embed JSON as a
// whole document, inside fenced code blocks, or as bare object literals;
// extraction tries each shape in priority order and keeps only candidates
// that survive schema validation.
package perception

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"stride/internal/plan"
)

// ErrNotJSON reports text that contains brace-delimited content but no
// parseable JSON at any tier. It is informational: callers fall back to
// treating the reply as plain conversation.
var ErrNotJSON = errors.New("no parseable JSON found in model output")

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	// Single-level object literals only. Nested objects are not
	// recoverable at this tier; in practice the model emits flat
	// session objects.
	braceObjectPattern = regexp.MustCompile(`\{[^{}]*\}`)
	objectBoundary     = regexp.MustCompile(`\}\s*\{`)
)

// ExtractActions extracts validated program-change actions from model
// text. Candidates failing the action schema are dropped silently; the
// result is the valid subset, possibly empty. The error is ErrNotJSON
// when the text looks like it carries JSON but none of it parses, and nil
// otherwise. Absence of structured content is a normal outcome.
func (t *Transducer) ExtractActions(text string) ([]plan.Action, error) {
	candidates, err := t.extractObjects(text)
	if err != nil {
		return nil, err
	}
	actions := make([]plan.Action, 0, len(candidates))
	for _, obj := range candidates {
		if a, ok := actionFromObject(obj); ok {
			actions = append(actions, a)
		}
	}
	return actions, nil
}

// ExtractSessions is the companion mode for freshly generated full
// programs: same three extraction tiers, validated against the four
// session fields only (no type_action expected).
func (t *Transducer) ExtractSessions(text string) ([]plan.Session, error) {
	candidates, err := t.extractObjects(text)
	if err != nil {
		return nil, err
	}
	sessions := make([]plan.Session, 0, len(candidates))
	for _, obj := range candidates {
		if s, ok := sessionFromObject(obj); ok {
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

// extractObjects runs the three-tier strategy and returns raw candidate
// objects. First successful tier wins.
func (t *Transducer) extractObjects(text string) ([]map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || !strings.Contains(trimmed, "{") {
		return nil, nil
	}

	// Tier 1: the whole reply is a JSON document.
	var doc any
	if err := json.Unmarshal([]byte(trimmed), &doc); err == nil {
		return flatten(doc), nil
	}

	// Tier 2: fenced ```json blocks.
	if objs := t.extractFromFencedBlocks(text); len(objs) > 0 {
		return objs, nil
	}

	// Tier 3: bare single-level object literals anywhere in the text.
	var objs []map[string]any
	for _, match := range braceObjectPattern.FindAllString(text, -1) {
		var obj map[string]any
		if err := json.Unmarshal([]byte(match), &obj); err != nil {
			continue
		}
		objs = append(objs, obj)
	}
	if len(objs) == 0 {
		return nil, ErrNotJSON
	}
	return objs, nil
}

func (t *Transducer) extractFromFencedBlocks(text string) []map[string]any {
	var objs []map[string]any
	for _, m := range fencedJSONPattern.FindAllStringSubmatch(text, -1) {
		block := strings.TrimSpace(m[1])
		if block == "" {
			continue
		}
		// A block holding several concatenated objects is normalized
		// into an array before parsing.
		if strings.HasPrefix(block, "{") && strings.Count(block, "{") > 1 {
			block = "[" + objectBoundary.ReplaceAllString(block, "},{") + "]"
		}
		var doc any
		if err := json.Unmarshal([]byte(block), &doc); err != nil {
			t.log.Warn("Skipping malformed JSON block", zap.Error(err))
			continue
		}
		objs = append(objs, flatten(doc)...)
	}
	return objs
}

// flatten recursively collapses lists of lists and lists of objects into
// a flat candidate list. String leaves are re-parsed in case the model
// double-encoded a document.
func flatten(doc any) []map[string]any {
	switch v := doc.(type) {
	case []any:
		var out []map[string]any
		for _, item := range v {
			out = append(out, flatten(item)...)
		}
		return out
	case map[string]any:
		return []map[string]any{v}
	case string:
		var inner any
		if err := json.Unmarshal([]byte(v), &inner); err != nil {
			return nil
		}
		return flatten(inner)
	default:
		return nil
	}
}

// actionFromObject validates a candidate against the action schema. A
// remove needs only a date; the session fields are synthesized empty so
// every variant has a uniform shape downstream. Anything else must carry
// all five keys with non-empty values and a positive numeric distance.
func actionFromObject(obj map[string]any) (plan.Action, bool) {
	kind := plan.ActionKind(stringValue(obj["type_action"]))

	if kind == plan.ActionRemove {
		date := stringValue(obj["date"])
		if date == "" {
			return plan.Action{}, false
		}
		return plan.Action{Kind: plan.ActionRemove, Date: date}, true
	}

	for _, key := range []string{"type_action", "date", "type_de_seance", "distance", "description"} {
		if _, ok := obj[key]; !ok {
			return plan.Action{}, false
		}
	}
	s, ok := sessionFromObject(obj)
	if !ok {
		return plan.Action{}, false
	}
	return plan.Action{
		Kind:        kind,
		Date:        s.Date,
		Type:        s.Type,
		Distance:    s.Distance,
		Description: s.Description,
	}, true
}

func sessionFromObject(obj map[string]any) (plan.Session, bool) {
	for _, key := range []string{"date", "type_de_seance", "distance", "description"} {
		if _, ok := obj[key]; !ok {
			return plan.Session{}, false
		}
	}
	s := plan.Session{
		Date:        stringValue(obj["date"]),
		Type:        stringValue(obj["type_de_seance"]),
		Description: stringValue(obj["description"]),
	}
	distance, ok := floatValue(obj["distance"])
	if !ok || distance <= 0 {
		return plan.Session{}, false
	}
	s.Distance = distance
	if s.Date == "" || s.Type == "" || s.Description == "" {
		return plan.Session{}, false
	}
	return s, true
}

// stringValue extracts a string from a decoded JSON value.
func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// floatValue extracts a numeric value from a decoded JSON value.
func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
