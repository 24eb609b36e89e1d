package perception

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"stride/internal/plan"
)

// Transducer extracts structured content from coach-model replies.
type Transducer struct {
	log *zap.Logger
}

// NewTransducer returns a Transducer logging through the given logger.
func NewTransducer(log *zap.Logger) *Transducer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transducer{log: log.Named("perception")}
}

var (
	explanationPattern = regexp.MustCompile(`(?s)Explanation:(.*)`)
	suggestionPattern  = regexp.MustCompile(`^SUGGESTION_(\d+):?`)
)

// ExtractExplanation pulls the "Explanation:" trailer the coach prompt
// asks for. Returns "" when the reply carries none.
func ExtractExplanation(text string) string {
	m := explanationPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(m[1], "**", ""))
}

// Suggestion is one proposed reply from the suggestions prompt, with any
// embedded program-change actions already extracted.
type Suggestion struct {
	Number  int           `json:"number"`
	Content string        `json:"content"`
	Actions []plan.Action `json:"actions,omitempty"`
}

// ExtractSuggestions splits a reply into SUGGESTION_n blocks and scans
// each for embedded actions.
func (t *Transducer) ExtractSuggestions(text string) []Suggestion {
	var (
		suggestions []Suggestion
		current     strings.Builder
		number      int
	)

	flush := func() {
		content := strings.TrimSpace(current.String())
		if number == 0 || content == "" {
			return
		}
		s := Suggestion{Number: number, Content: content}
		if actions, err := t.ExtractActions(content); err == nil && len(actions) > 0 {
			s.Actions = actions
		}
		suggestions = append(suggestions, s)
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if m := suggestionPattern.FindStringSubmatch(trimmed); m != nil {
			flush()
			number, _ = strconv.Atoi(m[1])
			current.Reset()
			if rest := strings.TrimSpace(trimmed[len(m[0]):]); rest != "" {
				current.WriteString(rest)
				current.WriteString("\n")
			}
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	flush()

	return suggestions
}
