package perception

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"stride/internal/plan"
)

// Message is one turn of prior conversation passed back as context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const coachPromptTemplate = `You are a running coach capable of creating and modifying training programs.
Today's date and time is %s.

Current training program:
%s

To modify a session, provide a JSON with the following keys:
- type_action ("remove" to delete an existing session; specify only the date and leave the rest empty, or "create" to add a new one)
- date (format: "YYYY-MM-DD HH:mm", example: "2024-11-15 18:30")
- type_de_seance (session type: Endurance, Interval, Tempo, Long Run, Recovery...)
- distance (in km)
- description (reason for this session)

Use the exact date format mentioned above. The minutes should be in increments of 5 (00, 05, 10, 15, 20, 25, 30, 35, 40, 45, 50, 55).
Always include hours and minutes in the date, even if requesting just a day.

If you need to modify the program, provide the JSON object(s) in the response with a brief explanation after all modifications to ask the user if they confirm the changes. Use the following format:
Explanation: your explanation here
If there is no need to modify the program, you can simply answer the user's question.

User request: %s`

const programPromptTemplate = `You are an experienced running coach tasked with creating a complete training program.
Use the following athlete profile to create an appropriate training program:

Athlete Profile:
%s

Create a progressive training program following these guidelines:
1. Match the athlete's available days per week
2. Ensure at least 24 hours between sessions
3. Include a mix of: Endurance, Long Run, Interval, and Tempo sessions
4. Gradually increase distances and intensities
5. Include a taper period before the goal date

Provide the program as a list of JSON objects with the following structure for each session:
{
    "date": "YYYY-MM-DD HH:mm",
    "type_de_seance": "session type",
    "distance": distance in km,
    "description": "detailed workout description"
}

The minutes in the time should be in increments of 5 (00, 05, 10, 15, 20, 25, 30, 35, 40, 45, 50, 55).
Use realistic training times based on daylight and common training hours (e.g. 06:00-09:00 or 17:00-20:00).
Today's date is: %s

After the session list, add a short summary of the plan in this format:
Explanation: your explanation here`

const suggestionsPromptTemplate = `You are a running coach assistant. Given the conversation so far and the
current training program, propose exactly three different replies the user
could send next. Label them SUGGESTION_1:, SUGGESTION_2: and SUGGESTION_3:,
each on its own line followed by the suggestion content. When a suggestion
implies a program change, include the corresponding JSON action objects in
its content.

Today's date and time is %s.

Conversation so far:
%s

Current training program:
%s

User request: %s`

// BuildCoachPrompt renders the session-change prompt: current time, the
// program as context, the trailing history window and the new request.
func BuildCoachPrompt(now time.Time, sessions []plan.Session, history []Message, input string) string {
	request := input
	if h := formatHistory(history, 10); h != "" {
		request = h + "\n\nCurrent request: " + input
	}
	return fmt.Sprintf(coachPromptTemplate,
		now.Format(plan.DateLayout),
		formatProgramContext(sessions),
		request)
}

// BuildProgramPrompt renders the full-program generation prompt from an
// opaque athlete profile.
func BuildProgramPrompt(now time.Time, profile map[string]any) string {
	return fmt.Sprintf(programPromptTemplate,
		formatProfile(profile),
		now.Format(plan.DateLayout))
}

// BuildSuggestionsPrompt renders the three-suggestions prompt.
func BuildSuggestionsPrompt(now time.Time, sessions []plan.Session, history []Message, input string) string {
	h := formatHistory(history, 5)
	if h == "" {
		h = "No history."
	}
	return fmt.Sprintf(suggestionsPromptTemplate,
		now.Format(plan.DateLayout),
		h,
		formatProgramContext(sessions),
		input)
}

// formatProgramContext renders the current sessions as indented JSON so
// the model sees the exact schema it must reply in.
func formatProgramContext(sessions []plan.Session) string {
	if len(sessions) == 0 {
		return "No existing training sessions."
	}
	b, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return "No existing training sessions."
	}
	return string(b)
}

func formatProfile(profile map[string]any) string {
	if len(profile) == 0 {
		return "- (no profile data provided)"
	}
	b, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "- (no profile data provided)"
	}
	return string(b)
}

// formatHistory renders the last n turns as "role: content" lines.
func formatHistory(history []Message, n int) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}
	var b strings.Builder
	b.WriteString("Previous messages:\n")
	for i, m := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s", m.Role, m.Content)
	}
	return b.String()
}
