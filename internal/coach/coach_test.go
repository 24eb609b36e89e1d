package coach

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stride/internal/perception"
	"stride/internal/plan"
	"stride/internal/store"
)

// scriptedLLM returns a canned reply and records how it was prompted.
type scriptedLLM struct {
	reply string
	err   error
	calls int
	last  string
}

func (s *scriptedLLM) Complete(_ context.Context, prompt string) (string, error) {
	s.calls++
	s.last = prompt
	return s.reply, s.err
}

func (s *scriptedLLM) CompleteWithSystem(ctx context.Context, _, prompt string) (string, error) {
	return s.Complete(ctx, prompt)
}

func newTestCoach(t *testing.T, llm *scriptedLLM) (*Coach, *store.ProgramStore) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "programs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, llm, nil), s
}

func TestProcessMessageAppliesActions(t *testing.T) {
	llm := &scriptedLLM{reply: `{"type_action": "create", "date": "2025-03-10 07:00", "type_de_seance": "Endurance", "distance": 10, "description": "easy"}
Explanation: Added an easy endurance run. Do you confirm?`}
	c, s := newTestCoach(t, llm)

	reply, err := c.ProcessMessage(context.Background(), "alice", "add a run Monday morning", nil)
	require.NoError(t, err)
	assert.True(t, reply.Changed)
	assert.Equal(t, "Added an easy endurance run. Do you confirm?", reply.Response)
	require.NotNil(t, reply.Program)
	require.Len(t, reply.Program.Sessions, 1)

	stored, err := s.Load("alice")
	require.NoError(t, err)
	assert.Len(t, stored.Sessions, 1)
}

func TestProcessMessagePlainConversation(t *testing.T) {
	llm := &scriptedLLM{reply: "Rest days matter as much as workouts."}
	c, s := newTestCoach(t, llm)

	reply, err := c.ProcessMessage(context.Background(), "alice", "why rest days?", nil)
	require.NoError(t, err)
	assert.False(t, reply.Changed)
	assert.Nil(t, reply.Program)
	assert.Equal(t, llm.reply, reply.Response)

	stored, err := s.Load("alice")
	require.NoError(t, err)
	assert.Empty(t, stored.Sessions)
}

func TestProcessMessageBrokenJSONFallsBack(t *testing.T) {
	llm := &scriptedLLM{reply: `Here you go: {"type_action": "create", "date": broken`}
	c, _ := newTestCoach(t, llm)

	reply, err := c.ProcessMessage(context.Background(), "alice", "add a run", nil)
	require.NoError(t, err, "unparseable replies are conversation, not failures")
	assert.False(t, reply.Changed)
	assert.Equal(t, llm.reply, reply.Response)
}

func TestProcessMessageLLMErrorPropagates(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("upstream 500")}
	c, _ := newTestCoach(t, llm)

	_, err := c.ProcessMessage(context.Background(), "alice", "add a run", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coach completion")
}

func TestProcessMessageApplyFailurePropagates(t *testing.T) {
	llm := &scriptedLLM{reply: `{"type_action": "create", "date": "2025-03-10 09:00", "type_de_seance": "Tempo", "distance": 8, "description": "too close"}`}
	c, s := newTestCoach(t, llm)
	require.NoError(t, s.Save(&plan.Program{
		Profile:  map[string]any{},
		Sessions: []plan.Session{{Date: "2025-03-10 07:00", Type: "Endurance", Distance: 10, Description: "easy"}},
	}, "alice"))

	_, err := c.ProcessMessage(context.Background(), "alice", "add a tempo", nil)
	require.Error(t, err)
	var overlap *plan.OverlapError
	assert.True(t, errors.As(err, &overlap), "want OverlapError, got %v", err)

	stored, err := s.Load("alice")
	require.NoError(t, err)
	assert.Len(t, stored.Sessions, 1)
}

func TestProcessMessageIncludesProgramContext(t *testing.T) {
	llm := &scriptedLLM{reply: "Looks good."}
	c, s := newTestCoach(t, llm)
	require.NoError(t, s.Save(&plan.Program{
		Profile:  map[string]any{},
		Sessions: []plan.Session{{Date: "2025-03-10 07:00", Type: "Endurance", Distance: 10, Description: "easy"}},
	}, "alice"))

	_, err := c.ProcessMessage(context.Background(), "alice", "how is my week?", []perception.Message{
		{Role: "user", Content: "earlier question"},
	})
	require.NoError(t, err)
	assert.Contains(t, llm.last, "2025-03-10 07:00")
	assert.Contains(t, llm.last, "earlier question")
	assert.Contains(t, llm.last, "Current request: how is my week?")
}

func TestInitializeProgramGenerates(t *testing.T) {
	llm := &scriptedLLM{reply: `[
  {"date": "2025-03-10 07:00", "type_de_seance": "Endurance", "distance": 10, "description": "easy"},
  {"date": "2025-03-12 07:00", "type_de_seance": "Tempo", "distance": 8, "description": "steady"}
]
Explanation: Two sessions to start.`}
	c, s := newTestCoach(t, llm)

	profile := map[string]any{"goal": "10k", "days_per_week": 2.0}
	program, generated, err := c.InitializeProgram(context.Background(), "alice", profile)
	require.NoError(t, err)
	assert.True(t, generated)
	require.Len(t, program.Sessions, 2)
	assert.Contains(t, llm.last, `"goal": "10k"`)

	stored, err := s.Load("alice")
	require.NoError(t, err)
	assert.Len(t, stored.Sessions, 2)
	assert.Equal(t, "10k", stored.Profile["goal"])
}

func TestInitializeProgramShortCircuitsWhenPresent(t *testing.T) {
	llm := &scriptedLLM{reply: "should not be called"}
	c, s := newTestCoach(t, llm)
	require.NoError(t, s.Save(&plan.Program{
		Profile:  map[string]any{},
		Sessions: []plan.Session{{Date: "2025-03-10 07:00", Type: "Endurance", Distance: 10, Description: "easy"}},
	}, "alice"))

	program, generated, err := c.InitializeProgram(context.Background(), "alice", nil)
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Len(t, program.Sessions, 1)
	assert.Zero(t, llm.calls)
}

func TestInitializeProgramRejectsCrowdedPlan(t *testing.T) {
	llm := &scriptedLLM{reply: `[
  {"date": "2025-03-10 07:00", "type_de_seance": "Endurance", "distance": 10, "description": "easy"},
  {"date": "2025-03-10 09:00", "type_de_seance": "Tempo", "distance": 8, "description": "too close"}
]`}
	c, s := newTestCoach(t, llm)

	_, _, err := c.InitializeProgram(context.Background(), "alice", nil)
	require.Error(t, err)
	var overlap *plan.OverlapError
	assert.True(t, errors.As(err, &overlap))

	stored, err := s.Load("alice")
	require.NoError(t, err)
	assert.Empty(t, stored.Sessions, "rejected generation must store nothing")
}

func TestSuggest(t *testing.T) {
	llm := &scriptedLLM{reply: `SUGGESTION_1: Ask for an easier week.
SUGGESTION_2: Add a long run: {"type_action": "create", "date": "2025-03-16 08:00", "type_de_seance": "Long Run", "distance": 18, "description": "build"}
SUGGESTION_3: Ask about pacing.`}
	c, _ := newTestCoach(t, llm)

	suggestions, err := c.Suggest(context.Background(), "alice", "what next?", nil)
	require.NoError(t, err)
	require.Len(t, suggestions, 3)
	assert.Equal(t, 1, suggestions[0].Number)
	assert.Empty(t, suggestions[0].Actions)
	require.Len(t, suggestions[1].Actions, 1)
	assert.Equal(t, plan.ActionCreate, suggestions[1].Actions[0].Kind)
}
