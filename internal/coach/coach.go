package coach

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"stride/internal/perception"
	"stride/internal/plan"
	"stride/internal/store"
)

// Coach orchestrates one conversational exchange: build the prompt from the
// stored program, call the model, extract any actions from the reply and
// apply them as a batch.
type Coach struct {
	store  *store.ProgramStore
	llm    perception.Client
	parser *perception.Transducer
	engine *Engine
	log    *zap.Logger

	now func() time.Time
}

func New(s *store.ProgramStore, llm perception.Client, log *zap.Logger) *Coach {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coach{
		store:  s,
		llm:    llm,
		parser: perception.NewTransducer(log),
		engine: NewEngine(s, log),
		log:    log.Named("coach"),
		now:    time.Now,
	}
}

// Reply is the outcome of one exchange. Program is only set when the
// exchange changed the stored program.
type Reply struct {
	Response string
	Program  *plan.Program
	Changed  bool
}

// ProcessMessage runs one exchange for a user. Replies that carry no
// recoverable actions are returned as plain conversation, including replies
// whose JSON-looking content fails to parse. Model, storage and
// batch-application failures propagate to the caller.
func (c *Coach) ProcessMessage(ctx context.Context, user, message string, history []perception.Message) (*Reply, error) {
	program, err := c.store.Load(user)
	if err != nil {
		return nil, fmt.Errorf("loading program for prompt: %w", err)
	}

	prompt := perception.BuildCoachPrompt(c.now(), program.Sessions, history, message)
	raw, err := c.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("coach completion: %w", err)
	}

	actions, err := c.parser.ExtractActions(raw)
	if err != nil {
		// Broken JSON in the reply means the model was chatting, not
		// instructing. Fall back to the raw text.
		c.log.Debug("No actions recovered from reply", zap.Error(err))
		return &Reply{Response: raw}, nil
	}
	if len(actions) == 0 {
		return &Reply{Response: raw}, nil
	}

	updated, err := c.engine.Apply(actions, user)
	if err != nil {
		return nil, fmt.Errorf("applying %d actions: %w", len(actions), err)
	}

	response := perception.ExtractExplanation(raw)
	if response == "" {
		response = raw
	}
	return &Reply{Response: response, Program: updated, Changed: true}, nil
}

// InitializeProgram returns the stored program, generating a fresh one from
// the athlete profile when no sessions exist yet. The second return reports
// whether a generation happened.
func (c *Coach) InitializeProgram(ctx context.Context, user string, profile map[string]any) (*plan.Program, bool, error) {
	program, err := c.store.Load(user)
	if err != nil {
		return nil, false, err
	}
	if len(program.Sessions) > 0 {
		return program, false, nil
	}
	if len(profile) == 0 {
		profile = program.Profile
	}

	prompt := perception.BuildProgramPrompt(c.now(), profile)
	raw, err := c.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, false, fmt.Errorf("program generation: %w", err)
	}

	sessions, err := c.parser.ExtractSessions(raw)
	if err != nil {
		return nil, false, fmt.Errorf("program generation reply: %w", err)
	}
	if len(sessions) == 0 {
		return nil, false, fmt.Errorf("program generation produced no usable sessions")
	}

	updated, err := c.store.Update(user, func(p *plan.Program) error {
		for _, s := range sessions {
			if err := plan.ValidateSession(s); err != nil {
				return fmt.Errorf("generated session %s: %w", s.Date, err)
			}
		}
		if err := plan.CheckSpacing(sessions); err != nil {
			return err
		}
		if len(profile) > 0 {
			p.Profile = profile
		}
		p.Sessions = sessions
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	c.log.Info("Generated initial program",
		zap.String("user", user),
		zap.Int("sessions", len(updated.Sessions)))
	return updated, true, nil
}

// Suggest asks the model for three candidate replies the user could send
// next, each carrying the actions it would imply.
func (c *Coach) Suggest(ctx context.Context, user, message string, history []perception.Message) ([]perception.Suggestion, error) {
	program, err := c.store.Load(user)
	if err != nil {
		return nil, fmt.Errorf("loading program for suggestions: %w", err)
	}

	prompt := perception.BuildSuggestionsPrompt(c.now(), program.Sessions, history, message)
	raw, err := c.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("suggestions completion: %w", err)
	}
	return c.parser.ExtractSuggestions(raw), nil
}
