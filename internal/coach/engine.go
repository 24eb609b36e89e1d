// Package coach turns parsed actions into program changes and drives the
// conversation with the language model.
package coach

import (
	"fmt"

	"go.uber.org/zap"

	"stride/internal/plan"
	"stride/internal/store"
)

// Engine applies action batches to a user's stored program. A batch is
// all-or-nothing: any invalid action or spacing conflict aborts the whole
// batch and the stored program is left as it was.
type Engine struct {
	store *store.ProgramStore
	log   *zap.Logger
}

func NewEngine(s *store.ProgramStore, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: s, log: log.Named("engine")}
}

// Apply runs the batch inside a single per-user update: every action is
// re-validated, creates append and removes drop every session at the exact
// date, then the minimum spacing between sessions is re-checked over the
// entire resulting set before anything is persisted.
func (e *Engine) Apply(actions []plan.Action, user string) (*plan.Program, error) {
	program, err := e.store.Update(user, func(p *plan.Program) error {
		for i, a := range actions {
			if err := plan.ValidateAction(a); err != nil {
				return fmt.Errorf("action %d of %d (%s): %w", i+1, len(actions), a, err)
			}
			switch a.Kind {
			case plan.ActionCreate:
				p.Sessions = append(p.Sessions, a.Session())
			case plan.ActionRemove:
				p.Sessions = removeByDate(p.Sessions, a.Date)
			}
		}
		return plan.CheckSpacing(p.Sessions)
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("Applied action batch",
		zap.String("user", user),
		zap.Int("actions", len(actions)),
		zap.Int("sessions", len(program.Sessions)))
	return program, nil
}

// removeByDate drops every session whose date matches exactly. Removing a
// date with no session is a no-op.
func removeByDate(sessions []plan.Session, date string) []plan.Session {
	kept := sessions[:0]
	for _, s := range sessions {
		if s.Date != date {
			kept = append(kept, s)
		}
	}
	return kept
}
