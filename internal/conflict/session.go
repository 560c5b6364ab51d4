package conflict

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/openmined/marksync/internal/bookmark"
	"github.com/openmined/marksync/internal/changes"
)

type entry struct {
	conflict   *Conflict
	state      State
	resolution *Resolution
}

// Session holds the conflicts of one sync preview and the decisions taken on them.
// A session is discarded once its resolutions are committed; conflicts never carry over to the next cycle.
type Session struct {
	scope   string
	order   []string
	entries map[string]*entry
	mu      sync.Mutex
}

// NewSession registers conflicts as detected and classifies them.
// Duplicate ids keep the first conflict.
func NewSession(scope string, conflicts []*Conflict) *Session {
	s := &Session{
		scope:   scope,
		order:   make([]string, 0, len(conflicts)),
		entries: make(map[string]*entry, len(conflicts)),
	}
	for _, c := range conflicts {
		if _, ok := s.entries[c.ID]; ok {
			continue
		}
		e := &entry{conflict: c, state: StateDetected}
		if c.Severity == "" || c.Type == "" {
			classified := Classify(pairOf(c))
			c.Severity, c.Type = classified.Severity, classified.Type
		}
		e.state = StateClassified
		s.entries[c.ID] = e
		s.order = append(s.order, c.ID)
	}
	return s
}

func (s *Session) Scope() string {
	return s.scope
}

// Len returns the number of conflicts in the session.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// State returns the current state of a conflict.
func (s *Session) State(id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownConflict, id)
	}
	return e.state, nil
}

// Resolve applies an automatic strategy to one conflict.
// Resolving an already resolved conflict again with the same strategy returns the stored resolution.
func (s *Session) Resolve(id string, strategy Strategy) (Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(id)
	if err != nil {
		return Resolution{}, err
	}
	if strategy == StrategyManual {
		return Resolution{}, fmt.Errorf("%w: manual resolution needs a result record", ErrInvalidStrategy)
	}
	if prev, ok := e.repeat(strategy); ok {
		return prev, nil
	}
	if err := e.canTransition(); err != nil {
		return Resolution{}, err
	}

	res, err := Resolve(e.conflict, strategy)
	if err != nil {
		return Resolution{}, err
	}
	e.finish(res)
	return res, nil
}

// ResolveManual applies a record supplied by the user.
func (s *Session) ResolveManual(id string, result *bookmark.Record) (Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(id)
	if err != nil {
		return Resolution{}, err
	}
	if err := e.canTransition(); err != nil {
		return Resolution{}, err
	}

	res, err := ResolveManual(e.conflict, result)
	if err != nil {
		return Resolution{}, err
	}
	e.finish(res)
	return res, nil
}

// Skip leaves a conflict unresolved for this cycle.
func (s *Session) Skip(id string) (Resolution, error) {
	return s.Resolve(id, StrategySkip)
}

// ResolveAll resolves every pending conflict with one automatic strategy.
// Conflicts that already reached a terminal state are left as they are.
func (s *Session) ResolveAll(strategy Strategy) (*BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.pendingLocked()
	result, err := ResolveAll(pending, strategy)
	if err != nil {
		return nil, err
	}
	for _, res := range result.Resolved {
		s.entries[res.ConflictID].finish(res)
	}
	slog.Debug("conflict", "op", "resolveAll", "scope", s.scope, "strategy", strategy, "resolved", result.ResolvedCount)
	return result, nil
}

// Pending returns conflicts that have not reached a terminal state, in session order.
func (s *Session) Pending() []*Conflict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

// Conflicts returns all conflicts in session order.
func (s *Session) Conflicts() []*Conflict {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Conflict, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id].conflict)
	}
	return out
}

// Resolutions returns every terminal resolution in session order, skips included.
func (s *Session) Resolutions() []Resolution {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Resolution, 0, len(s.order))
	for _, id := range s.order {
		if e := s.entries[id]; e.resolution != nil {
			out = append(out, *e.resolution)
		}
	}
	return out
}

// Done reports whether every conflict reached a terminal state.
func (s *Session) Done() bool {
	return len(s.Pending()) == 0
}

func (s *Session) pendingLocked() []*Conflict {
	out := make([]*Conflict, 0, len(s.order))
	for _, id := range s.order {
		if e := s.entries[id]; !e.state.Terminal() {
			out = append(out, e.conflict)
		}
	}
	return out
}

func (s *Session) lookup(id string) (*entry, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownConflict, id)
	}
	return e, nil
}

func (e *entry) canTransition() error {
	if e.state != StateClassified {
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, e.conflict.ID, e.state)
	}
	return nil
}

// repeat returns the stored resolution when the same strategy is applied twice.
func (e *entry) repeat(strategy Strategy) (Resolution, bool) {
	if e.resolution != nil && e.resolution.Strategy == strategy {
		return *e.resolution, true
	}
	return Resolution{}, false
}

func (e *entry) finish(res Resolution) {
	e.resolution = &res
	if res.Strategy == StrategySkip {
		e.state = StateSkipped
	} else {
		e.state = StateResolved
	}
}

func pairOf(c *Conflict) changes.ModifiedPair {
	return changes.ModifiedPair{ID: c.ID, Local: c.Local, Remote: c.Remote, Changed: c.Changed}
}
