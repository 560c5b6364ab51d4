package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openmined/marksync/internal/bookmark"
	"github.com/openmined/marksync/internal/conflict"
)

// Decision resolves one conflict. Result is required for the manual strategy only.
type Decision struct {
	ConflictID string            `json:"conflictId" binding:"required"`
	Strategy   conflict.Strategy `json:"strategy" binding:"required"`
	Result     *bookmark.Record  `json:"resultRecord,omitempty"`
}

type ResolveRequest struct {
	Scope string `json:"scope"`
	// Strategy is applied to every conflict not covered by Decisions.
	Strategy  conflict.Strategy `json:"strategy,omitempty"`
	Decisions []Decision        `json:"decisions,omitempty"`
	// Commit writes the outcome to the snapshots. Without it the call is a dry run.
	Commit bool `json:"commit"`
}

type ResolveResult struct {
	Scope         string                `json:"scope"`
	Resolved      []conflict.Resolution `json:"resolved"`
	ResolvedCount int                   `json:"resolvedCount"`
	Pending       []*conflict.Conflict  `json:"pending"`
	Committed     bool                  `json:"committed"`
}

// Resolve runs one resolution pass over a fresh preview of the scope.
// Every strategy is checked before any conflict is touched.
func (a *App) Resolve(ctx context.Context, req ResolveRequest) (*ResolveResult, error) {
	if req.Scope == "" {
		req.Scope = a.config.Scope
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	p, session, err := a.Previews.NewSession(ctx, req.Scope)
	if err != nil {
		return nil, err
	}

	for _, d := range req.Decisions {
		if d.Strategy == conflict.StrategyManual {
			_, err = session.ResolveManual(d.ConflictID, d.Result)
		} else {
			_, err = session.Resolve(d.ConflictID, d.Strategy)
		}
		if err != nil {
			return nil, fmt.Errorf("conflict %s: %w", d.ConflictID, err)
		}
	}

	if req.Strategy != "" {
		if _, err := session.ResolveAll(req.Strategy); err != nil {
			return nil, err
		}
	}

	resolutions := session.Resolutions()
	result := &ResolveResult{
		Scope:         req.Scope,
		Resolved:      resolutions,
		ResolvedCount: countResolved(resolutions),
		Pending:       session.Pending(),
	}

	if req.Commit {
		if err := a.Previews.Commit(ctx, p, session); err != nil {
			return nil, err
		}
		result.Committed = true
	}

	slog.Info("conflict", "op", "resolve", "scope", req.Scope, "resolved", result.ResolvedCount,
		"pending", len(result.Pending), "committed", result.Committed)
	return result, nil
}

func validateRequest(req ResolveRequest) error {
	if req.Strategy != "" {
		s, err := conflict.ParseStrategy(string(req.Strategy))
		if err != nil {
			return err
		}
		if !s.Automatic() {
			return fmt.Errorf("%w: %s cannot be applied in batch", conflict.ErrInvalidStrategy, s)
		}
	}
	for _, d := range req.Decisions {
		if _, err := conflict.ParseStrategy(string(d.Strategy)); err != nil {
			return fmt.Errorf("conflict %s: %w", d.ConflictID, err)
		}
		if d.Strategy == conflict.StrategyManual && d.Result == nil {
			return fmt.Errorf("conflict %s: %w: manual resolution needs a result record", d.ConflictID, conflict.ErrInvalidStrategy)
		}
	}
	return nil
}

func countResolved(resolutions []conflict.Resolution) int {
	n := 0
	for _, r := range resolutions {
		if r.Result != nil {
			n++
		}
	}
	return n
}
