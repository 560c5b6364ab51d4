package conflict

import (
	"errors"
	"fmt"

	"github.com/openmined/marksync/internal/bookmark"
	"github.com/openmined/marksync/internal/changes"
)

var (
	ErrInvalidStrategy   = errors.New("invalid resolution strategy")
	ErrIDMismatch        = errors.New("result record id does not match conflict")
	ErrUnknownConflict   = errors.New("unknown conflict")
	ErrInvalidTransition = errors.New("invalid conflict state transition")
)

// Severity ranks how disruptive a conflict is for the user.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities, higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Type names the class of field that differs between both sides.
type Type string

const (
	TypeTitle  Type = "title"
	TypeURL    Type = "url"
	TypeFolder Type = "folder"
	TypeMixed  Type = "mixed"
)

// Conflict is a record present on both sides with diverging content.
type Conflict struct {
	ID       string           `json:"id"`
	Local    *bookmark.Record `json:"local"`
	Remote   *bookmark.Record `json:"remote"`
	Severity Severity         `json:"severity"`
	Type     Type             `json:"type"`
	Changed  changes.Side     `json:"changed"`
}

// Strategy decides which content survives a conflict.
type Strategy string

const (
	StrategyLocalWins  Strategy = "local-wins"
	StrategyRemoteWins Strategy = "remote-wins"
	StrategyMerge      Strategy = "merge"
	StrategyManual     Strategy = "manual"
	// StrategySkip leaves the conflict unresolved for this cycle.
	StrategySkip Strategy = "skip"
)

// ParseStrategy validates a user supplied strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyLocalWins, StrategyRemoteWins, StrategyMerge, StrategyManual, StrategySkip:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
}

// Automatic reports whether the strategy can resolve conflicts without outside input.
func (s Strategy) Automatic() bool {
	return s == StrategyLocalWins || s == StrategyRemoteWins || s == StrategyMerge
}

// Resolution is the terminal outcome of a conflict.
// Result is nil when the conflict was skipped.
type Resolution struct {
	ConflictID string           `json:"conflictId"`
	Strategy   Strategy         `json:"strategy"`
	Result     *bookmark.Record `json:"resultRecord,omitempty"`
}

// BatchResult is returned by batch auto-resolution.
type BatchResult struct {
	Resolved      []Resolution `json:"resolved"`
	ResolvedCount int          `json:"resolvedCount"`
}

// State tracks a conflict through one session.
type State string

const (
	StateDetected   State = "detected"
	StateClassified State = "classified"
	StateResolved   State = "resolved"
	StateSkipped    State = "skipped"
)

func (s State) Terminal() bool {
	return s == StateResolved || s == StateSkipped
}
