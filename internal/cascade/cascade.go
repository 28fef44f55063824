// Package cascade implements the archive's cascade engine (spec §4.9): the
// iterative fixed-point loop that propagates strip/remove through the link
// graph when a product's sources disappear, respecting each derived
// product's plug-in rule and a configurable grace period.
package cascade

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/registry"
)

// ErrCascade is the root of every error the engine itself raises, as
// opposed to errors bubbling up from the Graph/Actions it drives.
var ErrCascade apperrors.Error = apperrors.ErrState.Msg("cascade engine error")

// ProductStatus is a derived product's lifecycle state as the engine sees
// it. A product with no row at all ("removed") is reported through
// Graph.ProductStatus's found return rather than a third status value,
// since a gone row has no state to hold.
type ProductStatus int

const (
	StatusActive ProductStatus = iota
	StatusStripped
)

// Graph is the read side the engine needs from the catalogue: link
// topology, per-product lifecycle state, and the cascade rule each
// product's type declares.
type Graph interface {
	SourcesOf(ctx context.Context, id uuid.UUID) ([]uuid.UUID, apperrors.Error)
	DerivedOf(ctx context.Context, id uuid.UUID) ([]uuid.UUID, apperrors.Error)

	// ProductStatus reports a product's lifecycle state. found is false
	// when the product's core row no longer exists (it was removed).
	ProductStatus(ctx context.Context, id uuid.UUID) (status ProductStatus, found bool, err apperrors.Error)

	// CascadeRuleOf returns the cascade rule the product's registered
	// product type declares.
	CascadeRuleOf(ctx context.Context, id uuid.UUID) (registry.CascadeRule, apperrors.Error)

	// SourcesLastTouched returns the most recent time any of ids changed
	// lifecycle state (stripped or removed). The engine gates a
	// candidate's eligibility on this timestamp plus the grace period, so
	// a product freshly orphaned by a fast-moving batch isn't torn down
	// before a late, in-flight ingestion can reprieve it.
	SourcesLastTouched(ctx context.Context, ids []uuid.UUID) (time.Time, apperrors.Error)
}

// Actions is the write side: the strip/remove operations the engine
// drives. Implementations are expected to perform the same teardown (bytes
// removal, hook firing) as a directly caller-invoked strip/remove, so
// cascade-driven and caller-driven teardown are indistinguishable to the
// rest of the system.
type Actions interface {
	Strip(ctx context.Context, id uuid.UUID) apperrors.Error
	Remove(ctx context.Context, id uuid.UUID) apperrors.Error
}

type action int

const (
	actionNone action = iota
	actionStrip
	actionRemove
)

// ruleOutcome is one row of the spec §4.9 rule table: the action to take
// on a derived product when all of its sources are removed, and the
// (possibly different) action when all of its sources are merely stripped.
type ruleOutcome struct {
	allRemoved  action
	allStripped action
}

var ruleTable = map[registry.CascadeRule]ruleOutcome{
	registry.CascadeIgnore:            {actionNone, actionNone},
	registry.CascadeCascadePurgeStrip: {actionStrip, actionNone},
	registry.CascadeCascadePurge:      {actionRemove, actionNone},
	registry.CascadeStrip:             {actionStrip, actionStrip},
	registry.CascadeCascade:           {actionRemove, actionStrip},
	registry.CascadePurge:             {actionRemove, actionRemove},
}

// Config holds the two archive-level cascade knobs (spec §6's [archive]
// section: cascade_grace_period, max_cascade_cycles).
type Config struct {
	MaxCycles   int
	GracePeriod time.Duration
}

// DefaultConfig matches the spec's documented defaults.
func DefaultConfig() Config {
	return Config{MaxCycles: 25, GracePeriod: 0}
}

// Engine drives the fixed-point cascade loop over one archive's link
// graph.
type Engine struct {
	graph   Graph
	actions Actions
	cfg     Config
}

// New returns an Engine over graph/actions. A non-positive MaxCycles in
// cfg falls back to the spec default of 25 rather than looping forever.
func New(graph Graph, actions Actions, cfg Config) *Engine {
	if cfg.MaxCycles <= 0 {
		cfg.MaxCycles = 25
	}
	return &Engine{graph: graph, actions: actions, cfg: cfg}
}

// Result summarizes one Run.
type Result struct {
	Stripped     []uuid.UUID
	Removed      []uuid.UUID
	Cycles       int
	HitMaxCycles bool
}

// Run propagates strip/remove from triggers — the products the caller just
// stripped or removed directly — through the link graph until the engine
// reaches a fixed point (no cycle produces further action) or exhausts
// MaxCycles. now is the reference time for grace-period eligibility,
// supplied by the caller rather than read internally so Run stays
// deterministic and testable.
func (e *Engine) Run(ctx context.Context, now time.Time, triggers []uuid.UUID) (Result, apperrors.Error) {
	var result Result
	touched := dedupUUIDs(triggers)

	cycle := 0
	for ; cycle < e.cfg.MaxCycles && len(touched) > 0; cycle++ {
		result.Cycles = cycle + 1

		candidates, err := e.collectCandidates(ctx, touched)
		if err != nil {
			return result, err
		}

		var next []uuid.UUID
		for _, d := range candidates {
			acted, err := e.evaluate(ctx, now, d, &result)
			if err != nil {
				return result, err
			}
			if acted {
				next = append(next, d)
			}
		}
		touched = dedupUUIDs(next)
	}

	if len(touched) > 0 {
		result.HitMaxCycles = true
	}
	return result, nil
}

// collectCandidates gathers every product directly derived from any
// product in touched, deduplicated.
func (e *Engine) collectCandidates(ctx context.Context, touched []uuid.UUID) ([]uuid.UUID, apperrors.Error) {
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, t := range touched {
		derived, err := e.graph.DerivedOf(ctx, t)
		if err != nil {
			return nil, err
		}
		for _, d := range derived {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	return out, nil
}

// evaluate applies the rule table to a single candidate, acting on it if
// its current source-state and grace-period eligibility call for it.
// Returns acted=true when the engine stripped or removed d, so the caller
// can re-seed the next cycle with d as a new trigger.
func (e *Engine) evaluate(ctx context.Context, now time.Time, d uuid.UUID, result *Result) (bool, apperrors.Error) {
	_, found, err := e.graph.ProductStatus(ctx, d)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	sources, err := e.graph.SourcesOf(ctx, d)
	if err != nil {
		return false, err
	}
	if len(sources) == 0 {
		return false, nil
	}

	var removedCount, strippedCount int
	for _, s := range sources {
		status, found, err := e.graph.ProductStatus(ctx, s)
		if err != nil {
			return false, err
		}
		if !found {
			removedCount++
		} else if status == StatusStripped {
			strippedCount++
		}
	}

	allRemoved := removedCount == len(sources)
	allStripped := !allRemoved && strippedCount == len(sources)
	if !allRemoved && !allStripped {
		return false, nil
	}

	rule, err := e.graph.CascadeRuleOf(ctx, d)
	if err != nil {
		return false, err
	}
	outcome, ok := ruleTable[rule]
	if !ok {
		outcome = ruleTable[registry.CascadeIgnore]
	}

	act := outcome.allStripped
	if allRemoved {
		act = outcome.allRemoved
	}
	if act == actionNone {
		return false, nil
	}

	if e.cfg.GracePeriod > 0 {
		lastTouched, err := e.graph.SourcesLastTouched(ctx, sources)
		if err != nil {
			return false, err
		}
		if now.Sub(lastTouched) < e.cfg.GracePeriod {
			return false, nil
		}
	}

	switch act {
	case actionStrip:
		if err := e.actions.Strip(ctx, d); err != nil {
			return false, err
		}
		result.Stripped = append(result.Stripped, d)
	case actionRemove:
		if err := e.actions.Remove(ctx, d); err != nil {
			return false, err
		}
		result.Removed = append(result.Removed, d)
	}
	return true, nil
}

func dedupUUIDs(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
