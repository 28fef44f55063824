package cascade

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGraph is an in-memory link graph + lifecycle table for exercising the
// engine without a real database backend.
type fakeGraph struct {
	sources     map[uuid.UUID][]uuid.UUID
	derived     map[uuid.UUID][]uuid.UUID
	status      map[uuid.UUID]ProductStatus
	removed     map[uuid.UUID]bool
	rule        map[uuid.UUID]registry.CascadeRule
	lastTouched time.Time
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		sources: map[uuid.UUID][]uuid.UUID{},
		derived: map[uuid.UUID][]uuid.UUID{},
		status:  map[uuid.UUID]ProductStatus{},
		removed: map[uuid.UUID]bool{},
		rule:    map[uuid.UUID]registry.CascadeRule{},
	}
}

// link records that derived D has source S, in both directions.
func (g *fakeGraph) link(d, s uuid.UUID) {
	g.sources[d] = append(g.sources[d], s)
	g.derived[s] = append(g.derived[s], d)
}

func (g *fakeGraph) SourcesOf(ctx context.Context, id uuid.UUID) ([]uuid.UUID, apperrors.Error) {
	return g.sources[id], nil
}

func (g *fakeGraph) DerivedOf(ctx context.Context, id uuid.UUID) ([]uuid.UUID, apperrors.Error) {
	return g.derived[id], nil
}

func (g *fakeGraph) ProductStatus(ctx context.Context, id uuid.UUID) (ProductStatus, bool, apperrors.Error) {
	if g.removed[id] {
		return 0, false, nil
	}
	return g.status[id], true, nil
}

func (g *fakeGraph) CascadeRuleOf(ctx context.Context, id uuid.UUID) (registry.CascadeRule, apperrors.Error) {
	return g.rule[id], nil
}

func (g *fakeGraph) SourcesLastTouched(ctx context.Context, ids []uuid.UUID) (time.Time, apperrors.Error) {
	return g.lastTouched, nil
}

// fakeActions applies strip/remove directly to a fakeGraph, so a test can
// drive a multi-cycle Run and observe state converge exactly as a real
// archive+db pairing would.
type fakeActions struct {
	g          *fakeGraph
	failOnID   uuid.UUID
	failCalled bool
}

func (a *fakeActions) Strip(ctx context.Context, id uuid.UUID) apperrors.Error {
	if id == a.failOnID {
		a.failCalled = true
		return ErrCascade.Msg("strip failed")
	}
	a.g.status[id] = StatusStripped
	return nil
}

func (a *fakeActions) Remove(ctx context.Context, id uuid.UUID) apperrors.Error {
	if id == a.failOnID {
		a.failCalled = true
		return ErrCascade.Msg("remove failed")
	}
	a.g.removed[id] = true
	return nil
}

func newUUID() uuid.UUID { return uuid.New() }

func TestIgnoreRuleNeverActs(t *testing.T) {
	g := newFakeGraph()
	s, d := newUUID(), newUUID()
	g.link(d, s)
	g.rule[d] = registry.CascadeIgnore
	g.removed[s] = true

	actions := &fakeActions{g: g}
	e := New(g, actions, DefaultConfig())

	result, err := e.Run(context.Background(), time.Now(), []uuid.UUID{s})
	require.Nil(t, err)
	assert.Empty(t, result.Stripped)
	assert.Empty(t, result.Removed)
}

func TestCascadePurgeAsStripAppliesOnlyOnAllRemoved(t *testing.T) {
	g := newFakeGraph()
	s, d := newUUID(), newUUID()
	g.link(d, s)
	g.rule[d] = registry.CascadeCascadePurgeStrip
	g.removed[s] = true

	actions := &fakeActions{g: g}
	e := New(g, actions, DefaultConfig())

	result, err := e.Run(context.Background(), time.Now(), []uuid.UUID{s})
	require.Nil(t, err)
	assert.Equal(t, []uuid.UUID{d}, result.Stripped)
	assert.Empty(t, result.Removed)
}

func TestCascadePurgeAsStripIgnoresAllStripped(t *testing.T) {
	g := newFakeGraph()
	s, d := newUUID(), newUUID()
	g.link(d, s)
	g.rule[d] = registry.CascadeCascadePurgeStrip
	g.status[s] = StatusStripped

	actions := &fakeActions{g: g}
	e := New(g, actions, DefaultConfig())

	result, err := e.Run(context.Background(), time.Now(), []uuid.UUID{s})
	require.Nil(t, err)
	assert.Empty(t, result.Stripped)
	assert.Empty(t, result.Removed)
}

func TestCascadeRulePropagatesStripThenRemove(t *testing.T) {
	// S -> D (CASCADE: removed sources -> remove; stripped sources -> strip)
	g := newFakeGraph()
	s, d := newUUID(), newUUID()
	g.link(d, s)
	g.rule[d] = registry.CascadeCascade
	g.status[s] = StatusStripped

	actions := &fakeActions{g: g}
	e := New(g, actions, DefaultConfig())

	result, err := e.Run(context.Background(), time.Now(), []uuid.UUID{s})
	require.Nil(t, err)
	assert.Equal(t, []uuid.UUID{d}, result.Stripped)

	// Once the source is removed as well, the same rule removes D.
	g.removed[s] = true
	result, err = e.Run(context.Background(), time.Now(), []uuid.UUID{s})
	require.Nil(t, err)
	assert.Equal(t, []uuid.UUID{d}, result.Removed)
}

func TestPurgeRulePropagatesThroughAChainUntilFixedPoint(t *testing.T) {
	// S -> D1 -> D2, both PURGE. remove(S) should ripple through to remove
	// both D1 and D2 once the engine reaches a fixed point.
	g := newFakeGraph()
	s, d1, d2 := newUUID(), newUUID(), newUUID()
	g.link(d1, s)
	g.link(d2, d1)
	g.rule[d1] = registry.CascadePurge
	g.rule[d2] = registry.CascadePurge
	g.removed[s] = true

	actions := &fakeActions{g: g}
	e := New(g, actions, DefaultConfig())

	result, err := e.Run(context.Background(), time.Now(), []uuid.UUID{s})
	require.Nil(t, err)
	assert.ElementsMatch(t, []uuid.UUID{d1, d2}, result.Removed)
	assert.False(t, result.HitMaxCycles)
}

func TestPartiallyRemovedSourcesDoNotTriggerCascade(t *testing.T) {
	g := newFakeGraph()
	s1, s2, d := newUUID(), newUUID(), newUUID()
	g.link(d, s1)
	g.link(d, s2)
	g.rule[d] = registry.CascadePurge
	g.removed[s1] = true
	// s2 remains active.

	actions := &fakeActions{g: g}
	e := New(g, actions, DefaultConfig())

	result, err := e.Run(context.Background(), time.Now(), []uuid.UUID{s1})
	require.Nil(t, err)
	assert.Empty(t, result.Removed)
	assert.Empty(t, result.Stripped)
}

func TestGracePeriodDefersAction(t *testing.T) {
	g := newFakeGraph()
	s, d := newUUID(), newUUID()
	g.link(d, s)
	g.rule[d] = registry.CascadePurge
	g.removed[s] = true
	now := time.Now()
	g.lastTouched = now

	actions := &fakeActions{g: g}
	e := New(g, actions, Config{MaxCycles: 25, GracePeriod: time.Hour})

	result, err := e.Run(context.Background(), now, []uuid.UUID{s})
	require.Nil(t, err)
	assert.Empty(t, result.Removed, "action should be deferred until the grace period elapses")

	result, err = e.Run(context.Background(), now.Add(2*time.Hour), []uuid.UUID{s})
	require.Nil(t, err)
	assert.Equal(t, []uuid.UUID{d}, result.Removed)
}

func TestMaxCyclesStopsALongChainAndReportsHitMaxCycles(t *testing.T) {
	g := newFakeGraph()
	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = newUUID()
	}
	g.removed[ids[0]] = true
	for i := 1; i < len(ids); i++ {
		g.link(ids[i], ids[i-1])
		g.rule[ids[i]] = registry.CascadePurge
	}

	actions := &fakeActions{g: g}
	e := New(g, actions, Config{MaxCycles: 2, GracePeriod: 0})

	result, err := e.Run(context.Background(), time.Now(), []uuid.UUID{ids[0]})
	require.Nil(t, err)
	assert.True(t, result.HitMaxCycles)
	assert.Len(t, result.Removed, 2)
}

func TestRunStopsOnActionsError(t *testing.T) {
	g := newFakeGraph()
	s, d := newUUID(), newUUID()
	g.link(d, s)
	g.rule[d] = registry.CascadePurge
	g.removed[s] = true

	actions := &fakeActions{g: g, failOnID: d}
	e := New(g, actions, DefaultConfig())

	_, err := e.Run(context.Background(), time.Now(), []uuid.UUID{s})
	assert.NotNil(t, err)
	assert.True(t, actions.failCalled)
}

func TestDefaultConfigMatchesSpecDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 25, cfg.MaxCycles)
	assert.Equal(t, time.Duration(0), cfg.GracePeriod)
}

func TestNewFallsBackToDefaultMaxCyclesWhenNonPositive(t *testing.T) {
	g := newFakeGraph()
	e := New(g, &fakeActions{g: g}, Config{MaxCycles: 0})
	assert.Equal(t, 25, e.cfg.MaxCycles)
}
