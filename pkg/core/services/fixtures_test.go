package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/training-signups/pkg/core/lifecycle"
	"github.com/jakechorley/training-signups/pkg/core/model"
	"github.com/jakechorley/training-signups/pkg/db"
	"github.com/jakechorley/training-signups/pkg/db/memory"
)

// stepClock advances a minute on every reading so registration order is
// deterministic
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

// fakeOracle implements MembershipOracle from a fixed table
type fakeOracle struct {
	groups map[string][]string
	err    error
	// onLookup runs on every lookup
	onLookup func()
}

func (o *fakeOracle) ExternalGroupIDs(ctx context.Context, participant string) ([]string, error) {
	if o.onLookup != nil {
		o.onLookup()
	}
	if o.err != nil {
		return nil, o.err
	}
	return o.groups[participant], nil
}

// recordingNotifier keeps every event it receives
type recordingNotifier struct {
	mu     sync.Mutex
	events []model.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, event model.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) kinds() []model.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]model.EventKind, len(n.events))
	for i, e := range n.events {
		kinds[i] = e.Kind
	}
	return kinds
}

// hookStore runs test code at chosen points of a service call. Each hook
// fires once and is then cleared.
type hookStore struct {
	*memory.Store
	inTx atomic.Bool

	// afterGetTraining runs after the next GetTraining outside a transaction
	afterGetTraining func()
	// beforeListSignups runs before the next ListSignups inside a read snapshot
	beforeListSignups func()
}

func (h *hookStore) InTx(ctx context.Context, fn func(q db.Queries) error) error {
	h.inTx.Store(true)
	defer h.inTx.Store(false)
	return h.Store.InTx(ctx, fn)
}

func (h *hookStore) ReadTx(ctx context.Context, fn func(q db.Queries) error) error {
	return h.Store.ReadTx(ctx, func(q db.Queries) error {
		return fn(&hookQueries{Queries: q, store: h})
	})
}

func (h *hookStore) GetTraining(ctx context.Context, id int64) (*model.Training, error) {
	training, err := h.Store.GetTraining(ctx, id)
	if hook := h.afterGetTraining; hook != nil {
		h.afterGetTraining = nil
		hook()
	}
	return training, err
}

type hookQueries struct {
	db.Queries
	store *hookStore
}

func (q *hookQueries) ListSignups(ctx context.Context, trainingID int64) ([]model.Signup, error) {
	if hook := q.store.beforeListSignups; hook != nil {
		q.store.beforeListSignups = nil
		hook()
	}
	return q.Queries.ListSignups(ctx, trainingID)
}

type fixture struct {
	ctx      context.Context
	svc      *Service
	store    *memory.Store
	hooks    *hookStore
	oracle   *fakeOracle
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ctx:      context.Background(),
		store:    memory.NewStore(),
		oracle:   &fakeOracle{groups: map[string][]string{}},
		notifier: &recordingNotifier{},
	}
	f.hooks = &hookStore{Store: f.store}
	clock := &stepClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	f.svc = New(f.hooks, zap.NewNop(),
		WithOracle(f.oracle),
		WithNotifier(f.notifier),
		WithClock(clock.now))
	return f
}

func (f *fixture) role(t *testing.T, code string, priority int) *model.Role {
	t.Helper()
	role, err := f.svc.CreateRole(f.ctx, code+" role", code, ":"+code+":", priority)
	require.NoError(t, err)
	return role
}

func (f *fixture) boss(t *testing.T, code string, wing, position int) *model.Boss {
	t.Helper()
	boss, err := f.svc.CreateBoss(f.ctx, code, code+" boss", wing, position)
	require.NoError(t, err)
	return boss
}

// training creates a training with the given openings per role
func (f *fixture) training(t *testing.T, slots map[int64]int) *model.Training {
	t.Helper()
	training, err := f.svc.CreateTraining(f.ctx, "Raid training", time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	for roleID, count := range slots {
		require.NoError(t, f.svc.AddSlots(f.ctx, training.ID, roleID, count))
	}
	return training
}

// advanceTo walks a training forward until it reaches state
func (f *fixture) advanceTo(t *testing.T, trainingID int64, state model.TrainingState) {
	t.Helper()
	training, err := f.svc.GetTraining(f.ctx, trainingID)
	require.NoError(t, err)
	for training.State != state {
		next, ok := lifecycle.Next(training.State)
		require.True(t, ok, "cannot reach %s", state)
		training, err = f.svc.Advance(f.ctx, trainingID, next)
		require.NoError(t, err)
	}
}

func (f *fixture) register(t *testing.T, trainingID int64, participant string, roles ...int64) *model.Signup {
	t.Helper()
	signup, err := f.svc.Register(f.ctx, trainingID, participant, roles)
	require.NoError(t, err)
	return signup
}
