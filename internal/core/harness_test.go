package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eleven-am/subflow/internal/adapters/driver_registry"
	"github.com/eleven-am/subflow/internal/adapters/storage"
	"github.com/eleven-am/subflow/internal/adapters/subworkflow"
	"github.com/eleven-am/subflow/internal/domain"
	"github.com/eleven-am/subflow/internal/ports"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// flakyStore fails the next N workflow saves.
type flakyStore struct {
	ports.RecordStore
	failures atomic.Int32
}

func (s *flakyStore) SaveWorkflow(ctx context.Context, workflow *domain.Workflow) error {
	if s.failures.Load() > 0 {
		s.failures.Add(-1)
		return domain.NewStorageError("write rejected", nil)
	}
	return s.RecordStore.SaveWorkflow(ctx, workflow)
}

// hookStore runs beforeSaveTask once, ahead of the first task save.
type hookStore struct {
	ports.RecordStore
	beforeSaveTask func()
	once           sync.Once
}

func (s *hookStore) SaveTask(ctx context.Context, task *domain.Task) error {
	if s.beforeSaveTask != nil {
		s.once.Do(s.beforeSaveTask)
	}
	return s.RecordStore.SaveTask(ctx, task)
}

type harness struct {
	store    *flakyStore
	registry *driver_registry.Adapter
	driver   *subworkflow.Driver
	executor *Executor
	clock    *testClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	appStorage, err := storage.Open(domain.StorageConfig{InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = appStorage.Close() })

	clock := newTestClock()
	store := &flakyStore{RecordStore: appStorage}
	registry := driver_registry.NewAdapter(nil)
	driver := subworkflow.NewDriver(nil, subworkflow.WithClock(clock.Now))
	require.NoError(t, registry.RegisterDriver(driver))

	var seq atomic.Int64
	executor := NewExecutor(store, registry, nil,
		WithExecutorClock(clock.Now),
		WithIDGenerator(func() string { return fmt.Sprintf("id-%d", seq.Add(1)) }))

	return &harness{
		store:    store,
		registry: registry,
		driver:   driver,
		executor: executor,
		clock:    clock,
	}
}

func (h *harness) startParent(t *testing.T) string {
	t.Helper()
	id, err := h.executor.StartWorkflow(context.Background(), "checkout", 1,
		map[string]interface{}{"cart": "c-1"}, "corr-1", "", "", nil)
	require.NoError(t, err)
	return id
}

func subWorkflowTask(name string, version int, input map[string]interface{}) *domain.Task {
	data := map[string]interface{}{
		subworkflow.InputSubWorkflowName:    name,
		subworkflow.InputSubWorkflowVersion: version,
	}
	if input != nil {
		data[subworkflow.InputWorkflowInput] = input
	}
	return &domain.Task{Kind: subworkflow.Kind, InputData: data}
}
