package storage

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/eleven-am/subflow/internal/domain"
	json "github.com/eleven-am/subflow/internal/xjson"
)

// AppStorage is a badger-backed RecordStore for workflow and task records.
type AppStorage struct {
	db     *badger.DB
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func Open(cfg domain.StorageConfig, logger *slog.Logger) (*AppStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.DataDir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(newBadgerLogger(logger))

	db, err := badger.Open(opts)
	if err != nil {
		return nil, domain.NewStorageError("failed to open badger database", err).
			WithDetail("data_dir", cfg.DataDir).
			WithDetail("in_memory", cfg.InMemory)
	}

	return NewAppStorage(db, logger), nil
}

func NewAppStorage(db *badger.DB, logger *slog.Logger) *AppStorage {
	if logger == nil {
		logger = slog.Default()
	}

	return &AppStorage{
		db:     db,
		logger: logger.With("component", "app-storage"),
	}
}

func (s *AppStorage) SaveWorkflow(ctx context.Context, workflow *domain.Workflow) error {
	if workflow == nil || workflow.ID == "" {
		return domain.NewValidationError("workflow id is required", domain.ErrInvalidInput)
	}

	// Tasks are stored under their own keys.
	record := *workflow
	record.Tasks = nil

	return s.put(ctx, domain.WorkflowKey(workflow.ID), &record)
}

func (s *AppStorage) GetWorkflow(ctx context.Context, workflowID string) (*domain.Workflow, error) {
	var workflow domain.Workflow
	if err := s.get(ctx, domain.WorkflowKey(workflowID), &workflow); err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewNotFoundError("workflow not found", err).WithWorkflowID(workflowID)
		}
		return nil, err
	}
	return &workflow, nil
}

// ListWorkflows returns the matching workflows ordered by creation time.
func (s *AppStorage) ListWorkflows(ctx context.Context, filter domain.WorkflowFilter) ([]*domain.Workflow, error) {
	var workflows []*domain.Workflow

	err := s.scan(ctx, []byte(domain.WorkflowPrefix), func(val []byte) error {
		var workflow domain.Workflow
		if err := json.Unmarshal(val, &workflow); err != nil {
			return domain.NewStorageError("failed to decode workflow record", err)
		}
		if filter.Matches(&workflow) {
			workflows = append(workflows, &workflow)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})
	return workflows, nil
}

func (s *AppStorage) DeleteWorkflow(ctx context.Context, workflowID string) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	prefix := []byte(domain.WorkflowTasksPrefix(workflowID))
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(domain.WorkflowKey(workflowID))); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.NewNotFoundError("workflow not found", nil).WithWorkflowID(workflowID)
			}
			return domain.NewStorageError("failed to read workflow", err)
		}

		keys := collectKeys(txn, prefix)
		keys = append(keys, []byte(domain.WorkflowKey(workflowID)))
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return domain.NewStorageError("failed to delete record", err).
					WithWorkflowID(workflowID).
					WithDetail("key", string(key))
			}
		}

		s.logger.Debug("workflow deleted", "workflow_id", workflowID, "keys", len(keys))
		return nil
	})
}

func (s *AppStorage) SaveTask(ctx context.Context, task *domain.Task) error {
	if task == nil || task.ID == "" || task.WorkflowID == "" {
		return domain.NewValidationError("task id and workflow id are required", domain.ErrInvalidInput)
	}
	return s.put(ctx, domain.TaskKey(task.WorkflowID, task.ID), task)
}

func (s *AppStorage) GetTask(ctx context.Context, workflowID, taskID string) (*domain.Task, error) {
	var task domain.Task
	if err := s.get(ctx, domain.TaskKey(workflowID, taskID), &task); err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewNotFoundError("task not found", err).
				WithWorkflowID(workflowID).
				WithTaskID(taskID)
		}
		return nil, err
	}
	return &task, nil
}

// ListTasks returns the tasks of a workflow ordered by scheduled time.
func (s *AppStorage) ListTasks(ctx context.Context, workflowID string) ([]*domain.Task, error) {
	var tasks []*domain.Task

	err := s.scan(ctx, []byte(domain.WorkflowTasksPrefix(workflowID)), func(val []byte) error {
		var task domain.Task
		if err := json.Unmarshal(val, &task); err != nil {
			return domain.NewStorageError("failed to decode task record", err).WithWorkflowID(workflowID)
		}
		tasks = append(tasks, &task)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].ScheduledTime.Before(tasks[j].ScheduledTime)
	})
	return tasks, nil
}

// Ping checks that the store is open and can serve a read transaction.
func (s *AppStorage) Ping(ctx context.Context) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error { return nil })
}

func (s *AppStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *AppStorage) put(ctx context.Context, key string, v interface{}) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return domain.NewStorageError("failed to encode record", err).WithDetail("key", key)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return domain.NewStorageError("failed to write record", err).WithDetail("key", key)
	}
	return nil
}

func (s *AppStorage) get(ctx context.Context, key string, v interface{}) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.ErrNotFound
		}
		return domain.NewStorageError("failed to read record", err).WithDetail("key", key)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return domain.NewStorageError("failed to decode record", err).WithDetail("key", key)
	}
	return nil
}

func (s *AppStorage) scan(ctx context.Context, prefix []byte, fn func(val []byte) error) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *AppStorage) checkOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.NewStorageError("storage is closed", domain.ErrClosed, domain.WithRetryable(false))
	}
	return nil
}

func collectKeys(txn *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}
