package driver_registry

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/eleven-am/subflow/internal/domain"
	"github.com/eleven-am/subflow/internal/ports"
)

// Adapter maps task kinds to their drivers. It is safe for concurrent use.
type Adapter struct {
	drivers map[string]ports.TaskDriver
	mu      sync.RWMutex
	logger  *slog.Logger
}

func NewAdapter(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}

	return &Adapter{
		drivers: make(map[string]ports.TaskDriver),
		logger:  logger.With("component", "driver-registry"),
	}
}

func (r *Adapter) RegisterDriver(driver ports.TaskDriver) error {
	if driver == nil {
		r.logger.Error("attempted to register nil driver")
		return &ports.DriverRegistrationError{
			Kind:   "<nil>",
			Reason: "driver cannot be nil",
		}
	}

	kind := driver.Kind()
	r.logger.Debug("attempting to register driver", "kind", kind)

	if kind == "" {
		r.logger.Error("attempted to register driver with empty kind")
		return &ports.DriverRegistrationError{
			Kind:   kind,
			Reason: "driver kind cannot be empty",
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.drivers[kind]; exists {
		r.logger.Debug("driver registration failed - already exists", "kind", kind)
		return &ports.DriverRegistrationError{
			Kind:   kind,
			Reason: "driver already registered",
		}
	}

	r.drivers[kind] = driver
	r.logger.Debug("driver registered successfully", "kind", kind, "total_drivers", len(r.drivers))
	return nil
}

func (r *Adapter) GetDriver(kind string) (ports.TaskDriver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	driver, exists := r.drivers[kind]
	if !exists {
		r.logger.Debug("driver not found", "kind", kind)
		return nil, domain.NewNotFoundError("no driver registered for task kind", nil).
			WithDetail("kind", kind)
	}

	return driver, nil
}

func (r *Adapter) HasDriver(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.drivers[kind]
	return exists
}

// ListDrivers returns the registered kinds in sorted order.
func (r *Adapter) ListDrivers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.drivers))
	for kind := range r.drivers {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	return kinds
}

func (r *Adapter) UnregisterDriver(kind string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.drivers[kind]; !exists {
		r.logger.Debug("driver unregistration failed - not found", "kind", kind)
		return domain.NewNotFoundError("no driver registered for task kind", nil).
			WithDetail("kind", kind).
			WithOperation("unregister")
	}

	delete(r.drivers, kind)
	r.logger.Debug("driver unregistered successfully", "kind", kind, "remaining_drivers", len(r.drivers))
	return nil
}

func (r *Adapter) GetDriverCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.drivers)
}
