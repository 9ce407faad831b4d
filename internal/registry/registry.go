// Package registry provides the process-wide name→instance service
// locator used to break construction cycles between foundational
// services. A name, once registered, is immutable unless replaced
// through the narrow Upgrade path; duplicate registration is a no-op
// with a diagnostic, never an error and never a silent overwrite.
//
// The registry is a deliberate architectural seam, not ambient global
// state: consumers look their dependencies up once at construction
// time, not from deep call stacks.
package registry

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Upgradable names form the only path that may replace a bound value.
// They exist solely for the bootstrap's stub-then-upgrade protocol; any
// other replacement attempt is rejected.
var upgradable = map[string]struct{}{
	"logger":               {},
	"eventHandlers.logger": {},
	"safeHandler":          {},
	"tokenStatsManager":    {},
	"authApiService":       {},
}

// Registry is a name-keyed service locator with register-once semantics.
type Registry struct {
	mu       sync.RWMutex
	services map[string]any
	logger   *zap.Logger
}

// New creates an empty registry. The logger may be a no-op stub during
// early bootstrap; swap it later with SetLogger.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		services: make(map[string]any),
		logger:   logger,
	}
}

// SetLogger swaps the diagnostic logger. Bindings are unaffected.
func (r *Registry) SetLogger(logger *zap.Logger) {
	if logger == nil {
		return
	}
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// Register stores the mapping if name is unbound. A duplicate
// registration logs a diagnostic and leaves the existing binding
// untouched. Register never fails.
func (r *Registry) Register(name string, instance any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.services[name]; exists {
		r.logger.Warn("duplicate service registration ignored",
			zap.String("service", name),
		)
		return
	}
	r.services[name] = instance
	r.logger.Debug("service registered", zap.String("service", name))
}

// Get returns the bound instance, or nil when the name is unbound.
// Callers must nil-check; Get never fails on a miss.
func (r *Registry) Get(name string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.services[name]
}

// Has reports whether a name is bound.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.services[name]
	return ok
}

// Upgrade replaces an existing binding. Only the fixed allow-list of
// stub-then-upgrade names may be replaced; everything else is an error
// so the mechanism cannot sprawl into general mutable state.
func (r *Registry) Upgrade(name string, instance any) error {
	if _, ok := upgradable[name]; !ok {
		return fmt.Errorf("service %q is not upgradable", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.services[name]; !exists {
		r.services[name] = instance
		r.logger.Debug("upgradable service registered", zap.String("service", name))
		return nil
	}
	r.services[name] = instance
	r.logger.Info("service upgraded", zap.String("service", name))
	return nil
}

// Names returns the currently bound names, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	return names
}

// Len returns the number of bound services.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}
