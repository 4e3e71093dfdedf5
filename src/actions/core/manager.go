package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// Module is a long-running part of the board that can be started and stopped.
type Module interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context)
}

var (
	ErrStarted       = errors.New("actions: manager already started")
	ErrAddAfterStart = errors.New("actions: cannot add modules after start")
)

// Manager starts modules in registration order and stops them in reverse.
type Manager struct {
	modules []Module
	mu      sync.Mutex
	started []Module
}

// NewManager creates a manager with the provided modules. Nil modules are
// skipped.
func NewManager(mods ...Module) *Manager {
	m := &Manager{}
	for _, mod := range mods {
		if mod != nil {
			m.modules = append(m.modules, mod)
		}
	}
	return m
}

// Add registers a module before Start is invoked.
func (m *Manager) Add(mod Module) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started != nil {
		return ErrAddAfterStart
	}
	if mod != nil {
		m.modules = append(m.modules, mod)
	}
	return nil
}

// Names lists registered modules in start order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.modules))
	for i, mod := range m.modules {
		names[i] = mod.Name()
	}
	return names
}

// Start starts every module. If one fails, the ones already started are
// stopped in reverse order and the error is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started != nil {
		return ErrStarted
	}

	started := make([]Module, 0, len(m.modules))
	for _, mod := range m.modules {
		if err := mod.Start(ctx); err != nil {
			for i := len(started) - 1; i >= 0; i-- {
				started[i].Stop(ctx)
			}
			return fmt.Errorf("module %s failed: %w", mod.Name(), err)
		}
		log.Printf("actions: %s started", mod.Name())
		started = append(started, mod)
	}

	m.started = started
	return nil
}

// Stop shuts down started modules in reverse order. It is safe to call more
// than once.
func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.started) - 1; i >= 0; i-- {
		m.started[i].Stop(ctx)
		log.Printf("actions: %s stopped", m.started[i].Name())
	}
	m.started = nil
}

// Abort releases modules that were registered but never started, in reverse
// order. It is meant for wiring failures before Start and does nothing once
// the manager has started.
func (m *Manager) Abort(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started != nil {
		return
	}
	for i := len(m.modules) - 1; i >= 0; i-- {
		m.modules[i].Stop(ctx)
	}
	m.modules = nil
}
