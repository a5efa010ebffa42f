// Package hotreload watches configuration files and reloads registered
// components when they change.
package hotreload

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager ties a Watcher, a Coordinator and a Broadcaster together
type Manager struct {
	watcher     *Watcher
	coordinator *Coordinator
	broadcaster *Broadcaster
	logger      *zap.Logger
	mu          sync.Mutex
	started     bool
}

// NewManager creates a new hot reload manager. A nil logger discards output.
func NewManager(logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := NewWatcher(logger)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		watcher:     watcher,
		coordinator: NewCoordinator(watcher, logger),
		broadcaster: NewBroadcaster(logger),
		logger:      logger,
	}
	m.coordinator.OnReload(func(ctx context.Context, event ReloadEvent) {
		if err := m.broadcaster.Broadcast(ctx, event); err != nil {
			m.logger.Warn("Reload listener failed", zap.String("component", event.Component), zap.Error(err))
		}
	})
	return m, nil
}

// AddWatch adds a file to watch
func (m *Manager) AddWatch(path string) error {
	return m.watcher.Add(path)
}

// RemoveWatch removes a file from watch
func (m *Manager) RemoveWatch(path string) error {
	return m.watcher.Remove(path)
}

// RegisterReloadable registers a reloadable component
func (m *Manager) RegisterReloadable(reloadable Reloadable) error {
	return m.coordinator.Register(reloadable)
}

// AddListener adds an event listener
func (m *Manager) AddListener(name string, listener Listener) error {
	return m.broadcaster.AddListener(name, listener)
}

// RemoveListener removes an event listener
func (m *Manager) RemoveListener(name string) {
	m.broadcaster.RemoveListener(name)
}

// ReloadNow reloads every component without waiting for a file event
func (m *Manager) ReloadNow(ctx context.Context) []ReloadEvent {
	return m.coordinator.ReloadNow(ctx)
}

// Start starts the hot reload system
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}
	if err := m.coordinator.Start(); err != nil {
		return err
	}

	m.started = true
	m.logger.Info("Hot reload system started", zap.Strings("paths", m.watcher.Paths()))
	return nil
}

// Stop stops the hot reload system. Calling it on a manager that never
// started releases the underlying watcher.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		m.watcher.Stop()
		return
	}

	m.coordinator.Stop()
	m.broadcaster.Close()
	m.started = false
	m.logger.Info("Hot reload system stopped")
}

// SetDebounceTime sets the debounce time for reload events
func (m *Manager) SetDebounceTime(d time.Duration) {
	m.coordinator.SetDebounceTime(d)
}

// IsRunning returns whether the hot reload system is running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Shutdown stops the hot reload system
func (m *Manager) Shutdown(ctx context.Context) error {
	m.Stop()
	return nil
}
