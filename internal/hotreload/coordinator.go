package hotreload

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reloadable represents an interface that can be reloaded
type Reloadable interface {
	Reload(ctx context.Context) error
	Name() string
}

// ReloadEvent describes the outcome of reloading one component
type ReloadEvent struct {
	Component string
	Err       error
	Trigger   []Event
	At        time.Time
}

// Coordinator debounces watcher events and reloads every registered
// component once per burst.
type Coordinator struct {
	watcher      *Watcher
	reloadables  map[string]Reloadable
	onReload     func(ctx context.Context, event ReloadEvent)
	logger       *zap.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	mu           sync.RWMutex
	debounceTime time.Duration
	wg           sync.WaitGroup
	isRunning    bool
}

// NewCoordinator creates a new reload coordinator
func NewCoordinator(watcher *Watcher, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Coordinator{
		watcher:      watcher,
		reloadables:  make(map[string]Reloadable),
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
		debounceTime: 500 * time.Millisecond,
	}
}

// Register adds a reloadable component to the coordinator
func (c *Coordinator) Register(reloadable Reloadable) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := reloadable.Name()
	if _, exists := c.reloadables[name]; exists {
		return fmt.Errorf("reloadable %s already registered", name)
	}

	c.reloadables[name] = reloadable
	c.logger.Info("Registered reloadable component", zap.String("name", name))
	return nil
}

// Unregister removes a reloadable component from the coordinator
func (c *Coordinator) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.reloadables, name)
	c.logger.Info("Unregistered reloadable component", zap.String("name", name))
}

// OnReload sets a callback invoked once per component after every reload.
func (c *Coordinator) OnReload(fn func(ctx context.Context, event ReloadEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReload = fn
}

// Start begins the hot reload coordination
func (c *Coordinator) Start() error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return fmt.Errorf("coordinator already running")
	}
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return fmt.Errorf("coordinator already stopped")
	}
	c.isRunning = true
	c.mu.Unlock()

	c.watcher.Start()

	c.wg.Add(1)
	go c.coordinateReloads()

	c.logger.Info("Hot reload coordinator started")
	return nil
}

// Stop stops the hot reload coordination
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return
	}
	c.isRunning = false
	c.mu.Unlock()

	c.cancel()
	c.watcher.Stop()
	c.wg.Wait()

	c.logger.Info("Hot reload coordinator stopped")
}

// coordinateReloads collects events until the debounce window passes
// without a new one, then reloads once.
func (c *Coordinator) coordinateReloads() {
	defer c.wg.Done()

	var (
		timer  *time.Timer
		fire   <-chan time.Time
		events []Event
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case event, ok := <-c.watcher.Events():
			if !ok {
				return
			}
			events = append(events, event)

			debounce := c.DebounceTime()
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if len(events) > 0 {
				c.triggerReload(c.ctx, events)
				events = nil
			}
		}
	}
}

// ReloadNow reloads every registered component immediately and returns the
// per-component outcomes.
func (c *Coordinator) ReloadNow(ctx context.Context) []ReloadEvent {
	return c.triggerReload(ctx, nil)
}

// triggerReload reloads all registered components concurrently
func (c *Coordinator) triggerReload(ctx context.Context, events []Event) []ReloadEvent {
	c.mu.RLock()
	reloadables := make([]Reloadable, 0, len(c.reloadables))
	for _, r := range c.reloadables {
		reloadables = append(reloadables, r)
	}
	onReload := c.onReload
	c.mu.RUnlock()

	if len(reloadables) == 0 {
		return nil
	}

	c.logger.Info("Triggering hot reload", zap.Int("events", len(events)))
	for _, event := range events {
		c.logger.Debug("Reload triggered by",
			zap.String("path", event.Path),
			zap.String("operation", event.Op.String()),
		)
	}

	results := make([]ReloadEvent, len(reloadables))
	var wg sync.WaitGroup
	for i, reloadable := range reloadables {
		wg.Add(1)
		go func(i int, r Reloadable) {
			defer wg.Done()
			err := r.Reload(ctx)
			if err != nil {
				err = fmt.Errorf("failed to reload %s: %w", r.Name(), err)
			}
			results[i] = ReloadEvent{Component: r.Name(), Err: err, Trigger: events, At: time.Now()}
		}(i, reloadable)
	}
	wg.Wait()

	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			c.logger.Error("Reload error", zap.String("name", result.Component), zap.Error(result.Err))
		} else {
			c.logger.Info("Successfully reloaded component", zap.String("name", result.Component))
		}
		if onReload != nil {
			onReload(ctx, result)
		}
	}

	if failed > 0 {
		c.logger.Error("Hot reload completed with errors", zap.Int("errors", failed))
	} else {
		c.logger.Info("Hot reload completed successfully")
	}
	return results
}

// SetDebounceTime sets the debounce time for reload events
func (c *Coordinator) SetDebounceTime(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debounceTime = d
}

// DebounceTime returns the current debounce window
func (c *Coordinator) DebounceTime() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.debounceTime
}

// IsRunning returns whether the coordinator is currently running
func (c *Coordinator) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isRunning
}
