package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lens/internal/gallery"
)

// view is the live gallery state of one session
type view struct {
	ctrl   *gallery.Controller
	alerts *AlertQueue
	gate   *confirmGate

	// deleteMu pairs a confirmation answer with its delete
	deleteMu sync.Mutex

	lastSeen time.Time
	sockets  int
}

// ControllerFactory builds a controller wired to a viewer's channels
type ControllerFactory func(notifier gallery.Notifier, confirmer gallery.Confirmer) *gallery.Controller

// Registry keeps one controller per session and unmounts the ones nobody
// has looked at for longer than the idle timeout.
type Registry struct {
	ctx     context.Context
	factory ControllerFactory
	idle    time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	views map[string]*view
}

// NewRegistry creates a registry. ctx bounds every live subscription.
func NewRegistry(ctx context.Context, factory ControllerFactory, idle time.Duration, logger *slog.Logger) *Registry {
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		ctx:     ctx,
		factory: factory,
		idle:    idle,
		logger:  logger,
		now:     time.Now,
		views:   make(map[string]*view),
	}
}

// get returns the view of sessionID, creating it when needed
func (r *Registry) get(sessionID string) (*view, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.views[sessionID]; ok {
		v.lastSeen = r.now()
		return v, false
	}

	alerts := &AlertQueue{}
	gate := &confirmGate{}
	v := &view{
		ctrl:     r.factory(alerts, gate),
		alerts:   alerts,
		gate:     gate,
		lastSeen: r.now(),
	}
	r.views[sessionID] = v
	return v, true
}

// attach pins the view while a live socket is open
func (r *Registry) attach(sessionID string) *view {
	v, _ := r.get(sessionID)
	r.mu.Lock()
	v.sockets++
	r.mu.Unlock()
	return v
}

func (r *Registry) detach(v *view) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v.sockets--
	v.lastSeen = r.now()
}

// mount starts live updates for v under the registry context
func (r *Registry) mount(v *view) error {
	return v.ctrl.Mount(r.ctx)
}

// Len returns the number of tracked sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Sweep unmounts and forgets idle views without an open socket
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var stale []*view
	for id, v := range r.views {
		if v.sockets == 0 && v.lastSeen.Before(cutoff) {
			stale = append(stale, v)
			delete(r.views, id)
		}
	}
	r.mu.Unlock()

	for _, v := range stale {
		v.ctrl.Unmount()
	}
	if len(stale) > 0 {
		r.logger.Info("Evicted idle gallery sessions", "count", len(stale))
	}
	return len(stale)
}

// Run sweeps periodically until ctx is cancelled, then closes every view
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.idle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Close()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close unmounts and forgets every view
func (r *Registry) Close() {
	r.mu.Lock()
	views := r.views
	r.views = make(map[string]*view)
	r.mu.Unlock()

	for _, v := range views {
		v.ctrl.Unmount()
	}
}
