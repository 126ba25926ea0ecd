// Package router dispatches triggered actions to an ordered list of
// registered effector handlers.
//
// Handlers are statically enumerated: the route file references them by
// name, names are resolved against the registry once at load time, and
// an unknown name is a configuration warning, never a runtime surprise.
// A handler failure is logged and isolated — it cannot stop later
// handlers in the same dispatch, nor the rest of the pipeline.
package router

import (
	"context"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v2"

	"scalpflow/internal/model"
)

// Handler is a single named effector with a fixed signature.
type Handler interface {
	Name() string
	Handle(ctx context.Context, event model.ActionEvent) error
}

// Router maps actions to ordered handler chains.
type Router struct {
	registry map[string]Handler
	routes   map[model.Action][]Handler
}

// New creates a router over a set of known handlers.
func New(handlers ...Handler) *Router {
	registry := make(map[string]Handler, len(handlers))
	for _, h := range handlers {
		registry[h.Name()] = h
	}
	return &Router{
		registry: registry,
		routes:   make(map[model.Action][]Handler),
	}
}

// routeFile is the on-disk mapping: action name -> ordered handler names.
type routeFile map[string][]string

// LoadRoutes reads the route file and resolves handler names against the
// registry. Unknown handler names are logged and skipped; only an
// unreadable file fails the load.
func (r *Router) LoadRoutes(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("router: read %s: %w", path, err)
	}
	var rf routeFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return fmt.Errorf("router: parse %s: %w", path, err)
	}
	r.Configure(rf)
	return nil
}

// Configure resolves an action -> handler-name mapping, warning on and
// skipping names that don't resolve.
func (r *Router) Configure(routes map[string][]string) {
	for action, names := range routes {
		chain := make([]Handler, 0, len(names))
		for _, name := range names {
			h, ok := r.registry[name]
			if !ok {
				log.Printf("[router] %s: unknown handler %q, skipping", action, name)
				continue
			}
			chain = append(chain, h)
		}
		r.routes[model.Action(action)] = chain
		log.Printf("[router] %s -> %d handlers", action, len(chain))
	}
}

// Handlers returns the resolved chain for an action (nil when unrouted).
func (r *Router) Handlers(action model.Action) []Handler {
	return r.routes[action]
}

// Dispatch invokes every handler routed for the event's action, in
// order. Returns how many handlers ran and how many of those failed.
func (r *Router) Dispatch(ctx context.Context, event model.ActionEvent) (dispatched, failed int) {
	for _, h := range r.routes[event.Action] {
		dispatched++
		if err := h.Handle(ctx, event); err != nil {
			failed++
			log.Printf("[router] handler %s failed for %s %s: %v",
				h.Name(), event.Action, event.Symbol, err)
		}
	}
	return dispatched, failed
}
