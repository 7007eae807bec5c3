// Package middleware wraps automation stores with cross-cutting behaviour.
package middleware

import "github.com/aretw0/cafe/pkg/ports"

// Middleware allows wrapping an AutomationStore to add behavior.
type Middleware func(ports.AutomationStore) ports.AutomationStore

// Chain applies middlewares so that the first one is the outermost.
func Chain(store ports.AutomationStore, mws ...Middleware) ports.AutomationStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
