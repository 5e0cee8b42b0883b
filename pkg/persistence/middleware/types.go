// Package middleware wraps run stores with extra behavior: encryption at
// rest and masking of sensitive fields.
package middleware

import "github.com/aretw0/sequence/pkg/ports"

// Middleware allows wrapping a RunStore to add behavior.
type Middleware func(ports.RunStore) ports.RunStore

// Chain applies mws to store. The first middleware sees records first.
func Chain(store ports.RunStore, mws ...Middleware) ports.RunStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
