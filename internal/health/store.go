// Package health provides health check implementations for external dependencies.
package health

import (
	"context"

	"github.com/onnwee/trailmark/internal/store"
)

// StorePinger is the slice of the store client the checker needs.
type StorePinger interface {
	ListProjects(ctx context.Context) ([]store.Project, error)
}

// StoreChecker implements health checking for the hosted data store.
type StoreChecker struct {
	store StorePinger
}

// NewStoreChecker creates a new store health checker.
func NewStoreChecker(s StorePinger) *StoreChecker {
	return &StoreChecker{
		store: s,
	}
}

// HealthCheck performs a health check on the store by issuing a cheap
// collection read.
func (c *StoreChecker) HealthCheck(ctx context.Context) error {
	_, err := c.store.ListProjects(ctx)
	return err
}
