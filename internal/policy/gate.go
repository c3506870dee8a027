// Package policy is the central authorization checkpoint. A Gate holds one
// Policy per resource type; handlers ask the gate before every mutation or
// scoped read. Policies receive the explicit request actor, never ambient
// state.
package policy

import (
	"context"
	"errors"

	"github.com/diewo77/fakturera/internal/auth"
)

// Action describes the kind of operation an actor wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
)

// Sentinel errors returned by Gate.Authorize.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNoPolicyDefined = errors.New("no policy defined for resource")
)

// Policy defines authorization rules for a resource type.
type Policy interface {
	// Can returns true if the actor may perform action on resource.
	// For list/create, resource may be nil (context-only check).
	Can(ctx context.Context, actor auth.Actor, action Action, resource any) bool
}

// Gate registers policies by resource type name.
type Gate struct {
	policies map[string]Policy
}

// NewGate creates an empty Gate ready to register policies.
func NewGate() *Gate {
	return &Gate{policies: make(map[string]Policy)}
}

// Register adds a policy for a resource type (e.g. "invoice"), overwriting
// any existing policy for that type.
func (g *Gate) Register(resourceType string, p Policy) {
	g.policies[resourceType] = p
}

// Authorize checks authorization and returns an error if denied.
func (g *Gate) Authorize(ctx context.Context, actor auth.Actor, action Action, resourceType string, resource any) error {
	if actor.ID == 0 {
		return ErrUnauthorized
	}
	p, ok := g.policies[resourceType]
	if !ok {
		return ErrNoPolicyDefined
	}
	if !p.Can(ctx, actor, action, resource) {
		return ErrUnauthorized
	}
	return nil
}

// Can is a convenience wrapper returning bool instead of error.
func (g *Gate) Can(ctx context.Context, actor auth.Actor, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, actor, action, resourceType, resource) == nil
}
