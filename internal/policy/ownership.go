package policy

import (
	"context"

	"github.com/diewo77/fakturera/internal/auth"
)

// Ownable is implemented by models that have an owning user.
type Ownable interface {
	GetUserID() uint
}

// OwnershipPolicy allows access when the actor owns the resource or holds the
// admin role. For list/create (nil resource) it allows; queries are already
// scoped by owner.
type OwnershipPolicy struct{}

func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

func (p *OwnershipPolicy) Can(_ context.Context, actor auth.Actor, _ Action, resource any) bool {
	if actor.IsAdmin() {
		return true
	}
	if resource == nil {
		return true
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		// Deny resources without ownership information rather than guessing.
		return false
	}
	return ownable.GetUserID() == actor.ID
}

// AdminOnlyPolicy allows only admin actors, for resources like Terms and the
// user directory.
type AdminOnlyPolicy struct{}

func NewAdminOnlyPolicy() *AdminOnlyPolicy {
	return &AdminOnlyPolicy{}
}

func (p *AdminOnlyPolicy) Can(_ context.Context, actor auth.Actor, _ Action, _ any) bool {
	return actor.IsAdmin()
}

// SelfOrAdminPolicy allows an actor to act on their own user row, and admins
// to act on anyone.
type SelfOrAdminPolicy struct{}

func NewSelfOrAdminPolicy() *SelfOrAdminPolicy {
	return &SelfOrAdminPolicy{}
}

func (p *SelfOrAdminPolicy) Can(_ context.Context, actor auth.Actor, _ Action, resource any) bool {
	if actor.IsAdmin() {
		return true
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		return false
	}
	return ownable.GetUserID() == actor.ID
}

// DefaultGate wires the standard resource policies.
func DefaultGate() *Gate {
	g := NewGate()
	ownership := NewOwnershipPolicy()
	g.Register("customer", ownership)
	g.Register("product", ownership)
	g.Register("invoice", ownership)
	g.Register("terms", NewAdminOnlyPolicy())
	g.Register("user", NewSelfOrAdminPolicy())
	return g
}
