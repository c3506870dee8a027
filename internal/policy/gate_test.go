package policy

import (
	"context"
	"testing"

	"github.com/diewo77/fakturera/internal/auth"
	"github.com/diewo77/fakturera/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestGateRequiresAuthenticatedActor(t *testing.T) {
	g := DefaultGate()
	err := g.Authorize(context.Background(), auth.Actor{}, ActionView, "invoice", nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGateUnknownResource(t *testing.T) {
	g := NewGate()
	err := g.Authorize(context.Background(), auth.Actor{ID: 1}, ActionView, "warehouse", nil)
	assert.ErrorIs(t, err, ErrNoPolicyDefined)
}

func TestOwnershipPolicy(t *testing.T) {
	g := DefaultGate()
	ctx := context.Background()
	owner := auth.Actor{ID: 7, Role: "user"}
	stranger := auth.Actor{ID: 8, Role: "user"}
	admin := auth.Actor{ID: 1, Role: "admin"}
	invoice := &models.Invoice{UserID: 7}

	assert.True(t, g.Can(ctx, owner, ActionUpdate, "invoice", invoice))
	assert.False(t, g.Can(ctx, stranger, ActionUpdate, "invoice", invoice))
	assert.True(t, g.Can(ctx, admin, ActionUpdate, "invoice", invoice))

	// Nil resource means a context-only list/create check.
	assert.True(t, g.Can(ctx, owner, ActionList, "invoice", nil))
}

func TestOwnershipPolicyDeniesNonOwnable(t *testing.T) {
	p := NewOwnershipPolicy()
	actor := auth.Actor{ID: 7, Role: "user"}
	assert.False(t, p.Can(context.Background(), actor, ActionView, struct{}{}))
}

func TestAdminOnlyPolicy(t *testing.T) {
	g := DefaultGate()
	ctx := context.Background()

	assert.False(t, g.Can(ctx, auth.Actor{ID: 7, Role: "user"}, ActionCreate, "terms", nil))
	assert.True(t, g.Can(ctx, auth.Actor{ID: 1, Role: "admin"}, ActionCreate, "terms", nil))
}

func TestSelfOrAdminPolicy(t *testing.T) {
	g := DefaultGate()
	ctx := context.Background()
	target := &models.User{ID: 7}

	assert.True(t, g.Can(ctx, auth.Actor{ID: 7, Role: "user"}, ActionUpdate, "user", target))
	assert.False(t, g.Can(ctx, auth.Actor{ID: 8, Role: "user"}, ActionUpdate, "user", target))
	assert.True(t, g.Can(ctx, auth.Actor{ID: 1, Role: "admin"}, ActionUpdate, "user", target))
}
