// Package tenantctx threads the per-operation tenant scope through context.
package tenantctx

import (
	"context"

	"github.com/meterline/meterline/internal/apperr"
)

type tenantKey struct{}

// Tenant is the ambient scope every outbound call and persistence write consults.
type Tenant struct {
	OrganizationID int64
	Credential     string
}

// With binds the tenant scope to the context.
func With(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, t)
}

// From returns the tenant scope, if bound.
func From(ctx context.Context) (Tenant, bool) {
	if ctx == nil {
		return Tenant{}, false
	}
	t, ok := ctx.Value(tenantKey{}).(Tenant)
	return t, ok
}

// Require returns the tenant scope or an UNAUTHENTICATED error when it is
// missing. A missing scope on an operation that needs one is a programming
// error on the caller's side.
func Require(ctx context.Context) (Tenant, error) {
	t, ok := From(ctx)
	if !ok || t.OrganizationID == 0 {
		return Tenant{}, apperr.New(apperr.KindUnauthenticated, "missing tenant context")
	}
	return t, nil
}

// OrganizationID returns the bound organization id, or 0 when unbound.
func OrganizationID(ctx context.Context) int64 {
	t, _ := From(ctx)
	return t.OrganizationID
}

// Credential returns the bound auth credential, or empty when unbound.
func Credential(ctx context.Context) string {
	t, _ := From(ctx)
	return t.Credential
}
