package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/opswell/adminkit/pkg/constants"
)

var ErrNoTenantID = errors.New("no tenant id found in context")

func WithTenantID(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.TenantIDKey, tenantID)
}

// UseTenantID returns the tenant scope of the request, if any. Requests
// without a tenant operate in the global scope.
func UseTenantID(ctx context.Context) (uuid.UUID, error) {
	tenantID := ctx.Value(constants.TenantIDKey)
	if tenantID == nil {
		return uuid.Nil, ErrNoTenantID
	}
	return tenantID.(uuid.UUID), nil
}
