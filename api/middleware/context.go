package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
	ctxVendorID contextKey = "vendor_id"
)

func UserIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxUserID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func RoleFromContext(ctx context.Context) enums.Role {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.Role); ok {
		return v
	}
	return ""
}

// VendorIDFromContext returns the vendor claim, if the caller carried one.
func VendorIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	v, ok := ctx.Value(ctxVendorID).(uuid.UUID)
	return v, ok && v != uuid.Nil
}

// WithIdentity seeds the caller identity. Tests use it to skip token minting.
func WithIdentity(ctx context.Context, userID uuid.UUID, role enums.Role, vendorID *uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxRole, role)
	if vendorID != nil {
		ctx = context.WithValue(ctx, ctxVendorID, *vendorID)
	}
	return ctx
}
