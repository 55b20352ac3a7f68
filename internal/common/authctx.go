package common

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const merchantIDKey ctxKey = "auth/merchant-id"

// WithMerchantID stores the authenticated merchant identifier on the context.
func WithMerchantID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, merchantIDKey, id)
}

// MerchantID extracts the authenticated merchant identifier from the context.
func MerchantID(ctx context.Context) (uuid.UUID, bool) {
	v := ctx.Value(merchantIDKey)
	if v == nil {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
