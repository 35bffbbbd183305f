package ports

import (
	"context"

	"github.com/yuzvak/checkout-service/internal/domain/checkout"
)

type CartStore interface {
	Snapshot(ctx context.Context, userID, currency string) (checkout.CartSnapshot, error)
	Clear(ctx context.Context, userID string) error
	ForUser(userID, currency string) checkout.Cart
}
