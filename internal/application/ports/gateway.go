package ports

import (
	"context"

	"github.com/yuzvak/checkout-service/internal/domain/checkout"
)

type GatewayClient interface {
	checkout.Gateway
	GetTransactionStatus(ctx context.Context, transactionID string) (*checkout.TransactionReport, error)
	GetWompiTransactionStatus(ctx context.Context, wompiTransactionID string) (*checkout.WompiReport, error)
}

// GatewayFactory builds a client bound to one user's credentials.
type GatewayFactory func(accessToken, refreshToken string) GatewayClient
