package service

import (
	"context"
	"encoding/json"

	"github.com/skynestoffc/orderku/internal/orderkuota"
)

// OrderKuotaClient interface for the OrderKuota mobile API
// Allows for easier testing with mocks
type OrderKuotaClient interface {
	RequestOTP(ctx context.Context, username, password string) (json.RawMessage, error)
	GetToken(ctx context.Context, username, otp string) (json.RawMessage, error)
	GetQRISHistory(ctx context.Context, username, token string) ([]orderkuota.Mutation, error)
	GetBalance(ctx context.Context, username, token string) (*orderkuota.Balance, error)
}

// IDGenerator produces opaque unique transaction identifiers.
type IDGenerator interface {
	GenerateUUID() string
}
