package gateway

import (
	"context"
	"time"
)

const PaymentStatusSuccess = "success"

// PaymentTransaction is the gateway's view of a charge.
type PaymentTransaction struct {
	Reference string
	Status    string
	Amount    int64
	Currency  string
	PaidAt    *time.Time
}

func (t *PaymentTransaction) Succeeded() bool {
	return t.Status == PaymentStatusSuccess
}

type PaymentGateway interface {
	VerifyTransaction(ctx context.Context, reference string) (*PaymentTransaction, error)
}

// IdentityResult is the outcome of a NIN lookup.
type IdentityResult struct {
	Reference string
	NIN       string
	FirstName string
	LastName  string
	Verified  bool
}

type IdentityGateway interface {
	LookupNIN(ctx context.Context, nin string) (*IdentityResult, error)
}
