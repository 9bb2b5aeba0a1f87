package common

import (
	"context"

	"frs/src/models"
)

// Tx is the set of reads and writes reconciliation performs inside one
// atomic unit. Implementations must guarantee that the pass-by-order-id
// read and the subsequent create are isolated from concurrent
// transactions on the same order id.
type Tx interface {
	PaymentByOrderID(orderID string) (*models.Payment, bool, error)
	MarkPaymentSuccess(paymentID uint) error
	PassByOrderID(orderID string) (*models.Pass, bool, error)
	UserByID(id uint) (*models.User, bool, error)
	TeamByID(id uint) (*models.Team, bool, error)
	CreatePass(pass *models.Pass) error
	LinkTeamPass(teamID uint, passID uint) error
}

// Store is the document-store handle handed to the reconciler instead of
// an ambient database singleton, so the idempotency behavior can be
// exercised against an in-memory implementation.
type Store interface {
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
	PaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, bool, error)
	EventsByIDs(ctx context.Context, ids []uint) ([]models.Event, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	TeamByID(ctx context.Context, id uint) (*models.Team, bool, error)
	UserByID(ctx context.Context, id uint) (*models.User, bool, error)
	PassesByUserID(ctx context.Context, userID uint) ([]models.Pass, error)
	PassByID(ctx context.Context, id uint) (*models.Pass, bool, error)
}
