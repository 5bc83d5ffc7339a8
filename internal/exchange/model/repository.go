package model

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the storage operations the exchange service depends on.
// The Tx variants run against a caller-supplied transaction handle so the
// settlement engine can compose them into one atomic unit; row locks taken by
// them are held until that transaction commits or rolls back.
type Repository interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*Order, error)
	GetOrderForUpdateTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*Order, error)
	UpdateOrderFillTx(ctx context.Context, tx *gorm.DB, order *Order) error
	ListOpenOrders(ctx context.Context, excludeUserID uuid.UUID) ([]*Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error)

	// AcquireWalletTx returns the (userID, currency) wallet row with an
	// exclusive lock held for the duration of tx, creating it at zero
	// balance if it does not exist yet. Creation and locking are a single
	// atomic step.
	AcquireWalletTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, currency string) (*Wallet, error)
	UpdateWalletBalanceTx(ctx context.Context, tx *gorm.DB, wallet *Wallet) error
	ListWalletsByUser(ctx context.Context, userID uuid.UUID) ([]*Wallet, error)

	CreateTradeTx(ctx context.Context, tx *gorm.DB, trade *Trade) error
	ListTradesByUser(ctx context.Context, userID uuid.UUID) ([]*Trade, error)

	// Transaction runs txFunc inside one database transaction, committing
	// on nil and rolling back on error.
	Transaction(ctx context.Context, txFunc func(tx *gorm.DB) error) error
}
