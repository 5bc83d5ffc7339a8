// Package repository provides the gorm-backed data access layer for the
// exchange. All settlement-path reads take FOR UPDATE row locks and must run
// inside the transaction handle passed by the caller.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mekonglabs/mekongx/internal/exchange/model"
)

// Repository implements model.Repository on top of gorm.
type Repository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New creates a new repository.
func New(db *gorm.DB, logger *zap.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// AutoMigrate creates or updates the exchange tables.
func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&model.Wallet{},
		&model.Order{},
		&model.Trade{},
	)
}

// Transaction runs txFunc inside one database transaction.
func (r *Repository) Transaction(ctx context.Context, txFunc func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(txFunc)
}

// forUpdate applies an exclusive row lock where the dialect supports one.
// sqlite has no FOR UPDATE; its single-writer model serializes transactions
// instead, so the clause is omitted there.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Order operations

// CreateOrder persists a new order.
func (r *Repository) CreateOrder(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// GetOrderByID retrieves an order without locking it.
func (r *Repository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderForUpdateTx retrieves an order with an exclusive row lock held for
// the duration of tx.
func (r *Repository) GetOrderForUpdateTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*model.Order, error) {
	var order model.Order
	err := forUpdate(tx.WithContext(ctx)).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderFillTx writes the order's fill state within a transaction. The
// caller must already hold the order's row lock.
func (r *Repository) UpdateOrderFillTx(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return tx.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"filled_amount": order.FilledAmount,
			"status":        order.Status,
			"updated_at":    time.Now(),
		}).Error
}

// ListOpenOrders returns all OPEN orders except those posted by excludeUserID.
// This is the market view a taker browses.
func (r *Repository) ListOpenOrders(ctx context.Context, excludeUserID uuid.UUID) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND user_id <> ?", model.OrderStatusOpen, excludeUserID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

// ListOrdersByUser returns all orders posted by a user, newest first.
func (r *Repository) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

// Wallet operations

// AcquireWalletTx fetches the (userID, currency) wallet with an exclusive row
// lock, creating it at zero balance if absent. The insert uses ON CONFLICT DO
// NOTHING against the (user_id, currency) unique index, so two transactions
// racing on a first touch cannot create duplicate wallets: one insert wins,
// the other is a no-op, and both serialize on the locked read that follows.
func (r *Repository) AcquireWalletTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, currency string) (*model.Wallet, error) {
	now := time.Now()
	seed := &model.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Currency:  currency,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "currency"}},
			DoNothing: true,
		}).
		Create(seed).Error
	if err != nil {
		return nil, err
	}

	var wallet model.Wallet
	err = forUpdate(tx.WithContext(ctx)).
		Where("user_id = ? AND currency = ?", userID, currency).
		First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// UpdateWalletBalanceTx writes a wallet's balance within a transaction. The
// caller must already hold the wallet's row lock.
func (r *Repository) UpdateWalletBalanceTx(ctx context.Context, tx *gorm.DB, wallet *model.Wallet) error {
	return tx.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("id = ?", wallet.ID).
		Updates(map[string]interface{}{
			"balance":    wallet.Balance,
			"updated_at": time.Now(),
		}).Error
}

// ListWalletsByUser returns all wallets owned by a user.
func (r *Repository) ListWalletsByUser(ctx context.Context, userID uuid.UUID) ([]*model.Wallet, error) {
	var wallets []*model.Wallet
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("currency ASC").
		Find(&wallets).Error
	return wallets, err
}

// Trade operations

// CreateTradeTx appends a trade record within a transaction. Trades are never
// updated or deleted afterwards.
func (r *Repository) CreateTradeTx(ctx context.Context, tx *gorm.DB, trade *model.Trade) error {
	return tx.WithContext(ctx).Create(trade).Error
}

// ListTradesByUser returns the trades a user took part in on either side.
func (r *Repository) ListTradesByUser(ctx context.Context, userID uuid.UUID) ([]*model.Trade, error) {
	var trades []*model.Trade
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&trades).Error
	return trades, err
}
