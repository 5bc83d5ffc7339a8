// Package model defines the persistent records of the exchange: wallets,
// limit orders and the trades that settle against them.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order sides. BUY means the maker wants to acquire Currency paying
// TargetCurrency; SELL means the maker disposes of Currency for TargetCurrency.
const (
	OrderSideBuy  = "BUY"
	OrderSideSell = "SELL"
)

// Order statuses. FILLED and CANCELLED are terminal.
const (
	OrderStatusOpen      = "OPEN"
	OrderStatusFilled    = "FILLED"
	OrderStatusCancelled = "CANCELLED"
)

// Wallet holds a user's balance in one currency. A wallet is created lazily at
// zero balance the first time a user touches a currency and is only ever
// mutated under a row lock held by the settlement engine.
type Wallet struct {
	ID        uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    uuid.UUID       `json:"user_id" gorm:"type:uuid;uniqueIndex:idx_wallets_user_currency"`
	Currency  string          `json:"currency" gorm:"size:10;uniqueIndex:idx_wallets_user_currency"`
	Balance   decimal.Decimal `json:"balance" gorm:"type:numeric(20,8)"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Order is a maker's standing offer to exchange Amount of Currency at Rate
// (price of one unit of Currency in TargetCurrency). Amount and Rate are fixed
// at creation; only FilledAmount and Status change afterwards, and only inside
// the settlement transaction or an owner cancel.
type Order struct {
	ID             uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	UserID         uuid.UUID       `json:"user_id" gorm:"type:uuid;index"`
	Side           string          `json:"side" gorm:"size:4"`
	Currency       string          `json:"currency" gorm:"size:10"`
	TargetCurrency string          `json:"target_currency" gorm:"size:10"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric(20,8)"`
	Rate           decimal.Decimal `json:"rate" gorm:"type:numeric(20,8)"`
	FilledAmount   decimal.Decimal `json:"filled_amount" gorm:"type:numeric(20,8)"`
	Status         string          `json:"status" gorm:"size:10;index"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Remaining returns the unfilled quantity of the order.
func (o *Order) Remaining() decimal.Decimal {
	return o.Amount.Sub(o.FilledAmount)
}

// IsOpen reports whether the order can still be filled or cancelled.
func (o *Order) IsOpen() bool {
	return o.Status == OrderStatusOpen
}

// Trade records one settled fill between a buyer and a seller. Trades are
// append-only; OrderID is a nullable back-reference to the originating order.
type Trade struct {
	ID             uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	BuyerID        uuid.UUID       `json:"buyer_id" gorm:"type:uuid;index"`
	SellerID       uuid.UUID       `json:"seller_id" gorm:"type:uuid;index"`
	Currency       string          `json:"currency" gorm:"size:10"`
	TargetCurrency string          `json:"target_currency" gorm:"size:10"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric(20,8)"`
	Rate           decimal.Decimal `json:"rate" gorm:"type:numeric(20,8)"`
	OrderID        *uuid.UUID      `json:"order_id" gorm:"type:uuid;index"`
	CreatedAt      time.Time       `json:"created_at"`
}
