// Package exchange implements the order and settlement service: users hold
// multi-currency wallets, post limit orders, and fill each other's orders at
// the maker's quoted rate. Settlement of one fill is a single database
// transaction coordinated purely by row locks.
package exchange

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mekonglabs/mekongx/internal/exchange/model"
)

// Service exposes the exchange operations. All mutating operations run inside
// one database transaction; wallet and order rows are the only shared mutable
// state and are touched exclusively under held row locks.
type Service struct {
	repo   model.Repository
	logger *zap.Logger
}

// NewService creates a new exchange service.
func NewService(repo model.Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateOrder posts a new limit order for userID. Amount and rate are fixed
// for the order's lifetime; the maker's balance is not reserved up front but
// validated at fill time under lock.
func (s *Service) CreateOrder(ctx context.Context, userID uuid.UUID, side, currency, targetCurrency string, amount, rate decimal.Decimal) (*model.Order, error) {
	if side != model.OrderSideBuy && side != model.OrderSideSell {
		return nil, ErrInvalidSide
	}
	if currency == targetCurrency {
		return nil, ErrSameCurrency
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !rate.IsPositive() {
		return nil, ErrInvalidRate
	}

	now := time.Now()
	order := &model.Order{
		ID:             uuid.New(),
		UserID:         userID,
		Side:           side,
		Currency:       currency,
		TargetCurrency: targetCurrency,
		Amount:         amount,
		Rate:           rate,
		FilledAmount:   decimal.Zero,
		Status:         model.OrderStatusOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	ordersCreatedTotal.Inc()
	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("side", side),
		zap.String("pair", currency+"/"+targetCurrency),
		zap.String("amount", amount.String()),
		zap.String("rate", rate.String()))
	return order, nil
}

// walletKey identifies one wallet row involved in a settlement.
type walletKey struct {
	userID   uuid.UUID
	currency string
}

// FillOrder settles a fill of amount units of the order's currency between the
// taker and the order's maker, atomically: it locks the order row, validates
// status, self-trade, and remaining quantity, locks the four involved wallets,
// verifies both balances before moving anything, applies the four-legged
// transfer, advances the order's fill state, and appends the trade record.
// Any failure rolls the whole transaction back with no visible effect.
func (s *Service) FillOrder(ctx context.Context, takerID, orderID uuid.UUID, amount decimal.Decimal) (*model.Order, error) {
	if !amount.IsPositive() {
		fillsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrInvalidAmount
	}

	start := time.Now()
	var order *model.Order
	var trade *model.Trade

	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.repo.GetOrderForUpdateTx(ctx, tx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if !order.IsOpen() {
			return ErrOrderClosed
		}
		if order.UserID == takerID {
			return ErrSelfTrade
		}
		if amount.GreaterThan(order.Remaining()) {
			return ErrInsufficientQuantity
		}

		// Price of the fill in the target currency, at the maker's rate.
		cost := amount.Mul(order.Rate)

		var buyerID, sellerID uuid.UUID
		if order.Side == model.OrderSideSell {
			sellerID, buyerID = order.UserID, takerID
		} else {
			buyerID, sellerID = order.UserID, takerID
		}

		wallets, err := s.acquireWallets(ctx, tx,
			walletKey{buyerID, order.TargetCurrency},
			walletKey{sellerID, order.Currency},
			walletKey{buyerID, order.Currency},
			walletKey{sellerID, order.TargetCurrency},
		)
		if err != nil {
			return err
		}
		buyerTarget := wallets[walletKey{buyerID, order.TargetCurrency}]
		sellerCurrency := wallets[walletKey{sellerID, order.Currency}]
		buyerCurrency := wallets[walletKey{buyerID, order.Currency}]
		sellerTarget := wallets[walletKey{sellerID, order.TargetCurrency}]

		// Validate both legs before mutating either: a four-legged transfer
		// must never be left half applied.
		if buyerTarget.Balance.LessThan(cost) {
			return ErrInsufficientFunds
		}
		if sellerCurrency.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}

		buyerTarget.Balance = buyerTarget.Balance.Sub(cost)
		sellerCurrency.Balance = sellerCurrency.Balance.Sub(amount)
		buyerCurrency.Balance = buyerCurrency.Balance.Add(amount)
		sellerTarget.Balance = sellerTarget.Balance.Add(cost)
		for _, w := range []*model.Wallet{buyerTarget, sellerCurrency, buyerCurrency, sellerTarget} {
			if err := s.repo.UpdateWalletBalanceTx(ctx, tx, w); err != nil {
				return err
			}
		}

		order.FilledAmount = order.FilledAmount.Add(amount)
		if order.FilledAmount.GreaterThanOrEqual(order.Amount) {
			order.Status = model.OrderStatusFilled
		}
		if err := s.repo.UpdateOrderFillTx(ctx, tx, order); err != nil {
			return err
		}

		orderRef := order.ID
		trade = &model.Trade{
			ID:             uuid.New(),
			BuyerID:        buyerID,
			SellerID:       sellerID,
			Currency:       order.Currency,
			TargetCurrency: order.TargetCurrency,
			Amount:         amount,
			Rate:           order.Rate,
			OrderID:        &orderRef,
			CreatedAt:      time.Now(),
		}
		return s.repo.CreateTradeTx(ctx, tx, trade)
	})

	settlementDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if isRejection(err) {
			fillsTotal.WithLabelValues("rejected").Inc()
		} else {
			fillsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	fillsTotal.WithLabelValues("ok").Inc()
	s.logger.Info("order filled",
		zap.String("order_id", order.ID.String()),
		zap.String("trade_id", trade.ID.String()),
		zap.String("taker_id", takerID.String()),
		zap.String("amount", amount.String()),
		zap.String("filled_amount", order.FilledAmount.String()),
		zap.String("status", order.Status))
	return order, nil
}

// acquireWallets locks the given wallet rows in one globally consistent order,
// sorted by (user id, currency), creating missing wallets at zero balance.
// Sorting before acquisition is what keeps two concurrent fills that touch
// overlapping wallet pairs from deadlocking against each other.
func (s *Service) acquireWallets(ctx context.Context, tx *gorm.DB, keys ...walletKey) (map[walletKey]*model.Wallet, error) {
	sorted := make([]walletKey, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.userID != b.userID {
			return a.userID.String() < b.userID.String()
		}
		return a.currency < b.currency
	})

	wallets := make(map[walletKey]*model.Wallet, len(sorted))
	for _, key := range sorted {
		w, err := s.repo.AcquireWalletTx(ctx, tx, key.userID, key.currency)
		if err != nil {
			return nil, err
		}
		wallets[key] = w
	}
	return wallets, nil
}

// CancelOrder cancels an OPEN order. Only the maker may cancel, and terminal
// states stay terminal.
func (s *Service) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*model.Order, error) {
	var order *model.Order
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.repo.GetOrderForUpdateTx(ctx, tx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if order.UserID != userID {
			return ErrNotOrderOwner
		}
		if !order.IsOpen() {
			return ErrOrderClosed
		}
		order.Status = model.OrderStatusCancelled
		return s.repo.UpdateOrderFillTx(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order cancelled",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()))
	return order, nil
}

// Deposit credits a user's wallet, creating it if needed.
func (s *Service) Deposit(ctx context.Context, userID uuid.UUID, currency string, amount decimal.Decimal) (*model.Wallet, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	var wallet *model.Wallet
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		wallet, err = s.repo.AcquireWalletTx(ctx, tx, userID, currency)
		if err != nil {
			return err
		}
		wallet.Balance = wallet.Balance.Add(amount)
		return s.repo.UpdateWalletBalanceTx(ctx, tx, wallet)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("deposit",
		zap.String("user_id", userID.String()),
		zap.String("currency", currency),
		zap.String("amount", amount.String()))
	return wallet, nil
}

// Withdraw debits a user's wallet. The balance can never go negative.
func (s *Service) Withdraw(ctx context.Context, userID uuid.UUID, currency string, amount decimal.Decimal) (*model.Wallet, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	var wallet *model.Wallet
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		wallet, err = s.repo.AcquireWalletTx(ctx, tx, userID, currency)
		if err != nil {
			return err
		}
		if wallet.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}
		wallet.Balance = wallet.Balance.Sub(amount)
		return s.repo.UpdateWalletBalanceTx(ctx, tx, wallet)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal",
		zap.String("user_id", userID.String()),
		zap.String("currency", currency),
		zap.String("amount", amount.String()))
	return wallet, nil
}

// ListOpenOrders returns the order book view: all OPEN orders except the
// caller's own.
func (s *Service) ListOpenOrders(ctx context.Context, excludeUserID uuid.UUID) ([]*model.Order, error) {
	return s.repo.ListOpenOrders(ctx, excludeUserID)
}

// ListOrders returns the caller's own orders.
func (s *Service) ListOrders(ctx context.Context, userID uuid.UUID) ([]*model.Order, error) {
	return s.repo.ListOrdersByUser(ctx, userID)
}

// ListWallets returns the caller's wallets.
func (s *Service) ListWallets(ctx context.Context, userID uuid.UUID) ([]*model.Wallet, error) {
	return s.repo.ListWalletsByUser(ctx, userID)
}

// ListTrades returns the trades the caller took part in on either side.
func (s *Service) ListTrades(ctx context.Context, userID uuid.UUID) ([]*model.Trade, error) {
	return s.repo.ListTradesByUser(ctx, userID)
}

// isRejection reports whether err is one of the service's validation
// rejections, as opposed to a storage failure.
func isRejection(err error) bool {
	for _, rejection := range []error{
		ErrOrderNotFound, ErrOrderClosed, ErrSelfTrade, ErrInvalidAmount,
		ErrInsufficientQuantity, ErrInsufficientFunds, ErrNotOrderOwner,
	} {
		if errors.Is(err, rejection) {
			return true
		}
	}
	return false
}
