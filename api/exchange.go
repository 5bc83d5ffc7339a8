package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mekonglabs/mekongx/internal/exchange"
)

type createOrderRequest struct {
	Side           string `json:"side" binding:"required"`
	Currency       string `json:"currency" binding:"required,max=10"`
	TargetCurrency string `json:"target_currency" binding:"required,max=10"`
	Amount         string `json:"amount" binding:"required"`
	Rate           string `json:"rate" binding:"required"`
}

type fillOrderRequest struct {
	Amount string `json:"amount" binding:"required"`
}

type walletOpRequest struct {
	Currency string `json:"currency" binding:"required,max=10"`
	Amount   string `json:"amount" binding:"required"`
}

// currentUser extracts the caller identity set by the upstream auth gateway.
func (s *Server) currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.GetHeader("X-User-ID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-User-ID header"})
		return uuid.Nil, false
	}
	return userID, true
}

func parseAmount(c *gin.Context, raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a decimal number"})
		return decimal.Zero, false
	}
	return amount, true
}

// respondError maps service rejections onto HTTP statuses.
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, exchange.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, exchange.ErrNotOrderOwner):
		status = http.StatusForbidden
	case errors.Is(err, exchange.ErrOrderClosed),
		errors.Is(err, exchange.ErrSelfTrade),
		errors.Is(err, exchange.ErrInsufficientQuantity),
		errors.Is(err, exchange.ErrInsufficientFunds):
		status = http.StatusConflict
	case errors.Is(err, exchange.ErrInvalidAmount),
		errors.Is(err, exchange.ErrInvalidRate),
		errors.Is(err, exchange.ErrInvalidSide),
		errors.Is(err, exchange.ErrSameCurrency):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) createOrder(c *gin.Context) {
	userID, ok := s.currentUser(c)
	if !ok {
		return
	}
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}
	rate, err := decimal.NewFromString(req.Rate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rate must be a decimal number"})
		return
	}

	order, err := s.exchange.CreateOrder(c.Request.Context(), userID, req.Side, req.Currency, req.TargetCurrency, amount, rate)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) listOpenOrders(c *gin.Context) {
	userID, ok := s.currentUser(c)
	if !ok {
		return
	}
	orders, err := s.exchange.ListOpenOrders(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) listOwnOrders(c *gin.Context) {
	userID, ok := s.currentUser(c)
	if !ok {
		return
	}
	orders, err := s.exchange.ListOrders(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) fillOrder(c *gin.Context) {
	userID, ok := s.currentUser(c)
	if !ok {
		return
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	var req fillOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	order, err := s.exchange.FillOrder(c.Request.Context(), userID, orderID, amount)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) cancelOrder(c *gin.Context) {
	userID, ok := s.currentUser(c)
	if !ok {
		return
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	order, err := s.exchange.CancelOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) listWallets(c *gin.Context) {
	userID, ok := s.currentUser(c)
	if !ok {
		return
	}
	wallets, err := s.exchange.ListWallets(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallets)
}

func (s *Server) deposit(c *gin.Context) {
	userID, ok := s.currentUser(c)
	if !ok {
		return
	}
	var req walletOpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}
	wallet, err := s.exchange.Deposit(c.Request.Context(), userID, req.Currency, amount)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

func (s *Server) withdraw(c *gin.Context) {
	userID, ok := s.currentUser(c)
	if !ok {
		return
	}
	var req walletOpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}
	wallet, err := s.exchange.Withdraw(c.Request.Context(), userID, req.Currency, amount)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

func (s *Server) listTrades(c *gin.Context) {
	userID, ok := s.currentUser(c)
	if !ok {
		return
	}
	trades, err := s.exchange.ListTrades(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trades)
}
