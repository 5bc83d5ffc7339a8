package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/mekonglabs/mekongx/api"
	"github.com/mekonglabs/mekongx/internal/database"
	"github.com/mekonglabs/mekongx/internal/exchange"
	"github.com/mekonglabs/mekongx/internal/exchange/repository"
)

type ServerTestSuite struct {
	suite.Suite
	server *api.Server
	alice  uuid.UUID
	bob    uuid.UUID
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	db, err := database.Open("sqlite", ":memory:")
	s.Require().NoError(err)

	logger := zaptest.NewLogger(s.T())
	repo := repository.New(db, logger)
	s.Require().NoError(repo.AutoMigrate())

	s.server = api.NewServer(logger, exchange.NewService(repo, logger))
	s.alice = uuid.New()
	s.bob = uuid.New()
}

// request performs an HTTP call against the router as the given user. A nil
// user sends no identity header.
func (s *ServerTestSuite) request(method, path string, user *uuid.UUID, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("X-User-ID", user.String())
	}
	w := httptest.NewRecorder()
	s.server.Router().ServeHTTP(w, req)
	return w
}

func (s *ServerTestSuite) decode(w *httptest.ResponseRecorder, out interface{}) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), out))
}

func (s *ServerTestSuite) deposit(user uuid.UUID, currency, amount string) {
	w := s.request(http.MethodPost, "/api/v1/wallets/deposit", &user,
		jsonBody("currency", currency, "amount", amount))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
}

// jsonBody builds a small JSON object from key/value pairs.
func jsonBody(kv ...string) map[string]string {
	m := make(map[string]string, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}

type orderResponse struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Status       string    `json:"status"`
	FilledAmount string    `json:"filled_amount"`
}

type walletResponse struct {
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

func (s *ServerTestSuite) createSellOrder(user uuid.UUID, amount, rate string) orderResponse {
	w := s.request(http.MethodPost, "/api/v1/orders", &user, jsonBody(
		"side", "SELL",
		"currency", "USD",
		"target_currency", "KHR",
		"amount", amount,
		"rate", rate,
	))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var order orderResponse
	s.decode(w, &order)
	return order
}

func (s *ServerTestSuite) walletBalance(user uuid.UUID, currency string) string {
	w := s.request(http.MethodGet, "/api/v1/wallets", &user, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var wallets []walletResponse
	s.decode(w, &wallets)
	for _, wallet := range wallets {
		if wallet.Currency == currency {
			return wallet.Balance
		}
	}
	return "0"
}

func (s *ServerTestSuite) TestHealth() {
	w := s.request(http.MethodGet, "/health", nil, nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *ServerTestSuite) TestUnauthorizedWithoutUserHeader() {
	w := s.request(http.MethodGet, "/api/v1/wallets", nil, nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.request(http.MethodPost, "/api/v1/orders", nil, jsonBody("side", "SELL"))
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *ServerTestSuite) TestDepositCreateFillFlow() {
	s.deposit(s.alice, "USD", "100")
	s.deposit(s.bob, "KHR", "500000")
	order := s.createSellOrder(s.alice, "100", "4050")

	// Bob sees the order on the market; Alice does not see her own.
	w := s.request(http.MethodGet, "/api/v1/orders", &s.bob, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var market []orderResponse
	s.decode(w, &market)
	s.Require().Len(market, 1)
	s.Equal(order.ID, market[0].ID)

	w = s.request(http.MethodGet, "/api/v1/orders", &s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &market)
	s.Empty(market)

	w = s.request(http.MethodPost, fmt.Sprintf("/api/v1/orders/%s/fill", order.ID), &s.bob,
		jsonBody("amount", "100"))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var filled orderResponse
	s.decode(w, &filled)
	s.Equal("FILLED", filled.Status)

	s.Equal("405000", s.walletBalance(s.alice, "KHR"))
	s.Equal("0", s.walletBalance(s.alice, "USD"))
	s.Equal("100", s.walletBalance(s.bob, "USD"))
	s.Equal("95000", s.walletBalance(s.bob, "KHR"))

	for _, user := range []uuid.UUID{s.alice, s.bob} {
		w = s.request(http.MethodGet, "/api/v1/trades", &user, nil)
		s.Require().Equal(http.StatusOK, w.Code)
		var trades []json.RawMessage
		s.decode(w, &trades)
		s.Len(trades, 1)
	}
}

func (s *ServerTestSuite) TestFillErrorStatuses() {
	s.deposit(s.alice, "USD", "100")
	order := s.createSellOrder(s.alice, "100", "4050")
	fillPath := fmt.Sprintf("/api/v1/orders/%s/fill", order.ID)

	// Unknown order.
	w := s.request(http.MethodPost, fmt.Sprintf("/api/v1/orders/%s/fill", uuid.New()), &s.bob,
		jsonBody("amount", "10"))
	s.Equal(http.StatusNotFound, w.Code)

	// Malformed order id.
	w = s.request(http.MethodPost, "/api/v1/orders/not-a-uuid/fill", &s.bob, jsonBody("amount", "10"))
	s.Equal(http.StatusBadRequest, w.Code)

	// Non-numeric amount.
	w = s.request(http.MethodPost, fillPath, &s.bob, jsonBody("amount", "lots"))
	s.Equal(http.StatusBadRequest, w.Code)

	// Zero amount.
	w = s.request(http.MethodPost, fillPath, &s.bob, jsonBody("amount", "0"))
	s.Equal(http.StatusBadRequest, w.Code)

	// Self trade.
	w = s.request(http.MethodPost, fillPath, &s.alice, jsonBody("amount", "10"))
	s.Equal(http.StatusConflict, w.Code)

	// Taker has no KHR.
	w = s.request(http.MethodPost, fillPath, &s.bob, jsonBody("amount", "10"))
	s.Equal(http.StatusConflict, w.Code)

	// More than the order carries.
	s.deposit(s.bob, "KHR", "1000000")
	w = s.request(http.MethodPost, fillPath, &s.bob, jsonBody("amount", "101"))
	s.Equal(http.StatusConflict, w.Code)
}

func (s *ServerTestSuite) TestCancelStatuses() {
	s.deposit(s.alice, "USD", "100")
	order := s.createSellOrder(s.alice, "100", "4050")
	cancelPath := fmt.Sprintf("/api/v1/orders/%s/cancel", order.ID)

	w := s.request(http.MethodPost, cancelPath, &s.bob, nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.request(http.MethodPost, cancelPath, &s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var cancelled orderResponse
	s.decode(w, &cancelled)
	s.Equal("CANCELLED", cancelled.Status)

	w = s.request(http.MethodPost, cancelPath, &s.alice, nil)
	s.Equal(http.StatusConflict, w.Code)

	w = s.request(http.MethodPost, fmt.Sprintf("/api/v1/orders/%s/fill", order.ID), &s.bob,
		jsonBody("amount", "10"))
	s.Equal(http.StatusConflict, w.Code)
}

func (s *ServerTestSuite) TestCreateOrderValidationStatuses() {
	w := s.request(http.MethodPost, "/api/v1/orders", &s.alice, jsonBody(
		"side", "HOLD", "currency", "USD", "target_currency", "KHR",
		"amount", "100", "rate", "4050",
	))
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodPost, "/api/v1/orders", &s.alice, jsonBody(
		"side", "SELL", "currency", "USD", "target_currency", "USD",
		"amount", "100", "rate", "4050",
	))
	s.Equal(http.StatusBadRequest, w.Code)

	// Missing required fields fail binding.
	w = s.request(http.MethodPost, "/api/v1/orders", &s.alice, jsonBody("side", "SELL"))
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ServerTestSuite) TestWithdrawStatuses() {
	s.deposit(s.alice, "USD", "100")

	w := s.request(http.MethodPost, "/api/v1/wallets/withdraw", &s.alice,
		jsonBody("currency", "USD", "amount", "250"))
	s.Equal(http.StatusConflict, w.Code)

	w = s.request(http.MethodPost, "/api/v1/wallets/withdraw", &s.alice,
		jsonBody("currency", "USD", "amount", "40"))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("60", s.walletBalance(s.alice, "USD"))
}
