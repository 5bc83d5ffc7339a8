// Package api exposes the exchange over HTTP. Authentication lives in an
// upstream gateway; the caller's identity arrives as an X-User-ID header.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mekonglabs/mekongx/internal/exchange"
)

// Server is the HTTP front of the exchange service.
type Server struct {
	router   *gin.Engine
	logger   *zap.Logger
	exchange *exchange.Service
}

// NewServer creates the API server and registers all routes.
func NewServer(logger *zap.Logger, svc *exchange.Service) *Server {
	s := &Server{
		logger:   logger,
		exchange: svc,
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-User-ID"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/health", s.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		orders := v1.Group("/orders")
		{
			orders.POST("", s.createOrder)
			orders.GET("", s.listOpenOrders)
			orders.GET("/my", s.listOwnOrders)
			orders.POST("/:id/fill", s.fillOrder)
			orders.POST("/:id/cancel", s.cancelOrder)
		}
		wallets := v1.Group("/wallets")
		{
			wallets.GET("", s.listWallets)
			wallets.POST("/deposit", s.deposit)
			wallets.POST("/withdraw", s.withdraw)
		}
		v1.GET("/trades", s.listTrades)
	}

	s.router = router
	return s
}

// Start runs the HTTP server on addr.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting API server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Router returns the gin engine, used by tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
