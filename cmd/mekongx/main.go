// mekongx is a peer-to-peer multi-currency limit-order exchange service.
package main

import (
	"log"

	"go.uber.org/zap"

	"github.com/mekonglabs/mekongx/api"
	"github.com/mekonglabs/mekongx/internal/config"
	"github.com/mekonglabs/mekongx/internal/database"
	"github.com/mekonglabs/mekongx/internal/exchange"
	"github.com/mekonglabs/mekongx/internal/exchange/repository"
	"github.com/mekonglabs/mekongx/pkg/logger"
)

func main() {
	cfg := config.Load()

	zlog := logger.New(cfg.LogLevel)
	defer zlog.Sync()

	db, err := database.Open(cfg.DBDriver, cfg.DBURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	repo := repository.New(db, zlog)
	if err := repo.AutoMigrate(); err != nil {
		zlog.Fatal("migration failed", zap.Error(err))
	}

	svc := exchange.NewService(repo, zlog)
	server := api.NewServer(zlog, svc)

	if err := server.Start(cfg.ListenAddr); err != nil {
		zlog.Fatal("server failed", zap.Error(err))
	}
}
