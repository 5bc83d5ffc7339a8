// Package config loads service configuration from the environment and an
// optional .env file.
package config

import (
	"github.com/spf13/viper"
)

// Config holds the runtime configuration of the exchange service.
type Config struct {
	ListenAddr string
	DBDriver   string // "postgres" or "sqlite"
	DBURL      string
	LogLevel   string
}

// Load reads configuration from MEKONGX_* environment variables, with an
// optional .env file for local development.
func Load() *Config {
	viper.SetConfigFile(".env")
	viper.SetEnvPrefix("mekongx")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig() // .env is optional

	viper.SetDefault("LISTEN_ADDR", ":8080")
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_URL", "postgres://localhost:5432/mekongx?sslmode=disable")
	viper.SetDefault("LOG_LEVEL", "info")

	return &Config{
		ListenAddr: viper.GetString("LISTEN_ADDR"),
		DBDriver:   viper.GetString("DB_DRIVER"),
		DBURL:      viper.GetString("DB_URL"),
		LogLevel:   viper.GetString("LOG_LEVEL"),
	}
}
