package main

import (
	"time"

	"github.com/tinytelemetry/cardwall/internal/cards"
	"github.com/tinytelemetry/cardwall/internal/duckdb"
)

const (
	defaultBindHost          = "127.0.0.1"
	defaultAPIPort           = 3000
	defaultQueryTimeout      = 30 * time.Second
	defaultOutcomeBatchSize  = 256
	defaultOutcomeFlushEvery = 500 * time.Millisecond
	defaultOutcomeFlushQueue = duckdb.DefaultFlushQueueSize
	defaultOutcomeRetention  = 30  // days, 0 = disabled
	defaultOutcomeKeep       = 500 // newest outcomes kept per card, 0 = unlimited
	defaultLogLevel          = "info"
	defaultRefreshRate       = 2.0 // manual refreshes per second over HTTP
	defaultRefreshBurst      = 5
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Host              string        `mapstructure:"host"`
	DBPath            string        `mapstructure:"db-path"`
	APIEnabled        bool          `mapstructure:"api-enabled"`
	APIPort           int           `mapstructure:"api-port"`
	APIAddr           string        `mapstructure:"api-addr"`
	QueryTimeout      time.Duration `mapstructure:"query-timeout"`
	OutcomeBatchSize  int           `mapstructure:"outcome-batch-size"`
	OutcomeFlushEvery time.Duration `mapstructure:"outcome-flush-interval"`
	OutcomeFlushQueue int           `mapstructure:"outcome-flush-queue-size"`
	OutcomeRetention  int           `mapstructure:"outcome-retention"`
	OutcomeKeep       int           `mapstructure:"outcome-keep-per-card"`
	SocketPath        string        `mapstructure:"socket-path"`
	MetricsEnabled    bool          `mapstructure:"metrics-enabled"`
	RefreshRate       float64       `mapstructure:"refresh-rate"`
	RefreshBurst      int           `mapstructure:"refresh-burst"`
	LogLevel          string        `mapstructure:"log-level"`
	Cards             []cards.Spec  `mapstructure:"cards"`
	ConfigPath        string        `mapstructure:"-"` // not from config file
}
