package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/tinytelemetry/cardwall/internal/cards"
	"github.com/tinytelemetry/cardwall/internal/socketrpc"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/cardwall/config.yml)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("Cardwall - Dashboard Card Service\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := runServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	defaultDBPath := filepath.Join(home, ".local", "share", "cardwall", "cardwall.duckdb")

	v := viper.New()
	v.SetEnvPrefix("CARDWALL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("host", defaultBindHost)
	v.SetDefault("db-path", defaultDBPath)
	v.SetDefault("api-enabled", true)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("outcome-batch-size", defaultOutcomeBatchSize)
	v.SetDefault("outcome-flush-interval", defaultOutcomeFlushEvery)
	v.SetDefault("outcome-flush-queue-size", defaultOutcomeFlushQueue)
	v.SetDefault("outcome-retention", defaultOutcomeRetention)
	v.SetDefault("outcome-keep-per-card", defaultOutcomeKeep)
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("log-level", defaultLogLevel)
	v.SetDefault("metrics-enabled", true)
	v.SetDefault("refresh-rate", defaultRefreshRate)
	v.SetDefault("refresh-burst", defaultRefreshBurst)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "cardwall", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return cfg, fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	if cfg.OutcomeRetention < 0 {
		return cfg, fmt.Errorf("invalid outcome-retention: %d", cfg.OutcomeRetention)
	}
	if cfg.OutcomeKeep < 0 {
		return cfg, fmt.Errorf("invalid outcome-keep-per-card: %d", cfg.OutcomeKeep)
	}
	if cfg.RefreshRate > 0 && cfg.RefreshBurst <= 0 {
		return cfg, fmt.Errorf("invalid refresh-burst: %d", cfg.RefreshBurst)
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return cfg, fmt.Errorf("invalid log-level: %w", err)
	}

	// Expand ~ in db-path
	if strings.HasPrefix(cfg.DBPath, "~/") {
		cfg.DBPath = filepath.Join(home, cfg.DBPath[2:])
	}

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.APIPort))
	}

	if len(cfg.Cards) == 0 {
		cfg.Cards = cards.DefaultSpecs()
	}
	seen := make(map[string]bool, len(cfg.Cards))
	for i, s := range cfg.Cards {
		if strings.TrimSpace(s.ID) == "" {
			return cfg, fmt.Errorf("cards[%d]: id is required", i)
		}
		if seen[s.ID] {
			return cfg, fmt.Errorf("cards[%d]: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = true
	}

	return cfg, nil
}
