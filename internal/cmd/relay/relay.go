// Package relay wires configuration for the relay service binary.
package relay

import (
	"context"
	"flag"
	"fmt"
	"time"

	platformcmd "github.com/driftwoodchat/driftwood/internal/platform/cmd"
	server "github.com/driftwoodchat/driftwood/internal/services/relay/app"
	"github.com/driftwoodchat/driftwood/internal/services/relay/storage/sqlite"
)

// Config is populated from the environment first; command-line flags
// override individual fields.
type Config struct {
	HTTPAddr         string        `env:"DRIFTWOOD_HTTP_ADDR" envDefault:":8080"`
	DBPath           string        `env:"DRIFTWOOD_DB_PATH" envDefault:"./driftwood.db"`
	IdleTimeout      time.Duration `env:"DRIFTWOOD_IDLE_TIMEOUT" envDefault:"10m"`
	ReapInterval     time.Duration `env:"DRIFTWOOD_REAP_INTERVAL" envDefault:"5m"`
	PresenceInterval time.Duration `env:"DRIFTWOOD_PRESENCE_INTERVAL" envDefault:"1m"`
	HistoryLimit     int           `env:"DRIFTWOOD_DM_HISTORY_LIMIT" envDefault:"50"`
}

// ParseConfig resolves the effective configuration from environment
// variables and args.
func ParseConfig(args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet(platformcmd.ServiceRelay, flag.ContinueOnError)
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database path")
	fs.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "idle time before a connection is evicted")
	fs.DurationVar(&cfg.ReapInterval, "reap-interval", cfg.ReapInterval, "time between idle connection sweeps")
	fs.DurationVar(&cfg.PresenceInterval, "presence-interval", cfg.PresenceInterval, "time between periodic roster broadcasts")
	fs.IntVar(&cfg.HistoryLimit, "dm-history-limit", cfg.HistoryLimit, "default direct message history page size")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the relay service and blocks until ctx is canceled.
func Run(ctx context.Context, args []string) error {
	cfg, err := ParseConfig(args)
	if err != nil {
		return err
	}

	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceRelay, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open message store: %w", err)
		}
		defer store.Close()

		srv, err := server.NewServer(server.Config{
			HTTPAddr:         cfg.HTTPAddr,
			IdleTimeout:      cfg.IdleTimeout,
			ReapInterval:     cfg.ReapInterval,
			PresenceInterval: cfg.PresenceInterval,
			HistoryLimit:     cfg.HistoryLimit,
		}, store)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(ctx)
	})
}
