package root

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"lingsync/internal/api"
	"lingsync/internal/engine"
	"lingsync/internal/netmon"
	"lingsync/internal/storage"
)

// Config comes from the environment (optionally via a .env file).
type Config struct {
	APIBaseURL   string        `env:"LINGSYNC_API_URL" envDefault:"http://localhost:8787"`
	APIToken     string        `env:"LINGSYNC_API_TOKEN"`
	APITimeout   time.Duration `env:"LINGSYNC_API_TIMEOUT" envDefault:"30s"`
	DBPath       string        `env:"LINGSYNC_DB"`
	PollInterval time.Duration `env:"LINGSYNC_POLL_INTERVAL" envDefault:"15s"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBPath == "" {
		path, err := storage.DefaultDBPath()
		if err != nil {
			return Config{}, err
		}
		cfg.DBPath = path
	}
	return cfg, nil
}

// openService wires the engine for one-shot commands: local store plus the
// remote client, no reachability polling. An unreachable server simply
// lands updates on the local fallback path.
func openService(ctx context.Context) (*engine.Service, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := storage.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.APIToken, api.WithTimeout(cfg.APITimeout))
	svc, err := engine.New(ctx, db, engine.Options{
		Client: client,
		Logger: log.New(os.Stderr, "lsync: ", log.LstdFlags),
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	cleanup := func() {
		svc.Close()
		_ = db.Close()
	}
	return svc, cleanup, nil
}

// openWatchService additionally wires and starts the connectivity monitor
// for the long-running dashboard.
func openWatchService(ctx context.Context) (*engine.Service, *netmon.Monitor, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	db, err := storage.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, nil, err
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.APIToken, api.WithTimeout(cfg.APITimeout))
	mon := netmon.New(netmon.HTTPProbe(client.HealthURL()), cfg.PollInterval)

	svc, err := engine.New(ctx, db, engine.Options{
		Client:  client,
		Monitor: mon,
		Logger:  log.New(os.Stderr, "lsync: ", log.LstdFlags),
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	mon.Start(ctx)

	cleanup := func() {
		svc.Close()
		mon.Stop()
		_ = db.Close()
	}
	return svc, mon, cleanup, nil
}
