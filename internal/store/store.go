// Package store selects the concrete session store for a deployment.
// Exactly one backend is active at a time; both implement
// domain.SessionStore.
package store

import (
	"fmt"

	"github.com/heydayle/next-gen-ai/internal/config"
	"github.com/heydayle/next-gen-ai/internal/domain"
	"github.com/heydayle/next-gen-ai/internal/store/redis"
	"github.com/heydayle/next-gen-ai/internal/store/sqlite"
)

// New creates the session store configured by storage.backend
func New(cfg *config.Config) (domain.SessionStore, error) {
	switch cfg.Storage.Backend {
	case "", "sqlite":
		return sqlite.NewStore(cfg.Storage), nil
	case "redis":
		return redis.NewStore(cfg.Redis, cfg.Storage.Collection), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
