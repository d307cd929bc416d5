package credentials

import (
	"fmt"

	"tasktracker/internal/core/ports"
	"tasktracker/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewStore builds the credential store selected by cfg.Credentials.Backend.
// When the redis backend is requested without a client, it falls back to a
// file store at cfg.Credentials.Path.
func NewStore(cfg *config.Config, client *redis.Client, logger *zap.SugaredLogger) (ports.CredentialStore, error) {
	switch cfg.Credentials.Backend {
	case "memory":
		logger.Info("using in-memory credential store")
		return NewMemoryStore(""), nil
	case "redis":
		if client != nil {
			logger.Infow("using Redis credential store", "key", cfg.Credentials.RedisKey)
			return NewRedisStore(client, cfg.Credentials.RedisKey, 0), nil
		}
		logger.Warnw("redis credential backend requested without a connection, falling back to file",
			"path", cfg.Credentials.Path,
		)
		return NewFileStore(cfg.Credentials.Path)
	case "file", "":
		logger.Infow("using file credential store", "path", cfg.Credentials.Path)
		return NewFileStore(cfg.Credentials.Path)
	default:
		return nil, fmt.Errorf("unknown credential backend %q", cfg.Credentials.Backend)
	}
}
