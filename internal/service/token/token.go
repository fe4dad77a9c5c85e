package token

import (
	"time"

	"github.com/Artanty/key/internal/repository"
)

const defaultTokenTTL = 24 * time.Hour

// Config for the token service
type Config struct {
	// TokenTTL is the lifetime of issued api keys. Zero means the default.
	TokenTTL time.Duration
}

// KeyDeriver mints api keys bound to the target's base key.
type KeyDeriver interface {
	APIKey(targetBaseKey string, requesterProject string, at time.Time) string
}

// Service issues short-lived api keys and validates presented ones.
type Service struct {
	deriver  KeyDeriver
	storage  repository.Storage
	tokenTTL time.Duration
}

func NewService(cfg Config, deriver KeyDeriver, storage repository.Storage) *Service {
	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = defaultTokenTTL
	}

	return &Service{
		deriver:  deriver,
		storage:  storage,
		tokenTTL: ttl,
	}
}
