package repository

import (
	"context"
	"time"

	"github.com/Artanty/key/internal/models"
)

// Service registry repository interface
type ServiceRepo interface {
	// Find the record registered for the exact (project, url) pair
	// If absent must return error apperrors.ErrServiceNotFound
	GetByProjectURL(ctx context.Context, project string, url string) (models.Service, error)

	// Find a record by project alone
	// When several urls are registered for one project the most recently
	// updated record wins
	// If absent must return error apperrors.ErrServiceNotFound
	GetByProject(ctx context.Context, project string) (models.Service, error)

	// Insert a new record
	Create(ctx context.Context, service models.Service) (models.Service, error)

	// Overwrite base_key and updated_at for every record of the
	// (project, url) pair (rotation)
	// If no record matched must return error apperrors.ErrServiceNotFound
	UpdateBaseKey(ctx context.Context, project string, url string, baseKey string, updatedAt time.Time) (models.Service, error)
}

// Token store repository interface
type TokenRepo interface {
	// Newest token minted for the exact (target, requester, target_url)
	// triple whose expires_at is strictly after now
	// If none must return error apperrors.ErrTokenNotFound
	GetLive(ctx context.Context, target string, requester string, targetURL string, now time.Time) (models.Token, error)

	// Token by its bearer string, expires_at strictly after now
	// If none must return error apperrors.ErrTokenNotFound
	GetLiveByAPIKey(ctx context.Context, apiKey string, now time.Time) (models.Token, error)

	// Insert token in repository
	Create(ctx context.Context, token models.Token) (models.Token, error)
}

// Storage bundles the repositories over one database handle
type Storage interface {
	Services() ServiceRepo
	Tokens() TokenRepo

	// Run fn within a single transaction: commit when fn returns nil,
	// roll back otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}
