package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Artanty/key/internal/apperrors"
	"github.com/Artanty/key/internal/models"
	"github.com/Artanty/key/internal/repository"
)

// KeyDeriver derives the base key handed out on registration.
type KeyDeriver interface {
	BaseKey(url string, at time.Time) string
}

// Service registers backend services and rotates their base keys.
type Service struct {
	deriver KeyDeriver
	storage repository.Storage
}

func NewService(deriver KeyDeriver, storage repository.Storage) *Service {
	return &Service{
		deriver: deriver,
		storage: storage,
	}
}

// Register records the (project, url) pair and returns its credentials.
//
// Registering a pair that already exists rotates its base key in place,
// which invalidates the key from the previous registration. A known
// project with a new url gets a fresh record instead.
func (s *Service) Register(ctx context.Context, project string, url string) (models.Service, error) {
	now := time.Now()
	baseKey := s.deriver.BaseKey(url, now)

	var registered models.Service

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		_, err := storage.Services().GetByProjectURL(ctx, project, url)

		switch {
		case err == nil:
			registered, err = storage.Services().UpdateBaseKey(ctx, project, url, baseKey, now)
			return err
		case errors.Is(err, apperrors.ErrServiceNotFound):
			registered, err = storage.Services().Create(ctx, models.Service{
				ID:        uuid.New(),
				Project:   project,
				URL:       url,
				BaseKey:   baseKey,
				UpdatedAt: now,
			})
			return err
		default:
			return err
		}
	})
	if err != nil {
		return models.Service{}, fmt.Errorf("error while registering service. Err: %w", err)
	}

	return registered, nil
}
