package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Artanty/key/internal/apperrors"
	"github.com/Artanty/key/internal/models"
)

type ServiceRepo struct {
	DB DBTX
}

const createService = `-- name: CreateService
INSERT INTO services (id, project, url, base_key, updated_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, project, url, base_key, updated_at
`

func (r *ServiceRepo) Create(ctx context.Context, service models.Service) (models.Service, error) {
	rows, _ := r.DB.Query(ctx, createService, service.ID, service.Project, service.URL, service.BaseKey, service.UpdatedAt)
	created, err := pgx.CollectOneRow(rows, rowToService)
	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getServiceByProjectURL = `-- name: GetServiceByProjectURL
SELECT id, project, url, base_key, updated_at
FROM services
WHERE project = $1 AND url = $2
LIMIT 1
`

func (r *ServiceRepo) GetByProjectURL(ctx context.Context, project string, url string) (models.Service, error) {
	rows, _ := r.DB.Query(ctx, getServiceByProjectURL, project, url)
	service, err := pgx.CollectOneRow(rows, rowToService)

	switch {
	case err == nil:
		return service, nil
	case errors.Is(err, pgx.ErrNoRows):
		return service, fmt.Errorf("repo error: %w", apperrors.ErrServiceNotFound)
	default:
		return service, fmt.Errorf("db error: %w", err)
	}
}

const getServiceByProject = `-- name: GetServiceByProject
SELECT id, project, url, base_key, updated_at
FROM services
WHERE project = $1
ORDER BY updated_at DESC
LIMIT 1
`

// Get a record by project alone. A project re-registered under several urls
// owns several records; the most recently updated one is returned.
func (r *ServiceRepo) GetByProject(ctx context.Context, project string) (models.Service, error) {
	rows, _ := r.DB.Query(ctx, getServiceByProject, project)
	service, err := pgx.CollectOneRow(rows, rowToService)

	switch {
	case err == nil:
		return service, nil
	case errors.Is(err, pgx.ErrNoRows):
		return service, fmt.Errorf("repo error: %w", apperrors.ErrServiceNotFound)
	default:
		return service, fmt.Errorf("db error: %w", err)
	}
}

const rotateServiceKey = `-- name: RotateServiceKey
UPDATE services
SET base_key = $3, updated_at = $4
WHERE project = $1 AND url = $2
RETURNING id, project, url, base_key, updated_at
`

func (r *ServiceRepo) UpdateBaseKey(ctx context.Context, project string, url string, baseKey string, updatedAt time.Time) (models.Service, error) {
	rows, _ := r.DB.Query(ctx, rotateServiceKey, project, url, baseKey, updatedAt)
	service, err := pgx.CollectOneRow(rows, rowToService)

	switch {
	case err == nil:
		return service, nil
	case errors.Is(err, pgx.ErrNoRows):
		return service, fmt.Errorf("repo error: %w", apperrors.ErrServiceNotFound)
	default:
		return service, fmt.Errorf("db error: %w", err)
	}
}

func rowToService(row pgx.CollectableRow) (models.Service, error) {
	var s models.Service
	err := row.Scan(&s.ID, &s.Project, &s.URL, &s.BaseKey, &s.UpdatedAt)
	return s, err
}
