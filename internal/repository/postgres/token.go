package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Artanty/key/internal/apperrors"
	"github.com/Artanty/key/internal/models"
)

type TokenRepo struct {
	DB DBTX
}

const createToken = `-- name: CreateToken
INSERT INTO tokens (id, target, requester, api_key, target_url, requester_url, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, target, requester, api_key, target_url, requester_url, expires_at, created_at
`

func (r *TokenRepo) Create(ctx context.Context, token models.Token) (models.Token, error) {
	rows, _ := r.DB.Query(ctx, createToken,
		token.ID, token.Target, token.Requester, token.APIKey,
		token.TargetURL, token.RequesterURL, token.ExpiresAt, token.CreatedAt,
	)
	created, err := pgx.CollectOneRow(rows, rowToToken)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return created, fmt.Errorf("db error: api key already exists: %w", err)
		}

		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getLiveToken = `-- name: GetLiveToken
SELECT id, target, requester, api_key, target_url, requester_url, expires_at, created_at
FROM tokens
WHERE target = $1 AND requester = $2 AND target_url = $3 AND expires_at > $4
ORDER BY created_at DESC
LIMIT 1
`

// Get the newest token for the exact (target, requester, target_url) triple
// that is still live at now. Expired rows stay in the table and are simply
// not selected.
func (r *TokenRepo) GetLive(ctx context.Context, target string, requester string, targetURL string, now time.Time) (models.Token, error) {
	rows, _ := r.DB.Query(ctx, getLiveToken, target, requester, targetURL, now)
	token, err := pgx.CollectOneRow(rows, rowToToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const getLiveTokenByAPIKey = `-- name: GetLiveTokenByAPIKey
SELECT id, target, requester, api_key, target_url, requester_url, expires_at, created_at
FROM tokens
WHERE api_key = $1 AND expires_at > $2
`

func (r *TokenRepo) GetLiveByAPIKey(ctx context.Context, apiKey string, now time.Time) (models.Token, error) {
	rows, _ := r.DB.Query(ctx, getLiveTokenByAPIKey, apiKey, now)
	token, err := pgx.CollectOneRow(rows, rowToToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

func rowToToken(row pgx.CollectableRow) (models.Token, error) {
	var t models.Token
	err := row.Scan(&t.ID, &t.Target, &t.Requester, &t.APIKey, &t.TargetURL, &t.RequesterURL, &t.ExpiresAt, &t.CreatedAt)
	return t, err
}
