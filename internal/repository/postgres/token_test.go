package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Artanty/key/internal/apperrors"
	"github.com/Artanty/key/internal/models"
	"github.com/Artanty/key/internal/testutil"
)

func Test_TokenRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	now := mustParseTime("2024-01-01 19:00:01Z")
	token := models.Token{
		ID:           uuid.New(),
		Target:       "svc-b",
		Requester:    "svc-a",
		APIKey:       "api-key-1",
		TargetURL:    "http://b",
		RequesterURL: "http://a",
		ExpiresAt:    now.Add(24 * time.Hour),
		CreatedAt:    now,
	}

	t.Run("create ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := TokenRepo{DB: tx}

			got, err := repo.Create(t.Context(), token)

			require.NoError(t, err)
			require.Equal(t, token.ID, got.ID)
			require.Equal(t, token.Target, got.Target)
			require.Equal(t, token.Requester, got.Requester)
			require.Equal(t, token.APIKey, got.APIKey)
			require.Equal(t, token.TargetURL, got.TargetURL)
			require.Equal(t, token.RequesterURL, got.RequesterURL)
			require.WithinDuration(t, token.ExpiresAt, got.ExpiresAt, time.Microsecond)
			require.WithinDuration(t, token.CreatedAt, got.CreatedAt, time.Microsecond)
		})
	})

	t.Run("create duplicate api key fail", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := TokenRepo{DB: tx}
			_, err := repo.Create(t.Context(), token)
			require.NoError(t, err)

			duplicate := token
			duplicate.ID = uuid.New()
			_, err = repo.Create(t.Context(), duplicate)

			require.Error(t, err, "api_key is globally unique, second insert must fail")
		})
	})

	t.Run("get live ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := TokenRepo{DB: tx}
			_, err := repo.Create(t.Context(), token)
			require.NoError(t, err)

			got, err := repo.GetLive(t.Context(), "svc-b", "svc-a", "http://b", now)

			require.NoError(t, err)
			require.Equal(t, token.APIKey, got.APIKey)
			require.WithinDuration(t, token.ExpiresAt, got.ExpiresAt, time.Microsecond)
		})
	})

	t.Run("get live matches the exact triple", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := TokenRepo{DB: tx}
			_, err := repo.Create(t.Context(), token)
			require.NoError(t, err)

			for name, args := range map[string][3]string{
				"different target":     {"svc-c", "svc-a", "http://b"},
				"different requester":  {"svc-b", "svc-c", "http://b"},
				"different target url": {"svc-b", "svc-a", "http://b-moved"},
			} {
				_, err := repo.GetLive(t.Context(), args[0], args[1], args[2], now)

				require.Error(t, err, "case %q must not match", name)
				assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)
			}
		})
	})

	t.Run("get live excludes expired", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := TokenRepo{DB: tx}
			_, err := repo.Create(t.Context(), token)
			require.NoError(t, err)

			_, err = repo.GetLive(t.Context(), "svc-b", "svc-a", "http://b", token.ExpiresAt.Add(time.Second))

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)
		})
	})

	t.Run("expiry bound is strict", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := TokenRepo{DB: tx}
			_, err := repo.Create(t.Context(), token)
			require.NoError(t, err)

			_, err = repo.GetLive(t.Context(), "svc-b", "svc-a", "http://b", token.ExpiresAt)

			require.Error(t, err, "a token is live only while expires_at is strictly in the future")
			assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)
		})
	})

	t.Run("get live prefers the newest", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := TokenRepo{DB: tx}
			_, err := repo.Create(t.Context(), token)
			require.NoError(t, err)

			newer := token
			newer.ID = uuid.New()
			newer.APIKey = "api-key-2"
			newer.CreatedAt = token.CreatedAt.Add(time.Minute)
			newer.ExpiresAt = token.ExpiresAt.Add(time.Minute)
			_, err = repo.Create(t.Context(), newer)
			require.NoError(t, err)

			got, err := repo.GetLive(t.Context(), "svc-b", "svc-a", "http://b", now.Add(2*time.Minute))

			require.NoError(t, err)
			require.Equal(t, "api-key-2", got.APIKey)
		})
	})

	t.Run("get live by api key ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := TokenRepo{DB: tx}
			_, err := repo.Create(t.Context(), token)
			require.NoError(t, err)

			got, err := repo.GetLiveByAPIKey(t.Context(), "api-key-1", now)

			require.NoError(t, err)
			require.Equal(t, token.ID, got.ID)
			require.Equal(t, token.Requester, got.Requester)
		})
	})

	t.Run("get live by api key excludes expired", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := TokenRepo{DB: tx}
			_, err := repo.Create(t.Context(), token)
			require.NoError(t, err)

			_, err = repo.GetLiveByAPIKey(t.Context(), "api-key-1", token.ExpiresAt.Add(time.Second))

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)
		})
	})

	t.Run("get live by unknown api key fail", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := TokenRepo{DB: tx}

			_, err := repo.GetLiveByAPIKey(t.Context(), "who-dis", now)

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)
		})
	})
}
