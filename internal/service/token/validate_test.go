package token

import (
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Artanty/key/internal/apperrors"
	"github.com/Artanty/key/internal/models"
	"github.com/Artanty/key/internal/repository/postgres"
	"github.com/Artanty/key/internal/testutil"
)

// validateParamsFor builds the params the target would send to check
// a token it just received from the requester.
func validateParamsFor(issue IssueParams, minted models.Token) ValidateParams {
	return ValidateParams{
		ValidatorProject: issue.TargetProject,
		ValidatorURL:     issue.TargetURL,
		ValidatorBaseKey: testTargetBaseKey,
		RequesterProject: issue.RequesterProject,
		RequesterURL:     issue.RequesterURL,
		RequesterAPIKey:  minted.APIKey,
	}
}

func Test_TokenService_Validate(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("valid token accepted", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			service := newTokenService(t, storage, Config{})
			params := seedPair(t, storage)

			minted, err := service.Issue(t.Context(), params)
			require.NoError(t, err)

			validated, err := service.Validate(t.Context(), validateParamsFor(params, minted))

			require.NoError(t, err)
			assert.Equal(t, minted.ID, validated.ID)
			assert.Equal(t, params.RequesterProject, validated.Requester)
		})
	})

	t.Run("validator identity checked first", func(t *testing.T) {
		tests := map[string]func(p *ValidateParams){
			"unknown project": func(p *ValidateParams) { p.ValidatorProject = "phantom" },
			"wrong url":       func(p *ValidateParams) { p.ValidatorURL = "https://evil.internal" },
			"wrong base key":  func(p *ValidateParams) { p.ValidatorBaseKey = "guessed-key" },
		}

		for name, mutate := range tests {
			t.Run(name, func(t *testing.T) {
				testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
					storage := postgres.NewStorage(tx)
					service := newTokenService(t, storage, Config{})
					params := seedPair(t, storage)

					minted, err := service.Issue(t.Context(), params)
					require.NoError(t, err)

					check := validateParamsFor(params, minted)
					mutate(&check)

					_, err = service.Validate(t.Context(), check)

					assert.ErrorIs(t, err, apperrors.ErrAccessDenied)
				})
			})
		}
	})

	t.Run("unknown api key", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			service := newTokenService(t, storage, Config{})
			params := seedPair(t, storage)

			minted, err := service.Issue(t.Context(), params)
			require.NoError(t, err)

			check := validateParamsFor(params, minted)
			check.RequesterAPIKey = strings.Repeat("0", 64)

			_, err = service.Validate(t.Context(), check)

			assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)
		})
	})

	t.Run("expired token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			service := newTokenService(t, storage, Config{TokenTTL: -time.Minute})
			params := seedPair(t, storage)

			minted, err := service.Issue(t.Context(), params)
			require.NoError(t, err)

			_, err = service.Validate(t.Context(), validateParamsFor(params, minted))

			assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)
		})
	})

	t.Run("requester fields must match the token", func(t *testing.T) {
		tests := map[string]struct {
			mutate     func(p *ValidateParams)
			mismatched []string
		}{
			"project": {
				mutate:     func(p *ValidateParams) { p.RequesterProject = "marketing" },
				mismatched: []string{"requester"},
			},
			"url": {
				mutate:     func(p *ValidateParams) { p.RequesterURL = "https://billing.internal:8443" },
				mismatched: []string{"requesterUrl"},
			},
		}

		for name, tt := range tests {
			t.Run(name, func(t *testing.T) {
				testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
					storage := postgres.NewStorage(tx)
					service := newTokenService(t, storage, Config{})
					params := seedPair(t, storage)

					minted, err := service.Issue(t.Context(), params)
					require.NoError(t, err)

					check := validateParamsFor(params, minted)
					tt.mutate(&check)

					_, err = service.Validate(t.Context(), check)

					var mismatchErr *apperrors.TokenMismatchError
					require.ErrorAs(t, err, &mismatchErr)
					assert.ErrorIs(t, err, apperrors.ErrTokenMismatch)
					assert.Equal(t, tt.mismatched, mismatchErr.Fields)
				})
			})
		}
	})

	t.Run("token issued for another target", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			service := newTokenService(t, storage, Config{})
			params := seedPair(t, storage)
			seedService(t, storage, "search", "https://search.internal", "search-base-key")

			minted, err := service.Issue(t.Context(), params)
			require.NoError(t, err)

			// A registered bystander presents someone else's token as its own.
			check := validateParamsFor(params, minted)
			check.ValidatorProject = "search"
			check.ValidatorURL = "https://search.internal"
			check.ValidatorBaseKey = "search-base-key"

			_, err = service.Validate(t.Context(), check)

			var mismatchErr *apperrors.TokenMismatchError
			require.ErrorAs(t, err, &mismatchErr)
			assert.Equal(t, []string{"target", "targetUrl"}, mismatchErr.Fields)
		})
	})

	t.Run("tampered api key", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			service := newTokenService(t, storage, Config{})
			params := seedPair(t, storage)

			minted, err := service.Issue(t.Context(), params)
			require.NoError(t, err)

			check := validateParamsFor(params, minted)
			check.RequesterAPIKey = minted.APIKey[:len(minted.APIKey)-1] + "x"

			_, err = service.Validate(t.Context(), check)

			assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)
		})
	})
}
