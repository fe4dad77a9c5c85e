package registry

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Artanty/key/internal/repository"
	"github.com/Artanty/key/internal/repository/postgres"
	"github.com/Artanty/key/internal/secrets"
	"github.com/Artanty/key/internal/testutil"
)

func Test_RegistryService_Register(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	newService := func(t *testing.T, tx pgx.Tx) (*Service, repository.Storage) {
		t.Helper()

		deriver, err := secrets.NewDeriver("registry-test-secret")
		require.NoError(t, err)

		storage := postgres.NewStorage(tx)
		return NewService(deriver, storage), storage
	}

	t.Run("register new service", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			service, storage := newService(t, tx)

			registered, err := service.Register(t.Context(), "orders", "https://orders.internal")

			require.NoError(t, err)
			assert.NotZero(t, registered.ID)
			assert.Equal(t, "orders", registered.Project)
			assert.Equal(t, "https://orders.internal", registered.URL)
			assert.Len(t, registered.BaseKey, 64)
			assert.NotZero(t, registered.UpdatedAt)

			stored, err := storage.Services().GetByProjectURL(t.Context(), "orders", "https://orders.internal")
			require.NoError(t, err)
			assert.Equal(t, registered.BaseKey, stored.BaseKey)
		})
	})

	t.Run("same pair rotates key in place", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			service, storage := newService(t, tx)

			first, err := service.Register(t.Context(), "orders", "https://orders.internal")
			require.NoError(t, err)

			second, err := service.Register(t.Context(), "orders", "https://orders.internal")
			require.NoError(t, err)

			assert.Equal(t, first.ID, second.ID, "rotation must reuse the record")
			assert.NotEqual(t, first.BaseKey, second.BaseKey, "rotation must change the base key")

			stored, err := storage.Services().GetByProjectURL(t.Context(), "orders", "https://orders.internal")
			require.NoError(t, err)
			assert.Equal(t, second.BaseKey, stored.BaseKey, "only the latest key must remain")
		})
	})

	t.Run("new url creates second record", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			service, storage := newService(t, tx)

			first, err := service.Register(t.Context(), "orders", "https://orders.internal")
			require.NoError(t, err)

			// updated_at must order the two records
			time.Sleep(5 * time.Millisecond)

			second, err := service.Register(t.Context(), "orders", "https://orders.eu.internal")
			require.NoError(t, err)

			assert.NotEqual(t, first.ID, second.ID, "new url must not touch the old record")

			old, err := storage.Services().GetByProjectURL(t.Context(), "orders", "https://orders.internal")
			require.NoError(t, err)
			assert.Equal(t, first.BaseKey, old.BaseKey)

			latest, err := storage.Services().GetByProject(t.Context(), "orders")
			require.NoError(t, err)
			assert.Equal(t, second.URL, latest.URL, "lookups by project must see the latest registration")
		})
	})

	t.Run("base keys differ between registrations", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			service, _ := newService(t, tx)

			orders, err := service.Register(t.Context(), "orders", "https://orders.internal")
			require.NoError(t, err)

			billing, err := service.Register(t.Context(), "billing", "https://billing.internal")
			require.NoError(t, err)

			assert.NotEqual(t, orders.BaseKey, billing.BaseKey)
		})
	})
}
