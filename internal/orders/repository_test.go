package orders

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              portNum,
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "migrations",
	}

	repo, err := NewRepository(creds)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.RunMigrations(creds))
	return repo
}

func TestRecordOrder_InsertsPurchaseAndEvent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	repo := setupTestDB(t)
	ctx := context.Background()

	payload, _ := json.Marshal(map[string]string{"user_id": "user-1", "order_id": "prov-1"})
	purchase := &Purchase{
		UserID:          "user-1",
		ProviderOrderID: "prov-1",
		ProductID:       "prod-a",
		Total:           15,
		Currency:        "GBP",
		Status:          "completed",
	}

	inserted, err := repo.RecordOrder(ctx, purchase, payload)
	require.NoError(t, err)
	assert.True(t, inserted)

	purchases, err := repo.ListPurchases(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, "prov-1", purchases[0].ProviderOrderID)
	assert.Equal(t, 15.0, purchases[0].Total)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "prov-1", events[0].AggregateID)
	assert.Equal(t, EventTypeOrderCompleted, events[0].EventType)
}

func TestRecordOrder_RetryIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	repo := setupTestDB(t)
	ctx := context.Background()

	purchase := &Purchase{UserID: "user-1", ProviderOrderID: "prov-dup"}
	inserted, err := repo.RecordOrder(ctx, purchase, []byte(`{}`))
	require.NoError(t, err)
	assert.True(t, inserted)

	retry := &Purchase{UserID: "user-1", ProviderOrderID: "prov-dup"}
	inserted, err = repo.RecordOrder(ctx, retry, []byte(`{}`))
	require.NoError(t, err)
	assert.False(t, inserted)

	purchases, err := repo.ListPurchases(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, purchases, 1)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestMarkEventProcessed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	repo := setupTestDB(t)
	ctx := context.Background()

	_, err := repo.RecordOrder(ctx, &Purchase{UserID: "u", ProviderOrderID: "prov-2"}, []byte(`{}`))
	require.NoError(t, err)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.NoError(t, repo.MarkEventProcessed(ctx, events[0].ID))

	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
