package positions

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
)

const testSchema = `
CREATE TABLE positions (
	owner_id TEXT NOT NULL,
	asset_id INTEGER NOT NULL,
	quantity REAL NOT NULL DEFAULT 0,
	avg_purchase_price REAL,
	currency TEXT,
	PRIMARY KEY (owner_id, asset_id)
);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

func TestRepositoryUpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())

	avg := dec("150.5")
	pos := domain.Position{
		OwnerID:          "user-1",
		AssetID:          1,
		Quantity:         10,
		AvgPurchasePrice: &avg,
		Currency:         "USD",
	}
	require.NoError(t, repo.Upsert(pos))

	got, err := repo.Get("user-1", 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 10.0, got.Quantity)
	require.NotNil(t, got.AvgPurchasePrice)
	assert.True(t, got.AvgPurchasePrice.Equal(avg))
	assert.Equal(t, "USD", got.Currency)
}

func TestRepositoryGetMissing(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())

	got, err := repo.Get("user-1", 99)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepositoryUpsertReplaces(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())

	avg := dec("100")
	pos := domain.Position{OwnerID: "user-1", AssetID: 1, Quantity: 10, AvgPurchasePrice: &avg, Currency: "USD"}
	require.NoError(t, repo.Upsert(pos))

	// Flat position drops its basis
	pos.Quantity = 0
	pos.AvgPurchasePrice = nil
	pos.Currency = ""
	require.NoError(t, repo.Upsert(pos))

	got, err := repo.Get("user-1", 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.0, got.Quantity)
	assert.Nil(t, got.AvgPurchasePrice)
}

func TestRepositoryHeldFiltersEmptyPositions(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())

	avg := dec("100")
	require.NoError(t, repo.Upsert(domain.Position{OwnerID: "user-1", AssetID: 1, Quantity: 10, AvgPurchasePrice: &avg, Currency: "USD"}))
	require.NoError(t, repo.Upsert(domain.Position{OwnerID: "user-1", AssetID: 2, Quantity: 0}))
	require.NoError(t, repo.Upsert(domain.Position{OwnerID: "user-2", AssetID: 1, Quantity: 5, AvgPurchasePrice: &avg, Currency: "USD"}))

	all, err := repo.GetAllForOwner("user-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	held, err := repo.GetHeldForOwner("user-1")
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, int64(1), held[0].AssetID)
}

func TestRepositoryDelete(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())

	require.NoError(t, repo.Upsert(domain.Position{OwnerID: "user-1", AssetID: 1, Quantity: 3}))
	require.NoError(t, repo.Delete("user-1", 1))

	got, err := repo.Get("user-1", 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}
