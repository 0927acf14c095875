package snapshots

import (
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
	"github.com/SzymonLiszewski/investfolio/internal/modules/bonds"
	"github.com/SzymonLiszewski/investfolio/internal/modules/prices"
	"github.com/SzymonLiszewski/investfolio/internal/modules/valuation"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

const testSchema = `
CREATE TABLE portfolio_snapshots (
	owner_id TEXT NOT NULL,
	date TEXT NOT NULL,
	currency TEXT NOT NULL,
	total_value REAL NOT NULL,
	total_invested REAL NOT NULL,
	PRIMARY KEY (owner_id, date, currency)
);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

type stubLedger struct {
	txs []domain.Transaction
}

func (s *stubLedger) GetForOwnerUpTo(ownerID string, end date.Date) ([]domain.Transaction, error) {
	var result []domain.Transaction
	for _, tx := range s.txs {
		if tx.OwnerID == ownerID && !tx.Date.After(end) {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (s *stubLedger) FirstDate(ownerID string) (date.Date, error) {
	var first date.Date
	for _, tx := range s.txs {
		if tx.OwnerID != ownerID {
			continue
		}
		if first.IsZero() || tx.Date.Before(first) {
			first = tx.Date
		}
	}
	return first, nil
}

func (s *stubLedger) Owners() ([]string, error) {
	seen := map[string]bool{}
	var owners []string
	for _, tx := range s.txs {
		if !seen[tx.OwnerID] {
			seen[tx.OwnerID] = true
			owners = append(owners, tx.OwnerID)
		}
	}
	return owners, nil
}

type stubAssets struct {
	byID map[int64]*domain.Asset
}

func (s *stubAssets) GetByID(id int64) (*domain.Asset, error) {
	return s.byID[id], nil
}

type stubSeries struct {
	series map[string]map[date.Date]float64
	fail   map[string]bool
}

func (s *stubSeries) GetSeries(symbol string, start, end date.Date) (*prices.Series, error) {
	if s.fail[symbol] {
		return nil, fmt.Errorf("upstream unavailable")
	}
	return prices.NewSeries(s.series[symbol]), nil
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func newBuilder(t *testing.T, ledger *stubLedger, assetSrc *stubAssets, seriesSrc *stubSeries) (*Builder, *Repository) {
	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	repo := NewRepository(db, log)
	engine := valuation.NewEngine(bonds.NewCalculator(nil, log), nil, log)

	return NewBuilder(repo, ledger, assetSrc, seriesSrc, engine, nil, "USD", log), repo
}

func TestBuildSingleStockScenario(t *testing.T) {
	aapl := &domain.Asset{ID: 1, Symbol: "AAPL", Type: domain.AssetTypeStock}
	day1 := date.New(2026, 1, 1)

	ledger := &stubLedger{txs: []domain.Transaction{{
		ID: 1, OwnerID: "user-1", AssetID: 1, Side: domain.Buy,
		Quantity: 10, Price: dec("150"), Currency: "USD", Date: day1,
	}}}
	assetSrc := &stubAssets{byID: map[int64]*domain.Asset{1: aapl}}
	seriesSrc := &stubSeries{series: map[string]map[date.Date]float64{
		"AAPL": {
			day1:        150,
			day1.Add(1): 155,
			day1.Add(2): 152,
		},
	}}

	builder, repo := newBuilder(t, ledger, assetSrc, seriesSrc)

	require.NoError(t, builder.Build("user-1", day1, day1.Add(2), "USD"))

	snaps, err := repo.GetRange("user-1", day1, day1.Add(2), "USD")
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	wantValues := []string{"1500", "1550", "1520"}
	for i, snap := range snaps {
		assert.True(t, snap.TotalValue.Equal(dec(wantValues[i])),
			"day %d value: want %s got %s", i, wantValues[i], snap.TotalValue)
		assert.True(t, snap.TotalInvested.Equal(dec("1500")),
			"net invested stays constant with no further trades")
	}
}

func TestBuildSellReducesInvested(t *testing.T) {
	aapl := &domain.Asset{ID: 1, Symbol: "AAPL", Type: domain.AssetTypeStock}
	day1 := date.New(2026, 1, 1)

	ledger := &stubLedger{txs: []domain.Transaction{
		{ID: 1, OwnerID: "user-1", AssetID: 1, Side: domain.Buy, Quantity: 10, Price: dec("150"), Currency: "USD", Date: day1},
		{ID: 2, OwnerID: "user-1", AssetID: 1, Side: domain.Sell, Quantity: 5, Price: dec("160"), Currency: "USD", Date: day1.Add(1)},
	}}
	assetSrc := &stubAssets{byID: map[int64]*domain.Asset{1: aapl}}
	seriesSrc := &stubSeries{series: map[string]map[date.Date]float64{
		"AAPL": {day1: 150, day1.Add(1): 160},
	}}

	builder, repo := newBuilder(t, ledger, assetSrc, seriesSrc)
	require.NoError(t, builder.Build("user-1", day1, day1.Add(1), "USD"))

	snaps, err := repo.GetRange("user-1", day1, day1.Add(1), "USD")
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	assert.True(t, snaps[0].TotalValue.Equal(dec("1500")))
	assert.True(t, snaps[0].TotalInvested.Equal(dec("1500")))

	// Day 2: 5 units left at 160, invested 1500 - 800
	assert.True(t, snaps[1].TotalValue.Equal(dec("800")), "got %s", snaps[1].TotalValue)
	assert.True(t, snaps[1].TotalInvested.Equal(dec("700")), "got %s", snaps[1].TotalInvested)
}

func TestBuildMissingSeriesDegradesAssetToZero(t *testing.T) {
	aapl := &domain.Asset{ID: 1, Symbol: "AAPL", Type: domain.AssetTypeStock}
	broken := &domain.Asset{ID: 2, Symbol: "BROKEN", Type: domain.AssetTypeStock}
	day1 := date.New(2026, 1, 1)

	ledger := &stubLedger{txs: []domain.Transaction{
		{ID: 1, OwnerID: "user-1", AssetID: 1, Side: domain.Buy, Quantity: 10, Price: dec("150"), Currency: "USD", Date: day1},
		{ID: 2, OwnerID: "user-1", AssetID: 2, Side: domain.Buy, Quantity: 5, Price: dec("10"), Currency: "USD", Date: day1},
	}}
	assetSrc := &stubAssets{byID: map[int64]*domain.Asset{1: aapl, 2: broken}}
	seriesSrc := &stubSeries{
		series: map[string]map[date.Date]float64{"AAPL": {day1: 150}},
		fail:   map[string]bool{"BROKEN": true},
	}

	builder, repo := newBuilder(t, ledger, assetSrc, seriesSrc)
	require.NoError(t, builder.Build("user-1", day1, day1, "USD"))

	snaps, err := repo.GetRange("user-1", day1, day1, "USD")
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	// BROKEN contributes zero value but its purchase still counts as invested
	assert.True(t, snaps[0].TotalValue.Equal(dec("1500")), "got %s", snaps[0].TotalValue)
	assert.True(t, snaps[0].TotalInvested.Equal(dec("1550")), "got %s", snaps[0].TotalInvested)
}

func TestBuildBondAccruesWithoutPriceSeries(t *testing.T) {
	rate := dec("5")
	bond := &domain.Asset{
		ID:               1,
		Symbol:           "TOS0129",
		Type:             domain.AssetTypeBond,
		BondType:         "TOS",
		MaturityDate:     date.New(2029, 1, 1),
		InterestRateType: domain.RateFixed,
		InterestRate:     &rate,
	}
	purchase := date.New(2025, 1, 1)

	ledger := &stubLedger{txs: []domain.Transaction{{
		ID: 1, OwnerID: "user-1", AssetID: 1, Side: domain.Buy,
		Quantity: 1, Price: dec("100"), Currency: "PLN", Date: purchase,
	}}}
	assetSrc := &stubAssets{byID: map[int64]*domain.Asset{1: bond}}
	seriesSrc := &stubSeries{}

	builder, repo := newBuilder(t, ledger, assetSrc, seriesSrc)

	// One full year after purchase the bond is worth 105 PLN
	anniversary := date.New(2026, 1, 1)
	require.NoError(t, builder.Build("user-1", anniversary, anniversary, "PLN"))

	snaps, err := repo.GetRange("user-1", anniversary, anniversary, "PLN")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].TotalValue.Equal(dec("105")), "got %s", snaps[0].TotalValue)
}

func TestBuildNoTransactionsIsNoop(t *testing.T) {
	builder, repo := newBuilder(t, &stubLedger{}, &stubAssets{}, &stubSeries{})

	require.NoError(t, builder.Build("user-1", date.New(2026, 1, 1), date.New(2026, 1, 3), "USD"))

	snaps, err := repo.GetRange("user-1", date.New(2026, 1, 1), date.New(2026, 1, 3), "USD")
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestDefaultCurrencyFollowsLatestSnapshot(t *testing.T) {
	builder, repo := newBuilder(t, &stubLedger{}, &stubAssets{}, &stubSeries{})

	assert.Equal(t, "USD", builder.DefaultCurrency("user-1"), "base currency when no history")

	require.NoError(t, repo.Upsert(domain.Snapshot{
		OwnerID: "user-1", Date: date.New(2026, 1, 1), Currency: "PLN",
		TotalValue: dec("100"), TotalInvested: dec("100"),
	}))

	assert.Equal(t, "PLN", builder.DefaultCurrency("user-1"))
}

func TestRepositoryUpsertReplaces(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db, zerolog.Nop())
	day := date.New(2026, 1, 1)

	require.NoError(t, repo.Upsert(domain.Snapshot{
		OwnerID: "user-1", Date: day, Currency: "USD",
		TotalValue: dec("100"), TotalInvested: dec("100"),
	}))
	require.NoError(t, repo.Upsert(domain.Snapshot{
		OwnerID: "user-1", Date: day, Currency: "USD",
		TotalValue: dec("120"), TotalInvested: dec("100"),
	}))

	snaps, err := repo.GetRange("user-1", day, day, "USD")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].TotalValue.Equal(dec("120")))
}
