package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tablesync/internal/models"
	"tablesync/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var placedAt = time.Date(2024, 3, 1, 19, 30, 0, 0, time.UTC)

func sampleSnapshot() store.Snapshot {
	return store.Snapshot{
		Tables: []models.Table{
			{ID: "t1", Name: "Table 1", Capacity: 2, Status: models.TableStatusAvailable, Zone: "window"},
			{ID: "t3", Name: "Table 3", Capacity: 4, Status: models.TableStatusOccupied, Zone: "hall"},
		},
		Menu: models.Menu{
			{ID: "m1", Name: "Paneer Tikka", Category: "starter", Price: 120, Available: true, PrepTime: 12 * time.Minute},
			{ID: "m7", Name: "Butter Naan", Category: "bread", Price: 40, Available: true},
		},
		Orders: []models.Order{{
			ID:      "o1",
			TableID: "t3",
			Items: []models.OrderItem{
				{MenuItemID: "m1", Name: "Paneer Tikka", Quantity: 2, Price: 120, Note: "extra spicy"},
				{MenuItemID: "m7", Name: "Butter Naan", Quantity: 2, Price: 40},
			},
			Status:      models.OrderStatusPreparing,
			TotalAmount: 320,
			Notes:       "window side",
			CreatedAt:   placedAt,
			UpdatedAt:   placedAt.Add(5 * time.Minute),
		}},
		Reservations: []models.Reservation{{
			ID: "r1", CustomerName: "Asha Rao", Phone: "+91 98450 00000",
			RequestedAt: placedAt.Add(24 * time.Hour), PartySize: 4,
			Status: models.ReservationStatusConfirmed, TableID: "t3",
		}},
		Inventory: []models.InventoryItem{
			{ID: "i1", Name: "Paneer", Category: "dairy", Quantity: 4.5, Unit: "kg", MinLevel: 2, Status: models.StatusInStock},
		},
	}
}

func assertSameSnapshot(t *testing.T, want, got store.Snapshot) {
	t.Helper()
	assert.Equal(t, want.Tables, got.Tables)
	assert.Equal(t, want.Menu, got.Menu)
	assert.Equal(t, want.Inventory, got.Inventory)

	require.Len(t, got.Orders, len(want.Orders))
	for i := range want.Orders {
		w, g := want.Orders[i], got.Orders[i]
		assert.True(t, w.CreatedAt.Equal(g.CreatedAt))
		assert.True(t, w.UpdatedAt.Equal(g.UpdatedAt))
		w.CreatedAt, w.UpdatedAt, g.CreatedAt, g.UpdatedAt = time.Time{}, time.Time{}, time.Time{}, time.Time{}
		assert.Equal(t, w, g)
	}

	require.Len(t, got.Reservations, len(want.Reservations))
	for i := range want.Reservations {
		w, g := want.Reservations[i], got.Reservations[i]
		assert.True(t, w.RequestedAt.Equal(g.RequestedAt))
		w.RequestedAt, g.RequestedAt = time.Time{}, time.Time{}
		assert.Equal(t, w, g)
	}
}

func TestFixtureRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "floor.yaml")
	require.NoError(t, WriteFixture(path, sampleSnapshot()))

	snap, err := Fixture{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assertSameSnapshot(t, sampleSnapshot(), snap)
}

func TestFixtureHandWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "floor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tables:
  - {id: t1, name: Table 1, capacity: 4, status: available}
menu:
  - id: m1
    name: Masala Dosa
    category: main
    price: 90
    available: true
    prep_time: 10m
`), 0o644))

	snap, err := Fixture{Path: path}.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Menu, 1)
	assert.Equal(t, 10*time.Minute, snap.Menu[0].PrepTime)
	assert.Equal(t, models.TableStatusAvailable, snap.Tables[0].Status)
	assert.Empty(t, snap.Orders)
}

func TestFixtureErrors(t *testing.T) {
	_, err := Fixture{Path: filepath.Join(t.TempDir(), "missing.yaml")}.Load(context.Background())
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tables: [unclosed"), 0o644))
	_, err = Fixture{Path: path}.Load(context.Background())
	assert.Error(t, err)
}

func TestSQLiteSeedAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.db")
	require.NoError(t, Seed(path, sampleSnapshot()))

	snap, err := SQLite{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assertSameSnapshot(t, sampleSnapshot(), snap)
}

func TestSQLiteSeedReplacesContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.db")
	require.NoError(t, Seed(path, sampleSnapshot()))

	smaller := sampleSnapshot()
	smaller.Orders = nil
	smaller.Reservations = nil
	smaller.Tables = smaller.Tables[:1]
	require.NoError(t, Seed(path, smaller))

	snap, err := SQLite{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Tables, 1)
	assert.Empty(t, snap.Orders)
	assert.Empty(t, snap.Reservations)
	assert.Len(t, snap.Menu, 2)
}

func TestItemListScan(t *testing.T) {
	var l ItemList
	require.NoError(t, l.Scan(nil))
	assert.Empty(t, l)

	require.NoError(t, l.Scan(`[{"menu_item_id":"m1","quantity":2,"price":120}]`))
	require.Len(t, l, 1)
	assert.Equal(t, 2, l[0].Quantity)

	assert.Error(t, l.Scan(42))

	v, err := ItemList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestDemoIsDeterministic(t *testing.T) {
	now := func() time.Time { return placedAt }
	a, err := Demo{Seed: 7, Tables: 8, Reservations: 5, Now: now}.Load(context.Background())
	require.NoError(t, err)
	b, err := Demo{Seed: 7, Tables: 8, Reservations: 5, Now: now}.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a.Tables, 8)
	assert.Len(t, a.Reservations, 5)
	assert.Len(t, a.Menu, len(demoDishes))
	assert.NoError(t, a.Validate())

	for _, r := range a.Reservations {
		assert.True(t, r.RequestedAt.After(placedAt))
		assert.GreaterOrEqual(t, r.PartySize, 1)
	}
}

func TestNewLoader(t *testing.T) {
	l, err := NewLoader(Config{Source: "fixture", Path: "floor.yaml"})
	require.NoError(t, err)
	assert.IsType(t, Fixture{}, l)

	l, err = NewLoader(Config{Source: "sqlite", Path: "seed.db"})
	require.NoError(t, err)
	assert.IsType(t, SQLite{}, l)

	l, err = NewLoader(Config{})
	require.NoError(t, err)
	assert.IsType(t, Demo{}, l)

	_, err = NewLoader(Config{Source: "fixture"})
	assert.Error(t, err)
	_, err = NewLoader(Config{Source: "postgres"})
	assert.Error(t, err)
}
