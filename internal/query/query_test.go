package query

import (
	"testing"
	"time"

	"tablesync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

func sampleOrders() []models.Order {
	return []models.Order{
		{ID: "o1", TableID: "t1", Status: models.OrderStatusPending, TotalAmount: 320, CreatedAt: now.Add(-20 * time.Minute),
			Items: []models.OrderItem{{MenuItemID: "m1", Quantity: 2, Price: 120}, {MenuItemID: "m7", Quantity: 2, Price: 40}}},
		{ID: "o2", TableID: "t2", Status: models.OrderStatusPreparing, TotalAmount: 99.99, CreatedAt: now.Add(-5 * time.Minute)},
		{ID: "o3", TableID: "t1", Status: models.OrderStatusServed, TotalAmount: 80, CreatedAt: now.Add(-40 * time.Minute)},
		{ID: "o4", TableID: "t1", Status: models.OrderStatusPaid, TotalAmount: 500, CreatedAt: now.Add(-90 * time.Minute)},
		{ID: "o5", TableID: "t3", Status: models.OrderStatusPreparing, TotalAmount: 60, CreatedAt: now.Add(-30 * time.Minute)},
	}
}

func ids(orders []models.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func TestOrderFilters(t *testing.T) {
	orders := sampleOrders()

	assert.Equal(t, []string{"o1", "o3", "o4"}, ids(OrdersForTable(orders, "t1")))
	assert.Equal(t, []string{"o2", "o5"}, ids(OrdersForTables(orders, "t2", "t3")))
	assert.Equal(t, []string{"o2", "o5"}, ids(OrdersByStatus(orders, models.OrderStatusPreparing)))
	assert.Equal(t, []string{"o1", "o2", "o3", "o5"}, ids(ActiveOrders(orders)))
	assert.Empty(t, OrdersForTable(orders, "t9"))
	assert.NotNil(t, OrdersForTable(nil, "t1"))
}

func TestFiltersDoNotShareItems(t *testing.T) {
	orders := sampleOrders()
	got := OrdersForTable(orders, "t1")
	got[0].Items[0].Quantity = 50
	assert.Equal(t, 2, orders[0].Items[0].Quantity)
}

func TestStationTables(t *testing.T) {
	tables := []models.Table{
		{ID: "t5"}, {ID: "t1"}, {ID: "t4"}, {ID: "t2"}, {ID: "t3"},
	}

	tableIDs := func(ts []models.Table) []string {
		out := make([]string, len(ts))
		for i, tb := range ts {
			out[i] = tb.ID
		}
		return out
	}

	assert.Equal(t, []string{"t1", "t2"}, tableIDs(StationTables(tables, 1, 2)))
	assert.Equal(t, []string{"t3", "t4", "t5"}, tableIDs(StationTables(tables, 2, 2)))
	assert.Equal(t, []string{"t1", "t2", "t3", "t4", "t5"}, tableIDs(StationTables(tables, 1, 1)))

	var all []string
	for s := 1; s <= 3; s++ {
		all = append(all, tableIDs(StationTables(tables, s, 3))...)
	}
	assert.Equal(t, []string{"t1", "t2", "t3", "t4", "t5"}, all)

	assert.Empty(t, StationTables(tables, 0, 2))
	assert.Empty(t, StationTables(tables, 3, 2))
	assert.Empty(t, StationTables(tables, 1, 0))
	assert.Equal(t, "t5", tables[0].ID, "input must stay unsorted")
}

func TestLateness(t *testing.T) {
	orders := sampleOrders()

	assert.Equal(t, 20*time.Minute, Elapsed(orders[0], now))
	assert.Equal(t, time.Duration(0), Elapsed(orders[0], now.Add(-time.Hour)))

	assert.True(t, IsLate(orders[0], now, DefaultLateAfter))
	assert.False(t, IsLate(orders[1], now, DefaultLateAfter))
	assert.False(t, IsLate(orders[2], now, DefaultLateAfter), "served orders are never late")
	assert.True(t, IsLate(orders[1], now, 4*time.Minute))
	assert.True(t, IsLate(orders[0], now, 0))

	exactly := models.Order{Status: models.OrderStatusPending, CreatedAt: now.Add(-DefaultLateAfter)}
	assert.False(t, IsLate(exactly, now, DefaultLateAfter))
}

func TestKitchenTickets(t *testing.T) {
	tickets := KitchenTickets(sampleOrders(), now, DefaultLateAfter)
	require.Len(t, tickets, 3)

	assert.Equal(t, "o5", tickets[0].OrderID)
	assert.Equal(t, "o1", tickets[1].OrderID)
	assert.Equal(t, "o2", tickets[2].OrderID)

	assert.True(t, tickets[0].Late)
	assert.False(t, tickets[2].Late)
	assert.Equal(t, 30*time.Minute, tickets[0].Elapsed)
	assert.Len(t, tickets[1].Items, 2)
}

func TestTableOccupancy(t *testing.T) {
	tables := []models.Table{
		{ID: "t1", Status: models.TableStatusOccupied},
		{ID: "t2", Status: models.TableStatusOccupied},
		{ID: "t4", Status: models.TableStatusAvailable},
	}
	occ := TableOccupancy(tables, sampleOrders())
	require.Len(t, occ, 3)

	assert.Equal(t, 2, occ[0].ActiveOrders)
	assert.Equal(t, 400.0, occ[0].OpenAmount)
	assert.Equal(t, 1, occ[1].ActiveOrders)
	assert.Equal(t, 99.99, occ[1].OpenAmount)
	assert.Equal(t, 0, occ[2].ActiveOrders)
	assert.Equal(t, "t4", occ[2].Table.ID)
}

func TestTableBill(t *testing.T) {
	bill := TableBill("t1", sampleOrders(), 0.05)
	assert.Equal(t, []string{"o1", "o3"}, bill.OrderIDs)
	assert.Equal(t, 400.0, bill.Subtotal)
	assert.Equal(t, 20.0, bill.Tax)
	assert.Equal(t, 420.0, bill.GrandTotal)

	bill = TableBill("t2", sampleOrders(), 0.18)
	assert.Equal(t, 99.99, bill.Subtotal)
	assert.Equal(t, 18.0, bill.Tax)
	assert.Equal(t, 117.99, bill.GrandTotal)

	empty := TableBill("t9", sampleOrders(), 0.05)
	assert.Empty(t, empty.OrderIDs)
	assert.Equal(t, 0.0, empty.GrandTotal)
}
