// Package query derives read-only views from snapshot collections. Every
// function copies what it returns and never modifies its inputs.
package query

import (
	"math"
	"slices"
	"strings"
	"time"

	"tablesync/internal/lifecycle"
	"tablesync/internal/models"
)

// DefaultLateAfter is how long an order may wait before it counts as late.
const DefaultLateAfter = 15 * time.Minute

// OrdersForTables returns the orders placed on any of the given tables.
func OrdersForTables(orders []models.Order, tableIDs ...string) []models.Order {
	return filter(orders, func(o models.Order) bool {
		return slices.Contains(tableIDs, o.TableID)
	})
}

// OrdersForTable returns the orders of one table, as a guest device shows them.
func OrdersForTable(orders []models.Order, tableID string) []models.Order {
	return OrdersForTables(orders, tableID)
}

// OrdersByStatus returns the orders in any of the given statuses.
func OrdersByStatus(orders []models.Order, statuses ...models.OrderStatus) []models.Order {
	return filter(orders, func(o models.Order) bool {
		return slices.Contains(statuses, o.Status)
	})
}

// ActiveOrders returns the orders that are not paid yet.
func ActiveOrders(orders []models.Order) []models.Order {
	return filter(orders, models.Order.IsActive)
}

func filter(orders []models.Order, keep func(models.Order) bool) []models.Order {
	out := make([]models.Order, 0)
	for _, o := range orders {
		if keep(o) {
			out = append(out, o.Clone())
		}
	}
	return out
}

// StationTables splits the tables, sorted by id, into stations contiguous
// groups and returns group number station (1-based). Earlier groups take the
// remainder, so sizes differ by at most one. An out-of-range station gets no
// tables.
func StationTables(tables []models.Table, station, stations int) []models.Table {
	if stations < 1 || station < 1 || station > stations {
		return []models.Table{}
	}

	sorted := slices.Clone(tables)
	slices.SortFunc(sorted, func(a, b models.Table) int {
		return strings.Compare(a.ID, b.ID)
	})

	size, extra := len(sorted)/stations, len(sorted)%stations
	start := (station-1)*size + min(station-1, extra)
	end := start + size
	if station <= extra {
		end++
	}
	return append([]models.Table{}, sorted[start:end]...)
}

// Elapsed returns how long the order has been open at now.
func Elapsed(order models.Order, now time.Time) time.Duration {
	if order.CreatedAt.IsZero() || now.Before(order.CreatedAt) {
		return 0
	}
	return now.Sub(order.CreatedAt)
}

// IsLate reports whether the order has waited longer than threshold without
// reaching ready. A non-positive threshold uses DefaultLateAfter.
func IsLate(order models.Order, now time.Time, threshold time.Duration) bool {
	if threshold <= 0 {
		threshold = DefaultLateAfter
	}
	if lifecycle.Rank(order.Status) >= lifecycle.Rank(models.OrderStatusReady) {
		return false
	}
	return Elapsed(order, now) > threshold
}

// Ticket is the kitchen view of an order.
type Ticket struct {
	OrderID string             `json:"order_id"`
	TableID string             `json:"table_id"`
	Status  models.OrderStatus `json:"status"`
	Items   []models.OrderItem `json:"items"`
	Notes   string             `json:"notes,omitempty"`
	Elapsed time.Duration      `json:"elapsed"`
	Late    bool               `json:"late"`
}

// KitchenTickets lists pending and preparing orders, oldest first.
func KitchenTickets(orders []models.Order, now time.Time, threshold time.Duration) []Ticket {
	open := OrdersByStatus(orders, models.OrderStatusPending, models.OrderStatusPreparing)
	slices.SortStableFunc(open, func(a, b models.Order) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	tickets := make([]Ticket, len(open))
	for i, o := range open {
		tickets[i] = Ticket{
			OrderID: o.ID,
			TableID: o.TableID,
			Status:  o.Status,
			Items:   o.Items,
			Notes:   o.Notes,
			Elapsed: Elapsed(o, now),
			Late:    IsLate(o, now, threshold),
		}
	}
	return tickets
}

// Occupancy is the floor view of one table.
type Occupancy struct {
	Table        models.Table `json:"table"`
	ActiveOrders int          `json:"active_orders"`
	OpenAmount   float64      `json:"open_amount"`
}

// TableOccupancy pairs every table with its unpaid orders, in table order.
func TableOccupancy(tables []models.Table, orders []models.Order) []Occupancy {
	out := make([]Occupancy, len(tables))
	for i, t := range tables {
		out[i].Table = t
		for _, o := range orders {
			if o.TableID == t.ID && o.IsActive() {
				out[i].ActiveOrders++
				out[i].OpenAmount += o.TotalAmount
			}
		}
		out[i].OpenAmount = roundCents(out[i].OpenAmount)
	}
	return out
}

// Bill is the aggregate of a table's unpaid orders.
type Bill struct {
	TableID    string   `json:"table_id"`
	OrderIDs   []string `json:"order_ids"`
	Subtotal   float64  `json:"subtotal"`
	TaxRate    float64  `json:"tax_rate"`
	Tax        float64  `json:"tax"`
	GrandTotal float64  `json:"grand_total"`
}

// TableBill totals the table's unpaid orders. Amounts are rounded to cents.
func TableBill(tableID string, orders []models.Order, taxRate float64) Bill {
	bill := Bill{TableID: tableID, TaxRate: taxRate, OrderIDs: []string{}}
	for _, o := range orders {
		if o.TableID != tableID || !o.IsActive() {
			continue
		}
		bill.OrderIDs = append(bill.OrderIDs, o.ID)
		bill.Subtotal += o.TotalAmount
	}
	bill.Subtotal = roundCents(bill.Subtotal)
	bill.Tax = roundCents(bill.Subtotal * taxRate)
	bill.GrandTotal = roundCents(bill.Subtotal + bill.Tax)
	return bill
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
