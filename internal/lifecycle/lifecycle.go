// Package lifecycle governs legal order status moves and the side effects
// each move asks the engine to carry out.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tablesync/internal/models"
)

var successor = map[models.OrderStatus]models.OrderStatus{
	models.OrderStatusPending:   models.OrderStatusPreparing,
	models.OrderStatusPreparing: models.OrderStatusReady,
	models.OrderStatusReady:     models.OrderStatusServed,
	models.OrderStatusServed:    models.OrderStatusPaid,
}

// Order lists every status in workflow order.
var Order = []models.OrderStatus{
	models.OrderStatusPending,
	models.OrderStatusPreparing,
	models.OrderStatusReady,
	models.OrderStatusServed,
	models.OrderStatusPaid,
}

// Effect describes what the engine must do after a transition commits.
type Effect struct {
	// NotifyService is set when food is ready for the table's staff.
	NotifyService bool
	// TableMayFree is set on payment; the engine decides whether it was the
	// table's last open order. Freeing the table stays an administrative action.
	TableMayFree bool
}

// Notifier is told when an order becomes ready.
type Notifier interface {
	NotifyReady(ctx context.Context, order models.Order) error
}

// Next returns the single legal successor of status.
func Next(status models.OrderStatus) (models.OrderStatus, bool) {
	next, ok := successor[status]
	return next, ok
}

// Valid reports whether status is part of the workflow.
func Valid(status models.OrderStatus) bool {
	return Rank(status) >= 0
}

// Rank returns the position of status in the workflow, or -1.
func Rank(status models.OrderStatus) int {
	for i, s := range Order {
		if s == status {
			return i
		}
	}
	return -1
}

// IsTerminal reports whether no move is possible out of status.
func IsTerminal(status models.OrderStatus) bool {
	return status == models.OrderStatusPaid
}

// CanTransition reports whether to is the immediate successor of from.
func CanTransition(from, to models.OrderStatus) bool {
	next, ok := successor[from]
	return ok && next == to
}

// Transition returns a copy of order moved to next. The input is not modified.
func Transition(order models.Order, next models.OrderStatus, now time.Time) (models.Order, Effect, error) {
	if !CanTransition(order.Status, next) {
		return models.Order{}, Effect{}, fmt.Errorf("%w: order %s cannot move from %q to %q",
			models.ErrInvalidTransition, order.ID, order.Status, next)
	}

	updated := order.Clone()
	updated.Status = next
	updated.UpdatedAt = now

	var effect Effect
	switch next {
	case models.OrderStatusReady:
		effect.NotifyService = true
	case models.OrderStatusPaid:
		effect.TableMayFree = true
	}
	return updated, effect, nil
}

// LogNotifier reports ready orders through a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// NotifyReady logs the ready order for the table's service staff.
func (n LogNotifier) NotifyReady(ctx context.Context, order models.Order) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "order ready for service",
		"action", "order_ready",
		"order_id", order.ID,
		"table_id", order.TableID,
		"items", len(order.Items),
	)
	return nil
}
