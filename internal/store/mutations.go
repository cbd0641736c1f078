package store

import (
	"context"
	"fmt"

	"tablesync/internal/lifecycle"
	"tablesync/internal/models"
)

// PlaceOrder creates a pending order for the table from the given items and
// marks the table occupied. Item prices are taken as given: they are the
// snapshot captured when the item was added to the cart.
func (s *Store) PlaceOrder(ctx context.Context, tableID string, items []models.OrderItem) (models.Order, error) {
	if tableID == "" {
		s.metrics.RecordMutation("place_order", models.ErrNoTableSelected)
		return models.Order{}, models.ErrNoTableSelected
	}
	if len(items) == 0 {
		s.metrics.RecordMutation("place_order", models.ErrEmptyCart)
		return models.Order{}, models.ErrEmptyCart
	}

	var placed models.Order
	err := s.apply(ctx, "place_order", func(cur *Snapshot) (*Snapshot, []Collection, error) {
		ti := cur.tableIndex(tableID)
		if ti < 0 {
			return nil, nil, notFound("table", tableID)
		}

		lines := make([]models.OrderItem, len(items))
		for i, item := range items {
			mi := cur.menuIndex(item.MenuItemID)
			if mi < 0 {
				return nil, nil, notFound("menu item", item.MenuItemID)
			}
			if !cur.Menu[mi].Available {
				return nil, nil, fmt.Errorf("menu item %s: %w", item.MenuItemID, models.ErrItemUnavailable)
			}
			if item.Quantity < 1 {
				item.Quantity = 1
			}
			lines[i] = item
		}

		now := s.clock()
		placed = models.Order{
			ID:          s.newID(),
			TableID:     tableID,
			Items:       lines,
			Status:      models.OrderStatusPending,
			TotalAmount: models.SumItems(lines),
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		next := *cur
		next.Orders = append(append(make([]models.Order, 0, len(cur.Orders)+1), cur.Orders...), placed)
		changed := []Collection{CollectionOrders}

		if cur.Tables[ti].Status != models.TableStatusOccupied {
			next.Tables = append([]models.Table(nil), cur.Tables...)
			next.Tables[ti].Status = models.TableStatusOccupied
			changed = append(changed, CollectionTables)
		}
		return &next, changed, nil
	})
	if err != nil {
		return models.Order{}, err
	}

	s.logger.Info("order placed",
		"action", "place_order",
		"order_id", placed.ID,
		"table_id", placed.TableID,
		"total", placed.TotalAmount,
	)
	return placed.Clone(), nil
}

// UpdateOrderStatus moves an order to the next workflow status. Any move other
// than to the immediate successor, or on an unknown order, is rejected with
// ErrInvalidTransition.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, next models.OrderStatus) error {
	var (
		from      models.OrderStatus
		updated   models.Order
		effect    lifecycle.Effect
		tableFree bool
	)

	err := s.apply(ctx, "update_order_status", func(cur *Snapshot) (*Snapshot, []Collection, error) {
		oi := cur.orderIndex(orderID)
		if oi < 0 {
			return nil, nil, fmt.Errorf("order %s: %w: %w", orderID, models.ErrNotFound, models.ErrInvalidTransition)
		}

		from = cur.Orders[oi].Status
		var err error
		updated, effect, err = lifecycle.Transition(cur.Orders[oi], next, s.clock())
		if err != nil {
			return nil, nil, err
		}

		snap := *cur
		snap.Orders = append([]models.Order(nil), cur.Orders...)
		snap.Orders[oi] = updated

		if effect.TableMayFree {
			tableFree = !snap.hasActiveOrders(updated.TableID, updated.ID)
		}
		return &snap, []Collection{CollectionOrders}, nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordTransition(string(from), string(next))
	s.logger.Info("order status updated",
		"action", "update_order_status",
		"order_id", orderID,
		"from", string(from),
		"to", string(next),
	)

	if effect.NotifyService && s.notifier != nil {
		if err := s.notifier.NotifyReady(ctx, updated); err != nil {
			s.logger.Warn("failed to notify service staff", "action", "notify_ready", "order_id", orderID, "error", err)
		}
	}
	if tableFree {
		s.logger.Info("table has no open orders and may be marked available",
			"action", "table_may_free", "table_id", updated.TableID)
	}
	return nil
}

// UpdateOrderNotes replaces the order-level notes. Notes are informational and
// may change in any status, including paid.
func (s *Store) UpdateOrderNotes(ctx context.Context, orderID, text string) error {
	return s.apply(ctx, "update_order_notes", func(cur *Snapshot) (*Snapshot, []Collection, error) {
		oi := cur.orderIndex(orderID)
		if oi < 0 {
			return nil, nil, notFound("order", orderID)
		}

		updated := cur.Orders[oi].Clone()
		updated.Notes = text
		updated.UpdatedAt = s.clock()

		next := *cur
		next.Orders = append([]models.Order(nil), cur.Orders...)
		next.Orders[oi] = updated
		return &next, []Collection{CollectionOrders}, nil
	})
}

// UpdateTableStatus applies a manual table status. Occupied is derived from
// order activity and cannot be set by hand; Available is refused while the
// table still has unpaid orders.
func (s *Store) UpdateTableStatus(ctx context.Context, tableID string, status models.TableStatus) error {
	if !status.Valid() {
		s.metrics.RecordMutation("update_table_status", models.ErrInvalidStatus)
		return fmt.Errorf("%w: table status %q", models.ErrInvalidStatus, status)
	}
	if status == models.TableStatusOccupied {
		s.metrics.RecordMutation("update_table_status", models.ErrInvalidStatus)
		return fmt.Errorf("%w: occupied is set by placing an order", models.ErrInvalidStatus)
	}

	return s.apply(ctx, "update_table_status", func(cur *Snapshot) (*Snapshot, []Collection, error) {
		ti := cur.tableIndex(tableID)
		if ti < 0 {
			return nil, nil, notFound("table", tableID)
		}
		if status == models.TableStatusAvailable && cur.hasActiveOrders(tableID, "") {
			return nil, nil, fmt.Errorf("%w: table %s still has unpaid orders", models.ErrInvalidTransition, tableID)
		}
		if cur.Tables[ti].Status == status {
			return cur, nil, nil
		}

		next := *cur
		next.Tables = append([]models.Table(nil), cur.Tables...)
		next.Tables[ti].Status = status
		return &next, []Collection{CollectionTables}, nil
	})
}

// AddReservation records a reservation. An empty id is assigned and an empty
// status defaults to pending.
func (s *Store) AddReservation(ctx context.Context, r models.Reservation) (models.Reservation, error) {
	if err := models.ValidateReservation(&r); err != nil {
		s.metrics.RecordMutation("add_reservation", err)
		return models.Reservation{}, err
	}

	err := s.apply(ctx, "add_reservation", func(cur *Snapshot) (*Snapshot, []Collection, error) {
		if r.TableID != "" && cur.tableIndex(r.TableID) < 0 {
			return nil, nil, notFound("table", r.TableID)
		}
		if r.ID == "" {
			r.ID = s.newID()
		} else if cur.reservationIndex(r.ID) >= 0 {
			return nil, nil, fmt.Errorf("%w: reservation %s already exists", models.ErrInvalidReservation, r.ID)
		}
		if r.Status == "" {
			r.Status = models.ReservationStatusPending
		}

		next := *cur
		next.Reservations = append(append(make([]models.Reservation, 0, len(cur.Reservations)+1), cur.Reservations...), r)
		return &next, []Collection{CollectionReservations}, nil
	})
	if err != nil {
		return models.Reservation{}, err
	}
	return r, nil
}

// UpdateReservationStatus confirms or cancels a reservation.
func (s *Store) UpdateReservationStatus(ctx context.Context, id string, status models.ReservationStatus) error {
	return s.apply(ctx, "update_reservation_status", func(cur *Snapshot) (*Snapshot, []Collection, error) {
		ri := cur.reservationIndex(id)
		if ri < 0 {
			return nil, nil, notFound("reservation", id)
		}
		from := cur.Reservations[ri].Status
		if !from.CanMoveTo(status) {
			return nil, nil, fmt.Errorf("%w: reservation %s cannot move from %q to %q",
				models.ErrInvalidTransition, id, from, status)
		}

		next := *cur
		next.Reservations = append([]models.Reservation(nil), cur.Reservations...)
		next.Reservations[ri].Status = status
		return &next, []Collection{CollectionReservations}, nil
	})
}

// SetMenuItemAvailability toggles whether an item can be ordered. Orders
// already placed keep their items.
func (s *Store) SetMenuItemAvailability(ctx context.Context, id string, available bool) error {
	return s.apply(ctx, "set_menu_availability", func(cur *Snapshot) (*Snapshot, []Collection, error) {
		mi := cur.menuIndex(id)
		if mi < 0 {
			return nil, nil, notFound("menu item", id)
		}
		if cur.Menu[mi].Available == available {
			return cur, nil, nil
		}

		next := *cur
		next.Menu = append(models.Menu(nil), cur.Menu...)
		next.Menu[mi].Available = available
		return &next, []Collection{CollectionMenu}, nil
	})
}

// AdjustInventory changes a stock quantity by delta, never below zero, and
// recomputes the item's status.
func (s *Store) AdjustInventory(ctx context.Context, id string, delta float64) (models.InventoryItem, error) {
	var adjusted models.InventoryItem
	err := s.apply(ctx, "adjust_inventory", func(cur *Snapshot) (*Snapshot, []Collection, error) {
		ii := cur.inventoryIndex(id)
		if ii < 0 {
			return nil, nil, notFound("inventory item", id)
		}

		adjusted = cur.Inventory[ii]
		adjusted.Quantity = max(0, adjusted.Quantity+delta)
		adjusted.Status = adjusted.DeriveStatus()

		next := *cur
		next.Inventory = append([]models.InventoryItem(nil), cur.Inventory...)
		next.Inventory[ii] = adjusted
		return &next, []Collection{CollectionInventory}, nil
	})
	if err != nil {
		return models.InventoryItem{}, err
	}
	return adjusted, nil
}
