package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tablesync/internal/cart"
	"tablesync/internal/models"
	"tablesync/internal/query"

	"github.com/gin-gonic/gin"
)

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"peer":        s.store.PeerID(),
		"initialized": s.store.Initialized(),
	})
}

func (s *Server) GetSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Snapshot())
}

func (s *Server) Bootstrap(c *gin.Context) {
	if err := s.store.FetchInitialData(c.Request.Context()); err != nil {
		s.logger.Error("bootstrap failed", "action", "bootstrap", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"initialized": true})
}

func (s *Server) GetStats(c *gin.Context) {
	stats := s.monitor.GetMetrics()
	snap := s.store.Snapshot()
	stats["peer"] = s.store.PeerID()
	stats["initialized"] = s.store.Initialized()
	stats["tables"] = len(snap.Tables)
	stats["orders"] = len(snap.Orders)
	stats["active_orders"] = len(query.ActiveOrders(snap.Orders))
	stats["feed_clients"] = s.feed.Connections()
	c.JSON(http.StatusOK, stats)
}

// Floor handlers

func (s *Server) ListTables(c *gin.Context) {
	tables := s.store.Snapshot().Tables
	if c.Query("station") == "" {
		c.JSON(http.StatusOK, tables)
		return
	}

	station, err := strconv.Atoi(c.Query("station"))
	if err != nil {
		badRequest(c, errors.New("station must be a number"))
		return
	}
	stations, err := strconv.Atoi(c.DefaultQuery("stations", "1"))
	if err != nil {
		badRequest(c, errors.New("stations must be a number"))
		return
	}
	c.JSON(http.StatusOK, query.StationTables(tables, station, stations))
}

func (s *Server) UpdateTableStatus(c *gin.Context) {
	var req struct {
		Status models.TableStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.store.UpdateTableStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		s.writeError(c, err)
		return
	}
	table, _ := s.store.Snapshot().Table(c.Param("id"))
	c.JSON(http.StatusOK, table)
}

func (s *Server) GetTableBill(c *gin.Context) {
	snap := s.store.Snapshot()
	if _, ok := snap.Table(c.Param("id")); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "table not found"})
		return
	}
	c.JSON(http.StatusOK, query.TableBill(c.Param("id"), snap.Orders, s.taxRate))
}

func (s *Server) GetOccupancy(c *gin.Context) {
	snap := s.store.Snapshot()
	c.JSON(http.StatusOK, query.TableOccupancy(snap.Tables, snap.Orders))
}

// Menu handlers

func (s *Server) ListMenu(c *gin.Context) {
	menu := s.store.Snapshot().Menu
	if category := c.Query("category"); category != "" {
		menu = menu.ByCategory(models.MenuCategory(category))
	}
	c.JSON(http.StatusOK, menu)
}

func (s *Server) SetMenuAvailability(c *gin.Context) {
	var req struct {
		Available *bool `json:"available" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.store.SetMenuItemAvailability(c.Request.Context(), c.Param("id"), *req.Available); err != nil {
		s.writeError(c, err)
		return
	}
	item, _ := s.store.Snapshot().LookupMenuItem(c.Param("id"))
	c.JSON(http.StatusOK, item)
}

// Order handlers

func (s *Server) ListOrders(c *gin.Context) {
	orders := s.store.Snapshot().Orders
	if table := c.Query("table"); table != "" {
		orders = query.OrdersForTables(orders, strings.Split(table, ",")...)
	}
	if status := c.Query("status"); status != "" {
		var statuses []models.OrderStatus
		for _, st := range strings.Split(status, ",") {
			statuses = append(statuses, models.OrderStatus(st))
		}
		orders = query.OrdersByStatus(orders, statuses...)
	}
	if c.Query("active") == "true" {
		orders = query.ActiveOrders(orders)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

type orderLine struct {
	MenuItemID string `json:"menu_item_id" binding:"required"`
	Quantity   int    `json:"quantity"`
	Note       string `json:"note"`
}

// CreateOrder fills a cart from the request lines, priced from the current
// menu, and checks it out against the store.
func (s *Server) CreateOrder(c *gin.Context) {
	var req struct {
		TableID string      `json:"table_id"`
		Items   []orderLine `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if !s.store.Initialized() {
		s.writeError(c, models.ErrNotInitialized)
		return
	}

	snap := s.store.Snapshot()
	basket := cart.New()
	for _, line := range req.Items {
		if err := basket.Add(line.MenuItemID, snap); err != nil {
			s.writeError(c, err)
			return
		}
		if line.Quantity > 1 {
			if err := basket.SetQuantity(line.MenuItemID, line.Quantity-1); err != nil {
				s.writeError(c, err)
				return
			}
		}
		if line.Note != "" {
			if err := basket.SetNote(line.MenuItemID, line.Note); err != nil {
				s.writeError(c, err)
				return
			}
		}
	}

	order, err := basket.Checkout(c.Request.Context(), s.store, req.TableID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) UpdateOrderStatus(c *gin.Context) {
	var req struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.store.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		s.writeError(c, err)
		return
	}
	order, _ := s.store.Snapshot().Order(c.Param("id"))
	c.JSON(http.StatusOK, order)
}

func (s *Server) UpdateOrderNotes(c *gin.Context) {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.store.UpdateOrderNotes(c.Request.Context(), c.Param("id"), req.Notes); err != nil {
		s.writeError(c, err)
		return
	}
	order, _ := s.store.Snapshot().Order(c.Param("id"))
	c.JSON(http.StatusOK, order)
}

func (s *Server) GetKitchenTickets(c *gin.Context) {
	threshold := s.lateAfter
	if v := c.Query("late_after"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			badRequest(c, err)
			return
		}
		threshold = d
	}
	c.JSON(http.StatusOK, query.KitchenTickets(s.store.Snapshot().Orders, s.clock(), threshold))
}

// Reservation handlers

func (s *Server) ListReservations(c *gin.Context) {
	reservations := s.store.Snapshot().Reservations
	if reservations == nil {
		reservations = []models.Reservation{}
	}
	c.JSON(http.StatusOK, reservations)
}

func (s *Server) CreateReservation(c *gin.Context) {
	var req models.Reservation
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	reservation, err := s.store.AddReservation(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reservation)
}

func (s *Server) UpdateReservationStatus(c *gin.Context) {
	var req struct {
		Status models.ReservationStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.store.UpdateReservationStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": req.Status})
}

// Inventory handlers

func (s *Server) ListInventory(c *gin.Context) {
	inventory := s.store.Snapshot().Inventory
	if inventory == nil {
		inventory = []models.InventoryItem{}
	}
	c.JSON(http.StatusOK, inventory)
}

func (s *Server) AdjustInventory(c *gin.Context) {
	var req struct {
		Delta float64 `json:"delta"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	item, err := s.store.AdjustInventory(c.Request.Context(), c.Param("id"), req.Delta)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}
