package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tablesync/internal/models"
	"tablesync/internal/monitoring"
	"tablesync/internal/query"
	"tablesync/internal/store"
	"tablesync/internal/transport"

	"github.com/gin-gonic/gin"
)

// Options configures a Server.
type Options struct {
	Store     *store.Store
	Monitor   *monitoring.Monitor
	Logger    *slog.Logger
	TaxRate   float64
	LateAfter time.Duration
	Clock     func() time.Time
}

// Server exposes one peer's store over HTTP and pushes its changes to
// WebSocket clients on /ws.
type Server struct {
	Router *gin.Engine

	store     *store.Store
	monitor   *monitoring.Monitor
	logger    *slog.Logger
	feed      *transport.Hub
	taxRate   float64
	lateAfter time.Duration
	clock     func() time.Time
}

// NewServer creates the router and registers every route.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.LateAfter <= 0 {
		opts.LateAfter = query.DefaultLateAfter
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		Router:    router,
		store:     opts.Store,
		monitor:   opts.Monitor,
		logger:    opts.Logger,
		feed:      transport.NewFeed(opts.Logger),
		taxRate:   opts.TaxRate,
		lateAfter: opts.LateAfter,
		clock:     opts.Clock,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	s.Router.GET("/health", s.Health)
	s.Router.GET("/ws", gin.WrapH(s.feed))

	v1 := s.Router.Group("/api/v1")
	{
		v1.GET("/snapshot", s.GetSnapshot)
		v1.POST("/bootstrap", s.Bootstrap)
		v1.GET("/stats", s.GetStats)

		// Floor
		v1.GET("/tables", s.ListTables)
		v1.PUT("/tables/:id/status", s.UpdateTableStatus)
		v1.GET("/tables/:id/bill", s.GetTableBill)
		v1.GET("/occupancy", s.GetOccupancy)

		// Menu
		v1.GET("/menu", s.ListMenu)
		v1.PUT("/menu/:id/availability", s.SetMenuAvailability)

		// Orders
		v1.GET("/orders", s.ListOrders)
		v1.POST("/orders", s.CreateOrder)
		v1.PUT("/orders/:id/status", s.UpdateOrderStatus)
		v1.PUT("/orders/:id/notes", s.UpdateOrderNotes)
		v1.GET("/kitchen/tickets", s.GetKitchenTickets)

		// Reservations
		v1.GET("/reservations", s.ListReservations)
		v1.POST("/reservations", s.CreateReservation)
		v1.PUT("/reservations/:id/status", s.UpdateReservationStatus)

		// Inventory
		v1.GET("/inventory", s.ListInventory)
		v1.PUT("/inventory/:id/adjust", s.AdjustInventory)
	}
}

// feedMessage is what /ws clients receive for each change.
type feedMessage struct {
	Collection store.Collection `json:"collection"`
	Origin     store.Origin     `json:"origin"`
	Peer       string           `json:"peer"`
	Seq        uint64           `json:"seq"`
	Data       any              `json:"data"`
}

// StartFeed forwards store changes to /ws clients until ctx is done.
func (s *Server) StartFeed(ctx context.Context) {
	s.store.OnChange(ctx, func(c store.Change) {
		data, err := json.Marshal(feedMessage{
			Collection: c.Collection,
			Origin:     c.Origin,
			Peer:       c.Peer,
			Seq:        c.Seq,
			Data:       c.Data(),
		})
		if err != nil {
			s.logger.Error("failed to encode change", "action", "feed", "collection", string(c.Collection), "error", err)
			return
		}
		s.feed.Broadcast(data)
	})
	go func() {
		<-ctx.Done()
		s.feed.Close()
	}()
}

// writeError maps store errors to status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotInitialized):
		status = http.StatusServiceUnavailable
	case errors.Is(err, models.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case store.IsValidation(err):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "action", "http", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
