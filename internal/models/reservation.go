package models

import (
	"fmt"
	"strings"
	"time"
)

// Reservation represents a booked visit
type Reservation struct {
	ID           string            `json:"id" yaml:"id"`
	CustomerName string            `json:"customer_name" yaml:"customer_name"`
	Phone        string            `json:"phone,omitempty" yaml:"phone,omitempty"`
	RequestedAt  time.Time         `json:"requested_at" yaml:"requested_at"`
	PartySize    int               `json:"party_size" yaml:"party_size"`
	Status       ReservationStatus `json:"status" yaml:"status"`
	TableID      string            `json:"table_id,omitempty" yaml:"table_id,omitempty"`
}

// ReservationStatus represents the status of a reservation
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// ValidateReservation checks the fields a caller must supply.
func ValidateReservation(r *Reservation) error {
	if strings.TrimSpace(r.CustomerName) == "" {
		return fmt.Errorf("%w: customer name is required", ErrInvalidReservation)
	}
	if r.PartySize < 1 {
		return fmt.Errorf("%w: party size must be at least 1", ErrInvalidReservation)
	}
	switch r.Status {
	case "", ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusCancelled:
	default:
		return fmt.Errorf("%w: unknown reservation status %q", ErrInvalidReservation, r.Status)
	}
	return nil
}

// CanMoveTo reports whether a reservation may move from s to next.
func (s ReservationStatus) CanMoveTo(next ReservationStatus) bool {
	switch s {
	case ReservationStatusPending:
		return next == ReservationStatusConfirmed || next == ReservationStatusCancelled
	case ReservationStatusConfirmed:
		return next == ReservationStatusCancelled
	}
	return false
}
