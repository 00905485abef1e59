package main

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/exson6969/xplorer/pkg/natsutil"
)

// NATS subjects for downstream consumers (notifications, analytics).
const (
	subjectTripOptimized  = "xplorer.trips.optimized"
	subjectBookingCreated = "xplorer.bookings.created"
)

// TripOptimizedEvent is published after every itinerary request.
type TripOptimizedEvent struct {
	UserID            string  `json:"user_id,omitempty"`
	Status            string  `json:"status"`
	Days              int     `json:"days"`
	TotalRoadTimeMins float64 `json:"total_road_time_mins"`
}

// BookingCreatedEvent is published after a booking is stored.
type BookingCreatedEvent struct {
	UserID    string `json:"user_id"`
	Kind      string `json:"kind"` // hotel or transport
	BookingID string `json:"booking_id"`
}

// Events publishes domain events. A nil *Events drops everything, so callers
// never need to branch on whether NATS is configured.
type Events struct {
	nc *nats.Conn
}

func NewEvents(nc *nats.Conn) *Events { return &Events{nc: nc} }

func (e *Events) TripOptimized(ctx context.Context, ev TripOptimizedEvent) error {
	if e == nil || e.nc == nil {
		return nil
	}
	return natsutil.Publish(ctx, e.nc, subjectTripOptimized, ev)
}

func (e *Events) BookingCreated(ctx context.Context, ev BookingCreatedEvent) error {
	if e == nil || e.nc == nil {
		return nil
	}
	return natsutil.Publish(ctx, e.nc, subjectBookingCreated, ev)
}
