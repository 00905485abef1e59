package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// HotelBooking records a room reservation made through the assistant.
type HotelBooking struct {
	ID        string `json:"booking_id"`
	HotelID   string `json:"hotel_id"`
	HotelName string `json:"hotel_name"`
	RoomType  string `json:"room_type"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	CreatedAt string `json:"created_at"`
}

// TransportBooking records a vehicle hire made through the assistant.
type TransportBooking struct {
	ID              string `json:"booking_id"`
	AgencyName      string `json:"agency_name"`
	VehicleCategory string `json:"vehicle_category"`
	VehicleType     string `json:"vehicle_type"`
	Model           string `json:"model"`
	TripDate        string `json:"trip_date"`
	CreatedAt       string `json:"created_at"`
}

const (
	bookingKindHotel     = "hotel"
	bookingKindTransport = "transport"
)

// SaveHotelBooking appends a hotel booking to the user's booking history.
func (s *Store) SaveHotelBooking(ctx context.Context, userID string, b HotelBooking) (HotelBooking, error) {
	b.ID = uuid.NewString()
	b.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := s.appendBooking(ctx, userID, bookingKindHotel, b); err != nil {
		return HotelBooking{}, err
	}
	return b, nil
}

// SaveTransportBooking appends a transport booking to the user's history.
func (s *Store) SaveTransportBooking(ctx context.Context, userID string, b TransportBooking) (TransportBooking, error) {
	b.ID = uuid.NewString()
	b.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := s.appendBooking(ctx, userID, bookingKindTransport, b); err != nil {
		return TransportBooking{}, err
	}
	return b, nil
}

func (s *Store) appendBooking(ctx context.Context, userID, kind string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal %s booking: %w", kind, err)
	}
	if err := s.rdb.RPush(ctx, bookingsKey(userID, kind), b).Err(); err != nil {
		return fmt.Errorf("store: save %s booking: %w", kind, err)
	}
	return nil
}

// DeleteHotelBooking removes one hotel booking by its booking id.
func (s *Store) DeleteHotelBooking(ctx context.Context, userID, bookingID string) error {
	return s.deleteBooking(ctx, userID, bookingKindHotel, bookingID)
}

// DeleteTransportBooking removes one transport booking by its booking id.
func (s *Store) DeleteTransportBooking(ctx context.Context, userID, bookingID string) error {
	return s.deleteBooking(ctx, userID, bookingKindTransport, bookingID)
}

// deleteBooking finds the list entry carrying the given booking id and
// removes that exact element. Returns ErrNotFound when no entry matches.
func (s *Store) deleteBooking(ctx context.Context, userID, kind, bookingID string) error {
	key := bookingsKey(userID, kind)
	raw, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("store: delete %s booking: %w", kind, err)
	}
	for _, item := range raw {
		var b struct {
			ID string `json:"booking_id"`
		}
		if err := json.Unmarshal([]byte(item), &b); err != nil || b.ID != bookingID {
			continue
		}
		if err := s.rdb.LRem(ctx, key, 1, item).Err(); err != nil {
			return fmt.Errorf("store: delete %s booking: %w", kind, err)
		}
		return nil
	}
	return fmt.Errorf("store: %s booking %s: %w", kind, bookingID, ErrNotFound)
}

// ListHotelBookings returns the user's hotel bookings in creation order.
func (s *Store) ListHotelBookings(ctx context.Context, userID string) ([]HotelBooking, error) {
	raw, err := s.rdb.LRange(ctx, bookingsKey(userID, bookingKindHotel), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("store: list hotel bookings: %w", err)
	}
	out := make([]HotelBooking, 0, len(raw))
	for _, r := range raw {
		var b HotelBooking
		if err := json.Unmarshal([]byte(r), &b); err != nil {
			return nil, fmt.Errorf("store: decode hotel booking: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}

// ListTransportBookings returns the user's transport bookings in creation order.
func (s *Store) ListTransportBookings(ctx context.Context, userID string) ([]TransportBooking, error) {
	raw, err := s.rdb.LRange(ctx, bookingsKey(userID, bookingKindTransport), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("store: list transport bookings: %w", err)
	}
	out := make([]TransportBooking, 0, len(raw))
	for _, r := range raw {
		var b TransportBooking
		if err := json.Unmarshal([]byte(r), &b); err != nil {
			return nil, fmt.Errorf("store: decode transport booking: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}
