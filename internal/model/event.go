package model

import (
	"time"

	"github.com/google/uuid"
)

// Тип доменного события бронирования.
type EventType string

const (
	EventTypeBookingCreated        EventType = "booking_created"
	EventTypeBookingStatusChanged  EventType = "booking_status_changed"
	EventTypeBookingRated          EventType = "booking_rated"
	EventTypeBookingPaymentUpdated EventType = "booking_payment_updated"
)

// Event описывает событие, которое уходит во внешнюю шину после успешной записи.
type Event struct {
	ID        uuid.UUID `json:"id"`
	EventType EventType `json:"event_type"`
	CreatedAt time.Time `json:"created_at"`

	// Кто инициировал изменение.
	UserID *uuid.UUID `json:"user_id,omitempty"`

	BookingID       uuid.UUID     `json:"booking_id"`
	BookingCode     string        `json:"booking_code"`
	ServiceCenterID uuid.UUID     `json:"service_center_id"`
	Status          BookingStatus `json:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status"`

	Details string `json:"details,omitempty"`
}

// NewBookingEvent собирает событие по текущему состоянию бронирования.
func NewBookingEvent(t EventType, b *Booking, userID *uuid.UUID, details string, at time.Time) Event {
	return Event{
		ID:              uuid.New(),
		EventType:       t,
		CreatedAt:       at,
		UserID:          userID,
		BookingID:       b.ID,
		BookingCode:     b.BookingID,
		ServiceCenterID: b.ServiceCenterID,
		Status:          b.Status,
		PaymentStatus:   b.PaymentStatus,
		Details:         details,
	}
}
