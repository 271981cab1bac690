package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusNoShow     BookingStatus = "no_show"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type VehicleType string

const (
	VehicleTypeCar        VehicleType = "car"
	VehicleTypeSUV        VehicleType = "suv"
	VehicleTypeTruck      VehicleType = "truck"
	VehicleTypeVan        VehicleType = "van"
	VehicleTypeMotorcycle VehicleType = "motorcycle"
)

// Тип точки, где забирают машину.
type PickupType string

const (
	PickupTypeServiceCenter    PickupType = "service_center"
	PickupTypeCustomerLocation PickupType = "customer_location"
)

// LineItem хранит одну выбранную услугу с ценой, зафиксированной на момент записи.
type LineItem struct {
	ServiceID   uuid.UUID `json:"service_id" bson:"service_id"`
	ServiceName string    `json:"service_name" bson:"service_name"`
	Price       float64   `json:"price" bson:"price"`
	Discount    float64   `json:"discount" bson:"discount"` // проценты, 0..100
	FinalPrice  float64   `json:"final_price" bson:"final_price"`
	DurationMin int64     `json:"duration_min" bson:"duration_min"`
}

// Vehicle хранит снимок автомобиля клиента, а не ссылку.
type Vehicle struct {
	Make         string      `json:"make" bson:"make"`
	Model        string      `json:"model" bson:"model"`
	Year         int         `json:"year" bson:"year"`
	Type         VehicleType `json:"type" bson:"type"`
	LicensePlate string      `json:"license_plate" bson:"license_plate"`
	Color        string      `json:"color,omitempty" bson:"color,omitempty"`
	Mileage      int64       `json:"mileage" bson:"mileage"`
}

type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

type PickupLocation struct {
	Type         PickupType   `json:"type" bson:"type"`
	Address      string       `json:"address,omitempty" bson:"address,omitempty"`
	Coordinates  *Coordinates `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
	Instructions string       `json:"instructions,omitempty" bson:"instructions,omitempty"`
}

type Rating struct {
	Score      int       `json:"score" bson:"score"`
	Review     string    `json:"review,omitempty" bson:"review,omitempty"`
	ReviewDate time.Time `json:"review_date" bson:"review_date"`
}

// booking_timeline_entries: журнал смен статуса, только append.
type TimelineEntry struct {
	ID        uint          `json:"-" bson:"-" gorm:"primaryKey;autoIncrement"`
	BookingID uuid.UUID     `json:"-" bson:"-" gorm:"type:uuid;not null;index:idx_timeline_booking_seq,priority:1"`
	Seq       int           `json:"seq" bson:"seq" gorm:"not null;index:idx_timeline_booking_seq,priority:2"`
	Status    BookingStatus `json:"status" bson:"status" gorm:"type:varchar(32);not null"`
	Timestamp time.Time     `json:"timestamp" bson:"timestamp" gorm:"not null"`
	UpdatedBy *uuid.UUID    `json:"updated_by,omitempty" bson:"updated_by,omitempty" gorm:"type:uuid"`
	Notes     string        `json:"notes,omitempty" bson:"notes,omitempty" gorm:"type:text"`
}

func (TimelineEntry) TableName() string {
	return "booking_timeline_entries"
}

// bookings
type Booking struct {
	ID        uuid.UUID `json:"id" bson:"_id" gorm:"type:uuid;primaryKey"`
	BookingID string    `json:"booking_id" bson:"booking_id" gorm:"type:varchar(40);not null;uniqueIndex"`

	CustomerID      uuid.UUID `json:"customer_id" bson:"customer_id" gorm:"type:uuid;not null;index"`
	ServiceCenterID uuid.UUID `json:"service_center_id" bson:"service_center_id" gorm:"type:uuid;not null;index"`

	LineItems      []LineItem     `json:"line_items" bson:"line_items" gorm:"type:text;serializer:json;not null"`
	Vehicle        Vehicle        `json:"vehicle" bson:"vehicle" gorm:"type:text;serializer:json;not null"`
	PickupLocation PickupLocation `json:"pickup_location" bson:"pickup_location" gorm:"type:text;serializer:json;not null"`

	ScheduledDateTime       time.Time  `json:"scheduled_date_time" bson:"scheduled_date_time" gorm:"not null;index"`
	EstimatedCompletionTime *time.Time `json:"estimated_completion_time,omitempty" bson:"estimated_completion_time,omitempty"`
	ActualCompletionTime    *time.Time `json:"actual_completion_time,omitempty" bson:"actual_completion_time,omitempty"`

	Status        BookingStatus `json:"status" bson:"status" gorm:"type:varchar(32);not null;index"`
	PaymentStatus PaymentStatus `json:"payment_status" bson:"payment_status" gorm:"type:varchar(32);not null;index"`
	TotalAmount   float64       `json:"total_amount" bson:"total_amount" gorm:"type:decimal(12,2);not null"`

	Rating *Rating `json:"rating,omitempty" bson:"rating,omitempty" gorm:"type:text;serializer:json"`

	CancellationReason string     `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty" gorm:"type:varchar(500)"`
	CancelledBy        *uuid.UUID `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty" gorm:"type:uuid"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`

	Timeline []TimelineEntry `json:"timeline" bson:"timeline" gorm:"foreignKey:BookingID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`

	CreatedAt time.Time `json:"created_at" bson:"created_at" gorm:"not null;index"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at" gorm:"not null"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// LastTimelineEntry возвращает последнюю запись журнала или nil.
func (b *Booking) LastTimelineEntry() *TimelineEntry {
	if len(b.Timeline) == 0 {
		return nil
	}
	return &b.Timeline[len(b.Timeline)-1]
}
