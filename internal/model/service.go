package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceCategory string

const (
	ServiceCategoryMaintenance ServiceCategory = "maintenance"
	ServiceCategoryRepair      ServiceCategory = "repair"
	ServiceCategoryInspection  ServiceCategory = "inspection"
	ServiceCategoryDetailing   ServiceCategory = "detailing"
	ServiceCategoryTires       ServiceCategory = "tires"
	ServiceCategoryDiagnostics ServiceCategory = "diagnostics"
)

// MinServiceDurationMin: минимальная длительность услуги в минутах.
const MinServiceDurationMin = 15

// services
type Service struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`

	Name        string          `json:"name" gorm:"type:varchar(255);not null"`
	Description string          `json:"description,omitempty" gorm:"type:text"`
	Category    ServiceCategory `json:"category" gorm:"type:varchar(32);not null;index"`

	BasePrice float64 `json:"base_price" gorm:"type:decimal(12,2);not null"`
	// В минутах, не меньше MinServiceDurationMin.
	EstimatedDurationMin int64 `json:"estimated_duration_min" gorm:"not null"`

	// Пустой список: услуга доступна для любого типа машины.
	VehicleTypes datatypes.JSONSlice[VehicleType] `json:"vehicle_types"`

	IsActive bool `json:"is_active" gorm:"not null;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Pricing []ServicePricing `json:"pricing,omitempty" gorm:"foreignKey:ServiceID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (s *Service) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ErrInvalidService: запись каталога нарушает ограничения на цену или длительность.
var ErrInvalidService = errors.New("invalid service")

// BeforeSave не даёт записать в каталог отрицательную цену или слишком короткую услугу.
func (s *Service) BeforeSave(tx *gorm.DB) error {
	if s.BasePrice < 0 {
		return fmt.Errorf("%w: base price %.2f is negative", ErrInvalidService, s.BasePrice)
	}
	if s.EstimatedDurationMin < MinServiceDurationMin {
		return fmt.Errorf("%w: duration %d min is below %d", ErrInvalidService, s.EstimatedDurationMin, MinServiceDurationMin)
	}
	return nil
}

// SupportsVehicle сообщает, можно ли оказать услугу машине данного типа.
func (s *Service) SupportsVehicle(t VehicleType) bool {
	if len(s.VehicleTypes) == 0 {
		return true
	}
	for _, vt := range s.VehicleTypes {
		if vt == t {
			return true
		}
	}
	return false
}

// service_centers: сервисные центры (бывшие провайдеры).
type ServiceCenter struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`

	Name    string `json:"name" gorm:"type:varchar(255);not null"`
	Address string `json:"address" gorm:"type:text"`
	Phone   string `json:"phone,omitempty" gorm:"type:varchar(32)"`

	// Число постов, 0 без ограничения.
	Capacity int `json:"capacity" gorm:"not null;default:0"`

	// Часы работы по дням недели, например {"mon": "09:00-18:00"}.
	OperatingHours datatypes.JSONMap `json:"operating_hours,omitempty"`

	IsActive bool `json:"is_active" gorm:"not null;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *ServiceCenter) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// service_pricing: переопределение цены услуги для конкретного центра.
type ServicePricing struct {
	ServiceID       uuid.UUID `json:"service_id" gorm:"type:uuid;primaryKey"`
	ServiceCenterID uuid.UUID `json:"service_center_id" gorm:"type:uuid;primaryKey"`

	Price       float64 `json:"price" gorm:"type:decimal(12,2);not null"`
	Discount    float64 `json:"discount" gorm:"type:decimal(5,2);not null;default:0"`
	IsAvailable bool    `json:"is_available" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ServiceCenter *ServiceCenter `json:"-" gorm:"foreignKey:ServiceCenterID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (ServicePricing) TableName() string {
	return "service_pricing"
}

// CenterPrice содержит итоговую цену услуги в центре.
type CenterPrice struct {
	ServiceID   uuid.UUID `json:"service_id"`
	ServiceName string    `json:"service_name"`
	BasePrice   float64   `json:"base_price"`
	Discount    float64   `json:"discount"`
	FinalPrice  float64   `json:"final_price"`
	IsAvailable bool      `json:"is_available"`
	DurationMin int64     `json:"duration_min"`
}
