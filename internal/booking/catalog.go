package booking

import (
	"fmt"
	"strings"

	"github.com/Leganyst/autoservice-booking/internal/model"
)

// ServiceInput описывает услугу каталога, которую заводит администратор.
type ServiceInput struct {
	Name                 string                `json:"name" validate:"required,max=255"`
	Description          string                `json:"description" validate:"max=2000"`
	Category             model.ServiceCategory `json:"category" validate:"required,oneof=maintenance repair inspection detailing tires diagnostics"`
	BasePrice            float64               `json:"base_price" validate:"gte=0"`
	EstimatedDurationMin int64                 `json:"estimated_duration_min"`
	VehicleTypes         []model.VehicleType   `json:"vehicle_types" validate:"unique,dive,oneof=car suv truck van motorcycle"`
	// nil означает активную услугу.
	IsActive *bool `json:"is_active"`
}

// PricingInput переопределяет цену услуги в одном центре.
type PricingInput struct {
	Price       float64 `json:"price" validate:"gte=0"`
	Discount    float64 `json:"discount" validate:"gte=0,lte=100"`
	IsAvailable *bool   `json:"is_available"`
}

// NewService проверяет запрос и собирает запись каталога.
func NewService(in *ServiceInput) (*model.Service, error) {
	in.Name = strings.TrimSpace(in.Name)
	verr := validateStruct(in)
	if in.EstimatedDurationMin < model.MinServiceDurationMin {
		verr.add("estimated_duration_min", fmt.Sprintf("must be at least %d minutes", model.MinServiceDurationMin))
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	active := in.IsActive == nil || *in.IsActive
	return &model.Service{
		Name:                 in.Name,
		Description:          in.Description,
		Category:             in.Category,
		BasePrice:            RoundAmount(in.BasePrice),
		EstimatedDurationMin: in.EstimatedDurationMin,
		VehicleTypes:         in.VehicleTypes,
		IsActive:             active,
	}, nil
}

// NewPricing проверяет переопределение цены и собирает запись для центра.
func NewPricing(svc *model.Service, center *model.ServiceCenter, in *PricingInput) (*model.ServicePricing, error) {
	if err := validateStruct(in).orNil(); err != nil {
		return nil, err
	}
	return &model.ServicePricing{
		ServiceID:       svc.ID,
		ServiceCenterID: center.ID,
		Price:           RoundAmount(in.Price),
		Discount:        in.Discount,
		IsAvailable:     in.IsAvailable == nil || *in.IsAvailable,
	}, nil
}
