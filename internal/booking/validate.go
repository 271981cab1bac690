package booking

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Leganyst/autoservice-booking/internal/model"
)

const (
	MinVehicleYear         = 1900
	MaxInstructionsLen     = 500
	MaxCancellationLen     = 500
	MaxReviewLen           = 1000
	MinRatingScore         = 1
	MaxRatingScore         = 5
	MaxServicesPerBooking  = 20
	creationTimelineRemark = "Booking created"
)

type VehicleInput struct {
	Make         string            `json:"make" validate:"required,max=50"`
	Model        string            `json:"model" validate:"required,max=50"`
	Year         int               `json:"year" validate:"required"`
	Type         model.VehicleType `json:"type" validate:"required,oneof=car suv truck van motorcycle"`
	LicensePlate string            `json:"license_plate" validate:"required,max=20"`
	Color        string            `json:"color" validate:"omitempty,max=30"`
	Mileage      int64             `json:"mileage" validate:"gte=0"`
}

type CoordinatesInput struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

type PickupInput struct {
	Type         model.PickupType  `json:"type" validate:"required,oneof=service_center customer_location"`
	Address      string            `json:"address" validate:"required_if=Type customer_location,max=500"`
	Coordinates  *CoordinatesInput `json:"coordinates"`
	Instructions string            `json:"instructions" validate:"max=500"`
}

// CreateInput описывает запрос на создание бронирования.
type CreateInput struct {
	CustomerID        uuid.UUID    `json:"customer_id"`
	ServiceCenterID   uuid.UUID    `json:"service_center_id" validate:"required"`
	ServiceIDs        []uuid.UUID  `json:"service_ids" validate:"required,min=1,max=20,unique"`
	Vehicle           VehicleInput `json:"vehicle"`
	ScheduledDateTime time.Time    `json:"scheduled_date_time" validate:"required"`
	PickupLocation    PickupInput  `json:"pickup_location"`
}

type RatingInput struct {
	Score  int    `json:"score" validate:"gte=1,lte=5"`
	Review string `json:"review" validate:"max=1000"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct переводит ошибки validator в ValidationError с путями полей.
func validateStruct(s any) *ValidationError {
	verr := &ValidationError{}
	err := validate.Struct(s)
	if err == nil {
		return verr
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.add("request", err.Error())
		return verr
	}
	for _, fe := range fieldErrs {
		verr.add(fieldPath(fe.Namespace()), describe(fe))
	}
	return verr
}

func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "unique":
		return "must not contain duplicates"
	default:
		return fmt.Sprintf("failed on %q", fe.Tag())
	}
}

// NormalizeLicensePlate приводит номер к верхнему регистру без пробелов по краям.
func NormalizeLicensePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// ValidateCreate проверяет форму запроса и нормализует его.
// Дата записи проверяется один раз, здесь, и больше не перепроверяется.
func ValidateCreate(in *CreateInput, now time.Time) error {
	in.Vehicle.LicensePlate = NormalizeLicensePlate(in.Vehicle.LicensePlate)
	in.Vehicle.Make = strings.TrimSpace(in.Vehicle.Make)
	in.Vehicle.Model = strings.TrimSpace(in.Vehicle.Model)
	in.PickupLocation.Address = strings.TrimSpace(in.PickupLocation.Address)

	verr := validateStruct(in)

	if in.CustomerID == uuid.Nil {
		verr.add("customer_id", "is required")
	}
	if !in.ScheduledDateTime.IsZero() && !in.ScheduledDateTime.After(now) {
		verr.add("scheduled_date_time", "must be in the future")
	}
	if in.Vehicle.Year != 0 {
		maxYear := now.Year() + 1
		if in.Vehicle.Year < MinVehicleYear || in.Vehicle.Year > maxYear {
			verr.add("vehicle.year", fmt.Sprintf("must be between %d and %d", MinVehicleYear, maxYear))
		}
	}
	return verr.orNil()
}

func (in *CreateInput) vehicleSnapshot() model.Vehicle {
	return model.Vehicle{
		Make:         in.Vehicle.Make,
		Model:        in.Vehicle.Model,
		Year:         in.Vehicle.Year,
		Type:         in.Vehicle.Type,
		LicensePlate: in.Vehicle.LicensePlate,
		Color:        strings.TrimSpace(in.Vehicle.Color),
		Mileage:      in.Vehicle.Mileage,
	}
}

func (in *CreateInput) pickupLocation() model.PickupLocation {
	loc := model.PickupLocation{
		Type:         in.PickupLocation.Type,
		Instructions: strings.TrimSpace(in.PickupLocation.Instructions),
	}
	if in.PickupLocation.Type == model.PickupTypeCustomerLocation {
		loc.Address = in.PickupLocation.Address
		if c := in.PickupLocation.Coordinates; c != nil {
			loc.Coordinates = &model.Coordinates{Lat: c.Lat, Lng: c.Lng}
		}
	}
	return loc
}
