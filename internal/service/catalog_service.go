package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Leganyst/autoservice-booking/internal/booking"
	"github.com/Leganyst/autoservice-booking/internal/calendar"
	"github.com/Leganyst/autoservice-booking/internal/model"
	"github.com/Leganyst/autoservice-booking/internal/repository"
)

// CatalogService: справочник услуг и центров. Ядро бронирований его только читает, правит администратор.
type CatalogService struct {
	services repository.ServiceRepository
	centers  repository.ServiceCenterRepository
}

func NewCatalogService(services repository.ServiceRepository, centers repository.ServiceCenterRepository) *CatalogService {
	return &CatalogService{services: services, centers: centers}
}

// ServiceQuery задаёт параметры выборки каталога.
type ServiceQuery struct {
	Category    model.ServiceCategory
	VehicleType model.VehicleType
	Page        int
	Limit       int
}

// ListServices возвращает активные услуги. Фильтр по типу машины применяется после выборки.
func (s *CatalogService) ListServices(ctx context.Context, q ServiceQuery) ([]model.Service, calendar.PageMeta, error) {
	page, limit := calendar.NormalizePage(q.Page, q.Limit)
	f := repository.ServiceFilter{OnlyActive: true, Category: q.Category}

	if q.VehicleType == "" {
		items, total, err := s.services.List(ctx, f, limit, calendar.Offset(page, limit))
		if err != nil {
			return nil, calendar.PageMeta{}, &booking.PersistenceError{Op: "list services", Err: err}
		}
		return items, calendar.NewPageMeta(page, limit, total), nil
	}

	all, _, err := s.services.List(ctx, f, 0, 0)
	if err != nil {
		return nil, calendar.PageMeta{}, &booking.PersistenceError{Op: "list services", Err: err}
	}
	matched := make([]model.Service, 0, len(all))
	for _, svc := range all {
		if svc.SupportsVehicle(q.VehicleType) {
			matched = append(matched, svc)
		}
	}
	p := calendar.Paginate(matched, page, limit)
	return p.Items, p.Meta(), nil
}

func (s *CatalogService) ListCenters(ctx context.Context) ([]model.ServiceCenter, error) {
	centers, err := s.centers.List(ctx, true)
	if err != nil {
		return nil, &booking.PersistenceError{Op: "list service centers", Err: err}
	}
	return centers, nil
}

// activeCenter возвращает центр; отсутствующий и неактивный неразличимы для клиента.
func (s *CatalogService) activeCenter(ctx context.Context, centerID uuid.UUID) (*model.ServiceCenter, error) {
	c, err := s.centers.GetByID(ctx, centerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &booking.ReferenceNotFoundError{Kind: "service center", Ref: centerID.String()}
	}
	if err != nil {
		return nil, &booking.PersistenceError{Op: "get service center", Err: err}
	}
	if !c.IsActive {
		return nil, &booking.ReferenceNotFoundError{Kind: "service center", Ref: centerID.String()}
	}
	return c, nil
}

func (s *CatalogService) priceOf(ctx context.Context, svc *model.Service, centerID uuid.UUID) (model.CenterPrice, error) {
	override, err := s.services.GetPricing(ctx, svc.ID, centerID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		override = nil
	case err != nil:
		return model.CenterPrice{}, &booking.PersistenceError{Op: "get service pricing", Err: err}
	}
	return booking.ResolveCenterPrice(svc, override)
}

// GetPriceForCenter возвращает цену услуги в конкретном центре с учётом переопределения.
func (s *CatalogService) GetPriceForCenter(ctx context.Context, serviceID, centerID uuid.UUID) (model.CenterPrice, error) {
	if _, err := s.activeCenter(ctx, centerID); err != nil {
		return model.CenterPrice{}, err
	}
	svc, err := s.services.GetByID(ctx, serviceID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.CenterPrice{}, &booking.ReferenceNotFoundError{Kind: "service", Ref: serviceID.String()}
	}
	if err != nil {
		return model.CenterPrice{}, &booking.PersistenceError{Op: "get service", Err: err}
	}
	return s.priceOf(ctx, svc, centerID)
}

// PricesForBooking резолвит цены всех выбранных услуг в порядке serviceIDs
// и проверяет, что каждая услуга подходит для типа машины.
func (s *CatalogService) PricesForBooking(
	ctx context.Context,
	centerID uuid.UUID,
	serviceIDs []uuid.UUID,
	vehicleType model.VehicleType,
) (*model.ServiceCenter, []model.CenterPrice, error) {
	center, err := s.activeCenter(ctx, centerID)
	if err != nil {
		return nil, nil, err
	}

	found, err := s.services.ListByIDs(ctx, serviceIDs)
	if err != nil {
		return nil, nil, &booking.PersistenceError{Op: "list services", Err: err}
	}
	byID := make(map[uuid.UUID]*model.Service, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	prices := make([]model.CenterPrice, 0, len(serviceIDs))
	for i, id := range serviceIDs {
		svc, ok := byID[id]
		if !ok {
			return nil, nil, &booking.ReferenceNotFoundError{Kind: "service", Ref: id.String()}
		}
		if !svc.SupportsVehicle(vehicleType) {
			return nil, nil, booking.Validationf(fmt.Sprintf("service_ids[%d]", i),
				"service %q is not offered for vehicle type %s", svc.Name, vehicleType)
		}
		p, err := s.priceOf(ctx, svc, centerID)
		if err != nil {
			return nil, nil, err
		}
		prices = append(prices, p)
	}
	return center, prices, nil
}

func requireAdmin(actor booking.Actor, what string) error {
	if actor.Role != model.UserRoleAdmin {
		return &booking.AuthorizationError{Reason: "only admins may " + what}
	}
	return nil
}

// CreateService заводит новую услугу в каталоге.
func (s *CatalogService) CreateService(ctx context.Context, actor booking.Actor, in booking.ServiceInput) (*model.Service, error) {
	if err := requireAdmin(actor, "edit the service catalog"); err != nil {
		return nil, err
	}
	svc, err := booking.NewService(&in)
	if err != nil {
		return nil, err
	}
	if err := s.services.Create(ctx, svc); err != nil {
		return nil, &booking.PersistenceError{Op: "create service", Err: err}
	}
	return svc, nil
}

// SetCenterPrice создаёт или заменяет цену услуги в центре и возвращает итоговую цену.
// Неактивному центру цену задать можно: он ещё может открыться.
func (s *CatalogService) SetCenterPrice(
	ctx context.Context,
	actor booking.Actor,
	serviceID, centerID uuid.UUID,
	in booking.PricingInput,
) (model.CenterPrice, error) {
	if err := requireAdmin(actor, "change service pricing"); err != nil {
		return model.CenterPrice{}, err
	}

	center, err := s.centers.GetByID(ctx, centerID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.CenterPrice{}, &booking.ReferenceNotFoundError{Kind: "service center", Ref: centerID.String()}
	}
	if err != nil {
		return model.CenterPrice{}, &booking.PersistenceError{Op: "get service center", Err: err}
	}
	svc, err := s.services.GetByID(ctx, serviceID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.CenterPrice{}, &booking.ReferenceNotFoundError{Kind: "service", Ref: serviceID.String()}
	}
	if err != nil {
		return model.CenterPrice{}, &booking.PersistenceError{Op: "get service", Err: err}
	}

	p, err := booking.NewPricing(svc, center, &in)
	if err != nil {
		return model.CenterPrice{}, err
	}
	if err := s.services.UpsertPricing(ctx, p); err != nil {
		return model.CenterPrice{}, &booking.PersistenceError{Op: "upsert service pricing", Err: err}
	}
	return booking.ResolveCenterPrice(svc, p)
}
