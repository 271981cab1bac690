package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/autoservice-booking/internal/model"
)

// ServiceFilter задаёт условия выборки каталога услуг.
type ServiceFilter struct {
	OnlyActive bool
	Category   model.ServiceCategory
}

type ServiceRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Service, error)
	Create(ctx context.Context, service *model.Service) error
	List(ctx context.Context, f ServiceFilter, limit, offset int) ([]model.Service, int64, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Service, error)
	// Переопределение цены услуги для центра; ErrNotFound, если его нет.
	GetPricing(ctx context.Context, serviceID, centerID uuid.UUID) (*model.ServicePricing, error)
	UpsertPricing(ctx context.Context, p *model.ServicePricing) error
}

type GormServiceRepository struct {
	db *gorm.DB
}

func NewGormServiceRepository(db *gorm.DB) *GormServiceRepository {
	return &GormServiceRepository{db: db}
}

func (r *GormServiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	var s model.Service
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *GormServiceRepository) Create(ctx context.Context, service *model.Service) error {
	return r.db.WithContext(ctx).Create(service).Error
}

func (r *GormServiceRepository) List(ctx context.Context, f ServiceFilter, limit, offset int) ([]model.Service, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Service{})
	if f.OnlyActive {
		q = q.Where("is_active = ?", true)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// limit <= 0 без ограничения.
	if limit > 0 {
		if offset < 0 {
			offset = 0
		}
		q = q.Limit(limit).Offset(offset)
	}

	var services []model.Service
	if err := q.Order("name ASC").Find(&services).Error; err != nil {
		return nil, 0, err
	}
	return services, total, nil
}

func (r *GormServiceRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Service, error) {
	if len(ids) == 0 {
		return []model.Service{}, nil
	}
	var services []model.Service
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&services).Error
	if err != nil {
		return nil, err
	}
	return services, nil
}

func (r *GormServiceRepository) GetPricing(ctx context.Context, serviceID, centerID uuid.UUID) (*model.ServicePricing, error) {
	var p model.ServicePricing
	err := r.db.WithContext(ctx).
		Where("service_id = ? AND service_center_id = ?", serviceID, centerID).
		First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *GormServiceRepository) UpsertPricing(ctx context.Context, p *model.ServicePricing) error {
	return r.db.WithContext(ctx).Save(p).Error
}
