package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/autoservice-booking/internal/model"
)

type ServiceCenterRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ServiceCenter, error)
	Create(ctx context.Context, center *model.ServiceCenter) error
	List(ctx context.Context, onlyActive bool) ([]model.ServiceCenter, error)
}

type GormServiceCenterRepository struct {
	db *gorm.DB
}

func NewGormServiceCenterRepository(db *gorm.DB) *GormServiceCenterRepository {
	return &GormServiceCenterRepository{db: db}
}

func (r *GormServiceCenterRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ServiceCenter, error) {
	var c model.ServiceCenter
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *GormServiceCenterRepository) Create(ctx context.Context, center *model.ServiceCenter) error {
	return r.db.WithContext(ctx).Create(center).Error
}

func (r *GormServiceCenterRepository) List(ctx context.Context, onlyActive bool) ([]model.ServiceCenter, error) {
	q := r.db.WithContext(ctx).Model(&model.ServiceCenter{})
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}
	var centers []model.ServiceCenter
	if err := q.Order("name ASC").Find(&centers).Error; err != nil {
		return nil, err
	}
	return centers, nil
}
