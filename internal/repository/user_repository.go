package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/autoservice-booking/internal/model"
)

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
	SetRole(ctx context.Context, userID uuid.UUID, role model.UserRole, centerID *uuid.UUID) error
	SetStatus(ctx context.Context, userID uuid.UUID, status model.UserStatus) error
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	// Keep only digits; ignore formatting characters.
	b := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		c := phone[i]
		if c >= '0' && c <= '9' {
			b = append(b, c)
		}
	}
	return string(b)
}

func (r *GormUserRepository) Create(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	u.ContactPhone = normalizePhone(u.ContactPhone)
	if u.Role == "" {
		u.Role = model.UserRoleCustomer
	}
	if u.Status == "" {
		u.Status = model.UserStatusActive
	}
	return r.db.WithContext(ctx).Create(u).Error
}

// SetRole назначает единственную роль. Привязка к центру имеет смысл только для сотрудников.
func (r *GormUserRepository) SetRole(ctx context.Context, userID uuid.UUID, role model.UserRole, centerID *uuid.UUID) error {
	if role != model.UserRoleServiceCenter {
		centerID = nil
	}
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"role":              role,
			"service_center_id": centerID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormUserRepository) SetStatus(ctx context.Context, userID uuid.UUID, status model.UserStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
