package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Роль пользователя в системе.
type UserRole string

const (
	UserRoleCustomer      UserRole = "customer"
	UserRoleServiceCenter UserRole = "service_center"
	UserRoleAdmin         UserRole = "admin"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusBlocked  UserStatus = "blocked"
)

// users
type User struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`

	Email        string `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	DisplayName  string `json:"display_name" gorm:"type:varchar(255)"`
	ContactPhone string `json:"contact_phone,omitempty" gorm:"type:varchar(32)"`

	Role   UserRole   `json:"role" gorm:"type:varchar(32);not null;default:'customer'"`
	Status UserStatus `json:"status" gorm:"type:varchar(32);not null;default:'active'"`

	// Только для сотрудников сервисного центра.
	ServiceCenterID *uuid.UUID `json:"service_center_id,omitempty" gorm:"type:uuid;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ServiceCenter *ServiceCenter `json:"-" gorm:"foreignKey:ServiceCenterID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
