package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Leganyst/autoservice-booking/internal/booking"
	"github.com/Leganyst/autoservice-booking/internal/model"
	"github.com/Leganyst/autoservice-booking/internal/repository"
)

// Ошибки идентификации пользователя.
var (
	ErrInvalidUserID = errors.New("invalid user id")
	ErrUserNotFound  = errors.New("user not found")
	ErrUserInactive  = errors.New("user is inactive")
	ErrUnknownRole   = errors.New("user has unknown role")
)

// IdentityService превращает идентификатор из токена в Actor для ядра.
type IdentityService struct {
	userRepo repository.UserRepository
}

func NewIdentityService(userRepo repository.UserRepository) *IdentityService {
	return &IdentityService{userRepo: userRepo}
}

// ResolveActor:
//   - проверяет корректность идентификатора;
//   - вытаскивает пользователя из хранилища;
//   - проверяет статус (активен / нет) и роль;
//   - возвращает Actor или ошибку.
func (s *IdentityService) ResolveActor(ctx context.Context, userID uuid.UUID) (booking.Actor, error) {
	if userID == uuid.Nil {
		return booking.Actor{}, ErrInvalidUserID
	}

	u, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return booking.Actor{}, ErrUserNotFound
	}
	if err != nil {
		return booking.Actor{}, &booking.PersistenceError{Op: "get user", Err: err}
	}

	if u.Status == model.UserStatusInactive || u.Status == model.UserStatusBlocked {
		return booking.Actor{}, ErrUserInactive
	}

	switch u.Role {
	case model.UserRoleCustomer, model.UserRoleAdmin:
	case model.UserRoleServiceCenter:
		// Сотрудник без центра ничего не может, считаем это ошибкой данных.
		if u.ServiceCenterID == nil {
			return booking.Actor{}, ErrUnknownRole
		}
	default:
		return booking.Actor{}, ErrUnknownRole
	}

	return booking.Actor{
		ID:              u.ID,
		Role:            u.Role,
		ServiceCenterID: u.ServiceCenterID,
	}, nil
}

// AssignRole назначает пользователю роль. Сотруднику нужен центр, остальным он сбрасывается.
func (s *IdentityService) AssignRole(
	ctx context.Context,
	actor booking.Actor,
	userID uuid.UUID,
	role model.UserRole,
	centerID *uuid.UUID,
) (*model.User, error) {
	if err := requireAdmin(actor, "assign roles"); err != nil {
		return nil, err
	}
	switch role {
	case model.UserRoleCustomer, model.UserRoleAdmin:
	case model.UserRoleServiceCenter:
		if centerID == nil || *centerID == uuid.Nil {
			return nil, booking.Validationf("service_center_id", "is required for service center staff")
		}
	default:
		return nil, booking.Validationf("role", "unknown role %q", role)
	}

	if err := s.userRepo.SetRole(ctx, userID, role, centerID); err != nil {
		return nil, s.userUpdateError("set role", userID, err)
	}
	return s.reload(ctx, userID)
}

// SetUserStatus блокирует или активирует пользователя. Себя заблокировать нельзя.
func (s *IdentityService) SetUserStatus(
	ctx context.Context,
	actor booking.Actor,
	userID uuid.UUID,
	status model.UserStatus,
) (*model.User, error) {
	if err := requireAdmin(actor, "change user status"); err != nil {
		return nil, err
	}
	switch status {
	case model.UserStatusActive, model.UserStatusInactive, model.UserStatusBlocked:
	default:
		return nil, booking.Validationf("status", "unknown status %q", status)
	}
	if userID == actor.ID && status != model.UserStatusActive {
		return nil, booking.Validationf("status", "admins cannot deactivate themselves")
	}

	if err := s.userRepo.SetStatus(ctx, userID, status); err != nil {
		return nil, s.userUpdateError("set status", userID, err)
	}
	return s.reload(ctx, userID)
}

func (s *IdentityService) userUpdateError(op string, userID uuid.UUID, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &booking.ReferenceNotFoundError{Kind: "user", Ref: userID.String()}
	}
	return &booking.PersistenceError{Op: op, Err: err}
}

func (s *IdentityService) reload(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, s.userUpdateError("get user", userID, err)
	}
	return u, nil
}
