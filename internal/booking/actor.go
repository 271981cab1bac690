package booking

import (
	"github.com/google/uuid"

	"github.com/Leganyst/autoservice-booking/internal/model"
)

// Actor: пользователь, от имени которого выполняется операция.
// Заполняется слоем идентификации до вызова ядра.
type Actor struct {
	ID              uuid.UUID
	Role            model.UserRole
	ServiceCenterID *uuid.UUID
}

// Privileged: админ или сотрудник сервисного центра.
func (a Actor) Privileged() bool {
	return a.Role == model.UserRoleAdmin || a.Role == model.UserRoleServiceCenter
}

// Owns: клиент является владельцем бронирования.
func (a Actor) Owns(b *model.Booking) bool {
	return a.Role == model.UserRoleCustomer && a.ID == b.CustomerID
}

// StaffOf: сотрудник именно этого центра.
func (a Actor) StaffOf(centerID uuid.UUID) bool {
	return a.Role == model.UserRoleServiceCenter && a.ServiceCenterID != nil && *a.ServiceCenterID == centerID
}

// CanView: владелец, сотрудник центра или админ.
func (a Actor) CanView(b *model.Booking) bool {
	return a.Role == model.UserRoleAdmin || a.Owns(b) || a.StaffOf(b.ServiceCenterID)
}

// CanManage: сотрудник центра или админ.
func (a Actor) CanManage(b *model.Booking) bool {
	return a.Role == model.UserRoleAdmin || a.StaffOf(b.ServiceCenterID)
}

func (a Actor) idPtr() *uuid.UUID {
	if a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}
