package booking

import (
	"fmt"
	"strings"

	"github.com/Leganyst/autoservice-booking/internal/model"
)

// FieldError описывает одну ошибку конкретного поля запроса.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError: некорректный запрос, исправляется на стороне клиента.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Validationf возвращает ValidationError с одним полем.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: fmt.Sprintf(format, args...)}}}
}

// ReferenceNotFoundError: неизвестный клиент, услуга, центр или бронирование.
type ReferenceNotFoundError struct {
	Kind string
	Ref  string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Ref)
}

// InvalidTransitionError: нарушение машины состояний.
type InvalidTransitionError struct {
	From   model.BookingStatus
	To     model.BookingStatus
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	var msg string
	switch {
	case e.From != "" && e.To != "":
		msg = fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
	case e.From != "":
		msg = fmt.Sprintf("operation not allowed in status %s", e.From)
	default:
		msg = "invalid transition"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// AuthorizationError: у пользователя нет прав на операцию.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "forbidden: " + e.Reason
}

// SchedulingConflictError: в центре нет свободного поста на это время.
type SchedulingConflictError struct {
	ServiceCenterID string
	Capacity        int
	Overlapping     int64
}

func (e *SchedulingConflictError) Error() string {
	return fmt.Sprintf("service center %s is fully booked for the requested time (%d of %d bays taken)",
		e.ServiceCenterID, e.Overlapping, e.Capacity)
}

// PersistenceError: сбой хранилища. Ядро не ретраит такие ошибки.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
