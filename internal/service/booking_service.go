package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Leganyst/autoservice-booking/internal/booking"
	"github.com/Leganyst/autoservice-booking/internal/calendar"
	"github.com/Leganyst/autoservice-booking/internal/events"
	"github.com/Leganyst/autoservice-booking/internal/model"
	"github.com/Leganyst/autoservice-booking/internal/repository"
)

const (
	// Сколько раз пробуем вставить бронь с новым кодом при коллизии.
	createAttempts = 3
	// Максимальная длина окна выборки по датам.
	maxRangeWindow = 366 * 24 * time.Hour
	publishTimeout = 5 * time.Second
)

// BookingService связывает ядро бронирований с хранилищем, каталогом и шиной событий.
type BookingService struct {
	bookings repository.BookingRepository
	users    repository.UserRepository
	catalog  *CatalogService
	ids      *booking.IDGenerator
	events   events.Publisher
	log      *logrus.Logger
	now      func() time.Time
}

func NewBookingService(
	bookings repository.BookingRepository,
	users repository.UserRepository,
	catalog *CatalogService,
	ids *booking.IDGenerator,
	publisher events.Publisher,
	log *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookings: bookings,
		users:    users,
		catalog:  catalog,
		ids:      ids,
		events:   publisher,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create проверяет запрос, резолвит цены, проверяет вместимость центра и сохраняет бронь.
func (s *BookingService) Create(ctx context.Context, actor booking.Actor, in booking.CreateInput) (*model.Booking, error) {
	switch actor.Role {
	case model.UserRoleCustomer:
		if in.CustomerID == uuid.Nil {
			in.CustomerID = actor.ID
		}
		if in.CustomerID != actor.ID {
			return nil, &booking.AuthorizationError{Reason: "customers may only book for themselves"}
		}
	case model.UserRoleAdmin:
	default:
		return nil, &booking.AuthorizationError{Reason: "only customers and admins may create bookings"}
	}

	now := s.now()
	if err := booking.ValidateCreate(&in, now); err != nil {
		return nil, err
	}

	if err := s.ensureCustomer(ctx, in.CustomerID); err != nil {
		return nil, err
	}

	center, prices, err := s.catalog.PricesForBooking(ctx, in.ServiceCenterID, in.ServiceIDs, in.Vehicle.Type)
	if err != nil {
		return nil, err
	}

	code, err := s.ids.Next(ctx, now)
	if err != nil {
		return nil, &booking.PersistenceError{Op: "generate booking id", Err: err}
	}
	b, err := booking.NewBooking(&in, prices, code, actor, now)
	if err != nil {
		return nil, err
	}

	if err := s.checkCapacity(ctx, center, b); err != nil {
		return nil, err
	}

	if err := s.insert(ctx, b); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id":        b.ID,
		"booking_code":      b.BookingID,
		"customer_id":       b.CustomerID,
		"service_center_id": b.ServiceCenterID,
		"total_amount":      b.TotalAmount,
	}).Info("booking created")

	s.publish(ctx, model.NewBookingEvent(model.EventTypeBookingCreated, b, &actor.ID, "", now))
	return b, nil
}

func (s *BookingService) ensureCustomer(ctx context.Context, id uuid.UUID) error {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return &booking.ReferenceNotFoundError{Kind: "customer", Ref: id.String()}
	}
	if err != nil {
		return &booking.PersistenceError{Op: "get customer", Err: err}
	}
	if u.Role != model.UserRoleCustomer || u.Status != model.UserStatusActive {
		return &booking.ReferenceNotFoundError{Kind: "customer", Ref: id.String()}
	}
	return nil
}

// checkCapacity: не больше Capacity активных броней центра на пересекающееся время.
// Проверка не транзакционная, одновременные записи могут превысить лимит.
func (s *BookingService) checkCapacity(ctx context.Context, center *model.ServiceCenter, b *model.Booking) error {
	if center.Capacity <= 0 {
		return nil
	}
	end := b.ScheduledDateTime.Add(booking.Duration(b))
	n, err := s.bookings.CountOverlapping(ctx, center.ID, b.ScheduledDateTime, end)
	if err != nil {
		return &booking.PersistenceError{Op: "count overlapping bookings", Err: err}
	}
	if n >= int64(center.Capacity) {
		return &booking.SchedulingConflictError{
			ServiceCenterID: center.ID.String(),
			Capacity:        center.Capacity,
			Overlapping:     n,
		}
	}
	return nil
}

// insert сохраняет бронь; при коллизии кода берёт новый, не больше createAttempts попыток.
func (s *BookingService) insert(ctx context.Context, b *model.Booking) error {
	var err error
	for attempt := 1; attempt <= createAttempts; attempt++ {
		err = s.bookings.Create(ctx, b)
		if !errors.Is(err, repository.ErrDuplicateBookingID) {
			break
		}
		s.log.WithFields(logrus.Fields{
			"booking_code": b.BookingID,
			"attempt":      attempt,
		}).Warn("booking id collision")
		// После последней попытки новый номер не нужен: каждый Next это INCR в Redis.
		if attempt == createAttempts {
			break
		}

		code, genErr := s.ids.Next(ctx, b.CreatedAt)
		if genErr != nil {
			return &booking.PersistenceError{Op: "generate booking id", Err: genErr}
		}
		b.BookingID = code
	}
	if err != nil {
		return &booking.PersistenceError{Op: "create booking", Err: err}
	}
	return nil
}

// load ищет бронь по UUID или по коду BK-....
func (s *BookingService) load(ctx context.Context, ref string) (*model.Booking, error) {
	var (
		b   *model.Booking
		err error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		b, err = s.bookings.GetByID(ctx, id)
	} else {
		b, err = s.bookings.GetByBookingID(ctx, ref)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &booking.ReferenceNotFoundError{Kind: "booking", Ref: ref}
	}
	if err != nil {
		return nil, &booking.PersistenceError{Op: "get booking", Err: err}
	}
	return b, nil
}

// Get возвращает бронь, если actor может её видеть.
func (s *BookingService) Get(ctx context.Context, actor booking.Actor, ref string) (*model.Booking, error) {
	b, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !actor.CanView(b) {
		return nil, &booking.AuthorizationError{Reason: "booking belongs to another customer or service center"}
	}
	return b, nil
}

// ListQuery задаёт параметры постраничного списка.
type ListQuery struct {
	Filter repository.BookingFilter
	Page   int
	Limit  int
}

// scope сужает фильтр до того, что actor может видеть.
func scope(actor booking.Actor, f repository.BookingFilter) (repository.BookingFilter, error) {
	switch actor.Role {
	case model.UserRoleAdmin:
	case model.UserRoleCustomer:
		id := actor.ID
		f.CustomerID = &id
	case model.UserRoleServiceCenter:
		if actor.ServiceCenterID == nil {
			return f, &booking.AuthorizationError{Reason: "staff account is not bound to a service center"}
		}
		if f.ServiceCenterID != nil && *f.ServiceCenterID != *actor.ServiceCenterID {
			return f, &booking.AuthorizationError{Reason: "staff may only see their own service center"}
		}
		center := *actor.ServiceCenterID
		f.ServiceCenterID = &center
	default:
		return f, &booking.AuthorizationError{Reason: "unknown role"}
	}
	if f.Status != "" && !booking.IsValidStatus(f.Status) {
		return f, booking.Validationf("status", "unknown status %q", f.Status)
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, booking.Validationf("to", "must not be before from")
	}
	return f, nil
}

func (s *BookingService) List(ctx context.Context, actor booking.Actor, q ListQuery) ([]model.Booking, calendar.PageMeta, error) {
	f, err := scope(actor, q.Filter)
	if err != nil {
		return nil, calendar.PageMeta{}, err
	}
	page, limit := calendar.NormalizePage(q.Page, q.Limit)

	items, total, err := s.bookings.List(ctx, f, limit, calendar.Offset(page, limit))
	if err != nil {
		return nil, calendar.PageMeta{}, &booking.PersistenceError{Op: "list bookings", Err: err}
	}
	return items, calendar.NewPageMeta(page, limit, total), nil
}

// Range возвращает все брони с датой визита в [from, to], по возрастанию даты.
func (s *BookingService) Range(
	ctx context.Context,
	actor booking.Actor,
	from, to time.Time,
	centerID *uuid.UUID,
	status model.BookingStatus,
) ([]model.Booking, error) {
	if from.IsZero() || to.IsZero() {
		return nil, booking.Validationf("from", "from and to are required")
	}
	if to.Before(from) {
		return nil, booking.Validationf("to", "must not be before from")
	}
	// Длинное окно не обрезаем молча, иначе часть броней пропадёт из ответа.
	if to.Sub(from) > maxRangeWindow {
		return nil, booking.Validationf("to", "range must not exceed %d days", int(maxRangeWindow/(24*time.Hour)))
	}
	tr, err := calendar.NormalizeTimeRange(from, to, time.UTC, 0)
	if err != nil {
		return nil, booking.Validationf("from", "%v", err)
	}

	f, err := scope(actor, repository.BookingFilter{
		ServiceCenterID: centerID,
		Status:          status,
		From:            &tr.Start,
		To:              &tr.End,
	})
	if err != nil {
		return nil, err
	}

	items, err := s.bookings.ListByScheduledRange(ctx, f)
	if err != nil {
		return nil, &booking.PersistenceError{Op: "list bookings by range", Err: err}
	}
	return items, nil
}

// persistChange сохраняет результат перехода и переводит ошибки хранилища в доменные.
func (s *BookingService) persistChange(ctx context.Context, b *model.Booking, change *booking.Change) error {
	err := s.bookings.ApplyTransition(ctx, b, change.From, change.Entry)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrStatusChanged):
		return &booking.InvalidTransitionError{
			From:   change.From,
			To:     change.Entry.Status,
			Reason: "booking was modified concurrently",
		}
	case errors.Is(err, repository.ErrNotFound):
		return &booking.ReferenceNotFoundError{Kind: "booking", Ref: b.ID.String()}
	default:
		return &booking.PersistenceError{Op: "apply transition", Err: err}
	}
}

// Transition меняет статус брони. cancelled уходит в Cancel с notes как причиной.
func (s *BookingService) Transition(
	ctx context.Context,
	actor booking.Actor,
	ref string,
	in booking.TransitionInput,
) (*model.Booking, error) {
	b, err := s.Get(ctx, actor, ref)
	if err != nil {
		return nil, err
	}

	change, err := booking.Transition(b, in, actor, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.persistChange(ctx, b, change); err != nil {
		return nil, err
	}

	s.logChange(b, change, actor)
	s.publish(ctx, model.NewBookingEvent(model.EventTypeBookingStatusChanged, b, &actor.ID,
		fmt.Sprintf("%s -> %s", change.From, change.Entry.Status), change.Entry.Timestamp))
	return b, nil
}

func (s *BookingService) Cancel(ctx context.Context, actor booking.Actor, ref, reason string) (*model.Booking, error) {
	b, err := s.Get(ctx, actor, ref)
	if err != nil {
		return nil, err
	}

	change, err := booking.Cancel(b, reason, actor, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.persistChange(ctx, b, change); err != nil {
		return nil, err
	}

	s.logChange(b, change, actor)
	s.publish(ctx, model.NewBookingEvent(model.EventTypeBookingStatusChanged, b, &actor.ID,
		b.CancellationReason, change.Entry.Timestamp))
	return b, nil
}

func (s *BookingService) logChange(b *model.Booking, change *booking.Change, actor booking.Actor) {
	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"from":       change.From,
		"to":         change.Entry.Status,
		"actor_id":   actor.ID,
		"actor_role": actor.Role,
	}).Info("booking status changed")
}

// AddRating ставит оценку завершённой брони. Повторная оценка перезаписывает прежнюю.
func (s *BookingService) AddRating(
	ctx context.Context,
	actor booking.Actor,
	ref string,
	in booking.RatingInput,
) (*model.Booking, error) {
	b, err := s.Get(ctx, actor, ref)
	if err != nil {
		return nil, err
	}

	if err := booking.AddRating(b, in, actor, s.now()); err != nil {
		return nil, err
	}

	err = s.bookings.UpdateRating(ctx, b.ID, *b.Rating, b.UpdatedAt)
	switch {
	case errors.Is(err, repository.ErrStatusChanged):
		return nil, &booking.InvalidTransitionError{Reason: "only completed bookings can be rated"}
	case errors.Is(err, repository.ErrNotFound):
		return nil, &booking.ReferenceNotFoundError{Kind: "booking", Ref: ref}
	case err != nil:
		return nil, &booking.PersistenceError{Op: "update rating", Err: err}
	}

	s.publish(ctx, model.NewBookingEvent(model.EventTypeBookingRated, b, &actor.ID,
		fmt.Sprintf("score=%d", b.Rating.Score), b.UpdatedAt))
	return b, nil
}

// UpdatePayment меняет статус оплаты. Журнал статусов не трогается.
func (s *BookingService) UpdatePayment(
	ctx context.Context,
	actor booking.Actor,
	ref string,
	to model.PaymentStatus,
) (*model.Booking, error) {
	b, err := s.Get(ctx, actor, ref)
	if err != nil {
		return nil, err
	}

	from, err := booking.UpdatePaymentStatus(b, to, actor, s.now())
	if err != nil {
		return nil, err
	}

	err = s.bookings.UpdatePaymentStatus(ctx, b.ID, from, to, b.UpdatedAt)
	switch {
	case errors.Is(err, repository.ErrStatusChanged):
		return nil, &booking.InvalidTransitionError{Reason: "payment status was modified concurrently"}
	case errors.Is(err, repository.ErrNotFound):
		return nil, &booking.ReferenceNotFoundError{Kind: "booking", Ref: ref}
	case err != nil:
		return nil, &booking.PersistenceError{Op: "update payment status", Err: err}
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"from":       from,
		"to":         to,
	}).Info("payment status changed")
	s.publish(ctx, model.NewBookingEvent(model.EventTypeBookingPaymentUpdated, b, &actor.ID,
		fmt.Sprintf("%s -> %s", from, to), b.UpdatedAt))
	return b, nil
}

// RevenueReport: выручка за период.
type RevenueReport struct {
	From                time.Time  `json:"from"`
	To                  time.Time  `json:"to"`
	ServiceCenterID     *uuid.UUID `json:"service_center_id,omitempty"`
	TotalRevenue        float64    `json:"total_revenue"`
	TotalBookings       int64      `json:"total_bookings"`
	AverageBookingValue float64    `json:"average_booking_value"`
}

// RevenueStats считает выручку по оплаченным completed/in_progress броням, созданным в периоде.
// Без границ берётся текущий месяц.
func (s *BookingService) RevenueStats(
	ctx context.Context,
	actor booking.Actor,
	from, to *time.Time,
	centerID *uuid.UUID,
) (*RevenueReport, error) {
	switch actor.Role {
	case model.UserRoleAdmin:
	case model.UserRoleServiceCenter:
		if actor.ServiceCenterID == nil || (centerID != nil && *centerID != *actor.ServiceCenterID) {
			return nil, &booking.AuthorizationError{Reason: "staff may only see revenue of their own service center"}
		}
		center := *actor.ServiceCenterID
		centerID = &center
	default:
		return nil, &booking.AuthorizationError{Reason: "revenue statistics are available to staff and admins only"}
	}

	month := calendar.MonthRange(s.now())
	start, end := month.Start, month.End
	if from != nil {
		start = *from
	}
	if to != nil {
		end = *to
	}
	tr, err := calendar.NewTimeRange(start, end)
	if err != nil {
		return nil, booking.Validationf("to", "must not be before from")
	}

	stats, err := s.bookings.RevenueStats(ctx, tr.Start, tr.End, centerID)
	if err != nil {
		return nil, &booking.PersistenceError{Op: "revenue stats", Err: err}
	}

	total := booking.RoundAmount(stats.TotalRevenue)
	return &RevenueReport{
		From:                tr.Start,
		To:                  tr.End,
		ServiceCenterID:     centerID,
		TotalRevenue:        total,
		TotalBookings:       stats.TotalBookings,
		AverageBookingValue: booking.AverageAmount(total, stats.TotalBookings),
	}, nil
}

// publish отправляет событие после успешной записи. Ошибка шины только логируется.
func (s *BookingService) publish(ctx context.Context, e model.Event) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event_type": e.EventType,
			"booking_id": e.BookingID,
		}).Warn("publish booking event failed")
	}
}
