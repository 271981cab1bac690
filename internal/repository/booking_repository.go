package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/autoservice-booking/internal/model"
)

// BookingFilter задаёт необязательные условия выборки. Пустые поля не участвуют.
type BookingFilter struct {
	CustomerID      *uuid.UUID
	ServiceCenterID *uuid.UUID
	Status          model.BookingStatus
	// Границы по scheduled_date_time, включительно.
	From *time.Time
	To   *time.Time
}

// RevenueStats агрегирует выручку за период.
type RevenueStats struct {
	TotalRevenue  float64
	TotalBookings int64
}

// Статусы, которые учитываются в выручке.
var revenueStatuses = []model.BookingStatus{model.BookingStatusCompleted, model.BookingStatusInProgress}

// Статусы, которые занимают пост в центре.
var activeStatuses = []model.BookingStatus{
	model.BookingStatusPending,
	model.BookingStatusConfirmed,
	model.BookingStatusInProgress,
}

type BookingRepository interface {
	// Создать бронирование вместе с начальной записью журнала.
	Create(ctx context.Context, b *model.Booking) error
	// Получить бронирование по внутреннему ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// Получить бронирование по человекочитаемому коду.
	GetByBookingID(ctx context.Context, code string) (*model.Booking, error)
	// Страница бронирований, новые сверху.
	List(ctx context.Context, f BookingFilter, limit, offset int) ([]model.Booking, int64, error)
	// Все бронирования с датой визита в [f.From, f.To], по возрастанию даты.
	ListByScheduledRange(ctx context.Context, f BookingFilter) ([]model.Booking, error)
	// Записать смену статуса, если в хранилище всё ещё from.
	ApplyTransition(ctx context.Context, b *model.Booking, from model.BookingStatus, entry model.TimelineEntry) error
	// Сохранить оценку, только для завершённых бронирований.
	UpdateRating(ctx context.Context, id uuid.UUID, rating model.Rating, at time.Time) error
	// Сменить статус оплаты, если в хранилище всё ещё from.
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to model.PaymentStatus, at time.Time) error
	// Число активных бронирований центра, пересекающихся с [start, end).
	CountOverlapping(ctx context.Context, centerID uuid.UUID, start, end time.Time) (int64, error)
	// Выручка по созданным в [from, to] бронированиям.
	RevenueStats(ctx context.Context, from, to time.Time, centerID *uuid.UUID) (RevenueStats, error)
}

// Реализация на GORM.
type GormBookingRepository struct {
	db *gorm.DB
}

func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func (r *GormBookingRepository) Create(ctx context.Context, b *model.Booking) error {
	return duplicateBookingID(r.db.WithContext(ctx).Create(b).Error)
}

func (r *GormBookingRepository) withTimeline(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Timeline", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq ASC")
	})
}

func (r *GormBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var b model.Booking
	if err := r.withTimeline(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *GormBookingRepository) GetByBookingID(ctx context.Context, code string) (*model.Booking, error) {
	var b model.Booking
	if err := r.withTimeline(ctx).First(&b, "booking_id = ?", code).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func applyFilter(q *gorm.DB, f BookingFilter) *gorm.DB {
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.ServiceCenterID != nil {
		q = q.Where("service_center_id = ?", *f.ServiceCenterID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("scheduled_date_time >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("scheduled_date_time <= ?", *f.To)
	}
	return q
}

func (r *GormBookingRepository) List(
	ctx context.Context,
	f BookingFilter,
	limit, offset int,
) ([]model.Booking, int64, error) {
	var (
		bookings []model.Booking
		total    int64
	)

	if err := applyFilter(r.db.WithContext(ctx).Model(&model.Booking{}), f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := applyFilter(r.withTimeline(ctx).Model(&model.Booking{}), f)
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	if err := q.Order("created_at DESC").Order("id").Find(&bookings).Error; err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}

func (r *GormBookingRepository) ListByScheduledRange(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	var bookings []model.Booking
	err := applyFilter(r.withTimeline(ctx).Model(&model.Booking{}), f).
		Order("scheduled_date_time ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// bookingStateColumns возвращает поля, которые может поменять переход статуса.
func bookingStateColumns(b *model.Booking) map[string]any {
	update := map[string]any{
		"status":     b.Status,
		"updated_at": b.UpdatedAt,
	}
	if b.ActualCompletionTime != nil {
		update["actual_completion_time"] = *b.ActualCompletionTime
	}
	if b.Status == model.BookingStatusCancelled {
		update["cancellation_reason"] = b.CancellationReason
		update["cancelled_by"] = b.CancelledBy
		update["cancelled_at"] = b.CancelledAt
	}
	return update
}

func (r *GormBookingRepository) ApplyTransition(
	ctx context.Context,
	b *model.Booking,
	from model.BookingStatus,
	entry model.TimelineEntry,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Booking{}).
			Where("id = ? AND status = ?", b.ID, from).
			Updates(bookingStateColumns(b))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return r.missOrRace(tx, b.ID)
		}

		entry.ID = 0
		entry.BookingID = b.ID
		return tx.Create(&entry).Error
	})
}

// missOrRace отличает отсутствующую запись от проигранной гонки.
func (r *GormBookingRepository) missOrRace(tx *gorm.DB, id uuid.UUID) error {
	var n int64
	if err := tx.Model(&model.Booking{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStatusChanged
}

func (r *GormBookingRepository) UpdateRating(ctx context.Context, id uuid.UUID, rating model.Rating, at time.Time) error {
	// serializer:json срабатывает только при обновлении через модель.
	res := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ? AND status = ?", id, model.BookingStatusCompleted).
		Select("rating", "updated_at").
		Updates(&model.Booking{Rating: &rating, UpdatedAt: at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missOrRace(r.db.WithContext(ctx), id)
	}
	return nil
}

func (r *GormBookingRepository) UpdatePaymentStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to model.PaymentStatus,
	at time.Time,
) error {
	res := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ? AND payment_status = ?", id, from).
		Updates(map[string]any{
			"payment_status": to,
			"updated_at":     at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missOrRace(r.db.WithContext(ctx), id)
	}
	return nil
}

func (r *GormBookingRepository) CountOverlapping(
	ctx context.Context,
	centerID uuid.UUID,
	start, end time.Time,
) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("service_center_id = ?", centerID).
		Where("status IN ?", activeStatuses).
		Where("scheduled_date_time < ? AND estimated_completion_time > ?", end, start).
		Count(&n).Error
	return n, err
}

func (r *GormBookingRepository) RevenueStats(
	ctx context.Context,
	from, to time.Time,
	centerID *uuid.UUID,
) (RevenueStats, error) {
	var row struct {
		Total float64
		Cnt   int64
	}
	q := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Select("COALESCE(SUM(total_amount), 0) AS total, COUNT(*) AS cnt").
		Where("created_at >= ? AND created_at <= ?", from, to).
		Where("status IN ?", revenueStatuses).
		Where("payment_status = ?", model.PaymentStatusPaid)
	if centerID != nil {
		q = q.Where("service_center_id = ?", *centerID)
	}
	if err := q.Scan(&row).Error; err != nil {
		return RevenueStats{}, err
	}
	return RevenueStats{TotalRevenue: row.Total, TotalBookings: row.Cnt}, nil
}
