package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/autoservice-booking/internal/config"
	"github.com/Leganyst/autoservice-booking/internal/db"
	"github.com/Leganyst/autoservice-booking/internal/logger"
	"github.com/Leganyst/autoservice-booking/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Одно соединение: каждое соединение к :memory: открывает отдельную базу.
	gdb, err := db.NewGormDB(&config.DBConfig{Driver: "sqlite", SQLitePath: ":memory:", MaxOpenConns: 1}, logger.Discard())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := model.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

var base = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

var codeSeq int

func newTestBooking(customerID, centerID uuid.UUID, scheduled time.Time, total float64) *model.Booking {
	codeSeq++
	id := uuid.New()
	eta := scheduled.Add(75 * time.Minute)
	return &model.Booking{
		ID:              id,
		BookingID:       fmt.Sprintf("BK-20250310-%06d-TEST00", codeSeq),
		CustomerID:      customerID,
		ServiceCenterID: centerID,
		LineItems: []model.LineItem{
			{ServiceID: uuid.New(), ServiceName: "Oil change", Price: total, FinalPrice: total, DurationMin: 75},
		},
		Vehicle:                 model.Vehicle{Make: "Toyota", Model: "Camry", Year: 2020, Type: model.VehicleTypeCar, LicensePlate: "ABC-123"},
		PickupLocation:          model.PickupLocation{Type: model.PickupTypeServiceCenter},
		ScheduledDateTime:       scheduled,
		EstimatedCompletionTime: &eta,
		Status:                  model.BookingStatusPending,
		PaymentStatus:           model.PaymentStatusPending,
		TotalAmount:             total,
		Timeline: []model.TimelineEntry{{
			BookingID: id,
			Status:    model.BookingStatusPending,
			Timestamp: base,
			UpdatedBy: &customerID,
			Notes:     "Booking created",
		}},
		CreatedAt: base,
		UpdatedAt: base,
	}
}

func mustCreate(t *testing.T, repo BookingRepository, b *model.Booking) {
	t.Helper()
	if err := repo.Create(context.Background(), b); err != nil {
		t.Fatalf("create booking: %v", err)
	}
}

// moveStatus делает то же, что сервис: меняет бронь в памяти и пишет переход условно.
func moveStatus(b *model.Booking, to model.BookingStatus, at time.Time) (model.BookingStatus, model.TimelineEntry) {
	from := b.Status
	entry := model.TimelineEntry{
		BookingID: b.ID,
		Seq:       len(b.Timeline),
		Status:    to,
		Timestamp: at,
	}
	b.Status = to
	b.UpdatedAt = at
	b.Timeline = append(b.Timeline, entry)
	return from, entry
}

func TestGormBookingRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewGormBookingRepository(newTestDB(t))

	b := newTestBooking(uuid.New(), uuid.New(), base.Add(24*time.Hour), 58.98)
	mustCreate(t, repo, b)

	got, err := repo.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.BookingID != b.BookingID || got.TotalAmount != 58.98 {
		t.Fatalf("unexpected booking %s / %v", got.BookingID, got.TotalAmount)
	}
	if len(got.LineItems) != 1 || got.LineItems[0].ServiceName != "Oil change" {
		t.Fatalf("line items were not stored: %+v", got.LineItems)
	}
	if got.Vehicle.LicensePlate != "ABC-123" || got.PickupLocation.Type != model.PickupTypeServiceCenter {
		t.Fatalf("snapshots were not stored: %+v %+v", got.Vehicle, got.PickupLocation)
	}
	if len(got.Timeline) != 1 || got.Timeline[0].Notes != "Booking created" {
		t.Fatalf("expected creation entry, got %+v", got.Timeline)
	}
	if !got.ScheduledDateTime.Equal(b.ScheduledDateTime) {
		t.Fatalf("scheduled time changed: %v != %v", got.ScheduledDateTime, b.ScheduledDateTime)
	}

	byCode, err := repo.GetByBookingID(ctx, b.BookingID)
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if byCode.ID != b.ID {
		t.Fatalf("expected %s, got %s", b.ID, byCode.ID)
	}

	if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByBookingID(ctx, "BK-NOPE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGormBookingRepository_DuplicateBookingID(t *testing.T) {
	repo := NewGormBookingRepository(newTestDB(t))

	first := newTestBooking(uuid.New(), uuid.New(), base.Add(time.Hour), 10)
	mustCreate(t, repo, first)

	second := newTestBooking(uuid.New(), uuid.New(), base.Add(2*time.Hour), 20)
	second.BookingID = first.BookingID
	if err := repo.Create(context.Background(), second); !errors.Is(err, ErrDuplicateBookingID) {
		t.Fatalf("expected ErrDuplicateBookingID, got %v", err)
	}
}

func TestGormBookingRepository_ListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	repo := NewGormBookingRepository(newTestDB(t))

	customer := uuid.New()
	center := uuid.New()
	var created []*model.Booking
	for i := 0; i < 5; i++ {
		b := newTestBooking(customer, center, base.Add(time.Duration(i+1)*24*time.Hour), 10)
		b.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		mustCreate(t, repo, b)
		created = append(created, b)
	}
	mustCreate(t, repo, newTestBooking(uuid.New(), center, base.Add(time.Hour), 10))

	page, total, err := repo.List(ctx, BookingFilter{CustomerID: &customer}, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 || len(page) != 2 {
		t.Fatalf("expected 2 of 5, got %d of %d", len(page), total)
	}
	// Новые сверху.
	if page[0].ID != created[4].ID || page[1].ID != created[3].ID {
		t.Fatalf("unexpected order: %s, %s", page[0].BookingID, page[1].BookingID)
	}

	last, _, err := repo.List(ctx, BookingFilter{CustomerID: &customer}, 2, 4)
	if err != nil {
		t.Fatalf("list last page: %v", err)
	}
	if len(last) != 1 || last[0].ID != created[0].ID {
		t.Fatalf("unexpected last page %+v", last)
	}

	from := base.Add(2 * 24 * time.Hour)
	to := base.Add(3 * 24 * time.Hour)
	ranged, total, err := repo.List(ctx, BookingFilter{ServiceCenterID: &center, From: &from, To: &to}, 0, 0)
	if err != nil {
		t.Fatalf("list by range: %v", err)
	}
	if total != 2 || len(ranged) != 2 {
		t.Fatalf("expected 2 bookings in range, got %d", total)
	}

	_, total, err = repo.List(ctx, BookingFilter{Status: model.BookingStatusCompleted}, 10, 0)
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected no completed bookings, got %d", total)
	}
}

func TestGormBookingRepository_ListByScheduledRangeOrdersAscending(t *testing.T) {
	ctx := context.Background()
	repo := NewGormBookingRepository(newTestDB(t))

	center := uuid.New()
	late := newTestBooking(uuid.New(), center, base.Add(5*time.Hour), 10)
	early := newTestBooking(uuid.New(), center, base.Add(1*time.Hour), 10)
	outside := newTestBooking(uuid.New(), center, base.Add(48*time.Hour), 10)
	for _, b := range []*model.Booking{late, early, outside} {
		mustCreate(t, repo, b)
	}

	from, to := base, base.Add(24*time.Hour)
	items, err := repo.ListByScheduledRange(ctx, BookingFilter{ServiceCenterID: &center, From: &from, To: &to})
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(items) != 2 || items[0].ID != early.ID || items[1].ID != late.ID {
		t.Fatalf("expected [early, late], got %d items", len(items))
	}
}

func TestGormBookingRepository_ApplyTransitionDetectsRace(t *testing.T) {
	ctx := context.Background()
	repo := NewGormBookingRepository(newTestDB(t))

	b := newTestBooking(uuid.New(), uuid.New(), base.Add(24*time.Hour), 10)
	mustCreate(t, repo, b)

	first, _ := repo.GetByID(ctx, b.ID)
	second, _ := repo.GetByID(ctx, b.ID)

	from, entry := moveStatus(first, model.BookingStatusConfirmed, base.Add(time.Hour))
	if err := repo.ApplyTransition(ctx, first, from, entry); err != nil {
		t.Fatalf("first transition: %v", err)
	}

	from, entry = moveStatus(second, model.BookingStatusCancelled, base.Add(time.Hour))
	if err := repo.ApplyTransition(ctx, second, from, entry); !errors.Is(err, ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged, got %v", err)
	}

	got, err := repo.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != model.BookingStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", got.Status)
	}
	if len(got.Timeline) != 2 || got.Timeline[1].Status != model.BookingStatusConfirmed {
		t.Fatalf("lost race must not append an entry, got %+v", got.Timeline)
	}

	ghost := newTestBooking(uuid.New(), uuid.New(), base, 10)
	from, entry = moveStatus(ghost, model.BookingStatusConfirmed, base)
	if err := repo.ApplyTransition(ctx, ghost, from, entry); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGormBookingRepository_ApplyTransitionStoresCancellation(t *testing.T) {
	ctx := context.Background()
	repo := NewGormBookingRepository(newTestDB(t))

	b := newTestBooking(uuid.New(), uuid.New(), base.Add(24*time.Hour), 10)
	mustCreate(t, repo, b)

	at := base.Add(2 * time.Hour)
	from, entry := moveStatus(b, model.BookingStatusCancelled, at)
	b.CancellationReason = "changed plans"
	b.CancelledBy = &b.CustomerID
	b.CancelledAt = &at
	if err := repo.ApplyTransition(ctx, b, from, entry); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, _ := repo.GetByID(ctx, b.ID)
	if got.CancellationReason != "changed plans" || got.CancelledAt == nil || !got.CancelledAt.Equal(at) {
		t.Fatalf("cancellation fields not stored: %+v", got)
	}
	if got.CancelledBy == nil || *got.CancelledBy != b.CustomerID {
		t.Fatalf("expected cancelled_by %s, got %v", b.CustomerID, got.CancelledBy)
	}
}

func TestGormBookingRepository_UpdateRatingOnlyCompleted(t *testing.T) {
	ctx := context.Background()
	repo := NewGormBookingRepository(newTestDB(t))

	b := newTestBooking(uuid.New(), uuid.New(), base.Add(24*time.Hour), 10)
	mustCreate(t, repo, b)

	rating := model.Rating{Score: 5, Review: "Great", ReviewDate: base}
	if err := repo.UpdateRating(ctx, b.ID, rating, base); !errors.Is(err, ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged for pending booking, got %v", err)
	}

	for _, st := range []model.BookingStatus{model.BookingStatusConfirmed, model.BookingStatusInProgress, model.BookingStatusCompleted} {
		from, entry := moveStatus(b, st, base.Add(time.Hour))
		if err := repo.ApplyTransition(ctx, b, from, entry); err != nil {
			t.Fatalf("transition to %s: %v", st, err)
		}
	}

	if err := repo.UpdateRating(ctx, b.ID, rating, base.Add(2*time.Hour)); err != nil {
		t.Fatalf("rate: %v", err)
	}
	got, _ := repo.GetByID(ctx, b.ID)
	if got.Rating == nil || got.Rating.Score != 5 || got.Rating.Review != "Great" {
		t.Fatalf("rating not stored: %+v", got.Rating)
	}
	if len(got.Timeline) != 4 {
		t.Fatalf("rating must not add timeline entries, got %d", len(got.Timeline))
	}
}

func TestGormBookingRepository_UpdatePaymentStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewGormBookingRepository(newTestDB(t))

	b := newTestBooking(uuid.New(), uuid.New(), base.Add(24*time.Hour), 10)
	mustCreate(t, repo, b)

	if err := repo.UpdatePaymentStatus(ctx, b.ID, model.PaymentStatusPending, model.PaymentStatusPaid, base); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if err := repo.UpdatePaymentStatus(ctx, b.ID, model.PaymentStatusPending, model.PaymentStatusFailed, base); !errors.Is(err, ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged, got %v", err)
	}
	if err := repo.UpdatePaymentStatus(ctx, uuid.New(), model.PaymentStatusPending, model.PaymentStatusPaid, base); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, _ := repo.GetByID(ctx, b.ID)
	if got.PaymentStatus != model.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", got.PaymentStatus)
	}
}

func TestGormBookingRepository_CountOverlapping(t *testing.T) {
	ctx := context.Background()
	repo := NewGormBookingRepository(newTestDB(t))

	center := uuid.New()
	// 10:00 - 11:15
	active := newTestBooking(uuid.New(), center, base, 10)
	mustCreate(t, repo, active)

	cancelled := newTestBooking(uuid.New(), center, base, 10)
	mustCreate(t, repo, cancelled)
	from, entry := moveStatus(cancelled, model.BookingStatusCancelled, base)
	if err := repo.ApplyTransition(ctx, cancelled, from, entry); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	mustCreate(t, repo, newTestBooking(uuid.New(), uuid.New(), base, 10))

	cases := []struct {
		start, end time.Time
		want       int64
	}{
		{base.Add(time.Hour), base.Add(2 * time.Hour), 1},
		{base.Add(-time.Hour), base.Add(time.Minute), 1},
		{base.Add(75 * time.Minute), base.Add(2 * time.Hour), 0},
		{base.Add(-time.Hour), base, 0},
	}
	for _, tc := range cases {
		n, err := repo.CountOverlapping(ctx, center, tc.start, tc.end)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != tc.want {
			t.Fatalf("[%s, %s): expected %d, got %d", tc.start.Format(time.Kitchen), tc.end.Format(time.Kitchen), tc.want, n)
		}
	}
}

func TestGormBookingRepository_RevenueStats(t *testing.T) {
	ctx := context.Background()
	repo := NewGormBookingRepository(newTestDB(t))
	center := uuid.New()

	paid := newTestBooking(uuid.New(), center, base.Add(time.Hour), 89.99)
	mustCreate(t, repo, paid)
	for _, st := range []model.BookingStatus{model.BookingStatusConfirmed, model.BookingStatusInProgress, model.BookingStatusCompleted} {
		from, entry := moveStatus(paid, st, base.Add(time.Hour))
		if err := repo.ApplyTransition(ctx, paid, from, entry); err != nil {
			t.Fatalf("transition: %v", err)
		}
	}
	if err := repo.UpdatePaymentStatus(ctx, paid.ID, model.PaymentStatusPending, model.PaymentStatusPaid, base); err != nil {
		t.Fatalf("pay: %v", err)
	}

	// Ожидает оплаты: в выручку не входит.
	mustCreate(t, repo, newTestBooking(uuid.New(), center, base.Add(2*time.Hour), 234.50))

	// Другой центр.
	other := newTestBooking(uuid.New(), uuid.New(), base.Add(time.Hour), 50)
	mustCreate(t, repo, other)
	for _, st := range []model.BookingStatus{model.BookingStatusConfirmed, model.BookingStatusInProgress} {
		from, entry := moveStatus(other, st, base.Add(time.Hour))
		if err := repo.ApplyTransition(ctx, other, from, entry); err != nil {
			t.Fatalf("transition: %v", err)
		}
	}
	if err := repo.UpdatePaymentStatus(ctx, other.ID, model.PaymentStatusPending, model.PaymentStatusPaid, base); err != nil {
		t.Fatalf("pay: %v", err)
	}

	from, to := base.Add(-24*time.Hour), base.Add(24*time.Hour)

	stats, err := repo.RevenueStats(ctx, from, to, &center)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalRevenue != 89.99 || stats.TotalBookings != 1 {
		t.Fatalf("expected 89.99 / 1, got %v / %d", stats.TotalRevenue, stats.TotalBookings)
	}

	all, err := repo.RevenueStats(ctx, from, to, nil)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if all.TotalBookings != 2 {
		t.Fatalf("expected 2 bookings across centers, got %d", all.TotalBookings)
	}

	empty, err := repo.RevenueStats(ctx, base.Add(48*time.Hour), base.Add(72*time.Hour), nil)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if empty.TotalRevenue != 0 || empty.TotalBookings != 0 {
		t.Fatalf("expected empty stats, got %+v", empty)
	}
}
