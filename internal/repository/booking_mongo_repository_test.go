package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Leganyst/autoservice-booking/internal/db"
	"github.com/Leganyst/autoservice-booking/internal/model"
)

func TestMongoFilter(t *testing.T) {
	if f := mongoFilter(BookingFilter{}); len(f) != 0 {
		t.Fatalf("empty filter must match everything, got %v", f)
	}

	center := uuid.New()
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	f := mongoFilter(BookingFilter{ServiceCenterID: &center, Status: model.BookingStatusConfirmed, From: &from})

	if f["service_center_id"] != center || f["status"] != model.BookingStatusConfirmed {
		t.Fatalf("unexpected filter %v", f)
	}
	rng, ok := f["scheduled_date_time"].(bson.M)
	if !ok {
		t.Fatalf("expected range on scheduled_date_time, got %v", f["scheduled_date_time"])
	}
	if rng["$gte"] != from {
		t.Fatalf("expected $gte %v, got %v", from, rng["$gte"])
	}
	if _, hasUpper := rng["$lte"]; hasUpper {
		t.Fatalf("unexpected upper bound")
	}
}

// newMongoMock поднимает mtest без сервера: ответы задаются через AddMockResponses.
func newMongoMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().
		ClientType(mtest.Mock).
		ClientOptions(options.Client().SetRegistry(db.MongoRegistry())))
}

func mongoTransitionFixture() (*model.Booking, model.TimelineEntry) {
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	b := &model.Booking{ID: uuid.New(), Status: model.BookingStatusConfirmed, UpdatedAt: at}
	entry := model.TimelineEntry{Seq: 2, Status: model.BookingStatusConfirmed, Timestamp: at}
	return b, entry
}

func TestMongoBookingRepository_ApplyTransition(t *testing.T) {
	mt := newMongoMock(t)
	ctx := context.Background()

	mt.Run("matched", func(mt *mtest.T) {
		repo := NewMongoBookingRepository(mt.DB)
		b, entry := mongoTransitionFixture()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		if err := repo.ApplyTransition(ctx, b, model.BookingStatusPending, entry); err != nil {
			mt.Fatalf("apply: %v", err)
		}

		cmd := mt.GetStartedEvent().Command
		if got := cmd.Lookup("updates", "0", "q", "status").StringValue(); got != string(model.BookingStatusPending) {
			mt.Fatalf("update must be guarded by the previous status, got %q", got)
		}
		if got := cmd.Lookup("updates", "0", "u", "$set", "status").StringValue(); got != string(model.BookingStatusConfirmed) {
			mt.Fatalf("unexpected $set status %q", got)
		}
		if got, ok := cmd.Lookup("updates", "0", "u", "$push", "timeline", "seq").AsInt64OK(); !ok || got != 2 {
			mt.Fatalf("timeline entry must be pushed in the same update, got seq %d", got)
		}
	})

	mt.Run("status changed", func(mt *mtest.T) {
		repo := NewMongoBookingRepository(mt.DB)
		b, entry := mongoTransitionFixture()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "test.bookings", mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)
		if err := repo.ApplyTransition(ctx, b, model.BookingStatusPending, entry); !errors.Is(err, ErrStatusChanged) {
			mt.Fatalf("expected ErrStatusChanged, got %v", err)
		}
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := NewMongoBookingRepository(mt.DB)
		b, entry := mongoTransitionFixture()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "test.bookings", mtest.FirstBatch),
		)
		if err := repo.ApplyTransition(ctx, b, model.BookingStatusPending, entry); !errors.Is(err, ErrNotFound) {
			mt.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestMongoBookingRepository_RevenueStats(t *testing.T) {
	mt := newMongoMock(t)
	ctx := context.Background()
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)

	mt.Run("no paid bookings", func(mt *mtest.T) {
		repo := NewMongoBookingRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.bookings", mtest.FirstBatch))

		stats, err := repo.RevenueStats(ctx, from, to, nil)
		if err != nil {
			mt.Fatalf("stats: %v", err)
		}
		if stats.TotalRevenue != 0 || stats.TotalBookings != 0 {
			mt.Fatalf("expected zero stats, got %+v", stats)
		}
	})

	mt.Run("single group", func(mt *mtest.T) {
		repo := NewMongoBookingRepository(mt.DB)
		center := uuid.New()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.bookings", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: 89.99},
			{Key: "count", Value: int64(1)},
		}))

		stats, err := repo.RevenueStats(ctx, from, to, &center)
		if err != nil {
			mt.Fatalf("stats: %v", err)
		}
		if stats.TotalRevenue != 89.99 || stats.TotalBookings != 1 {
			mt.Fatalf("unexpected stats %+v", stats)
		}
		match := mt.GetStartedEvent().Command.Lookup("pipeline", "0", "$match").Document()
		if match.Lookup("service_center_id").Type != bson.TypeBinary {
			mt.Fatalf("center filter missing from $match: %v", match)
		}
	})
}

func TestMongoBookingRepository_CreateDuplicateCode(t *testing.T) {
	mt := newMongoMock(t)

	mt.Run("duplicate key", func(mt *mtest.T) {
		repo := NewMongoBookingRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: test.bookings index: booking_id_1",
		}))

		b := &model.Booking{BookingID: "BK-20250310-000001-ABC123"}
		if err := repo.Create(context.Background(), b); !errors.Is(err, ErrDuplicateBookingID) {
			mt.Fatalf("expected ErrDuplicateBookingID, got %v", err)
		}
		if b.ID == uuid.Nil {
			mt.Fatalf("Create must assign an id before inserting")
		}
	})
}
