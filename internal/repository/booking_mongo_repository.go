package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Leganyst/autoservice-booking/internal/model"
)

// MongoBookingRepository хранит бронирование одним документом вместе с журналом,
// так что смена статуса и запись в журнал идут одним атомарным обновлением.
type MongoBookingRepository struct {
	col *mongo.Collection
}

func NewMongoBookingRepository(db *mongo.Database) *MongoBookingRepository {
	return &MongoBookingRepository{col: db.Collection("bookings")}
}

// EnsureIndexes создаёт индексы коллекции. Повторный вызов безопасен.
func (r *MongoBookingRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "booking_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "service_center_id", Value: 1}, {Key: "scheduled_date_time", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "scheduled_date_time", Value: 1}}},
		{Keys: bson.D{{Key: "payment_status", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, models)
	return err
}

func (r *MongoBookingRepository) Create(ctx context.Context, b *model.Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	_, err := r.col.InsertOne(ctx, b)
	return duplicateBookingID(err)
}

func (r *MongoBookingRepository) findOne(ctx context.Context, filter bson.M) (*model.Booking, error) {
	var b model.Booking
	if err := r.col.FindOne(ctx, filter).Decode(&b); err != nil {
		return nil, notFound(err)
	}
	fillTimelineOwner(&b)
	return &b, nil
}

// fillTimelineOwner восстанавливает BookingID записей журнала: в документе он не хранится.
func fillTimelineOwner(b *model.Booking) {
	for i := range b.Timeline {
		b.Timeline[i].BookingID = b.ID
	}
}

func (r *MongoBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoBookingRepository) GetByBookingID(ctx context.Context, code string) (*model.Booking, error) {
	return r.findOne(ctx, bson.M{"booking_id": code})
}

func mongoFilter(f BookingFilter) bson.M {
	filter := bson.M{}
	if f.CustomerID != nil {
		filter["customer_id"] = *f.CustomerID
	}
	if f.ServiceCenterID != nil {
		filter["service_center_id"] = *f.ServiceCenterID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.From != nil || f.To != nil {
		rng := bson.M{}
		if f.From != nil {
			rng["$gte"] = *f.From
		}
		if f.To != nil {
			rng["$lte"] = *f.To
		}
		filter["scheduled_date_time"] = rng
	}
	return filter
}

func (r *MongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]model.Booking, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]model.Booking, 0)
	for cur.Next(ctx) {
		var b model.Booking
		if err := cur.Decode(&b); err != nil {
			return nil, err
		}
		fillTimelineOwner(&b)
		out = append(out, b)
	}
	return out, cur.Err()
}

func (r *MongoBookingRepository) List(
	ctx context.Context,
	f BookingFilter,
	limit, offset int,
) ([]model.Booking, int64, error) {
	filter := mongoFilter(f)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit)).SetSkip(int64(offset))
	}
	bookings, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (r *MongoBookingRepository) ListByScheduledRange(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "scheduled_date_time", Value: 1}})
	return r.find(ctx, mongoFilter(f), opts)
}

// updateGuarded выполняет условное обновление и различает «нет документа» и «статус уже другой».
func (r *MongoBookingRepository) updateGuarded(ctx context.Context, filter, update bson.M, id uuid.UUID) error {
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStatusChanged
}

func (r *MongoBookingRepository) ApplyTransition(
	ctx context.Context,
	b *model.Booking,
	from model.BookingStatus,
	entry model.TimelineEntry,
) error {
	set := bson.M{}
	for k, v := range bookingStateColumns(b) {
		set[k] = v
	}
	update := bson.M{
		"$set":  set,
		"$push": bson.M{"timeline": entry},
	}
	return r.updateGuarded(ctx, bson.M{"_id": b.ID, "status": from}, update, b.ID)
}

func (r *MongoBookingRepository) UpdateRating(ctx context.Context, id uuid.UUID, rating model.Rating, at time.Time) error {
	filter := bson.M{"_id": id, "status": model.BookingStatusCompleted}
	update := bson.M{"$set": bson.M{"rating": rating, "updated_at": at}}
	return r.updateGuarded(ctx, filter, update, id)
}

func (r *MongoBookingRepository) UpdatePaymentStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to model.PaymentStatus,
	at time.Time,
) error {
	filter := bson.M{"_id": id, "payment_status": from}
	update := bson.M{"$set": bson.M{"payment_status": to, "updated_at": at}}
	return r.updateGuarded(ctx, filter, update, id)
}

func (r *MongoBookingRepository) CountOverlapping(
	ctx context.Context,
	centerID uuid.UUID,
	start, end time.Time,
) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{
		"service_center_id":         centerID,
		"status":                    bson.M{"$in": activeStatuses},
		"scheduled_date_time":       bson.M{"$lt": end},
		"estimated_completion_time": bson.M{"$gt": start},
	})
}

func (r *MongoBookingRepository) RevenueStats(
	ctx context.Context,
	from, to time.Time,
	centerID *uuid.UUID,
) (RevenueStats, error) {
	match := bson.M{
		"created_at":     bson.M{"$gte": from, "$lte": to},
		"status":         bson.M{"$in": revenueStatuses},
		"payment_status": model.PaymentStatusPaid,
	}
	if centerID != nil {
		match["service_center_id"] = *centerID
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.M{"$sum": "$total_amount"}},
			{Key: "count", Value: bson.M{"$sum": 1}},
		}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return RevenueStats{}, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Total float64 `bson:"total"`
		Count int64   `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return RevenueStats{}, err
	}
	if len(rows) == 0 {
		return RevenueStats{}, nil
	}
	return RevenueStats{TotalRevenue: rows[0].Total, TotalBookings: rows[0].Count}, nil
}

var (
	_ BookingRepository = (*GormBookingRepository)(nil)
	_ BookingRepository = (*MongoBookingRepository)(nil)
)
