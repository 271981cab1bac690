package booking

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Leganyst/autoservice-booking/internal/model"
)

// NewBooking собирает бронирование из проверенного запроса и цен центра.
// Цены должны идти в том же порядке, что и ServiceIDs.
func NewBooking(in *CreateInput, prices []model.CenterPrice, code string, actor Actor, now time.Time) (*model.Booking, error) {
	if len(prices) == 0 {
		return nil, Validationf("service_ids", "is required")
	}

	items := make([]model.LineItem, 0, len(prices))
	for i, p := range prices {
		if !p.IsAvailable {
			return nil, Validationf(fmt.Sprintf("service_ids[%d]", i),
				"service %q is not available at this service center", p.ServiceName)
		}
		item, err := LineItemFromPrice(p)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	id := uuid.New()
	b := &model.Booking{
		ID:                id,
		BookingID:         code,
		CustomerID:        in.CustomerID,
		ServiceCenterID:   in.ServiceCenterID,
		LineItems:         items,
		Vehicle:           in.vehicleSnapshot(),
		PickupLocation:    in.pickupLocation(),
		ScheduledDateTime: in.ScheduledDateTime.UTC(),
		Status:            model.BookingStatusPending,
		PaymentStatus:     model.PaymentStatusPending,
		TotalAmount:       TotalAmount(items),
		Timeline: []model.TimelineEntry{{
			BookingID: id,
			Seq:       0,
			Status:    model.BookingStatusPending,
			Timestamp: now,
			UpdatedBy: actor.idPtr(),
			Notes:     creationTimelineRemark,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	eta := b.ScheduledDateTime.Add(Duration(b))
	b.EstimatedCompletionTime = &eta
	return b, nil
}

// Change описывает результат успешного перехода: исходный статус и добавленная запись журнала.
type Change struct {
	From  model.BookingStatus
	Entry model.TimelineEntry
}

// TransitionInput описывает запрос на смену статуса.
type TransitionInput struct {
	Status   model.BookingStatus `json:"status"`
	Notes    string              `json:"notes"`
	Override bool                `json:"override"`
}

// Transition: единственный способ сменить статус.
// Меняет b на месте и дописывает ровно одну запись в журнал.
func Transition(b *model.Booking, in TransitionInput, actor Actor, now time.Time) (*Change, error) {
	if in.Status == model.BookingStatusCancelled {
		return Cancel(b, in.Notes, actor, now)
	}
	if !actor.CanManage(b) {
		return nil, &AuthorizationError{Reason: "only service center staff or admins may change the booking status"}
	}
	if err := checkTransition(b.Status, in.Status, actor, in.Override); err != nil {
		return nil, err
	}

	change := apply(b, in.Status, actor, strings.TrimSpace(in.Notes), now)
	if in.Status == model.BookingStatusCompleted {
		at := change.Entry.Timestamp
		b.ActualCompletionTime = &at
	}
	return change, nil
}

// Cancel является частным случаем Transition: только из pending/confirmed и с причиной.
func Cancel(b *model.Booking, reason string, actor Actor, now time.Time) (*Change, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, Validationf("reason", "cancellation reason is required")
	}
	if utf8.RuneCountInString(reason) > MaxCancellationLen {
		return nil, Validationf("reason", "must be at most %d characters", MaxCancellationLen)
	}
	if !actor.Owns(b) && !actor.CanManage(b) {
		return nil, &AuthorizationError{Reason: "only the customer, service center staff or admins may cancel this booking"}
	}
	if err := checkTransition(b.Status, model.BookingStatusCancelled, actor, false); err != nil {
		return nil, err
	}

	change := apply(b, model.BookingStatusCancelled, actor, reason, now)
	at := change.Entry.Timestamp
	b.CancellationReason = reason
	b.CancelledBy = actor.idPtr()
	b.CancelledAt = &at
	return change, nil
}

func apply(b *model.Booking, to model.BookingStatus, actor Actor, notes string, now time.Time) *Change {
	at := now
	seq := len(b.Timeline)
	// Журнал не убывает по времени даже при расхождении часов.
	if last := b.LastTimelineEntry(); last != nil {
		if at.Before(last.Timestamp) {
			at = last.Timestamp
		}
		seq = last.Seq + 1
	}
	entry := model.TimelineEntry{
		BookingID: b.ID,
		Seq:       seq,
		Status:    to,
		Timestamp: at,
		UpdatedBy: actor.idPtr(),
		Notes:     notes,
	}
	from := b.Status
	b.Status = to
	b.Timeline = append(b.Timeline, entry)
	b.UpdatedAt = at
	return &Change{From: from, Entry: entry}
}

// AddRating ставит оценку завершённому бронированию. Журнал не меняется.
func AddRating(b *model.Booking, in RatingInput, actor Actor, now time.Time) error {
	in.Review = strings.TrimSpace(in.Review)
	if verr := validateStruct(in); len(verr.Fields) > 0 {
		return verr
	}
	if utf8.RuneCountInString(in.Review) > MaxReviewLen {
		return Validationf("review", "must be at most %d characters", MaxReviewLen)
	}
	if !actor.Owns(b) {
		return &AuthorizationError{Reason: "only the customer who made the booking may rate it"}
	}
	if b.Status != model.BookingStatusCompleted {
		return &InvalidTransitionError{From: b.Status, Reason: "only completed bookings can be rated"}
	}
	b.Rating = &model.Rating{
		Score:      in.Score,
		Review:     in.Review,
		ReviewDate: now,
	}
	b.UpdatedAt = now
	return nil
}

var paymentTransitions = map[model.PaymentStatus][]model.PaymentStatus{
	model.PaymentStatusPending:  {model.PaymentStatusPaid, model.PaymentStatusFailed},
	model.PaymentStatusFailed:   {model.PaymentStatusPending, model.PaymentStatusPaid},
	model.PaymentStatusPaid:     {model.PaymentStatusRefunded},
	model.PaymentStatusRefunded: {},
}

// UpdatePaymentStatus меняет статус оплаты. Это отдельная ось от статуса брони,
// поэтому журнал не трогаем.
func UpdatePaymentStatus(b *model.Booking, to model.PaymentStatus, actor Actor, now time.Time) (model.PaymentStatus, error) {
	if _, ok := paymentTransitions[to]; !ok {
		return "", Validationf("payment_status", "unknown payment status %q", to)
	}
	if !actor.CanManage(b) {
		return "", &AuthorizationError{Reason: "only service center staff or admins may update payments"}
	}
	from := b.PaymentStatus
	allowed := false
	for _, st := range paymentTransitions[from] {
		if st == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", &InvalidTransitionError{Reason: fmt.Sprintf("payment status %s -> %s is not allowed", from, to)}
	}
	b.PaymentStatus = to
	b.UpdatedAt = now
	return from, nil
}
