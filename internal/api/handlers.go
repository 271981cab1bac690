package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Leganyst/autoservice-booking/internal/booking"
	"github.com/Leganyst/autoservice-booking/internal/calendar"
	"github.com/Leganyst/autoservice-booking/internal/model"
	"github.com/Leganyst/autoservice-booking/internal/repository"
	"github.com/Leganyst/autoservice-booking/internal/service"
)

type Handler struct {
	bookings *service.BookingService
	catalog  *service.CatalogService
	identity *service.IdentityService
	log      *logrus.Logger
}

func NewHandler(
	bookings *service.BookingService,
	catalog *service.CatalogService,
	identity *service.IdentityService,
	log *logrus.Logger,
) *Handler {
	return &Handler{bookings: bookings, catalog: catalog, identity: identity, log: log}
}

type listResponse[T any] struct {
	Data       []T               `json:"data"`
	Pagination calendar.PageMeta `json:"pagination"`
}

// optionalUUID читает необязательный UUID из query. при ok=false ответ уже отправлен.
func optionalUUID(c *gin.Context, key string) (*uuid.UUID, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, key, "must be a UUID")
		return nil, false
	}
	return &id, true
}

func optionalTime(c *gin.Context, key string, upper bool) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := calendar.ParseBound(raw, upper)
	if err != nil {
		badRequest(c, key, "must be RFC3339 or YYYY-MM-DD")
		return nil, false
	}
	return &t, true
}

func intQuery(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, key, "must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "body", "malformed JSON: "+err.Error())
		return false
	}
	return true
}

// POST /api/v1/bookings
func (h *Handler) CreateBooking(c *gin.Context) {
	var in booking.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	b, err := h.bookings.Create(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GET /api/v1/bookings
func (h *Handler) ListBookings(c *gin.Context) {
	page, ok := intQuery(c, "page")
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	customerID, ok := optionalUUID(c, "customer_id")
	if !ok {
		return
	}
	centerID, ok := optionalUUID(c, "service_center_id")
	if !ok {
		return
	}
	from, ok := optionalTime(c, "from", false)
	if !ok {
		return
	}
	to, ok := optionalTime(c, "to", true)
	if !ok {
		return
	}

	items, meta, err := h.bookings.List(c.Request.Context(), actorFrom(c), service.ListQuery{
		Filter: repository.BookingFilter{
			CustomerID:      customerID,
			ServiceCenterID: centerID,
			Status:          model.BookingStatus(c.Query("status")),
			From:            from,
			To:              to,
		},
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, listResponse[model.Booking]{Data: items, Pagination: meta})
}

// GET /api/v1/bookings/range?from=&to=
func (h *Handler) BookingsInRange(c *gin.Context) {
	from, ok := optionalTime(c, "from", false)
	if !ok {
		return
	}
	to, ok := optionalTime(c, "to", true)
	if !ok {
		return
	}
	if from == nil || to == nil {
		badRequest(c, "from", "from and to are required")
		return
	}
	centerID, ok := optionalUUID(c, "service_center_id")
	if !ok {
		return
	}

	items, err := h.bookings.Range(c.Request.Context(), actorFrom(c), *from, *to, centerID,
		model.BookingStatus(c.Query("status")))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "count": len(items)})
}

// GET /api/v1/bookings/:id
func (h *Handler) GetBooking(c *gin.Context) {
	b, err := h.bookings.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// PATCH /api/v1/bookings/:id/status
func (h *Handler) TransitionBooking(c *gin.Context) {
	var in booking.TransitionInput
	if !bindJSON(c, &in) {
		return
	}
	b, err := h.bookings.Transition(c.Request.Context(), actorFrom(c), c.Param("id"), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// POST /api/v1/bookings/:id/cancel
func (h *Handler) CancelBooking(c *gin.Context) {
	var in cancelRequest
	if !bindJSON(c, &in) {
		return
	}
	b, err := h.bookings.Cancel(c.Request.Context(), actorFrom(c), c.Param("id"), in.Reason)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /api/v1/bookings/:id/rating
func (h *Handler) RateBooking(c *gin.Context) {
	var in booking.RatingInput
	if !bindJSON(c, &in) {
		return
	}
	b, err := h.bookings.AddRating(c.Request.Context(), actorFrom(c), c.Param("id"), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type paymentRequest struct {
	PaymentStatus model.PaymentStatus `json:"payment_status"`
}

// PATCH /api/v1/bookings/:id/payment
func (h *Handler) UpdatePayment(c *gin.Context) {
	var in paymentRequest
	if !bindJSON(c, &in) {
		return
	}
	b, err := h.bookings.UpdatePayment(c.Request.Context(), actorFrom(c), c.Param("id"), in.PaymentStatus)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GET /api/v1/stats/revenue
func (h *Handler) RevenueStats(c *gin.Context) {
	from, ok := optionalTime(c, "from", false)
	if !ok {
		return
	}
	to, ok := optionalTime(c, "to", true)
	if !ok {
		return
	}
	centerID, ok := optionalUUID(c, "service_center_id")
	if !ok {
		return
	}

	report, err := h.bookings.RevenueStats(c.Request.Context(), actorFrom(c), from, to, centerID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GET /api/v1/services
func (h *Handler) ListServices(c *gin.Context) {
	page, ok := intQuery(c, "page")
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}

	items, meta, err := h.catalog.ListServices(c.Request.Context(), service.ServiceQuery{
		Category:    model.ServiceCategory(c.Query("category")),
		VehicleType: model.VehicleType(c.Query("vehicle_type")),
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, listResponse[model.Service]{Data: items, Pagination: meta})
}

// GET /api/v1/service-centers
func (h *Handler) ListServiceCenters(c *gin.Context) {
	centers, err := h.catalog.ListCenters(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": centers})
}

func pathUUID(c *gin.Context, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(key))
	if err != nil {
		badRequest(c, key, "must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// GET /api/v1/service-centers/:id/services/:serviceId/price
func (h *Handler) GetCenterPrice(c *gin.Context) {
	centerID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	serviceID, ok := pathUUID(c, "serviceId")
	if !ok {
		return
	}

	price, err := h.catalog.GetPriceForCenter(c.Request.Context(), serviceID, centerID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, price)
}

// POST /api/v1/services
func (h *Handler) CreateService(c *gin.Context) {
	var in booking.ServiceInput
	if !bindJSON(c, &in) {
		return
	}
	svc, err := h.catalog.CreateService(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, svc)
}

// PUT /api/v1/service-centers/:id/services/:serviceId/price
func (h *Handler) SetCenterPrice(c *gin.Context) {
	centerID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	serviceID, ok := pathUUID(c, "serviceId")
	if !ok {
		return
	}
	var in booking.PricingInput
	if !bindJSON(c, &in) {
		return
	}

	price, err := h.catalog.SetCenterPrice(c.Request.Context(), actorFrom(c), serviceID, centerID, in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, price)
}

type roleRequest struct {
	Role            model.UserRole `json:"role"`
	ServiceCenterID *uuid.UUID     `json:"service_center_id"`
}

// PATCH /api/v1/users/:id/role
func (h *Handler) AssignRole(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var in roleRequest
	if !bindJSON(c, &in) {
		return
	}
	u, err := h.identity.AssignRole(c.Request.Context(), actorFrom(c), userID, in.Role, in.ServiceCenterID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type userStatusRequest struct {
	Status model.UserStatus `json:"status"`
}

// PATCH /api/v1/users/:id/status
func (h *Handler) SetUserStatus(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var in userStatusRequest
	if !bindJSON(c, &in) {
		return
	}
	u, err := h.identity.SetUserStatus(c.Request.Context(), actorFrom(c), userID, in.Status)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
