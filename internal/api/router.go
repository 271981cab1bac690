package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	CORSOrigins []string
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

// NewRouter собирает gin.Engine: общие middleware, health и защищённые /api/v1 маршруты.
func NewRouter(cfg RouterConfig, h *Handler, auth gin.HandlerFunc, log *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(AccessLog(log))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1", auth)
	{
		v1.POST("/bookings", h.CreateBooking)
		v1.GET("/bookings", h.ListBookings)
		v1.GET("/bookings/range", h.BookingsInRange)
		v1.GET("/bookings/:id", h.GetBooking)
		v1.PATCH("/bookings/:id/status", h.TransitionBooking)
		v1.POST("/bookings/:id/cancel", h.CancelBooking)
		v1.POST("/bookings/:id/rating", h.RateBooking)
		v1.PATCH("/bookings/:id/payment", h.UpdatePayment)

		v1.GET("/stats/revenue", h.RevenueStats)

		v1.GET("/services", h.ListServices)
		v1.POST("/services", h.CreateService)
		v1.GET("/service-centers", h.ListServiceCenters)
		v1.GET("/service-centers/:id/services/:serviceId/price", h.GetCenterPrice)
		v1.PUT("/service-centers/:id/services/:serviceId/price", h.SetCenterPrice)

		v1.PATCH("/users/:id/role", h.AssignRole)
		v1.PATCH("/users/:id/status", h.SetUserStatus)
	}

	return r
}
