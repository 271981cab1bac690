package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Leganyst/autoservice-booking/internal/booking"
)

const actorKey = "actor"

// Claims: полезная нагрузка токена доступа. sub содержит ID пользователя, role его роль.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ActorResolver загружает пользователя по ID из токена.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID uuid.UUID) (booking.Actor, error)
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
		Error:   "unauthorized",
		Message: msg,
	})
}

// AuthMiddleware проверяет Bearer JWT и кладёт Actor в контекст запроса.
func AuthMiddleware(secret []byte, resolver ActorResolver, log *logrus.Logger) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "authorization header required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			unauthorized(c, "token must be in format: Bearer <token>")
			return
		}

		claims := &Claims{}
		token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
			return secret, nil
		})
		if err != nil || !token.Valid {
			log.WithError(err).Debug("jwt rejected")
			unauthorized(c, "token is invalid or expired")
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			unauthorized(c, "token subject is not a user id")
			return
		}

		actor, err := resolver.ResolveActor(c.Request.Context(), userID)
		if err != nil {
			var perr *booking.PersistenceError
			if errors.As(err, &perr) {
				writeError(c, log, err)
				return
			}
			log.WithError(err).WithField("user_id", userID).Info("actor rejected")
			unauthorized(c, err.Error())
			return
		}
		// Роль в токене могла устареть; верим хранилищу, но устаревший токен не принимаем.
		if claims.Role != "" && claims.Role != string(actor.Role) {
			unauthorized(c, "token role does not match the user")
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) booking.Actor {
	v, _ := c.Get(actorKey)
	actor, _ := v.(booking.Actor)
	return actor
}

// AccessLog пишет в лог каждый запрос: метод, путь, статус, длительность.
func AccessLog(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("http request")
		case status >= http.StatusBadRequest:
			entry.Warn("http request")
		default:
			entry.Info("http request")
		}
	}
}
