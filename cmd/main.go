package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Leganyst/autoservice-booking/internal/api"
	"github.com/Leganyst/autoservice-booking/internal/booking"
	"github.com/Leganyst/autoservice-booking/internal/config"
	"github.com/Leganyst/autoservice-booking/internal/db"
	"github.com/Leganyst/autoservice-booking/internal/events"
	"github.com/Leganyst/autoservice-booking/internal/logger"
	"github.com/Leganyst/autoservice-booking/internal/model"
	"github.com/Leganyst/autoservice-booking/internal/repository"
	"github.com/Leganyst/autoservice-booking/internal/service"
)

const serviceName = "autoservice.booking"

func main() {
	// 1. Конфиг: .env (если есть) и переменные окружения.
	envErr := config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	log := logger.New(cfg.Log)
	if envErr != nil {
		log.Debug("no .env file found, using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Подключаемся к БД через GORM.
	gormDB, err := db.NewGormDB(cfg.DB, log)
	if err != nil {
		log.Fatalf("init db: %v", err)
	}

	// 3. Миграции моделей.
	if err := model.AutoMigrate(gormDB); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatalf("sql DB: %v", err)
	}
	defer sqlDB.Close()

	// 4. Репозитории. Бронирования хранятся в SQL или в Mongo.
	userRepo := repository.NewGormUserRepository(gormDB)
	serviceRepo := repository.NewGormServiceRepository(gormDB)
	centerRepo := repository.NewGormServiceCenterRepository(gormDB)

	var bookingRepo repository.BookingRepository = repository.NewGormBookingRepository(gormDB)
	if cfg.BookingStore == config.BookingStoreMongo {
		mongoClient, err := db.NewMongoClient(ctx, &cfg.Mongo)
		if err != nil {
			log.Fatalf("init mongo: %v", err)
		}
		defer disconnectMongo(mongoClient, log)

		mongoRepo := repository.NewMongoBookingRepository(mongoClient.Database(cfg.Mongo.Database))
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			log.Fatalf("mongo indexes: %v", err)
		}
		bookingRepo = mongoRepo
	}

	// 5. Счётчик кодов бронирований: общий в Redis или локальный.
	var seq booking.Sequencer = booking.NewAtomicSequencer()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping: %v", err)
		}
		seq = booking.NewRedisSequencer(rdb)
	}

	// 6. Шина событий.
	var publisher events.Publisher = events.NewLogPublisher(log)
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}
	defer publisher.Close()

	// 7. Сервисы и HTTP.
	identitySvc := service.NewIdentityService(userRepo)
	catalogSvc := service.NewCatalogService(serviceRepo, centerRepo)
	bookingSvc := service.NewBookingService(bookingRepo, userRepo, catalogSvc, booking.NewIDGenerator(seq), publisher, log)

	gin.SetMode(cfg.HTTP.GinMode)
	handler := api.NewHandler(bookingSvc, catalogSvc, identitySvc, log)
	router := api.NewRouter(
		api.RouterConfig{CORSOrigins: cfg.HTTP.CORSOrigins},
		handler,
		api.AuthMiddleware([]byte(cfg.JWTSecret), identitySvc, log),
		log,
	)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 8. gRPC: только health и reflection.
	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	reflection.Register(grpcServer)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen %s: %v", cfg.GRPCAddr, err)
	}

	// 9. Запускаем серверы в горутинах.
	go func() {
		log.Infof("gRPC health server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()
	go func() {
		log.Infof("HTTP server listening on %s", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	// 10. Грейсфул-шатдаун по сигналу.
	<-ctx.Done()
	log.Info("shutting down...")

	healthSrv.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	grpcServer.GracefulStop()
}

func disconnectMongo(client *mongo.Client, log *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.WithError(err).Warn("mongo disconnect")
	}
}
