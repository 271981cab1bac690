package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
)

// Хранилище бронирований.
const (
	BookingStoreSQL   = "sql"
	BookingStoreMongo = "mongo"
)

type HTTPConfig struct {
	Addr        string
	GinMode     string
	CORSOrigins []string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string // text | json
}

type AppConfig struct {
	DB           *DBConfig
	BookingStore string
	Mongo        MongoConfig
	HTTP         HTTPConfig
	GRPCAddr     string
	JWTSecret    string
	Kafka        KafkaConfig
	Redis        RedisConfig
	Log          LogConfig
}

// LoadEnvFile подгружает .env, если он есть. Отсутствие файла не ошибка.
func LoadEnvFile(paths ...string) error {
	return godotenv.Load(paths...)
}

func Load() (*AppConfig, error) {
	dbCfg, err := LoadDBConfig()
	if err != nil {
		return nil, err
	}

	cfg := &AppConfig{
		DB:           dbCfg,
		BookingStore: strings.ToLower(getEnv("BOOKING_STORE", BookingStoreSQL)),
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DB", "autoservice"),
		},
		HTTP: HTTPConfig{
			Addr:        getEnv("HTTP_ADDR", ":8080"),
			GinMode:     getEnv("GIN_MODE", "release"),
			CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),
		},
		GRPCAddr:  getEnv("GRPC_ADDR", ":50051"),
		JWTSecret: getEnv("JWT_SECRET", ""),
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "booking.events"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if cfg.BookingStore != BookingStoreSQL && cfg.BookingStore != BookingStoreMongo {
		return nil, fmt.Errorf("invalid BOOKING_STORE %q: want sql or mongo", cfg.BookingStore)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	return cfg, nil
}
