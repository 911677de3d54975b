package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emilythestrangee/forum/backend/internal/config"
	"github.com/emilythestrangee/forum/backend/internal/models"
)

// Service owns the gorm connection used by the repositories.
type Service interface {
	// Health pings the database within ctx and reports pool usage.
	Health(ctx context.Context) Health
	Close() error
	DB() *gorm.DB
}

// Health is the database section of the /health response.
type Health struct {
	Status          string `json:"status"`
	Error           string `json:"error,omitempty"`
	PingMillis      int64  `json:"ping_ms"`
	OpenConnections int    `json:"open_connections"`
	InUse           int    `json:"in_use"`
	Idle            int    `json:"idle"`
	WaitCount       int64  `json:"wait_count"`
}

// Up reports whether the last ping succeeded.
func (h Health) Up() bool { return h.Status == "up" }

type service struct {
	db *gorm.DB
}

// Models lists every table the application owns, in migration order.
func Models() []any {
	return []any{
		&models.User{},
		&models.Forum{},
		&models.Subscription{},
		&models.Post{},
		&models.Comment{},
		&models.Vote{},
	}
}

func New(cfg *config.Config) (Service, error) {
	logLevel := logger.Warn
	if !cfg.IsProduction() {
		logLevel = logger.Info
	}

	// Configure GORM logger
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  !cfg.IsProduction(),
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("Database connected")

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("Database migrations completed")

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &service{db: db}, nil
}

func (s *service) DB() *gorm.DB {
	return s.db
}

func (s *service) Health(ctx context.Context) Health {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	sqlDB, err := s.db.DB()
	if err != nil {
		return Health{Status: "down", Error: err.Error()}
	}

	start := time.Now()
	err = sqlDB.PingContext(ctx)
	return newHealth(err, time.Since(start), sqlDB.Stats())
}

func newHealth(pingErr error, latency time.Duration, stats sql.DBStats) Health {
	h := Health{
		Status:          "up",
		PingMillis:      latency.Milliseconds(),
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
	}
	if pingErr != nil {
		h.Status = "down"
		h.Error = pingErr.Error()
	}
	return h
}

func (s *service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	slog.Info("Database connection closed")
	return nil
}
