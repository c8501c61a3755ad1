// Package postgres provides the gorm-backed user store of the tokengate service.
// PostgreSQL is the production driver; SQLite serves local development and tests.
package postgres

import (
	"context"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/turtacn/tokengate/internal/config"
	"github.com/turtacn/tokengate/internal/domain/models"
	"github.com/turtacn/tokengate/pkg/errors"
	"github.com/turtacn/tokengate/pkg/logger"
)

// DBConnection manages the database handle and its connection pool.
type DBConnection struct {
	db     *gorm.DB
	config config.DatabaseConfig
	logger logger.Logger
}

// NewDBConnection opens the database named by cfg and performs an initial health check.
//
// Parameters:
//   - ctx: Context for connection timeout control
//   - cfg: Database configuration including driver, credentials and pool settings
//   - log: Logger instance for connection lifecycle events
func NewDBConnection(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger) (*DBConnection, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.GetDSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, errors.ErrInvalidConfig.WithMessage("database.driver %q is not supported", cfg.Driver)
	}

	log.Info(ctx, "Opening database connection", logger.Fields{
		"driver":   cfg.Driver,
		"host":     cfg.Host,
		"database": cfg.Database,
	})

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		log.Error(ctx, "Failed to open database", err)
		return nil, errors.ErrDatabase.WithMessage("failed to open database").WithError(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.ErrDatabase.WithError(err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxConnLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxConnLifetime) * time.Minute)
	}

	conn := &DBConnection{db: db, config: cfg, logger: log}
	if err := conn.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return conn, nil
}

// DB returns the gorm handle used by repositories.
func (c *DBConnection) DB() *gorm.DB {
	return c.db
}

// Migrate creates the users, roles and users_roles tables and seeds the default roles.
func (c *DBConnection) Migrate(ctx context.Context) error {
	return Migrate(ctx, c.db)
}

// Migrate creates the schema on db and seeds the default roles.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&models.Role{}, &models.User{}); err != nil {
		return errors.ErrDatabase.WithMessage("failed to migrate schema").WithError(err)
	}
	for _, name := range models.DefaultRoles {
		role := models.Role{Name: name}
		if err := db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&role).Error; err != nil {
			return errors.ErrDatabase.WithMessage("failed to seed role %s", name).WithError(err)
		}
	}
	return nil
}

// Ping verifies database connectivity and responsiveness.
func (c *DBConnection) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	sqlDB, err := c.db.DB()
	if err != nil {
		return errors.ErrDatabase.WithError(err)
	}

	start := time.Now()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		c.logger.Error(ctx, "Database ping failed", err)
		return errors.ErrDatabase.WithMessage("database is unreachable").WithError(err)
	}

	// Warn if latency is high (> 100ms)
	if latency := time.Since(start); latency > 100*time.Millisecond {
		c.logger.Warn(ctx, "High database latency detected", logger.Fields{
			"latency_ms":   latency.Milliseconds(),
			"threshold_ms": 100,
		})
	}
	return nil
}

// Close closes the connection pool.
func (c *DBConnection) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	c.logger.Info(context.Background(), "Closing database connection pool", logger.Fields{
		"open_connections": sqlDB.Stats().OpenConnections,
	})
	return sqlDB.Close()
}
