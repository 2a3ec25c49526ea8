package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/campussafety/safety-dashboard/internal/config"
	"github.com/campussafety/safety-dashboard/internal/database/migrations"
	"github.com/campussafety/safety-dashboard/internal/models"
)

// Connect opens the store selected by DB_DRIVER.
func Connect(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == "sqlite" {
		// every sqlite connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	log.Info("database connected", zap.String("driver", cfg.DBDriver))
	return db, nil
}

// Dialector picks the gorm driver for DB_DRIVER.
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "postgres":
		return postgres.Open(PostgresDSN(cfg)), nil
	case "mysql":
		dsn := cfg.DBSource
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=%s",
				cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBTimezone)
		}
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(cfg.DBSource), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// PostgresDSN honours DB_SOURCE when set and otherwise builds a key/value DSN.
func PostgresDSN(cfg *config.Config) string {
	if cfg.DBSource != "" {
		return cfg.DBSource
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode, cfg.DBTimezone,
	)
}

// LocalModels are the tables the dashboard owns.
func LocalModels() []interface{} {
	return []interface{}{&models.AdminSettings{}, &models.AnalyticsSnapshot{}, &models.JobRun{}}
}

// MigrateLocal creates the dashboard's own tables. On sqlite the mobile
// backend's tables are created too so local development has somewhere to
// read from.
func MigrateLocal(db *gorm.DB, driver string) error {
	tables := LocalModels()
	if driver == "sqlite" {
		tables = append(tables, &models.Report{}, &models.News{})
	}
	return db.AutoMigrate(tables...)
}

// SchemaFile is the embedded SQL applied by cmd/migrate.
const SchemaFile = "dashboard_schema.sql"

// SchemaSQL returns the embedded dashboard schema.
func SchemaSQL() (string, error) {
	data, err := migrations.Files.ReadFile(SchemaFile)
	if err != nil {
		return "", fmt.Errorf("read embedded schema: %w", err)
	}
	return string(data), nil
}
