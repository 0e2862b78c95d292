package database

import (
	"github.com/pulseesg/backend/internal/config"
	"github.com/pulseesg/backend/internal/logger"
	"github.com/pulseesg/backend/internal/models"
	"github.com/rotisserie/eris"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open returns the gorm dialector for the configured driver.
func Open(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	dsn := cfg.DSN()
	switch cfg.Driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, eris.Errorf("database: unsupported driver %q", cfg.Driver)
	}
}

// Connect initializes the database connection
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Error),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "database: connect (%s)", cfg.Driver)
	}

	logger.Info("Database connected successfully", map[string]interface{}{
		"driver": cfg.Driver,
	})
	return db, nil
}

// AutoMigrate creates or updates the application tables.
func AutoMigrate(db *gorm.DB) error {
	for _, model := range []interface{}{
		&models.Analyst{},
		&models.Company{},
		&models.ESGAnalysis{},
	} {
		if err := db.AutoMigrate(model); err != nil {
			return eris.Wrapf(err, "database: migrate %T", model)
		}
	}

	logger.Info("Database migrated successfully", nil)
	return nil
}

// Ping checks the underlying connection; used by the health endpoint.
func Ping(db *gorm.DB) error {
	if db == nil {
		return eris.New("database connection not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
