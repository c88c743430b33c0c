package db

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenPostgres connects to Postgres and migrates the given models.
func OpenPostgres(dsn string, log *zap.Logger, models ...interface{}) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	if err := conn.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}

	log.Info("Database connected and migrated successfully", zap.String("driver", "postgres"))
	return conn, nil
}

// ClosePostgres releases the pool behind conn.
func ClosePostgres(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
