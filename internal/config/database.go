package config

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"attendance_gate/internal/models"
	"attendance_gate/internal/store"
)

// InitDB opens the Postgres connection, migrates the attendance tables and
// installs the change-notification triggers.
func InitDB(cfg Database) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.New(logrus.StandardLogger(), gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	err = db.AutoMigrate(&models.Employee{}, &models.GeofenceRule{}, &models.FaceEnrollment{}, &models.AttendanceRecord{})
	if err != nil {
		return nil, fmt.Errorf("auto-migration failed: %w", err)
	}
	if err := store.InstallNotifyTriggers(db); err != nil {
		return nil, fmt.Errorf("install notify triggers: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"host": cfg.Host,
		"db":   cfg.Name,
	}).Info("Database ready.")
	return db, nil
}
