// Package database opens gorm connections with the service's zap logger.
package database

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chrissnell/demandmonitor/internal/log"
)

// CreateConnection opens a Postgres connection with the standard gorm
// configuration.
func CreateConnection(connectionString string) (*gorm.DB, error) {
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Info("connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		log.Warn("warning: unable to create a Postgres connection:", err)
		return nil, err
	}
	log.Info("Postgres connection successful")

	return db, nil
}
