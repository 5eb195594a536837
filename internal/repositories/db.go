package repositories

import (
	"github.com/rohits-web03/chatvault/internal/config"
	"github.com/rohits-web03/chatvault/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func ConnectDatabase() {
	db, err := Open(config.Envs.DB_URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	DB = db
	log.Info().Msg("Successfully connected to database")
}

// Open connects to Postgres and runs migrations.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	// uuid_generate_v4() defaults need the extension
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&models.Profile{},
		&models.Conversation{},
	); err != nil {
		return nil, err
	}
	return db, nil
}
