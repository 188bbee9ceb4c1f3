package config

import (
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// ConnectDB opens the database from DB_URL. Postgres in deployment;
// anything else (or empty) falls back to a local sqlite file for dev.
func ConnectDB(dbURL string) {
	var (
		db  *gorm.DB
		err error
	)

	switch {
	case strings.HasPrefix(dbURL, "postgres"):
		db, err = gorm.Open(postgres.Open(dbURL), &gorm.Config{})
	case dbURL != "":
		db, err = gorm.Open(sqlite.Open(dbURL), &gorm.Config{})
	default:
		db, err = gorm.Open(sqlite.Open("salonflow.db"), &gorm.Config{})
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect database")
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
	}

	DB = db
}
