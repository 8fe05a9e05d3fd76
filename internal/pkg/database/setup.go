package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BookForge/app/models"
	"github.com/ManuelReschke/BookForge/internal/pkg/env"
)

const connectBackoff = 5 * time.Second

// SetupDatabase connects the global handle and brings the schema up to date.
// The database container may start after the API, so connecting is retried
// DB_CONNECT_ATTEMPTS times before giving up.
func SetupDatabase() {
	attempts := env.GetEnvInt("DB_CONNECT_ATTEMPTS", 5)
	var lastErr error
	for i := 1; i <= attempts; i++ {
		db, err := open()
		if err == nil {
			if err := Migrate(db); err != nil {
				panic(fmt.Errorf("schema migration failed: %w", err))
			}
			SetDB(db)
			return
		}
		lastErr = err
		log.Printf("Database not reachable (attempt %d/%d): %v", i, attempts, err)
		if i < attempts {
			time.Sleep(connectBackoff)
		}
	}
	panic(fmt.Errorf("giving up on database: %w", lastErr))
}

func open() (*gorm.DB, error) {
	if env.GetEnv("DB_DRIVER", "mysql") == "sqlite" {
		return OpenSQLite(env.GetEnv("DB_PATH", "bookforge.db"))
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                     dsn,
		DefaultStringSize:       255,
		DontSupportRenameIndex:  true, // MariaDB
		DontSupportRenameColumn: true,
	}), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(env.GetEnvInt("DB_MAX_OPEN_CONNS", 20))
	sqlDB.SetMaxIdleConns(env.GetEnvInt("DB_MAX_IDLE_CONNS", 5))
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// OpenSQLite opens a sqlite database for local development and tests.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// single writer
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate creates or updates all application tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.UserCredits{},
		&models.CreditTransaction{},
		&models.PaymentOrder{},
		&models.PaymentVerification{},
		&models.DirectorProject{},
		&models.DirectorChapter{},
		&models.ExportJobRecord{},
	)
}
