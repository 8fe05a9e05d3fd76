package database

import "gorm.io/gorm"

// DB is the process-wide database handle set up by SetupDatabase.
var DB *gorm.DB

func GetDB() *gorm.DB {
	return DB
}

// SetDB replaces the global handle, mainly for tests.
func SetDB(db *gorm.DB) {
	DB = db
}
