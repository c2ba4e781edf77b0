package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var DB *gorm.DB

// Dialector returns the gorm dialector for a driver name.
// SQLite is used for development and tests, PostgreSQL in production.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case DriverSQLite, "":
		return sqlite.Open(dsn), nil
	case DriverPostgres, "postgresql", "pgx":
		return postgres.Open(dsn), nil
	}
	return nil, fmt.Errorf("database: unsupported driver %q", driver)
}

// Connect initializes the database connection.
func Connect(driver, dsn string) error {
	dialector, err := Dialector(driver, dsn)
	if err != nil {
		return err
	}
	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("database: open %s: %w", driver, err)
	}
	return nil
}

// GetDB returns the database instance.
func GetDB() *gorm.DB {
	return DB
}
