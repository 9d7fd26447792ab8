package db

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/urbanize/urbanize-backend/internal/logger"
)

var DB *gorm.DB

// Connect opens the Postgres pool for dsn and stores it in DB.
func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database: empty DSN")
	}

	// Surface slow queries; successful statements stay quiet.
	lg := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             100 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: lg,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	DB = db
	logger.L().Info("database_connected")
	return db, nil
}

var schemaName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Migrate creates schema if needed and auto-migrates models into it. Each model's
// TableName must be qualified with the same schema.
func Migrate(conn *gorm.DB, schema string, models ...any) error {
	if !schemaName.MatchString(schema) {
		return fmt.Errorf("database: invalid schema name %q", schema)
	}
	if err := conn.Exec(`CREATE SCHEMA IF NOT EXISTS "` + schema + `"`).Error; err != nil {
		return fmt.Errorf("ensure schema %s: %w", schema, err)
	}
	if err := conn.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrate %s: %w", schema, err)
	}
	return nil
}
