package reports

import (
	"gorm.io/gorm"

	"github.com/urbanize/urbanize-backend/internal/db"
	"github.com/urbanize/urbanize-backend/internal/logger"
)

// Init returns the Postgres-backed store when conn is non-nil, migrating the schema
// first, and the in-memory store otherwise.
func Init(conn *gorm.DB) (Store, error) {
	if conn == nil {
		logger.L().Info("report_store", "backend", "memory")
		return NewMemStore(), nil
	}

	if err := db.Migrate(conn, "urbanize", &Report{}); err != nil {
		return nil, err
	}
	logger.L().Info("report_store", "backend", "postgres")
	return NewGormStore(conn), nil
}
