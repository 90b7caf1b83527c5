package checks

import (
	"errors"

	"event-catalog/core/catalog"
	"event-catalog/core/database"

	"gorm.io/gorm"
)

// CheckSchema verifies that the events table carries every column and index
// the matcher and sweeper rely on.
func CheckSchema(db *gorm.DB) (*database.SchemaReport, error) {
	if db == nil {
		return nil, errors.New("database connection is nil")
	}
	report, err := database.VerifySchema(db, (catalog.Event{}).TableName(), catalog.Columns, catalog.Indexes)
	if err != nil {
		return nil, err
	}
	return &report, nil
}
