package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ColumnInfo describes a single table column as reported by the driver.
type ColumnInfo struct {
	Field    string
	Type     string
	Nullable bool
}

// GetTableColumns retrieves the column definitions for a given table.
// Names and types are lowercased so callers can compare across drivers.
func GetTableColumns(db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	if !db.Migrator().HasTable(tableName) {
		return nil, nil
	}

	types, err := db.Migrator().ColumnTypes(tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}

	columns := make([]ColumnInfo, 0, len(types))
	for _, ct := range types {
		nullable, _ := ct.Nullable()
		columns = append(columns, ColumnInfo{
			Field:    strings.ToLower(ct.Name()),
			Type:     strings.ToLower(ct.DatabaseTypeName()),
			Nullable: nullable,
		})
	}
	return columns, nil
}

// SchemaReport lists what a table is missing compared to what the application expects.
type SchemaReport struct {
	Table          string   `json:"table"`
	TableMissing   bool     `json:"table_missing"`
	MissingColumns []string `json:"missing_columns"`
	MissingIndexes []string `json:"missing_indexes"`
}

// OK reports whether nothing is missing.
func (r SchemaReport) OK() bool {
	return !r.TableMissing && len(r.MissingColumns) == 0 && len(r.MissingIndexes) == 0
}

// VerifySchema checks that tableName has every expected column and index.
func VerifySchema(db *gorm.DB, tableName string, columns, indexes []string) (SchemaReport, error) {
	report := SchemaReport{Table: tableName, MissingColumns: []string{}, MissingIndexes: []string{}}

	if !db.Migrator().HasTable(tableName) {
		report.TableMissing = true
		return report, nil
	}

	present, err := GetTableColumns(db, tableName)
	if err != nil {
		return report, err
	}
	have := make(map[string]struct{}, len(present))
	for _, col := range present {
		have[col.Field] = struct{}{}
	}
	for _, col := range columns {
		if _, ok := have[strings.ToLower(col)]; !ok {
			report.MissingColumns = append(report.MissingColumns, col)
		}
	}

	for _, idx := range indexes {
		if !db.Migrator().HasIndex(tableName, idx) {
			report.MissingIndexes = append(report.MissingIndexes, idx)
		}
	}

	return report, nil
}
