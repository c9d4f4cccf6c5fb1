package database

import (
	"fmt"
	"sort"

	"gorm.io/gorm"
)

// ColumnReport lists the differences between the projects table and the columns the repository maps
type ColumnReport struct {
	Table string
	// Unmapped are columns present in the database that no model field reads
	Unmapped []string
	// Missing are model columns the table does not have yet
	Missing []string
	Exists  bool
}

func (r ColumnReport) Clean() bool {
	return r.Exists && len(r.Unmapped) == 0 && len(r.Missing) == 0
}

// GenerateColumnReport compares the live projects table against projectRow without migrating anything
func GenerateColumnReport(db *gorm.DB) (ColumnReport, error) {
	report := ColumnReport{Table: projectRow{}.TableName()}

	if err := db.Exec("SELECT 1").Error; err != nil {
		return report, fmt.Errorf("error connecting to database: %w", err)
	}

	migrator := db.Migrator()
	if !migrator.HasTable(&projectRow{}) {
		report.Missing = getModelFields(db)
		return report, nil
	}
	report.Exists = true

	columnTypes, err := migrator.ColumnTypes(&projectRow{})
	if err != nil {
		return report, fmt.Errorf("error querying columns for table %s: %w", report.Table, err)
	}
	dbColumns := make([]string, 0, len(columnTypes))
	for _, ct := range columnTypes {
		dbColumns = append(dbColumns, ct.Name())
	}

	modelFields := getModelFields(db)
	report.Unmapped = findColumnMismatches(dbColumns, modelFields)
	report.Missing = findColumnMismatches(modelFields, dbColumns)
	return report, nil
}

// getModelFields returns the column names gorm derives for projectRow
func getModelFields(db *gorm.DB) []string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(&projectRow{}); err != nil {
		return nil
	}
	fields := append([]string(nil), stmt.Schema.DBNames...)
	sort.Strings(fields)
	return fields
}

// findColumnMismatches returns the entries of have that are absent from want
func findColumnMismatches(have, want []string) []string {
	wantSet := make(map[string]bool, len(want))
	for _, field := range want {
		wantSet[field] = true
	}

	var mismatches []string
	for _, col := range have {
		if !wantSet[col] {
			mismatches = append(mismatches, col)
		}
	}
	sort.Strings(mismatches)
	return mismatches
}
