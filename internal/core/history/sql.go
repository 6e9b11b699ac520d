package history

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Entry is one row of the tabular ledger
type Entry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Title     string    `gorm:"size:512;uniqueIndex"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName keeps the table name stable regardless of the struct name
func (Entry) TableName() string {
	return "download_history"
}

// SQLLedger is the SQLite-backed ledger
type SQLLedger struct {
	db *gorm.DB
}

// OpenSQLLedger opens (creating if needed) a SQLite ledger at path. Use
// ":memory:" for a throwaway ledger.
func OpenSQLLedger(path string) (*SQLLedger, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// each sqlite connection is its own database for ":memory:", and the
	// ledger is single-writer anyway
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return NewSQLLedger(db)
}

// NewSQLLedger wraps an open database and migrates the history table
func NewSQLLedger(db *gorm.DB) (*SQLLedger, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history table: %w", err)
	}
	return &SQLLedger{db: db}, nil
}

// Contains reports whether entry is already in the ledger. Surrounding
// whitespace is ignored, as in Record.
func (l *SQLLedger) Contains(entry string) (bool, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return false, nil
	}
	var count int64
	if err := l.db.Model(&Entry{}).Where("title = ?", entry).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to query history: %w", err)
	}
	return count > 0, nil
}

// Record inserts entry; an existing row is left as it is
func (l *SQLLedger) Record(entry string) error {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil
	}
	err := l.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&Entry{Title: entry}).Error
	if err != nil {
		return fmt.Errorf("failed to record history entry: %w", err)
	}
	return nil
}

// Entries returns every entry in insertion order
func (l *SQLLedger) Entries() ([]string, error) {
	var rows []Entry
	if err := l.db.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]string, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.Title)
	}
	return entries, nil
}

// Close releases the underlying connection
func (l *SQLLedger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
