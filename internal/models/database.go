package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DB is the database used by the backend.
var DB *gorm.DB

// Connect opens the sqlite database and migrates it to the current schema.
func Connect(dsn string) error {
	config := &gorm.Config{
		Logger: &logger{
			Logger: log.Logger,
		},
		NowFunc: func() time.Time {
			return time.Now().In(time.UTC)
		},
	}

	dsn = fmt.Sprintf("%s?_pragma=foreign_keys(1)", dsn)
	db, err := gorm.Open(sqlite.Open(dsn), config)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database object: %w", err)
	}

	// Get new connections after one hour
	sqlDB.SetConnMaxLifetime(time.Hour)

	// This is done to prevent SQLITE_BUSY errors
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	err = db.Callback().Query().After("*").Register("pocketbudget:after_query", queryCallback)
	if err != nil {
		return err
	}

	err = db.Callback().Create().After("*").Register("pocketbudget:after_create", createUpdateCallback)
	if err != nil {
		return err
	}

	err = db.Callback().Update().After("*").Register("pocketbudget:after_update", createUpdateCallback)
	if err != nil {
		return err
	}

	err = migrate(db)
	if err != nil {
		return err
	}

	DB = db
	return nil
}

func migrate(db *gorm.DB) (err error) {
	err = db.AutoMigrate(
		Profile{},
		Category{},
		Transaction{},
		TransactionItem{},
		RecurringRule{},
		RecurringException{},
		TelegramSession{},
		LinkingCode{},
		BudgetNudge{},
	)
	if err != nil {
		return fmt.Errorf("error during DB migration: %w", err)
	}

	return nil
}

// queryCallback replaces the generic "no record" error with a more user
// friendly one
func queryCallback(db *gorm.DB) {
	if errors.Is(db.Error, gorm.ErrRecordNotFound) {
		// Use the table name as information about the type of resource
		// and replace "_" with "[space]"
		name := strings.ReplaceAll(db.Statement.Table, "_", " ")

		// Replace pluralized "ies" with "y"
		match := regexp.MustCompile("ies$")
		name = match.ReplaceAllString(name, "y")

		// Remove plural "s"
		name = strings.TrimRight(name, "s")

		db.Error = fmt.Errorf("%w %s matching your query", ErrResourceNotFound, name)
	}
}

// createUpdateCallback inspects errors returned by the database for create
// and update calls and replaces them with user friendly ones
func createUpdateCallback(db *gorm.DB) {
	if db.Error == nil {
		return
	}

	if strings.Contains(db.Error.Error(), "UNIQUE constraint failed: categories.name") {
		db.Error = ErrCategoryNameNotUnique
	}

	if strings.Contains(db.Error.Error(), "UNIQUE constraint failed: recurring_exceptions.rule_id, recurring_exceptions.occurrence_date") {
		db.Error = ErrExceptionNotUnique
	}
}
