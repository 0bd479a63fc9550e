package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pocketbudget/backend/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Frequency is the base period of a recurring rule.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Valid reports whether the frequency is one of the known values.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// occurrencesPerYear is the nominal number of occurrences per year for an
// interval of 1.
var occurrencesPerYear = map[Frequency]int64{
	FrequencyDaily:   365,
	FrequencyWeekly:  52,
	FrequencyMonthly: 12,
	FrequencyYearly:  1,
}

// RecurringRule defines a recurring payment, e.g. a subscription.
//
// An open-ended rule has a nil EndDate. Deleting "this and all future
// occurrences" does not remove the rule, it sets EndDate to the day
// before the occurrence.
type RecurringRule struct {
	DefaultModel
	Description string
	Amount      decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
	CategoryID  *uuid.UUID
	Category    Category `json:"-"`
	Frequency   Frequency
	Interval    int // The rule fires every Interval frequency-periods
	StartDate   types.Day
	EndDate     *types.Day
}

// BeforeSave validates the rule.
func (r *RecurringRule) BeforeSave(_ *gorm.DB) error {
	r.Description = strings.TrimSpace(r.Description)

	if r.Amount.IsNegative() {
		return ErrRecurringRuleAmountNegative
	}

	if r.Interval < 1 {
		return ErrRecurringRuleInterval
	}

	if !r.Frequency.Valid() {
		return fmt.Errorf("%w, got %q", ErrRecurringRuleFrequency, r.Frequency)
	}

	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return ErrRecurringRuleEndBeforeStart
	}

	return nil
}

// YearlyCost returns the annualized cost of the rule.
//
// The division is exact decimal arithmetic, rounding is left
// to the presentation layer.
func (r RecurringRule) YearlyCost() decimal.Decimal {
	perYear := decimal.NewFromInt(occurrencesPerYear[r.Frequency]).
		Div(decimal.NewFromInt(int64(r.Interval)))

	return r.Amount.Mul(perYear)
}

// Exceptions returns all exceptions recorded for this rule.
func (r RecurringRule) Exceptions(db *gorm.DB) ([]RecurringException, error) {
	var exceptions []RecurringException
	err := db.Where(&RecurringException{RuleID: r.ID}).Find(&exceptions).Error
	return exceptions, err
}

// ExceptionAction describes how a single occurrence deviates from its rule.
type ExceptionAction string

const (
	ExceptionDeleted  ExceptionAction = "deleted"
	ExceptionModified ExceptionAction = "modified"
	ExceptionPaid     ExceptionAction = "paid"
)

// Valid reports whether the action is one of the known values.
func (a ExceptionAction) Valid() bool {
	switch a {
	case ExceptionDeleted, ExceptionModified, ExceptionPaid:
		return true
	}
	return false
}

// RecurringException overrides a single occurrence of a rule.
// There is at most one exception per (rule, occurrence date) pair.
type RecurringException struct {
	DefaultModel
	RuleID              uuid.UUID     `gorm:"uniqueIndex:exception_rule_date"`
	Rule                RecurringRule `json:"-"`
	OccurrenceDate      types.Day     `gorm:"uniqueIndex:exception_rule_date"`
	Action              ExceptionAction
	ModifiedAmount      *decimal.Decimal `gorm:"type:DECIMAL(20,8)"` // Only set when Action is modified
	ModifiedDescription *string          // Only set when Action is modified
	TransactionID       *uuid.UUID       // Only set when Action is paid
}

// BeforeSave validates the exception.
func (e *RecurringException) BeforeSave(_ *gorm.DB) error {
	if !e.Action.Valid() {
		return fmt.Errorf("%w, got %q", ErrExceptionActionInvalid, e.Action)
	}

	return nil
}

// UpsertException creates or replaces the exception for
// (e.RuleID, e.OccurrenceDate).
func UpsertException(db *gorm.DB, e RecurringException) (RecurringException, error) {
	var existing RecurringException
	err := db.Where(&RecurringException{RuleID: e.RuleID, OccurrenceDate: e.OccurrenceDate}).First(&existing).Error
	if err == nil {
		e.DefaultModel = existing.DefaultModel
		err = db.Model(&existing).
			Select("Action", "ModifiedAmount", "ModifiedDescription", "TransactionID").
			Updates(&e).Error
		return e, err
	}

	err = db.Create(&e).Error
	return e, err
}
