package models

import (
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BudgetPeriod is the window over which a category budget limit applies.
type BudgetPeriod string

const (
	PeriodDaily   BudgetPeriod = "daily"
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
)

// Category represents a spending category.
type Category struct {
	DefaultModel
	Name         string           `gorm:"uniqueIndex:category_name"`
	Color        string           // Display color, e.g. "#71717a"
	BudgetLimit  *decimal.Decimal `gorm:"type:DECIMAL(20,8)"` // Optional spending limit for the period
	BudgetPeriod BudgetPeriod     // Defaults to monthly when a limit is set
}

// BeforeSave normalizes the category.
//
// It collapses inner whitespace in the name and defaults
// the budget period to monthly when a limit is set.
func (c *Category) BeforeSave(_ *gorm.DB) error {
	c.Name = strings.Join(strings.Fields(c.Name), " ")
	c.Color = strings.TrimSpace(c.Color)

	if c.BudgetLimit != nil && c.BudgetPeriod == "" {
		c.BudgetPeriod = PeriodMonthly
	}

	return nil
}

// FindCategoryByName does a case-insensitive lookup of a category by name.
func FindCategoryByName(db *gorm.DB, name string) (Category, error) {
	var category Category
	err := db.Where("name = ? COLLATE NOCASE", strings.TrimSpace(name)).First(&category).Error
	return category, err
}
