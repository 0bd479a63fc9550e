package models

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pocketbudget/backend/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction represents a single ledger entry.
type Transaction struct {
	DefaultModel
	Date        types.Day
	Amount      decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
	Description string
	CategoryID  *uuid.UUID
	Category    Category          `json:"-"`
	Items       []TransactionItem `json:"items,omitempty"`
}

// TransactionItem is an optional itemized sub-row of a transaction,
// e.g. a single line on a receipt.
type TransactionItem struct {
	DefaultModel
	TransactionID uuid.UUID
	Name          string
	Amount        decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
}

// BeforeSave defaults the date to today and trims string fields.
func (t *Transaction) BeforeSave(_ *gorm.DB) (err error) {
	t.Description = strings.TrimSpace(t.Description)

	// Ensure that the category ID is nil and not a pointer to a nil UUID
	if t.CategoryID != nil && *t.CategoryID == uuid.Nil {
		t.CategoryID = nil
	}

	if t.Date.IsZero() {
		t.Date = types.Today()
	}

	return nil
}
