package telegram

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pocketbudget/backend/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultBootstrapCategories seeds a fresh profile when the user skips
// smart setup or the model suggests nothing usable.
var DefaultBootstrapCategories = []string{
	"Groceries",
	"Dining",
	"Transport",
	"Rent",
	"Utilities",
	"Entertainment",
	"Shopping",
	"Health",
	"Education",
	"Travel",
}

var (
	amountPattern = regexp.MustCompile(`([0-9]+(?:\.[0-9]{1,2})?)`)
	datePattern   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// fillField applies a free-text clarification answer to one draft field
// without a model round trip. It reports whether the reply was usable.
func fillField(draft *models.Draft, field models.DraftField, reply string) bool {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return false
	}

	switch field {
	case models.FieldAmount:
		match := amountPattern.FindString(reply)
		if match == "" {
			return false
		}

		amount, err := decimal.NewFromString(match)
		if err != nil || !amount.IsPositive() {
			return false
		}

		draft.Amount = amount
		return true

	case models.FieldDate:
		match := datePattern.FindString(reply)
		if match == "" {
			return false
		}

		draft.Date = match
		return true

	case models.FieldMerchant:
		draft.Merchant = extractMerchant(reply)
		return draft.Merchant != ""

	case models.FieldCategory:
		draft.Category = reply
		return true
	}

	return false
}

// extractMerchant strips leading filler like "at the" or "it was from"
// so answers such as "at Starbucks" store just the merchant name.
func extractMerchant(reply string) string {
	lower := strings.ToLower(reply)

	for _, marker := range []string{" at ", " from "} {
		if i := strings.LastIndex(lower, marker); i >= 0 {
			reply = reply[i+len(marker):]
			lower = lower[i+len(marker):]
		}
	}

	for _, prefix := range []string{"at ", "from ", "the "} {
		if strings.HasPrefix(lower, prefix) {
			reply = reply[len(prefix):]
			lower = lower[len(prefix):]
		}
	}

	return strings.TrimSpace(reply)
}

// clarificationPrompt asks for the first missing field of a draft.
func clarificationPrompt(draft models.Draft, field models.DraftField) string {
	subject := draft.Merchant
	if subject == "" {
		subject = "this transaction"
	}

	switch field {
	case models.FieldAmount:
		return fmt.Sprintf("💬 How much did you spend at %s?", subject)
	case models.FieldDate:
		return fmt.Sprintf("💬 When was the purchase at %s? Pick a date or send one as YYYY-MM-DD.", subject)
	case models.FieldMerchant:
		return "💬 Where did you make this purchase?"
	case models.FieldCategory:
		return fmt.Sprintf("💬 Which category fits %s?", subject)
	}

	return "💬 Could you tell me a bit more about this transaction?"
}
