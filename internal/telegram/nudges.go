package telegram

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pocketbudget/backend/internal/models"
	"github.com/pocketbudget/backend/internal/types"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	nudgeLevelWarning  = 80
	nudgeLevelExceeded = 100
)

// periodRange returns the inclusive budget window containing ref.
// Weeks start on Monday.
func periodRange(period models.BudgetPeriod, ref types.Day) (types.Day, types.Day) {
	t := ref.Time()

	switch period {
	case models.PeriodDaily:
		return ref, ref

	case models.PeriodWeekly:
		offset := (int(t.Weekday()) + 6) % 7
		start := t.AddDate(0, 0, -offset)
		return types.DayOf(start), types.DayOf(start.AddDate(0, 0, 6))

	case models.PeriodYearly:
		return types.NewDay(t.Year(), time.January, 1), types.NewDay(t.Year(), time.December, 31)

	default: // monthly
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return types.DayOf(start), types.DayOf(start.AddDate(0, 1, -1))
	}
}

func periodLabel(period models.BudgetPeriod) string {
	switch period {
	case models.PeriodDaily:
		return "today"
	case models.PeriodWeekly:
		return "this week"
	case models.PeriodYearly:
		return "this year"
	default:
		return "this month"
	}
}

// budgetNudges checks the budgets of the touched categories and returns
// at most one alert message per category. Each (profile, category,
// period, level) alert fires once, tracked in budget_nudges.
func budgetNudges(db *gorm.DB, profileID uuid.UUID, categoryIDs []uuid.UUID, today types.Day) []string {
	var messages []string

	for _, categoryID := range categoryIDs {
		var category models.Category
		if err := db.First(&category, categoryID).Error; err != nil {
			continue
		}

		if category.BudgetLimit == nil || !category.BudgetLimit.IsPositive() {
			continue
		}

		start, end := periodRange(category.BudgetPeriod, today)

		var transactions []models.Transaction
		err := db.
			Where("category_id = ?", categoryID).
			Where("date >= ? AND date <= ?", start, end).
			Find(&transactions).Error
		if err != nil {
			log.Error().Err(err).Str("category", category.Name).Msg("could not compute budget spend")
			continue
		}

		spent := decimal.Zero
		for _, transaction := range transactions {
			spent = spent.Add(transaction.Amount)
		}

		level := 0
		switch {
		case spent.GreaterThanOrEqual(*category.BudgetLimit):
			level = nudgeLevelExceeded
		case spent.GreaterThanOrEqual(category.BudgetLimit.Mul(decimal.NewFromFloat(0.8))):
			level = nudgeLevelWarning
		default:
			continue
		}

		var sent int64
		db.Model(&models.BudgetNudge{}).
			Where(&models.BudgetNudge{ProfileID: profileID, CategoryID: categoryID, PeriodStart: start, Level: level}).
			Count(&sent)
		if sent > 0 {
			continue
		}

		nudge := models.BudgetNudge{ProfileID: profileID, CategoryID: categoryID, PeriodStart: start, Level: level}
		if err := db.Create(&nudge).Error; err != nil {
			// A concurrent update already recorded this alert
			continue
		}

		percent := spent.Div(*category.BudgetLimit).Mul(decimal.NewFromInt(100)).Round(0)
		if level == nudgeLevelExceeded {
			messages = append(messages, fmt.Sprintf(
				"🚨 You've hit your <b>%s</b> budget for %s: %s of %s spent.",
				category.Name, periodLabel(category.BudgetPeriod),
				spent.StringFixed(2), category.BudgetLimit.StringFixed(2)))
		} else {
			messages = append(messages, fmt.Sprintf(
				"⚠️ Heads up: you've used %s%% of your <b>%s</b> budget %s.",
				percent.String(), category.Name, periodLabel(category.BudgetPeriod)))
		}
	}

	return messages
}
