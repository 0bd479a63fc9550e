package models_test

import (
	"testing"
	"time"

	"github.com/pocketbudget/backend/internal/models"
	"github.com/pocketbudget/backend/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func (suite *TestSuiteStandard) TestRecurringRuleValidation() {
	start := types.NewDay(2026, time.January, 15)
	endBeforeStart := types.NewDay(2026, time.January, 1)

	tests := []struct {
		name string
		rule models.RecurringRule
		err  error
	}{
		{
			"valid",
			models.RecurringRule{Description: "Rent", Amount: decimal.NewFromInt(1200), Frequency: models.FrequencyMonthly, Interval: 1, StartDate: start},
			nil,
		},
		{
			"negative amount",
			models.RecurringRule{Amount: decimal.NewFromInt(-5), Frequency: models.FrequencyMonthly, Interval: 1, StartDate: start},
			models.ErrRecurringRuleAmountNegative,
		},
		{
			"zero interval",
			models.RecurringRule{Amount: decimal.NewFromInt(5), Frequency: models.FrequencyMonthly, Interval: 0, StartDate: start},
			models.ErrRecurringRuleInterval,
		},
		{
			"unknown frequency",
			models.RecurringRule{Amount: decimal.NewFromInt(5), Frequency: "fortnightly", Interval: 1, StartDate: start},
			models.ErrRecurringRuleFrequency,
		},
		{
			"end before start",
			models.RecurringRule{Amount: decimal.NewFromInt(5), Frequency: models.FrequencyMonthly, Interval: 1, StartDate: start, EndDate: &endBeforeStart},
			models.ErrRecurringRuleEndBeforeStart,
		},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			rule := tt.rule
			err := rule.BeforeSave(&gorm.DB{})
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func (suite *TestSuiteStandard) TestRecurringRuleYearlyCost() {
	tests := []struct {
		name      string
		amount    int64
		frequency models.Frequency
		interval  int
		expected  string
	}{
		{"daily every day", 10, models.FrequencyDaily, 1, "3650"},
		{"monthly every 3 months", 30, models.FrequencyMonthly, 3, "120"},
		{"weekly", 12, models.FrequencyWeekly, 1, "624"},
		{"yearly", 99, models.FrequencyYearly, 1, "99"},
		{"every second week", 10, models.FrequencyWeekly, 2, "260"},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			rule := models.RecurringRule{
				Amount:    decimal.NewFromInt(tt.amount),
				Frequency: tt.frequency,
				Interval:  tt.interval,
			}

			assert.True(t, rule.YearlyCost().Equal(decimal.RequireFromString(tt.expected)),
				"yearly cost is %s, not %s", rule.YearlyCost(), tt.expected)
		})
	}
}

func (suite *TestSuiteStandard) TestRecurringExceptionUnique() {
	rule := suite.createTestRule(models.RecurringRule{
		Description: "Gym",
		Amount:      decimal.NewFromInt(30),
		Frequency:   models.FrequencyMonthly,
		Interval:    1,
		StartDate:   types.NewDay(2026, time.January, 15),
	})

	date := types.NewDay(2026, time.February, 15)

	first := models.RecurringException{RuleID: rule.ID, OccurrenceDate: date, Action: models.ExceptionDeleted}
	require.Nil(suite.T(), models.DB.Create(&first).Error)

	second := models.RecurringException{RuleID: rule.ID, OccurrenceDate: date, Action: models.ExceptionPaid}
	err := models.DB.Create(&second).Error
	assert.ErrorIs(suite.T(), err, models.ErrExceptionNotUnique)
}

func (suite *TestSuiteStandard) TestUpsertException() {
	rule := suite.createTestRule(models.RecurringRule{
		Description: "Netflix",
		Amount:      decimal.NewFromFloat(12.99),
		Frequency:   models.FrequencyMonthly,
		Interval:    1,
		StartDate:   types.NewDay(2026, time.January, 1),
	})

	date := types.NewDay(2026, time.March, 1)

	// First upsert creates the exception
	amount := decimal.NewFromInt(15)
	exception, err := models.UpsertException(models.DB, models.RecurringException{
		RuleID:         rule.ID,
		OccurrenceDate: date,
		Action:         models.ExceptionModified,
		ModifiedAmount: &amount,
	})
	require.Nil(suite.T(), err)
	require.Equal(suite.T(), models.ExceptionModified, exception.Action)

	// Second upsert for the same occurrence replaces it
	updated, err := models.UpsertException(models.DB, models.RecurringException{
		RuleID:         rule.ID,
		OccurrenceDate: date,
		Action:         models.ExceptionDeleted,
	})
	require.Nil(suite.T(), err)
	assert.Equal(suite.T(), exception.ID, updated.ID)
	assert.Equal(suite.T(), models.ExceptionDeleted, updated.Action)

	exceptions, err := rule.Exceptions(models.DB)
	require.Nil(suite.T(), err)
	assert.Len(suite.T(), exceptions, 1)
}

func (suite *TestSuiteStandard) TestExceptionActionValidation() {
	exception := models.RecurringException{
		RuleID:         suite.createTestRule(models.RecurringRule{Amount: decimal.NewFromInt(1), Frequency: models.FrequencyDaily, Interval: 1, StartDate: types.Today()}).ID,
		OccurrenceDate: types.Today(),
		Action:         "postponed",
	}

	err := models.DB.Create(&exception).Error
	assert.ErrorIs(suite.T(), err, models.ErrExceptionActionInvalid)
}
