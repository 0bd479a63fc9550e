// Package recurring implements the recurring-payment engine: expanding
// rules into occurrence dates, overlaying per-date exceptions and
// materializing due occurrences into real transactions.
package recurring

import (
	"sort"

	"github.com/google/uuid"
	"github.com/pocketbudget/backend/internal/models"
	"github.com/pocketbudget/backend/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Expand returns the dates on which a rule fires within [from, to],
// both bounds inclusive, in ascending order.
//
// All returned dates are an exact whole number of interval-steps from
// the rule's start date, so the phase of a rule is independent of the
// query window: a biweekly rule starting on a Monday fires on Mondays
// 14 days apart no matter which window is asked for.
//
// Month and year steps use calendar arithmetic with roll-forward
// normalization, e.g. Jan 31 + 1 month is Mar 2 or Mar 3.
func Expand(rule models.RecurringRule, from, to types.Day) []types.Day {
	var occurrences []types.Day

	// Start from the rule's start date or the window start, whichever
	// is later
	effective := rule.StartDate
	if from.After(effective) {
		effective = from
	}

	// Align forward from the rule start to the first occurrence on or
	// after the effective start
	current := rule.StartDate
	for current.Before(effective) {
		current = step(current, rule.Frequency, rule.Interval)
	}

	for !current.After(to) {
		if rule.EndDate != nil && current.After(*rule.EndDate) {
			break
		}

		occurrences = append(occurrences, current)
		current = step(current, rule.Frequency, rule.Interval)
	}

	return occurrences
}

// step advances a date by one interval-step of the given frequency.
func step(day types.Day, frequency models.Frequency, interval int) types.Day {
	switch frequency {
	case models.FrequencyDaily:
		return day.AddDate(0, 0, interval)
	case models.FrequencyWeekly:
		return day.AddDate(0, 0, 7*interval)
	case models.FrequencyMonthly:
		return day.AddDate(0, interval, 0)
	default:
		return day.AddDate(interval, 0, 0)
	}
}

// Occurrence is one virtual firing of a rule. It is derived on demand
// and never persisted, its identity is the (rule, date) pair.
type Occurrence struct {
	RuleID        uuid.UUID        `json:"ruleId"`
	Date          types.Day        `json:"date"`
	Description   string           `json:"description"`
	Amount        decimal.Decimal  `json:"amount"`
	CategoryID    *uuid.UUID       `json:"categoryId"`
	Frequency     models.Frequency `json:"frequency"`
	IsPaid        bool             `json:"isPaid"`
	IsModified    bool             `json:"isModified"`
	IsDeleted     bool             `json:"isDeleted"` // Always false, deleted occurrences are filtered out
	TransactionID *uuid.UUID       `json:"transactionId"`
}

// Overlay merges expanded occurrence dates with the rule's exceptions.
//
// Dates with a "deleted" exception are dropped. A "modified" exception
// substitutes its amount and description. A "paid" exception marks the
// occurrence paid and carries the linked transaction ID. Exceptions
// match by exact (rule, date) equality only.
func Overlay(rule models.RecurringRule, dates []types.Day, exceptions []models.RecurringException) []Occurrence {
	byDate := make(map[string]models.RecurringException, len(exceptions))
	for _, e := range exceptions {
		if e.RuleID == rule.ID {
			byDate[e.OccurrenceDate.String()] = e
		}
	}

	occurrences := make([]Occurrence, 0, len(dates))
	for _, date := range dates {
		occurrence := Occurrence{
			RuleID:      rule.ID,
			Date:        date,
			Description: rule.Description,
			Amount:      rule.Amount,
			CategoryID:  rule.CategoryID,
			Frequency:   rule.Frequency,
		}

		if exception, ok := byDate[date.String()]; ok {
			switch exception.Action {
			case models.ExceptionDeleted:
				continue

			case models.ExceptionModified:
				occurrence.IsModified = true
				if exception.ModifiedAmount != nil {
					occurrence.Amount = *exception.ModifiedAmount
				}
				if exception.ModifiedDescription != nil {
					occurrence.Description = *exception.ModifiedDescription
				}

			case models.ExceptionPaid:
				occurrence.IsPaid = true
				occurrence.TransactionID = exception.TransactionID
			}
		}

		occurrences = append(occurrences, occurrence)
	}

	return occurrences
}

// Upcoming expands and overlays all rules over the window
// [today, today+days] and returns the occurrences sorted by date.
func Upcoming(db *gorm.DB, today types.Day, days int) ([]Occurrence, error) {
	var rules []models.RecurringRule
	err := db.Find(&rules).Error
	if err != nil {
		return nil, err
	}

	var exceptions []models.RecurringException
	err = db.Find(&exceptions).Error
	if err != nil {
		return nil, err
	}

	to := today.AddDate(0, 0, days)

	var all []Occurrence
	for _, rule := range rules {
		dates := Expand(rule, today, to)
		all = append(all, Overlay(rule, dates, exceptions)...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Date.Before(all[j].Date)
	})

	return all, nil
}

// TotalYearlyCost sums the annualized cost of all rules.
//
// Rules are not filtered by end date here, a terminated rule still
// counts. This mirrors how the subscription overview reports cost.
func TotalYearlyCost(rules []models.RecurringRule) decimal.Decimal {
	total := decimal.Zero
	for _, rule := range rules {
		total = total.Add(rule.YearlyCost())
	}
	return total
}
