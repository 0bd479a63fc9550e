package recurring

import (
	"errors"

	"github.com/google/uuid"
	"github.com/pocketbudget/backend/internal/models"
	"github.com/pocketbudget/backend/internal/types"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MaterializedTransaction links a rule to the transaction the
// materialization run created for it.
type MaterializedTransaction struct {
	RuleID        uuid.UUID `json:"ruleId"`
	TransactionID uuid.UUID `json:"transactionId"`
}

// MaterializeResult summarizes one materialization run.
type MaterializeResult struct {
	Processed    int                       `json:"processed"`
	Created      int                       `json:"created"`
	Transactions []MaterializedTransaction `json:"transactions"`
}

// Materialize turns every occurrence due today into a real transaction
// plus a "paid" exception linking to it.
//
// The run is idempotent under at-least-once invocation: a rule that
// already has an exception for today, of any action, is skipped. A
// failing rule is logged and skipped, it does not abort the batch.
func Materialize(db *gorm.DB, today types.Day) (MaterializeResult, error) {
	var rules []models.RecurringRule
	err := db.Find(&rules).Error
	if err != nil {
		return MaterializeResult{}, err
	}

	result := MaterializeResult{
		Processed:    len(rules),
		Transactions: []MaterializedTransaction{},
	}

	for _, rule := range rules {
		if len(Expand(rule, today, today)) == 0 {
			continue
		}

		// Skip if an exception already exists for today, no matter
		// whether it is paid, modified or deleted
		var count int64
		err = db.Model(&models.RecurringException{}).
			Where(&models.RecurringException{RuleID: rule.ID, OccurrenceDate: today}).
			Count(&count).Error
		if err != nil {
			log.Error().Err(err).Str("rule", rule.ID.String()).Msg("materialize: exception lookup failed")
			continue
		}
		if count > 0 {
			continue
		}

		transaction := models.Transaction{
			Date:        today,
			Amount:      rule.Amount,
			Description: rule.Description,
			CategoryID:  rule.CategoryID,
		}
		err = db.Create(&transaction).Error
		if err != nil {
			log.Error().Err(err).Str("rule", rule.ID.String()).Msg("materialize: transaction insert failed")
			continue
		}

		transactionID := transaction.ID
		exception := models.RecurringException{
			RuleID:         rule.ID,
			OccurrenceDate: today,
			Action:         models.ExceptionPaid,
			TransactionID:  &transactionID,
		}
		err = db.Create(&exception).Error
		if err != nil {
			// A concurrent run has inserted the exception first. The
			// unique (rule, date) constraint is the idempotency guard,
			// so this is safe to ignore.
			if errors.Is(err, models.ErrExceptionNotUnique) {
				continue
			}
			log.Error().Err(err).Str("rule", rule.ID.String()).Msg("materialize: exception insert failed")
			continue
		}

		result.Created++
		result.Transactions = append(result.Transactions, MaterializedTransaction{
			RuleID:        rule.ID,
			TransactionID: transactionID,
		})
	}

	return result, nil
}
