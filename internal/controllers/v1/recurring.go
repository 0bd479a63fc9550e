package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pocketbudget/backend/internal/httputil"
	"github.com/pocketbudget/backend/internal/models"
	"github.com/pocketbudget/backend/internal/recurring"
	"github.com/pocketbudget/backend/internal/types"
	"github.com/shopspring/decimal"
)

// Default and maximum horizon for the upcoming occurrence preview.
const (
	defaultUpcomingDays = 30
	maxUpcomingDays     = 366
)

type RecurringRule struct {
	models.RecurringRule
	YearlyCost decimal.Decimal `json:"yearlyCost" example:"624"`
}

type RecurringRuleListResponse struct {
	Data            []RecurringRule `json:"data"`
	TotalYearlyCost decimal.Decimal `json:"totalYearlyCost" example:"1248"`
}

type RecurringRuleResponse struct {
	Data RecurringRule `json:"data"`
}

type UpcomingResponse struct {
	Data []recurring.Occurrence `json:"data"`
}

type ExceptionResponse struct {
	Data models.RecurringException `json:"data"`
}

// RecurringRuleEditable are the fields of a recurring rule that clients
// can set.
type RecurringRuleEditable struct {
	Description string           `json:"description" example:"Gym membership"`
	Amount      decimal.Decimal  `json:"amount" example:"29.99"`
	CategoryID  *uuid.UUID       `json:"categoryId" example:"d27b71b1-1b2a-4bf2-a91b-3dcaea9e9e9f"`
	Frequency   models.Frequency `json:"frequency" example:"monthly"`
	Interval    int              `json:"interval" example:"1"`
	StartDate   types.Day        `json:"startDate" example:"2026-01-15"`
	EndDate     *types.Day       `json:"endDate" example:"2026-12-15"`
}

func (editable RecurringRuleEditable) model() models.RecurringRule {
	return models.RecurringRule{
		Description: editable.Description,
		Amount:      editable.Amount,
		CategoryID:  editable.CategoryID,
		Frequency:   editable.Frequency,
		Interval:    editable.Interval,
		StartDate:   editable.StartDate,
		EndDate:     editable.EndDate,
	}
}

// OccurrenceEditable are the overridable fields of a single occurrence.
type OccurrenceEditable struct {
	Amount      *decimal.Decimal `json:"amount" example:"35"`
	Description *string          `json:"description" example:"Gym membership (new rate)"`
}

// RegisterRecurringRuleRoutes registers the routes for recurring rules
// with the RouterGroup that is passed.
func RegisterRecurringRuleRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsRecurringRuleList)
		r.GET("", GetRecurringRules)
		r.POST("", CreateRecurringRule)
	}

	// Upcoming occurrence preview over all rules
	{
		r.OPTIONS("/upcoming", httputil.OptionsGet)
		r.GET("/upcoming", GetUpcomingOccurrences)
	}

	// Rule with ID
	{
		r.OPTIONS("/:id", OptionsRecurringRuleDetail)
		r.GET("/:id", GetRecurringRule)
		r.PATCH("/:id", UpdateRecurringRule)
		r.DELETE("/:id", DeleteRecurringRule)
	}

	// Single occurrences of a rule
	{
		r.OPTIONS("/:id/occurrences/:date", httputil.OptionsPatch)
		r.PATCH("/:id/occurrences/:date", UpdateOccurrence)
		r.OPTIONS("/:id/occurrences/:date/pay", httputil.OptionsPost)
		r.POST("/:id/occurrences/:date/pay", PayOccurrence)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			RecurringRules
// @Success		204
// @Router			/v1/recurring-rules [options]
func OptionsRecurringRuleList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			RecurringRules
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/recurring-rules/{id} [options]
func OptionsRecurringRuleDetail(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	err := models.DB.First(&models.RecurringRule{}, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

// @Summary		Create recurring rule
// @Description	Creates a new recurring rule
// @Tags			RecurringRules
// @Produce		json
// @Success		201		{object}	RecurringRuleResponse
// @Failure		400		{object}	httpError
// @Failure		404		{object}	httpError
// @Failure		500		{object}	httpError
// @Param			rule	body		RecurringRuleEditable	true	"Recurring rule"
// @Router			/v1/recurring-rules [post]
func CreateRecurringRule(c *gin.Context) {
	var editable RecurringRuleEditable

	if err := httputil.BindData(c, &editable); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	if editable.CategoryID != nil {
		err := models.DB.First(&models.Category{}, *editable.CategoryID).Error
		if err != nil {
			c.JSON(status(err), httpError{Error: err.Error()})
			return
		}
	}

	rule := editable.model()
	if err := models.DB.Create(&rule).Error; err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, RecurringRuleResponse{Data: RecurringRule{
		RecurringRule: rule,
		YearlyCost:    rule.YearlyCost(),
	}})
}

// @Summary		Get recurring rules
// @Description	Returns all recurring rules with their annualized cost
// @Tags			RecurringRules
// @Produce		json
// @Success		200	{object}	RecurringRuleListResponse
// @Failure		500	{object}	httpError
// @Router			/v1/recurring-rules [get]
func GetRecurringRules(c *gin.Context) {
	var rules []models.RecurringRule

	err := models.DB.Order("description ASC").Find(&rules).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	data := make([]RecurringRule, 0, len(rules))
	for _, rule := range rules {
		data = append(data, RecurringRule{RecurringRule: rule, YearlyCost: rule.YearlyCost()})
	}

	c.JSON(http.StatusOK, RecurringRuleListResponse{
		Data:            data,
		TotalYearlyCost: recurring.TotalYearlyCost(rules),
	})
}

// @Summary		Get upcoming occurrences
// @Description	Returns the occurrences of all rules in the next days, with exceptions applied
// @Tags			RecurringRules
// @Produce		json
// @Success		200	{object}	UpcomingResponse
// @Failure		400	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			days	query	int	false	"Horizon in days, defaults to 30, capped at 366"
// @Router			/v1/recurring-rules/upcoming [get]
func GetUpcomingOccurrences(c *gin.Context) {
	var query struct {
		Days int `form:"days"`
	}
	if err := c.ShouldBind(&query); err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}

	days := query.Days
	if days <= 0 {
		days = defaultUpcomingDays
	}
	if days > maxUpcomingDays {
		days = maxUpcomingDays
	}

	occurrences, err := recurring.Upcoming(models.DB, types.Today(), days)
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	if occurrences == nil {
		occurrences = make([]recurring.Occurrence, 0)
	}

	c.JSON(http.StatusOK, UpcomingResponse{Data: occurrences})
}

// @Summary		Get recurring rule
// @Description	Returns a specific recurring rule
// @Tags			RecurringRules
// @Produce		json
// @Success		200	{object}	RecurringRuleResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/recurring-rules/{id} [get]
func GetRecurringRule(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var rule models.RecurringRule
	err := models.DB.First(&rule, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, RecurringRuleResponse{Data: RecurringRule{
		RecurringRule: rule,
		YearlyCost:    rule.YearlyCost(),
	}})
}

// @Summary		Update recurring rule
// @Description	Updates an existing recurring rule. Only values to be updated need to be specified.
// @Tags			RecurringRules
// @Accept			json
// @Produce		json
// @Success		200		{object}	RecurringRuleResponse
// @Failure		400		{object}	httpError
// @Failure		404		{object}	httpError
// @Param			id		path	URIID					true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			rule	body	RecurringRuleEditable	true	"Recurring rule"
// @Router			/v1/recurring-rules/{id} [patch]
func UpdateRecurringRule(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var rule models.RecurringRule
	err := models.DB.First(&rule, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var editable RecurringRuleEditable
	if err := httputil.BindData(c, &editable); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	if editable.CategoryID != nil {
		err := models.DB.First(&models.Category{}, *editable.CategoryID).Error
		if err != nil {
			c.JSON(status(err), httpError{Error: err.Error()})
			return
		}
	}

	err = models.DB.Model(&rule).Updates(editable.model()).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, RecurringRuleResponse{Data: RecurringRule{
		RecurringRule: rule,
		YearlyCost:    rule.YearlyCost(),
	}})
}

// @Summary		Delete recurring rule
// @Description	Deletes a rule entirely (mode=all, default), ends it before a date (mode=future) or skips a single occurrence (mode=this)
// @Tags			RecurringRules
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id		path	URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			mode	query	string	false	"One of all, future, this. Defaults to all."
// @Param			date	query	string	false	"Reference date for future and this, YYYY-MM-DD"
// @Router			/v1/recurring-rules/{id} [delete]
func DeleteRecurringRule(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var rule models.RecurringRule
	err := models.DB.First(&rule, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	mode := c.DefaultQuery("mode", "all")
	if mode == "all" {
		models.DB.Where("rule_id = ?", rule.ID).Delete(&models.RecurringException{})

		err = models.DB.Delete(&rule).Error
		if err != nil {
			c.JSON(status(err), httpError{Error: err.Error()})
			return
		}

		c.Status(http.StatusNoContent)
		return
	}

	date, err := types.ParseDay(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: "the date query parameter is required for this mode and must be formatted as YYYY-MM-DD"})
		return
	}

	switch mode {
	case "future":
		// The rule ends the day before the cutoff, occurrences from the
		// cutoff on disappear together with their exceptions
		end := date.AddDate(0, 0, -1)
		err = models.DB.Model(&rule).Update("end_date", &end).Error
		if err != nil {
			c.JSON(status(err), httpError{Error: err.Error()})
			return
		}

		models.DB.Where("rule_id = ? AND occurrence_date >= ?", rule.ID, date).Delete(&models.RecurringException{})
		c.Status(http.StatusNoContent)

	case "this":
		_, err = models.UpsertException(models.DB, models.RecurringException{
			RuleID:         rule.ID,
			OccurrenceDate: date,
			Action:         models.ExceptionDeleted,
		})
		if err != nil {
			c.JSON(status(err), httpError{Error: err.Error()})
			return
		}

		c.Status(http.StatusNoContent)

	default:
		c.JSON(http.StatusBadRequest, httpError{Error: "the mode query parameter must be one of all, future, this"})
	}
}

// @Summary		Override an occurrence
// @Description	Overrides amount or description of a single occurrence without touching the rule
// @Tags			RecurringRules
// @Accept			json
// @Produce		json
// @Success		200	{object}	ExceptionResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id			path	URIID				true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			date		path	string				true	"Occurrence date, YYYY-MM-DD"
// @Param			occurrence	body	OccurrenceEditable	true	"Occurrence override"
// @Router			/v1/recurring-rules/{id}/occurrences/{date} [patch]
func UpdateOccurrence(c *gin.Context) {
	rule, date, ok := occurrenceFromURI(c)
	if !ok {
		return
	}

	var editable OccurrenceEditable
	if err := httputil.BindData(c, &editable); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	exception, err := models.UpsertException(models.DB, models.RecurringException{
		RuleID:              rule.ID,
		OccurrenceDate:      date,
		Action:              models.ExceptionModified,
		ModifiedAmount:      editable.Amount,
		ModifiedDescription: editable.Description,
	})
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, ExceptionResponse{Data: exception})
}

// @Summary		Pay an occurrence
// @Description	Records a single occurrence as paid by creating the matching transaction
// @Tags			RecurringRules
// @Produce		json
// @Success		201	{object}	TransactionResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id		path	URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			date	path	string	true	"Occurrence date, YYYY-MM-DD"
// @Router			/v1/recurring-rules/{id}/occurrences/{date}/pay [post]
func PayOccurrence(c *gin.Context) {
	rule, date, ok := occurrenceFromURI(c)
	if !ok {
		return
	}

	// The date must be an occurrence the rule actually produces
	if len(recurring.Expand(rule, date, date)) == 0 {
		c.JSON(http.StatusBadRequest, httpError{Error: "the rule has no occurrence on this date"})
		return
	}

	amount := rule.Amount
	description := rule.Description

	var existing models.RecurringException
	err := models.DB.
		Where("rule_id = ? AND occurrence_date = ?", rule.ID, date).
		First(&existing).Error
	if err == nil {
		switch existing.Action {
		case models.ExceptionPaid:
			c.JSON(http.StatusBadRequest, httpError{Error: "this occurrence is already paid"})
			return
		case models.ExceptionDeleted:
			c.JSON(http.StatusBadRequest, httpError{Error: "this occurrence is deleted"})
			return
		case models.ExceptionModified:
			if existing.ModifiedAmount != nil {
				amount = *existing.ModifiedAmount
			}
			if existing.ModifiedDescription != nil {
				description = *existing.ModifiedDescription
			}
		}
	}

	transaction := models.Transaction{
		Date:        date,
		Amount:      amount,
		Description: description,
		CategoryID:  rule.CategoryID,
	}
	if err := models.DB.Create(&transaction).Error; err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	_, err = models.UpsertException(models.DB, models.RecurringException{
		RuleID:         rule.ID,
		OccurrenceDate: date,
		Action:         models.ExceptionPaid,
		TransactionID:  &transaction.ID,
	})
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, TransactionResponse{Data: transaction})
}

// occurrenceFromURI binds the rule ID and occurrence date from the URI
// and loads the rule. The error response is already written when ok is
// false.
func occurrenceFromURI(c *gin.Context) (models.RecurringRule, types.Day, bool) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return models.RecurringRule{}, types.Day{}, false
	}

	date, err := types.ParseDay(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return models.RecurringRule{}, types.Day{}, false
	}

	var rule models.RecurringRule
	err = models.DB.First(&rule, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return models.RecurringRule{}, types.Day{}, false
	}

	return rule, date, true
}
