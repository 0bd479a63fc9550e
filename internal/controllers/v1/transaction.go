package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pocketbudget/backend/internal/httputil"
	"github.com/pocketbudget/backend/internal/models"
	"github.com/pocketbudget/backend/internal/types"
	"github.com/shopspring/decimal"
)

type TransactionListResponse struct {
	Data []models.Transaction `json:"data"`
}

type TransactionResponse struct {
	Data models.Transaction `json:"data"`
}

// TransactionEditable are the fields of a transaction that clients can
// set.
type TransactionEditable struct {
	Date        types.Day                 `json:"date" example:"2026-08-30"`
	Amount      decimal.Decimal           `json:"amount" example:"14.50"`
	Description string                    `json:"description" example:"Coffee at Blue Bottle"`
	CategoryID  *uuid.UUID                `json:"categoryId" example:"d27b71b1-1b2a-4bf2-a91b-3dcaea9e9e9f"`
	Items       []TransactionItemEditable `json:"items"`
}

// TransactionItemEditable is a single itemized sub-row of a
// transaction, e.g. one line on a receipt. Items can only be set when
// creating a transaction.
type TransactionItemEditable struct {
	Name   string          `json:"name" example:"Oat milk latte"`
	Amount decimal.Decimal `json:"amount" example:"5.20"`
}

func (editable TransactionEditable) model() models.Transaction {
	items := make([]models.TransactionItem, 0, len(editable.Items))
	for _, item := range editable.Items {
		items = append(items, models.TransactionItem{
			Name:   item.Name,
			Amount: item.Amount,
		})
	}

	return models.Transaction{
		Date:        editable.Date,
		Amount:      editable.Amount,
		Description: editable.Description,
		CategoryID:  editable.CategoryID,
		Items:       items,
	}
}

// TransactionQueryFilter narrows the transaction list.
type TransactionQueryFilter struct {
	Category string `form:"category"` // Filter by category ID
	From     string `form:"from"`     // Earliest date, YYYY-MM-DD
	To       string `form:"to"`       // Latest date, YYYY-MM-DD
}

// RegisterTransactionRoutes registers the routes for transactions with
// the RouterGroup that is passed.
func RegisterTransactionRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsTransactionList)
		r.GET("", GetTransactions)
		r.POST("", CreateTransaction)
	}

	// Transaction with ID
	{
		r.OPTIONS("/:id", OptionsTransactionDetail)
		r.GET("/:id", GetTransaction)
		r.PATCH("/:id", UpdateTransaction)
		r.DELETE("/:id", DeleteTransaction)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Transactions
// @Success		204
// @Router			/v1/transactions [options]
func OptionsTransactionList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Transactions
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/transactions/{id} [options]
func OptionsTransactionDetail(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	err := models.DB.First(&models.Transaction{}, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

// @Summary		Create transaction
// @Description	Creates a new transaction
// @Tags			Transactions
// @Produce		json
// @Success		201				{object}	TransactionResponse
// @Failure		400				{object}	httpError
// @Failure		404				{object}	httpError
// @Failure		500				{object}	httpError
// @Param			transaction	body	TransactionEditable	true	"Transaction"
// @Router			/v1/transactions [post]
func CreateTransaction(c *gin.Context) {
	var editable TransactionEditable

	if err := httputil.BindData(c, &editable); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	// A referenced category must exist
	if editable.CategoryID != nil {
		err := models.DB.First(&models.Category{}, *editable.CategoryID).Error
		if err != nil {
			c.JSON(status(err), httpError{Error: err.Error()})
			return
		}
	}

	transaction := editable.model()
	if err := models.DB.Create(&transaction).Error; err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, TransactionResponse{Data: transaction})
}

// @Summary		Get transactions
// @Description	Returns a list of transactions, newest first
// @Tags			Transactions
// @Produce		json
// @Success		200	{object}	TransactionListResponse
// @Failure		400	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			category	query	string	false	"Filter by category ID"
// @Param			from		query	string	false	"Earliest date to include, YYYY-MM-DD"
// @Param			to			query	string	false	"Latest date to include, YYYY-MM-DD"
// @Router			/v1/transactions [get]
func GetTransactions(c *gin.Context) {
	var filter TransactionQueryFilter

	// Every parameter is bound into a string, so this will always succeed
	_ = c.Bind(&filter)

	q := models.DB.Order("date DESC, created_at DESC")

	if filter.Category != "" {
		id, err := uuid.Parse(filter.Category)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
			return
		}
		q = q.Where("category_id = ?", id)
	}

	if filter.From != "" {
		from, err := types.ParseDay(filter.From)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
			return
		}
		q = q.Where("date >= ?", from)
	}

	if filter.To != "" {
		to, err := types.ParseDay(filter.To)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
			return
		}
		q = q.Where("date <= ?", to)
	}

	var transactions []models.Transaction
	err := q.Find(&transactions).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	if transactions == nil {
		transactions = make([]models.Transaction, 0)
	}

	c.JSON(http.StatusOK, TransactionListResponse{Data: transactions})
}

// @Summary		Get transaction
// @Description	Returns a specific transaction
// @Tags			Transactions
// @Produce		json
// @Success		200	{object}	TransactionResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/transactions/{id} [get]
func GetTransaction(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var transaction models.Transaction
	err := models.DB.Preload("Items").First(&transaction, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, TransactionResponse{Data: transaction})
}

// @Summary		Update transaction
// @Description	Updates an existing transaction. Only values to be updated need to be specified.
// @Tags			Transactions
// @Accept			json
// @Produce		json
// @Success		200	{object}	TransactionResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id			path	URIID				true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			transaction	body	TransactionEditable	true	"Transaction"
// @Router			/v1/transactions/{id} [patch]
func UpdateTransaction(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var transaction models.Transaction
	err := models.DB.First(&transaction, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var editable TransactionEditable
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

	// Items are fixed once the transaction exists
	update := editable.model()
	update.Items = nil

	err = models.DB.Model(&transaction).Updates(update).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, TransactionResponse{Data: transaction})
}

// @Summary		Delete transaction
// @Description	Deletes a transaction
// @Tags			Transactions
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/transactions/{id} [delete]
func DeleteTransaction(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var transaction models.Transaction
	err := models.DB.First(&transaction, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	err = models.DB.Delete(&transaction).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}
