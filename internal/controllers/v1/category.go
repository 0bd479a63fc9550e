package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pocketbudget/backend/internal/httputil"
	"github.com/pocketbudget/backend/internal/models"
	"github.com/shopspring/decimal"
)

type CategoryListResponse struct {
	Data []models.Category `json:"data"`
}

type CategoryResponse struct {
	Data models.Category `json:"data"`
}

// CategoryEditable are the fields of a category that clients can set.
type CategoryEditable struct {
	Name         string              `json:"name" example:"Groceries"`
	Color        string              `json:"color" example:"#22c55e"`
	BudgetLimit  *decimal.Decimal    `json:"budgetLimit" example:"400"`
	BudgetPeriod models.BudgetPeriod `json:"budgetPeriod" example:"monthly"`
}

func (editable CategoryEditable) model() models.Category {
	return models.Category{
		Name:         editable.Name,
		Color:        editable.Color,
		BudgetLimit:  editable.BudgetLimit,
		BudgetPeriod: editable.BudgetPeriod,
	}
}

// RegisterCategoryRoutes registers the routes for categories with
// the RouterGroup that is passed.
func RegisterCategoryRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsCategoryList)
		r.GET("", GetCategories)
		r.POST("", CreateCategory)
	}

	// Category with ID
	{
		r.OPTIONS("/:id", OptionsCategoryDetail)
		r.GET("/:id", GetCategory)
		r.PATCH("/:id", UpdateCategory)
		r.DELETE("/:id", DeleteCategory)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Categories
// @Success		204
// @Router			/v1/categories [options]
func OptionsCategoryList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Categories
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/categories/{id} [options]
func OptionsCategoryDetail(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	err := models.DB.First(&models.Category{}, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

// @Summary		Create category
// @Description	Creates a new category
// @Tags			Categories
// @Produce		json
// @Success		201			{object}	CategoryResponse
// @Failure		400			{object}	httpError
// @Failure		500			{object}	httpError
// @Param			category	body		CategoryEditable	true	"Category"
// @Router			/v1/categories [post]
func CreateCategory(c *gin.Context) {
	var editable CategoryEditable

	if err := httputil.BindData(c, &editable); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	category := editable.model()
	if err := models.DB.Create(&category).Error; err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, CategoryResponse{Data: category})
}

// @Summary		Get categories
// @Description	Returns a list of categories
// @Tags			Categories
// @Produce		json
// @Success		200	{object}	CategoryListResponse
// @Failure		500	{object}	httpError
// @Router			/v1/categories [get]
func GetCategories(c *gin.Context) {
	var categories []models.Category

	err := models.DB.Order("name ASC").Find(&categories).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	// When there are no resources, return an empty list, not null
	if categories == nil {
		categories = make([]models.Category, 0)
	}

	c.JSON(http.StatusOK, CategoryListResponse{Data: categories})
}

// @Summary		Get category
// @Description	Returns a specific category
// @Tags			Categories
// @Produce		json
// @Success		200	{object}	CategoryResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/categories/{id} [get]
func GetCategory(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var category models.Category
	err := models.DB.First(&category, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, CategoryResponse{Data: category})
}

// @Summary		Update category
// @Description	Updates an existing category. Only values to be updated need to be specified.
// @Tags			Categories
// @Accept			json
// @Produce		json
// @Success		200			{object}	CategoryResponse
// @Failure		400			{object}	httpError
// @Failure		404			{object}	httpError
// @Param			id			path		URIID				true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			category	body		CategoryEditable	true	"Category"
// @Router			/v1/categories/{id} [patch]
func UpdateCategory(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var category models.Category
	err := models.DB.First(&category, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var editable CategoryEditable
	if err := httputil.BindData(c, &editable); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	err = models.DB.Model(&category).Updates(editable.model()).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, CategoryResponse{Data: category})
}

// @Summary		Delete category
// @Description	Deletes a category. Transactions in this category keep existing without a category.
// @Tags			Categories
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/categories/{id} [delete]
func DeleteCategory(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var category models.Category
	err := models.DB.First(&category, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	// Detach transactions and rules before the category goes away
	models.DB.Model(&models.Transaction{}).Where("category_id = ?", category.ID).Update("category_id", nil)
	models.DB.Model(&models.RecurringRule{}).Where("category_id = ?", category.ID).Update("category_id", nil)

	err = models.DB.Delete(&category).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}
