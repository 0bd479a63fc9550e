package models_test

import (
	"github.com/pocketbudget/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *TestSuiteStandard) TestCategoryNameNormalization() {
	category := suite.createTestCategory(models.Category{Name: "  Dining \t out  "})

	assert.Equal(suite.T(), "Dining out", category.Name)
}

func (suite *TestSuiteStandard) TestCategoryNameNotUnique() {
	_ = suite.createTestCategory(models.Category{Name: "Groceries"})

	duplicate := models.Category{Name: "Groceries"}
	err := models.DB.Create(&duplicate).Error
	assert.ErrorIs(suite.T(), err, models.ErrCategoryNameNotUnique)
}

func (suite *TestSuiteStandard) TestCategoryBudgetPeriodDefault() {
	limit := decimal.NewFromInt(200)
	category := suite.createTestCategory(models.Category{Name: "Transport", BudgetLimit: &limit})

	assert.Equal(suite.T(), models.PeriodMonthly, category.BudgetPeriod)
}

func (suite *TestSuiteStandard) TestFindCategoryByName() {
	created := suite.createTestCategory(models.Category{Name: "Entertainment"})

	category, err := models.FindCategoryByName(models.DB, "entertainment")
	require.Nil(suite.T(), err)
	assert.Equal(suite.T(), created.ID, category.ID)

	_, err = models.FindCategoryByName(models.DB, "does not exist")
	assert.ErrorIs(suite.T(), err, models.ErrResourceNotFound)
}
