package v1_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	v1 "github.com/pocketbudget/backend/internal/controllers/v1"
	"github.com/pocketbudget/backend/internal/models"
	"github.com/pocketbudget/backend/test"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// TestCategoriesOptions verifies that OPTIONS requests are handled correctly.
func (suite *TestSuiteStandard) TestCategoriesOptions() {
	tests := []struct {
		name   string
		id     string // path at the Categories endpoint to test
		status int    // Expected HTTP status code
	}{
		{"No Category with this ID", uuid.New().String(), http.StatusNotFound},
		{"Not a valid UUID", "NotParseableAsUUID", http.StatusBadRequest},
		{"Category exists", createTestCategory(suite.T(), v1.CategoryEditable{}).Data.ID.String(), http.StatusNoContent},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			path := fmt.Sprintf("%s/%s", "http://example.com/v1/categories", tt.id)
			r := test.Request(t, http.MethodOptions, path, "")
			test.AssertHTTPStatus(t, &r, tt.status)

			if tt.status == http.StatusNoContent {
				assert.Equal(t, "OPTIONS, GET, PATCH, DELETE", r.Header().Get("allow"))
			}
		})
	}
}

func (suite *TestSuiteStandard) TestCategoriesCreate() {
	limit := decimal.NewFromInt(400)
	category := createTestCategory(suite.T(), v1.CategoryEditable{
		Name:        "Groceries",
		Color:       "#22c55e",
		BudgetLimit: &limit,
	})

	suite.Assert().Equal("Groceries", category.Data.Name)
	suite.Assert().Equal("#22c55e", category.Data.Color)

	// The budget period defaults to monthly when a limit is set
	suite.Assert().Equal(models.PeriodMonthly, category.Data.BudgetPeriod)
}

func (suite *TestSuiteStandard) TestCategoriesCreateDuplicateName() {
	createTestCategory(suite.T(), v1.CategoryEditable{Name: "Groceries"})

	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/categories", v1.CategoryEditable{Name: "Groceries"})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)

	var response struct {
		Error string `json:"error"`
	}
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Contains(response.Error, "name")
}

func (suite *TestSuiteStandard) TestCategoriesCreateInvalidBody() {
	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/categories", `{ "name": 2" }`)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestCategoriesGetSingle() {
	c := createTestCategory(suite.T(), v1.CategoryEditable{})

	tests := []struct {
		name   string
		id     string
		status int
	}{
		{"Existing Category", c.Data.ID.String(), http.StatusOK},
		{"No Category with this ID", uuid.New().String(), http.StatusNotFound},
		{"Not a valid UUID", "NotParseableAsUUID", http.StatusBadRequest},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, http.MethodGet, fmt.Sprintf("http://example.com/v1/categories/%s", tt.id), "")
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

func (suite *TestSuiteStandard) TestCategoriesGetSorted() {
	createTestCategory(suite.T(), v1.CategoryEditable{Name: "Transport"})
	createTestCategory(suite.T(), v1.CategoryEditable{Name: "Dining"})

	r := test.Request(suite.T(), http.MethodGet, "http://example.com/v1/categories", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.CategoryListResponse
	test.DecodeResponse(suite.T(), &r, &response)

	suite.Require().Len(response.Data, 2)
	suite.Assert().Equal("Dining", response.Data[0].Name)
	suite.Assert().Equal("Transport", response.Data[1].Name)
}

func (suite *TestSuiteStandard) TestCategoriesGetEmptyList() {
	r := test.Request(suite.T(), http.MethodGet, "http://example.com/v1/categories", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	// The list must be an empty list, not null
	suite.Assert().Contains(r.Body.String(), `"data":[]`)
}

func (suite *TestSuiteStandard) TestCategoriesUpdate() {
	category := createTestCategory(suite.T(), v1.CategoryEditable{Name: "Food"})

	r := test.Request(suite.T(), http.MethodPatch,
		fmt.Sprintf("http://example.com/v1/categories/%s", category.Data.ID),
		map[string]any{"name": "Groceries"})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var updated v1.CategoryResponse
	test.DecodeResponse(suite.T(), &r, &updated)
	suite.Assert().Equal("Groceries", updated.Data.Name)
}

func (suite *TestSuiteStandard) TestCategoriesDelete() {
	category := createTestCategory(suite.T(), v1.CategoryEditable{})
	transaction := createTestTransaction(suite.T(), v1.TransactionEditable{CategoryID: &category.Data.ID})

	r := test.Request(suite.T(), http.MethodDelete, fmt.Sprintf("http://example.com/v1/categories/%s", category.Data.ID), "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)

	r = test.Request(suite.T(), http.MethodGet, fmt.Sprintf("http://example.com/v1/categories/%s", category.Data.ID), "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)

	// The transaction survives without a category
	r = test.Request(suite.T(), http.MethodGet, fmt.Sprintf("http://example.com/v1/transactions/%s", transaction.Data.ID), "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var reloaded v1.TransactionResponse
	test.DecodeResponse(suite.T(), &r, &reloaded)
	suite.Assert().Nil(reloaded.Data.CategoryID)
}
