package v1_test

import (
	"net/http"
	"testing"

	v1 "github.com/pocketbudget/backend/internal/controllers/v1"
	"github.com/pocketbudget/backend/internal/models"
	"github.com/pocketbudget/backend/internal/types"
	"github.com/pocketbudget/backend/test"
	"github.com/shopspring/decimal"
)

func (suite *TestSuiteStandard) TestCronMaterializeAuth() {
	tests := []struct {
		name   string
		secret string // CRON_SECRET value, empty means unset
		header string
		status int
	}{
		{"No secret configured", "", "Bearer anything", http.StatusUnauthorized},
		{"Wrong token", "cron-secret", "Bearer wrong", http.StatusUnauthorized},
		{"Missing header", "cron-secret", "", http.StatusUnauthorized},
		{"Correct token", "cron-secret", "Bearer cron-secret", http.StatusOK},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			if tt.secret != "" {
				t.Setenv("CRON_SECRET", tt.secret)
			}

			r := test.Request(t, http.MethodGet, "http://example.com/v1/cron/materialize", "",
				map[string]string{"Authorization": tt.header})
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

func (suite *TestSuiteStandard) TestCronWeeklyDigestAuth() {
	suite.useWebhookHandler()

	r := test.Request(suite.T(), http.MethodGet, "http://example.com/v1/cron/weekly-digest", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusUnauthorized)
}

func (suite *TestSuiteStandard) TestCronWeeklyDigestUnconfigured() {
	suite.T().Setenv("CRON_SECRET", "cron-secret")
	v1.SetWebhookHandler(nil)

	r := test.Request(suite.T(), http.MethodGet, "http://example.com/v1/cron/weekly-digest", "",
		map[string]string{"Authorization": "Bearer cron-secret"})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusServiceUnavailable)
}

func (suite *TestSuiteStandard) TestCronWeeklyDigestSends() {
	suite.T().Setenv("CRON_SECRET", "cron-secret")
	headers := map[string]string{"Authorization": "Bearer cron-secret"}
	sender := suite.useWebhookHandler()

	profile := createTestProfile(suite.T(), v1.ProfileEditable{Name: "Sam"})
	suite.Require().Nil(models.DB.Model(&models.Profile{}).
		Where("id = ?", profile.Data.ID).
		Update("telegram_chat_id", 512345678).Error)

	createTestTransaction(suite.T(), v1.TransactionEditable{
		Description: "Coffee",
		Amount:      decimal.NewFromFloat(4.5),
		Date:        types.Today(),
	})

	r := test.Request(suite.T(), http.MethodGet, "http://example.com/v1/cron/weekly-digest", "", headers)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.WeeklyDigestResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal(1, response.Sent)

	suite.Require().NotEmpty(sender.texts)
	suite.Assert().Contains(sender.texts[len(sender.texts)-1], "Weekly Digest")
	suite.Assert().Contains(sender.texts[len(sender.texts)-1], "Coffee")
}

func (suite *TestSuiteStandard) TestCronMaterializeCreatesTransactions() {
	suite.T().Setenv("CRON_SECRET", "cron-secret")
	headers := map[string]string{"Authorization": "Bearer cron-secret"}

	createTestRecurringRule(suite.T(), v1.RecurringRuleEditable{
		Description: "Rent",
		Amount:      decimal.NewFromInt(1200),
		Frequency:   models.FrequencyMonthly,
		StartDate:   types.Today(),
	})

	r := test.Request(suite.T(), http.MethodGet, "http://example.com/v1/cron/materialize", "", headers)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.MaterializeResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal("materialization complete", response.Message)
	suite.Assert().Equal(1, response.Processed)
	suite.Assert().Equal(1, response.Created)

	var transactions []models.Transaction
	suite.Require().Nil(models.DB.Find(&transactions).Error)
	suite.Require().Len(transactions, 1)
	suite.Assert().Equal("Rent", transactions[0].Description)

	// A second run on the same day does nothing
	r = test.Request(suite.T(), http.MethodGet, "http://example.com/v1/cron/materialize", "", headers)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal(0, response.Created)

	models.DB.Find(&transactions)
	suite.Assert().Len(transactions, 1)
}
