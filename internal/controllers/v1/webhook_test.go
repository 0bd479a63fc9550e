package v1_test

import (
	"context"
	"net/http"

	tgmodels "github.com/go-telegram/bot/models"
	v1 "github.com/pocketbudget/backend/internal/controllers/v1"
	"github.com/pocketbudget/backend/internal/llm"
	"github.com/pocketbudget/backend/internal/models"
	"github.com/pocketbudget/backend/internal/telegram"
	"github.com/pocketbudget/backend/internal/types"
	"github.com/pocketbudget/backend/test"
)

// nullAssistant satisfies telegram.Assistant without a model behind it.
type nullAssistant struct{}

func (nullAssistant) ParseTransactions(_ context.Context, _ string, _ []string, _ types.Day) (llm.ParseResult, error) {
	return llm.ParseResult{Kind: llm.ParseReject, Reason: "not in this test"}, nil
}

func (nullAssistant) ApplyEdits(_ context.Context, _ string, _ []models.Draft, _ []string, _ types.Day) (llm.EditResult, error) {
	return llm.EditResult{Kind: llm.EditUnchanged, Reason: "not in this test"}, nil
}

func (nullAssistant) SuggestCategories(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

// collectingSender records message texts instead of calling Telegram.
type collectingSender struct {
	texts []string
}

func (s *collectingSender) SendMessage(_ context.Context, _ int64, text string, _ tgmodels.ReplyMarkup) error {
	s.texts = append(s.texts, text)
	return nil
}

func (s *collectingSender) AnswerCallback(_ context.Context, _ string, _ string) error {
	return nil
}

func (suite *TestSuiteStandard) useWebhookHandler() *collectingSender {
	sender := &collectingSender{}
	v1.SetWebhookHandler(telegram.NewHandler(models.DB, nullAssistant{}, sender))
	suite.T().Cleanup(func() {
		v1.SetWebhookHandler(nil)
	})

	return sender
}

func (suite *TestSuiteStandard) TestWebhookUnconfigured() {
	v1.SetWebhookHandler(nil)

	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/telegram/webhook", map[string]any{})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusServiceUnavailable)
}

func (suite *TestSuiteStandard) TestWebhookSecret() {
	suite.useWebhookHandler()
	suite.T().Setenv("TELEGRAM_WEBHOOK_SECRET", "hook-secret")

	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/telegram/webhook", map[string]any{})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusUnauthorized)

	r = test.Request(suite.T(), http.MethodPost, "http://example.com/v1/telegram/webhook", map[string]any{},
		map[string]string{"X-Telegram-Bot-Api-Secret-Token": "hook-secret"})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)
}

func (suite *TestSuiteStandard) TestWebhookInvalidBody() {
	suite.useWebhookHandler()

	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/telegram/webhook", `{ "update_id": "not a number" }`)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestWebhookDeliversUpdate() {
	sender := suite.useWebhookHandler()

	// A message from an unlinked chat gets the linking hint
	update := map[string]any{
		"update_id": 1,
		"message": map[string]any{
			"message_id": 1,
			"date":       1756500000,
			"chat":       map[string]any{"id": 17, "type": "private"},
			"text":       "Coffee 4.50",
		},
	}

	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/telegram/webhook", update)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	suite.Require().NotEmpty(sender.texts)
	suite.Assert().Contains(sender.texts[len(sender.texts)-1], "isn't linked")
}
