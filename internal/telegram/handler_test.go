package telegram

import (
	"context"
	"time"

	"github.com/pocketbudget/backend/internal/llm"
	"github.com/pocketbudget/backend/internal/models"
	"github.com/pocketbudget/backend/internal/types"
	"github.com/shopspring/decimal"
)

func completeDraft() models.Draft {
	return models.Draft{
		Merchant: "Blue Bottle",
		Amount:   decimal.NewFromFloat(4.5),
		Category: "Dining",
		Date:     types.Today().String(),
	}
}

func (suite *TestSuiteStandard) TestStartLinksProfile() {
	profile := suite.createTestProfile(0)
	suite.createTestLinkingCode(profile.ID, "123456", time.Now().Add(10*time.Minute))

	suite.handler.HandleUpdate(context.Background(), message(17, "/start 123456"))

	var linked models.Profile
	suite.Require().Nil(models.DB.First(&linked, profile.ID).Error)
	suite.Require().NotNil(linked.TelegramChatID)
	suite.Assert().Equal(int64(17), *linked.TelegramChatID)

	// The code is single use
	var codes int64
	models.DB.Model(&models.LinkingCode{}).Count(&codes)
	suite.Assert().Equal(int64(0), codes)

	var session models.TelegramSession
	suite.Require().Nil(models.DB.Where(&models.TelegramSession{ChatID: 17}).First(&session).Error)
	suite.Assert().Equal(models.StateOnboardingChoice, session.State)

	suite.Assert().Contains(suite.sender.lastText(), "Linked to")
	suite.Assert().NotNil(suite.sender.messages[len(suite.sender.messages)-1].markup)
}

func (suite *TestSuiteStandard) TestStartExpiredCode() {
	profile := suite.createTestProfile(0)
	suite.createTestLinkingCode(profile.ID, "123456", time.Now().Add(-time.Minute))

	suite.handler.HandleUpdate(context.Background(), message(17, "/start 123456"))

	suite.Assert().Contains(suite.sender.lastText(), "expired")

	var linked models.Profile
	suite.Require().Nil(models.DB.First(&linked, profile.ID).Error)
	suite.Assert().Nil(linked.TelegramChatID)

	var codes int64
	models.DB.Model(&models.LinkingCode{}).Count(&codes)
	suite.Assert().Equal(int64(0), codes)
}

func (suite *TestSuiteStandard) TestStartUnknownCode() {
	suite.handler.HandleUpdate(context.Background(), message(17, "/start 999999"))
	suite.Assert().Contains(suite.sender.lastText(), "doesn't look right")
}

func (suite *TestSuiteStandard) TestStartWithoutCodeWhenLinked() {
	suite.createTestProfile(17)

	suite.handler.HandleUpdate(context.Background(), message(17, "/start"))

	suite.Assert().Contains(suite.sender.lastText(), "You're all set")
}

func (suite *TestSuiteStandard) TestStartMovesChatToNewProfile() {
	old := suite.createTestProfile(17)
	next := suite.createTestProfile(0)
	suite.createTestLinkingCode(next.ID, "654321", time.Now().Add(10*time.Minute))

	suite.handler.HandleUpdate(context.Background(), message(17, "/start 654321"))

	var unlinked models.Profile
	suite.Require().Nil(models.DB.First(&unlinked, old.ID).Error)
	suite.Assert().Nil(unlinked.TelegramChatID, "old profile should be unlinked")

	var linked models.Profile
	suite.Require().Nil(models.DB.First(&linked, next.ID).Error)
	suite.Require().NotNil(linked.TelegramChatID)
	suite.Assert().Equal(int64(17), *linked.TelegramChatID)
}

func (suite *TestSuiteStandard) TestMessageWithoutLink() {
	suite.handler.HandleUpdate(context.Background(), message(17, "Coffee 4.50"))
	suite.Assert().Contains(suite.sender.lastText(), "isn't linked")
}

func (suite *TestSuiteStandard) TestOnboardingDefaults() {
	profile := suite.createTestProfile(17)
	session := suite.createTestSession(models.TelegramSession{
		ChatID: 17, ProfileID: profile.ID, State: models.StateOnboardingChoice,
	})

	suite.handler.HandleUpdate(context.Background(), buttonPress(17, "onboarding:defaults"))

	var categories int64
	models.DB.Model(&models.Category{}).Count(&categories)
	suite.Assert().Equal(int64(len(DefaultBootstrapCategories)), categories)

	suite.Require().Nil(models.DB.First(&session, session.ID).Error)
	suite.Assert().Equal(models.StateIdle, session.State)
}

func (suite *TestSuiteStandard) TestOnboardingSmart() {
	profile := suite.createTestProfile(17)
	suite.createTestSession(models.TelegramSession{
		ChatID: 17, ProfileID: profile.ID, State: models.StateOnboardingChoice,
	})

	suite.handler.HandleUpdate(context.Background(), buttonPress(17, "onboarding:smart"))
	suite.Assert().Contains(suite.sender.lastText(), "Tell me a bit about yourself")

	suite.assistant.categories = []string{"Climbing", "Coffee"}
	suite.handler.HandleUpdate(context.Background(), message(17, "I climb a lot and drink too much coffee"))

	suite.Assert().Contains(suite.sender.lastText(), "Set up 2 categories")

	_, err := models.FindCategoryByName(models.DB, "Climbing")
	suite.Assert().Nil(err)
}

func (suite *TestSuiteStandard) TestOnboardingSuggestionTimeout() {
	profile := suite.createTestProfile(17)
	suite.createTestSession(models.TelegramSession{
		ChatID: 17, ProfileID: profile.ID, State: models.StateOnboardingProfile,
	})

	suite.assistant.suggestErr = llm.ErrTimeout
	suite.handler.HandleUpdate(context.Background(), message(17, "I like trains"))

	var categories int64
	models.DB.Model(&models.Category{}).Count(&categories)
	suite.Assert().Equal(int64(len(DefaultBootstrapCategories)), categories)
}

func (suite *TestSuiteStandard) TestParseReject() {
	profile := suite.createTestProfile(17)
	suite.createTestSession(models.TelegramSession{
		ChatID: 17, ProfileID: profile.ID, State: models.StateIdle,
	})

	suite.assistant.parse = llm.ParseResult{Kind: llm.ParseReject, Reason: "This is a greeting."}
	suite.handler.HandleUpdate(context.Background(), message(17, "good morning"))

	suite.Assert().Contains(suite.sender.lastText(), "This is a greeting.")
}

// TestIntakeFlow walks the full happy path: parse with a missing
// category, pick one from the button menu, confirm, log.
func (suite *TestSuiteStandard) TestIntakeFlow() {
	profile := suite.createTestProfile(17)
	suite.createTestSession(models.TelegramSession{
		ChatID: 17, ProfileID: profile.ID, State: models.StateIdle,
	})
	suite.createTestCategory(models.Category{Name: "Groceries"})

	draft := completeDraft()
	draft.Category = ""
	suite.assistant.parse = llm.ParseResult{
		Kind:              llm.ParseClarify,
		Question:          "Which category fits Blue Bottle?",
		MissingFields:     []models.DraftField{models.FieldCategory},
		SuggestedCategory: "Dining",
		Draft:             draft,
	}

	suite.handler.HandleUpdate(context.Background(), message(17, "Coffee 4.50 at Blue Bottle"))

	var session models.TelegramSession
	suite.Require().Nil(models.DB.Where(&models.TelegramSession{ChatID: 17}).First(&session).Error)
	suite.Assert().Equal(models.StateAwaitingClarification, session.State)
	suite.Require().NotNil(session.Meta)
	suite.Assert().Equal([]string{"Dining", "Groceries"}, session.Meta.CategoryOptions)
	suite.Assert().Contains(suite.sender.lastText(), "Which category fits")

	// Pick the suggested category
	suite.handler.HandleUpdate(context.Background(), buttonPress(17, "pick_category:"+session.ID.String()+":0"))

	suite.Require().Nil(models.DB.First(&session, session.ID).Error)
	suite.Assert().Equal(models.StateAwaitingConfirmation, session.State)
	suite.Assert().Contains(suite.sender.lastText(), "Blue Bottle")

	// Confirm
	suite.handler.HandleUpdate(context.Background(), buttonPress(17, "log_session:"+session.ID.String()))

	var transactions []models.Transaction
	suite.Require().Nil(models.DB.Find(&transactions).Error)
	suite.Require().Len(transactions, 1)
	suite.Assert().Equal("Blue Bottle", transactions[0].Description)
	suite.Assert().True(transactions[0].Amount.Equal(decimal.NewFromFloat(4.5)))

	// The picked category was created on the fly
	category, err := models.FindCategoryByName(models.DB, "Dining")
	suite.Require().Nil(err)
	suite.Require().NotNil(transactions[0].CategoryID)
	suite.Assert().Equal(category.ID, *transactions[0].CategoryID)

	suite.Require().Nil(models.DB.First(&session, session.ID).Error)
	suite.Assert().Equal(models.StateIdle, session.State)
	suite.Assert().Empty(session.Drafts)
	suite.Assert().Contains(suite.sender.lastText(), "Logged")
}

func (suite *TestSuiteStandard) TestClarificationFillsAmount() {
	profile := suite.createTestProfile(17)
	draft := completeDraft()
	draft.Amount = decimal.Zero
	session := suite.createTestSession(models.TelegramSession{
		ChatID: 17, ProfileID: profile.ID,
		State:              models.StateAwaitingClarification,
		ClarificationField: models.FieldAmount,
		Drafts:             []models.Draft{draft},
	})

	suite.handler.HandleUpdate(context.Background(), message(17, "it was 12.50"))

	suite.Require().Nil(models.DB.First(&session, session.ID).Error)
	suite.Assert().Equal(models.StateAwaitingConfirmation, session.State)
	suite.Require().Len(session.Drafts, 1)
	suite.Assert().True(session.Drafts[0].Amount.Equal(decimal.NewFromFloat(12.5)))
}

func (suite *TestSuiteStandard) TestClarificationUnusableReply() {
	profile := suite.createTestProfile(17)
	draft := completeDraft()
	draft.Amount = decimal.Zero
	session := suite.createTestSession(models.TelegramSession{
		ChatID: 17, ProfileID: profile.ID,
		State:              models.StateAwaitingClarification,
		ClarificationField: models.FieldAmount,
		Drafts:             []models.Draft{draft},
	})

	suite.handler.HandleUpdate(context.Background(), message(17, "dunno"))

	suite.Assert().Contains(suite.sender.lastText(), "I didn't catch that")

	suite.Require().Nil(models.DB.First(&session, session.ID).Error)
	suite.Assert().Equal(models.StateAwaitingClarification, session.State)
}

func (suite *TestSuiteStandard) TestPickDateToday() {
	profile := suite.createTestProfile(17)
	draft := completeDraft()
	draft.Date = ""
	session := suite.createTestSession(models.TelegramSession{
		ChatID: 17, ProfileID: profile.ID,
		State:              models.StateAwaitingClarification,
		ClarificationField: models.FieldDate,
		Drafts:             []models.Draft{draft},
	})

	suite.handler.HandleUpdate(context.Background(), buttonPress(17, "pick_date:"+session.ID.String()+":today"))

	suite.Require().Nil(models.DB.First(&session, session.ID).Error)
	suite.Assert().Equal(models.StateAwaitingConfirmation, session.State)
	suite.Require().Len(session.Drafts, 1)
	suite.Assert().Equal(types.Today().String(), session.Drafts[0].Date)
}

func (suite *TestSuiteStandard) TestEditUpdatesDrafts() {
	profile := suite.createTestProfile(17)
	session := suite.createTestSession(models.TelegramSession{
		ChatID: 17, ProfileID: profile.ID,
		State:  models.StateAwaitingConfirmation,
		Drafts: []models.Draft{completeDraft()},
	})

	updated := completeDraft()
	updated.Amount = decimal.NewFromFloat(12.5)
	suite.assistant.edit = llm.EditResult{Kind: llm.EditUpdated, Transactions: []models.Draft{updated}}

	suite.handler.HandleUpdate(context.Background(), message(17, "make it 12.50"))

	suite.Require().Nil(models.DB.First(&session, session.ID).Error)
	suite.Assert().Equal(models.StateAwaitingConfirmation, session.State)
	suite.Require().Len(session.Drafts, 1)
	suite.Assert().True(session.Drafts[0].Amount.Equal(decimal.NewFromFloat(12.5)))
	suite.Assert().Contains(suite.sender.lastText(), "12.5")
}

func (suite *TestSuiteStandard) TestEditUnchanged() {
	profile := suite.createTestProfile(17)
	suite.createTestSession(models.TelegramSession{
		ChatID: 17, ProfileID: profile.ID,
		State:  models.StateAwaitingConfirmation,
		Drafts: []models.Draft{completeDraft()},
	})

	suite.assistant.edit = llm.EditResult{Kind: llm.EditUnchanged, Reason: "Nothing to change."}
	suite.handler.HandleUpdate(context.Background(), message(17, "hmm"))

	suite.Assert().Contains(suite.sender.lastText(), "Nothing to change.")
}

func (suite *TestSuiteStandard) TestCancel() {
	profile := suite.createTestProfile(17)
	session := suite.createTestSession(models.TelegramSession{
		ChatID: 17, ProfileID: profile.ID,
		State:  models.StateAwaitingConfirmation,
		Drafts: []models.Draft{completeDraft()},
	})

	suite.handler.HandleUpdate(context.Background(), buttonPress(17, "cancel_session:"+session.ID.String()))

	suite.Require().Nil(models.DB.First(&session, session.ID).Error)
	suite.Assert().Equal(models.StateIdle, session.State)
	suite.Assert().Empty(session.Drafts)
	suite.Assert().Contains(suite.sender.lastText(), "Cancelled")
}

func (suite *TestSuiteStandard) TestStaleLogButton() {
	profile := suite.createTestProfile(17)
	suite.createTestSession(models.TelegramSession{
		ChatID: 17, ProfileID: profile.ID,
		State:  models.StateAwaitingConfirmation,
		Drafts: []models.Draft{completeDraft()},
	})

	suite.handler.HandleUpdate(context.Background(), buttonPress(17, "log_session:00000000-0000-0000-0000-000000000001"))

	suite.Require().NotEmpty(suite.sender.answers)
	suite.Assert().Contains(suite.sender.answers[len(suite.sender.answers)-1], "out of date")

	var transactions int64
	models.DB.Model(&models.Transaction{}).Count(&transactions)
	suite.Assert().Equal(int64(0), transactions)
}

func (suite *TestSuiteStandard) TestCallbackWithoutSession() {
	suite.handler.HandleUpdate(context.Background(), buttonPress(17, "log_session:whatever"))

	suite.Require().NotEmpty(suite.sender.answers)
	suite.Assert().Contains(suite.sender.answers[len(suite.sender.answers)-1], "expired")
}

func (suite *TestSuiteStandard) TestParseTimeout() {
	profile := suite.createTestProfile(17)
	suite.createTestSession(models.TelegramSession{
		ChatID: 17, ProfileID: profile.ID, State: models.StateIdle,
	})

	suite.assistant.parseErr = llm.ErrTimeout
	suite.handler.HandleUpdate(context.Background(), message(17, "Coffee 4.50"))

	suite.Assert().Contains(suite.sender.lastText(), "longer than expected")
}
