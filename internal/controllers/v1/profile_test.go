package v1_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	v1 "github.com/pocketbudget/backend/internal/controllers/v1"
	"github.com/pocketbudget/backend/internal/models"
	"github.com/pocketbudget/backend/test"
	"github.com/stretchr/testify/assert"
)

func (suite *TestSuiteStandard) TestProfilesCreate() {
	profile := createTestProfile(suite.T(), v1.ProfileEditable{Name: "Household"})
	suite.Assert().Equal("Household", profile.Data.Name)
}

func (suite *TestSuiteStandard) TestProfilesGetSingle() {
	p := createTestProfile(suite.T(), v1.ProfileEditable{})

	tests := []struct {
		name   string
		id     string
		status int
	}{
		{"Existing Profile", p.Data.ID.String(), http.StatusOK},
		{"No Profile with this ID", uuid.New().String(), http.StatusNotFound},
		{"Not a valid UUID", "NotParseableAsUUID", http.StatusBadRequest},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, http.MethodGet, fmt.Sprintf("http://example.com/v1/profiles/%s", tt.id), "")
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

func (suite *TestSuiteStandard) TestProfilesUpdate() {
	profile := createTestProfile(suite.T(), v1.ProfileEditable{Name: "Old name"})

	r := test.Request(suite.T(), http.MethodPatch,
		fmt.Sprintf("http://example.com/v1/profiles/%s", profile.Data.ID),
		v1.ProfileEditable{Name: "New name"})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var updated v1.ProfileResponse
	test.DecodeResponse(suite.T(), &r, &updated)
	suite.Assert().Equal("New name", updated.Data.Name)
}

func (suite *TestSuiteStandard) TestProfilesDelete() {
	profile := createTestProfile(suite.T(), v1.ProfileEditable{})

	r := test.Request(suite.T(), http.MethodPost,
		fmt.Sprintf("http://example.com/v1/profiles/%s/linking-codes", profile.Data.ID), "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusCreated)

	r = test.Request(suite.T(), http.MethodDelete, fmt.Sprintf("http://example.com/v1/profiles/%s", profile.Data.ID), "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)

	r = test.Request(suite.T(), http.MethodGet, fmt.Sprintf("http://example.com/v1/profiles/%s", profile.Data.ID), "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)

	// The linking code goes away with the profile
	var codes int64
	models.DB.Model(&models.LinkingCode{}).Count(&codes)
	suite.Assert().Equal(int64(0), codes)
}

func (suite *TestSuiteStandard) TestLinkingCodeCreate() {
	profile := createTestProfile(suite.T(), v1.ProfileEditable{})

	r := test.Request(suite.T(), http.MethodPost,
		fmt.Sprintf("http://example.com/v1/profiles/%s/linking-codes", profile.Data.ID), "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusCreated)

	var response v1.LinkingCodeResponse
	test.DecodeResponse(suite.T(), &r, &response)

	suite.Assert().Len(response.Data.Code, 6)
	suite.Assert().True(response.Data.ExpiresAt.After(time.Now()))
}

func (suite *TestSuiteStandard) TestLinkingCodeReplacesOlder() {
	profile := createTestProfile(suite.T(), v1.ProfileEditable{})

	url := fmt.Sprintf("http://example.com/v1/profiles/%s/linking-codes", profile.Data.ID)

	r := test.Request(suite.T(), http.MethodPost, url, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusCreated)

	r = test.Request(suite.T(), http.MethodPost, url, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusCreated)

	// Only the newest code stays valid
	var codes int64
	models.DB.Model(&models.LinkingCode{}).Count(&codes)
	suite.Assert().Equal(int64(1), codes)
}

func (suite *TestSuiteStandard) TestTelegramStatus() {
	profile := createTestProfile(suite.T(), v1.ProfileEditable{})
	url := fmt.Sprintf("http://example.com/v1/profiles/%s/telegram", profile.Data.ID)

	r := test.Request(suite.T(), http.MethodGet, url, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.TelegramStatusResponse
	test.DecodeResponse(suite.T(), &r, &response)
	assert.False(suite.T(), response.Data.Linked)
	assert.Nil(suite.T(), response.Data.ChatID)

	// Link the chat directly, as the bot does on /start
	suite.Require().Nil(models.DB.Model(&models.Profile{}).Where("id = ?", profile.Data.ID).Update("telegram_chat_id", 512345678).Error)

	r = test.Request(suite.T(), http.MethodGet, url, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	test.DecodeResponse(suite.T(), &r, &response)
	assert.True(suite.T(), response.Data.Linked)
	suite.Require().NotNil(response.Data.ChatID)
	assert.Equal(suite.T(), int64(512345678), *response.Data.ChatID)
}

func (suite *TestSuiteStandard) TestTelegramDisconnect() {
	profile := createTestProfile(suite.T(), v1.ProfileEditable{})
	suite.Require().Nil(models.DB.Model(&models.Profile{}).Where("id = ?", profile.Data.ID).Update("telegram_chat_id", 512345678).Error)

	session := models.TelegramSession{ChatID: 512345678, ProfileID: profile.Data.ID, State: models.StateIdle}
	suite.Require().Nil(models.DB.Create(&session).Error)

	r := test.Request(suite.T(), http.MethodDelete,
		fmt.Sprintf("http://example.com/v1/profiles/%s/telegram", profile.Data.ID), "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)

	var reloaded models.Profile
	suite.Require().Nil(models.DB.First(&reloaded, profile.Data.ID).Error)
	suite.Assert().Nil(reloaded.TelegramChatID)

	var sessions int64
	models.DB.Model(&models.TelegramSession{}).Count(&sessions)
	suite.Assert().Equal(int64(0), sessions)
}
