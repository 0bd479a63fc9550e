package models_test

import (
	"github.com/pocketbudget/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func (suite *TestSuiteStandard) TestQueryErrorTranslation() {
	err := models.DB.First(&models.Category{}).Error

	assert.ErrorIs(suite.T(), err, models.ErrResourceNotFound)
	assert.Contains(suite.T(), err.Error(), "there is no category matching your query")
}

func (suite *TestSuiteStandard) TestConnectInvalidDSN() {
	// Restored by SetupTest of the next test
	err := models.Connect("/this/path/does/not/exist/db")
	assert.NotNil(suite.T(), err)
}
