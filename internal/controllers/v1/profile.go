package v1

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pocketbudget/backend/internal/httputil"
	"github.com/pocketbudget/backend/internal/models"
)

// linkingCodeTTL is how long a linking code stays usable.
const linkingCodeTTL = 10 * time.Minute

type ProfileListResponse struct {
	Data []models.Profile `json:"data"`
}

type ProfileResponse struct {
	Data models.Profile `json:"data"`
}

type LinkingCodeResponse struct {
	Data LinkingCodeObject `json:"data"`
}

type LinkingCodeObject struct {
	Code      string    `json:"code" example:"483920"`
	ExpiresAt time.Time `json:"expiresAt" example:"2026-08-30T12:10:00Z"`
}

type TelegramStatusResponse struct {
	Data TelegramStatus `json:"data"`
}

type TelegramStatus struct {
	Linked bool   `json:"linked" example:"true"`
	ChatID *int64 `json:"chatId,omitempty" example:"512345678"`
}

// ProfileEditable are the fields of a profile that clients can set.
type ProfileEditable struct {
	Name string `json:"name" example:"Milan's household"`
}

// RegisterProfileRoutes registers the routes for profiles with the
// RouterGroup that is passed.
func RegisterProfileRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsProfileList)
		r.GET("", GetProfiles)
		r.POST("", CreateProfile)
	}

	// Profile with ID
	{
		r.OPTIONS("/:id", OptionsProfileDetail)
		r.GET("/:id", GetProfile)
		r.PATCH("/:id", UpdateProfile)
		r.DELETE("/:id", DeleteProfile)
	}

	// Telegram linking
	{
		r.OPTIONS("/:id/linking-codes", httputil.OptionsPost)
		r.POST("/:id/linking-codes", CreateLinkingCode)
		r.OPTIONS("/:id/telegram", httputil.OptionsGetDelete)
		r.GET("/:id/telegram", GetTelegramStatus)
		r.DELETE("/:id/telegram", DisconnectTelegram)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Profiles
// @Success		204
// @Router			/v1/profiles [options]
func OptionsProfileList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Profiles
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/profiles/{id} [options]
func OptionsProfileDetail(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	err := models.DB.First(&models.Profile{}, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

// @Summary		Create profile
// @Description	Creates a new profile
// @Tags			Profiles
// @Produce		json
// @Success		201		{object}	ProfileResponse
// @Failure		400		{object}	httpError
// @Failure		500		{object}	httpError
// @Param			profile	body		ProfileEditable	true	"Profile"
// @Router			/v1/profiles [post]
func CreateProfile(c *gin.Context) {
	var editable ProfileEditable

	if err := httputil.BindData(c, &editable); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	profile := models.Profile{Name: editable.Name}
	if err := models.DB.Create(&profile).Error; err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, ProfileResponse{Data: profile})
}

// @Summary		Get profiles
// @Description	Returns a list of profiles
// @Tags			Profiles
// @Produce		json
// @Success		200	{object}	ProfileListResponse
// @Failure		500	{object}	httpError
// @Router			/v1/profiles [get]
func GetProfiles(c *gin.Context) {
	var profiles []models.Profile

	err := models.DB.Order("name ASC").Find(&profiles).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	if profiles == nil {
		profiles = make([]models.Profile, 0)
	}

	c.JSON(http.StatusOK, ProfileListResponse{Data: profiles})
}

// @Summary		Get profile
// @Description	Returns a specific profile
// @Tags			Profiles
// @Produce		json
// @Success		200	{object}	ProfileResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/profiles/{id} [get]
func GetProfile(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var profile models.Profile
	err := models.DB.First(&profile, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{Data: profile})
}

// @Summary		Update profile
// @Description	Updates an existing profile
// @Tags			Profiles
// @Accept			json
// @Produce		json
// @Success		200		{object}	ProfileResponse
// @Failure		400		{object}	httpError
// @Failure		404		{object}	httpError
// @Param			id		path	URIID			true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			profile	body	ProfileEditable	true	"Profile"
// @Router			/v1/profiles/{id} [patch]
func UpdateProfile(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var profile models.Profile
	err := models.DB.First(&profile, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var editable ProfileEditable
	if err := httputil.BindData(c, &editable); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	err = models.DB.Model(&profile).Updates(models.Profile{Name: editable.Name}).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{Data: profile})
}

// @Summary		Delete profile
// @Description	Deletes a profile together with its sessions and linking codes
// @Tags			Profiles
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/profiles/{id} [delete]
func DeleteProfile(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var profile models.Profile
	err := models.DB.First(&profile, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	models.DB.Where("profile_id = ?", profile.ID).Delete(&models.LinkingCode{})
	models.DB.Where("profile_id = ?", profile.ID).Delete(&models.TelegramSession{})
	models.DB.Where("profile_id = ?", profile.ID).Delete(&models.BudgetNudge{})

	err = models.DB.Delete(&profile).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary		Create linking code
// @Description	Creates a short-lived code to link this profile to a Telegram chat via /start
// @Tags			Profiles
// @Produce		json
// @Success		201	{object}	LinkingCodeResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/profiles/{id}/linking-codes [post]
func CreateLinkingCode(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var profile models.Profile
	err := models.DB.First(&profile, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	// Older codes for the profile become useless the moment a new one
	// is issued
	models.DB.Where("profile_id = ?", profile.ID).Delete(&models.LinkingCode{})

	code := models.LinkingCode{
		ProfileID: profile.ID,
		Code:      newLinkingCode(),
		ExpiresAt: time.Now().Add(linkingCodeTTL),
	}
	if err := models.DB.Create(&code).Error; err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, LinkingCodeResponse{Data: LinkingCodeObject{
		Code:      code.Code,
		ExpiresAt: code.ExpiresAt,
	}})
}

// @Summary		Get Telegram status
// @Description	Reports whether the profile is linked to a Telegram chat
// @Tags			Profiles
// @Produce		json
// @Success		200	{object}	TelegramStatusResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/profiles/{id}/telegram [get]
func GetTelegramStatus(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var profile models.Profile
	err := models.DB.First(&profile, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, TelegramStatusResponse{Data: TelegramStatus{
		Linked: profile.TelegramChatID != nil,
		ChatID: profile.TelegramChatID,
	}})
}

// @Summary		Disconnect Telegram
// @Description	Unlinks the profile from its Telegram chat and drops the chat session
// @Tags			Profiles
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/profiles/{id}/telegram [delete]
func DisconnectTelegram(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	var profile models.Profile
	err := models.DB.First(&profile, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	if profile.TelegramChatID != nil {
		models.DB.Where("chat_id = ?", *profile.TelegramChatID).Delete(&models.TelegramSession{})
	}

	err = models.DB.Model(&profile).Update("telegram_chat_id", nil).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// newLinkingCode returns a random 6 digit code.
func newLinkingCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		// crypto/rand only fails when the system entropy source is
		// broken
		panic(err)
	}

	return fmt.Sprintf("%06d", n.Int64())
}
