package v1

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/pocketbudget/backend/internal/models"
	"github.com/pocketbudget/backend/internal/recurring"
	"github.com/pocketbudget/backend/internal/types"
)

type MaterializeResponse struct {
	Message      string                              `json:"message" example:"materialized 2 rules"`
	Processed    int                                 `json:"processed" example:"5"`
	Created      int                                 `json:"created" example:"2"`
	Transactions []recurring.MaterializedTransaction `json:"transactions"`
}

type WeeklyDigestResponse struct {
	Message string `json:"message" example:"digest complete"`
	Sent    int    `json:"sent" example:"1"`
}

// cronAuthorized checks the static bearer secret the external
// scheduler sends. An unset CRON_SECRET disables both endpoints.
func cronAuthorized(c *gin.Context) bool {
	secret, ok := os.LookupEnv("CRON_SECRET")
	return ok && secret != "" && c.GetHeader("Authorization") == "Bearer "+secret
}

// @Summary		Materialize due occurrences
// @Description	Creates transactions for every rule occurrence due today. Safe to call more than once per day.
// @Tags			Cron
// @Produce		json
// @Success		200	{object}	MaterializeResponse
// @Failure		401	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			Authorization	header	string	true	"Bearer token matching CRON_SECRET"
// @Router			/v1/cron/materialize [get]
func MaterializeCron(c *gin.Context) {
	if !cronAuthorized(c) {
		c.JSON(http.StatusUnauthorized, httpError{Error: "unauthorized"})
		return
	}

	result, err := recurring.Materialize(models.DB, types.Today())
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, MaterializeResponse{
		Message:      "materialization complete",
		Processed:    result.Processed,
		Created:      result.Created,
		Transactions: result.Transactions,
	})
}

// @Summary		Send weekly digests
// @Description	Sends a summary of the last week's spending to every linked Telegram chat
// @Tags			Cron
// @Produce		json
// @Success		200	{object}	WeeklyDigestResponse
// @Failure		401	{object}	httpError
// @Failure		500	{object}	httpError
// @Failure		503	{object}	httpError
// @Param			Authorization	header	string	true	"Bearer token matching CRON_SECRET"
// @Router			/v1/cron/weekly-digest [get]
func WeeklyDigestCron(c *gin.Context) {
	if !cronAuthorized(c) {
		c.JSON(http.StatusUnauthorized, httpError{Error: "unauthorized"})
		return
	}

	if webhookHandler == nil {
		c.JSON(http.StatusServiceUnavailable, httpError{Error: "telegram is not configured"})
		return
	}

	sent, err := webhookHandler.SendWeeklyDigest(c.Request.Context(), types.Today())
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, WeeklyDigestResponse{
		Message: "digest complete",
		Sent:    sent,
	})
}
