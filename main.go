package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	v1 "github.com/pocketbudget/backend/internal/controllers/v1"
	"github.com/pocketbudget/backend/internal/llm"
	"github.com/pocketbudget/backend/internal/models"
	"github.com/pocketbudget/backend/internal/router"
	"github.com/pocketbudget/backend/internal/telegram"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// gin uses debug as the default mode, we use release for
	// security reasons
	ginMode, ok := os.LookupEnv("GIN_MODE")
	if !ok {
		gin.SetMode("release")
	} else {
		gin.SetMode(ginMode)
	}

	// Log format can be explicitly set.
	// If it is not set, it defaults to human readable for development
	// and JSON for release
	logFormat, ok := os.LookupEnv("LOG_FORMAT")
	output := io.Writer(os.Stdout)
	if (!ok && gin.IsDebugging()) || (ok && logFormat == "human") {
		output = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if gin.IsDebugging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(output).With().Timestamp().Logger()

	// Create data directory
	dataDir := filepath.Join(".", "data")
	err := os.MkdirAll(dataDir, os.ModePerm)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	// Connect to the database
	err = models.Connect("data/gorm.db")
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	// The Telegram intake only runs when a bot token is configured,
	// the REST API works without it
	if os.Getenv("TELEGRAM_BOT_TOKEN") != "" {
		sender, err := telegram.NewBotSenderFromEnv()
		if err != nil {
			log.Fatal().Msg(err.Error())
		}

		v1.SetWebhookHandler(telegram.NewHandler(models.DB, llm.NewClientFromEnv(), sender))
	} else {
		log.Info().Msg("TELEGRAM_BOT_TOKEN is not set, telegram intake is disabled")
	}

	r, teardown, err := router.Config()
	defer teardown()
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	router.AttachRoutes(r.Group("/"))

	if err := r.Run(); err != nil {
		log.Fatal().Msg(err.Error())
	}
}
