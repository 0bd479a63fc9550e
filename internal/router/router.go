// Package router configures the gin engine and registers all routes.
package router

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/logger"
	"github.com/gin-contrib/pprof"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	docs "github.com/pocketbudget/backend/api"
	v1 "github.com/pocketbudget/backend/internal/controllers/v1"
	"github.com/pocketbudget/backend/internal/httputil"
	"github.com/pocketbudget/backend/internal/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// This is set at build time, see Makefile.
var version = "0.0.0"

// Config sets up the gin engine with all middlewares. The returned
// teardown function unregisters the prometheus collectors so that
// Config can be called again, which tests do.
func Config() (*gin.Engine, func(), error) {
	r := gin.New()

	// Don’t process X-Forwarded-For header as we do not do anything with
	// client IPs
	r.ForwardedByClientIP = false

	// Send a HTTP 405 (Method not allowed) for all paths where there is
	// a handler, but not for the specific method used
	r.HandleMethodNotAllowed = true

	r.Use(gin.Recovery())
	r.Use(requestid.New())
	r.Use(logger.SetLogger(
		logger.WithDefaultLevel(zerolog.InfoLevel),
		logger.WithClientErrorLevel(zerolog.InfoLevel),
		logger.WithServerErrorLevel(zerolog.ErrorLevel),
		logger.WithLogger(func(c *gin.Context, l zerolog.Logger) zerolog.Logger {
			return l.With().
				Str("request-id", requestid.Get(c)).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Int("status", c.Writer.Status()).
				Int("size", c.Writer.Size()).
				Str("user-agent", c.Request.UserAgent()).
				Logger()
		})))

	// CORS settings
	allowOrigins, ok := os.LookupEnv("CORS_ALLOW_ORIGINS")
	if ok {
		log.Debug().Str("allowOrigins", allowOrigins).Msg("CORS")

		r.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Fields(allowOrigins),
			AllowMethods:     []string{"OPTIONS", "GET", "POST", "PATCH", "DELETE"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
			AllowCredentials: true,
		}))
	}

	// Enable pprof when ENABLE_PPROF is set to true
	if os.Getenv("ENABLE_PPROF") == "true" {
		pprof.Register(r)
	}

	if err := registerPrometheusMetrics(); err != nil {
		return nil, func() {}, err
	}
	r.Use(MetricsMiddleware())

	// Disable the gin debug route printing as it clutters logs (and test logs)
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, numHandlers int) {}

	// Don’t trust any proxy. We do not process any client IPs,
	// therefore we don’t need to trust anyone here.
	_ = r.SetTrustedProxies([]string{})

	return r, func() { unregisterPrometheusMetrics() }, nil
}

// AttachRoutes attaches all API routes to the given router group.
func AttachRoutes(core *gin.RouterGroup) {
	core.GET("", GetRoot)
	core.OPTIONS("", OptionsRoot)
	core.GET("/version", GetVersion)
	core.OPTIONS("/version", OptionsVersion)
	core.GET("/healthz", GetHealthz)
	core.OPTIONS("/healthz", OptionsHealthz)

	core.GET("/metrics", gin.WrapH(promhttp.Handler()))

	docs.SwaggerInfo.Title = "pocketbudget"
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Description = "The backend for pocketbudget, a personal budget tracker with recurring transactions and conversational Telegram intake."

	core.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 setup
	group := core.Group("/v1")
	{
		group.GET("", GetV1)
		group.OPTIONS("", OptionsV1)
	}

	v1.RegisterCategoryRoutes(group.Group("/categories"))
	v1.RegisterTransactionRoutes(group.Group("/transactions"))
	v1.RegisterRecurringRuleRoutes(group.Group("/recurring-rules"))
	v1.RegisterProfileRoutes(group.Group("/profiles"))

	group.POST("/telegram/webhook", v1.TelegramWebhook)
	group.GET("/cron/materialize", v1.MaterializeCron)
	group.GET("/cron/weekly-digest", v1.WeeklyDigestCron)

	log.Info().Msg("backend startup complete")
}

type RootResponse struct {
	Links RootLinks `json:"links"`
}

type RootLinks struct {
	Docs    string `json:"docs" example:"https://example.com/api/docs/index.html"`
	Version string `json:"version" example:"https://example.com/api/version"`
	V1      string `json:"v1" example:"https://example.com/api/v1"`
}

// @Summary      API root
// @Description  Entrypoint for the API, listing all endpoints
// @Tags         General
// @Success      200  {object}  RootResponse
// @Router       / [get]
func GetRoot(c *gin.Context) {
	url := requestHost(c)

	c.JSON(http.StatusOK, RootResponse{
		Links: RootLinks{
			Docs:    url + "/docs/index.html",
			Version: url + "/version",
			V1:      url + "/v1",
		},
	})
}

type VersionResponse struct {
	Data VersionObject `json:"data"`
}
type VersionObject struct {
	Version string `json:"version" example:"1.1.0"`
}

// @Summary      API version
// @Description  Returns the software version of the API
// @Tags         General
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, VersionResponse{
		Data: VersionObject{
			Version: version,
		},
	})
}

// @Summary      Allowed HTTP verbs
// @Description  Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags         General
// @Success      204
// @Router       / [options]
func OptionsRoot(c *gin.Context) {
	httputil.OptionsGet(c)
}

// @Summary      Allowed HTTP verbs
// @Description  Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags         General
// @Success      204
// @Router       /version [options]
func OptionsVersion(c *gin.Context) {
	httputil.OptionsGet(c)
}

// @Summary      Get health
// @Description  Returns the application health and, if not healthy, an error
// @Tags         General
// @Success      204
// @Router       /healthz [get]
func GetHealthz(c *gin.Context) {
	sqlDB, err := models.DB.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": models.ErrGeneral.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary      Allowed HTTP verbs
// @Description  Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags         General
// @Success      204
// @Router       /healthz [options]
func OptionsHealthz(c *gin.Context) {
	httputil.OptionsGet(c)
}

type V1Response struct {
	Links V1Links `json:"links"`
}

type V1Links struct {
	Categories     string `json:"categories" example:"https://example.com/api/v1/categories"`
	Transactions   string `json:"transactions" example:"https://example.com/api/v1/transactions"`
	RecurringRules string `json:"recurringRules" example:"https://example.com/api/v1/recurring-rules"`
	Profiles       string `json:"profiles" example:"https://example.com/api/v1/profiles"`
}

// @Summary      v1 API
// @Description  Returns general information about the v1 API
// @Tags         General
// @Success      200  {object}  V1Response
// @Router       /v1 [get]
func GetV1(c *gin.Context) {
	url := requestHost(c) + "/v1"

	c.JSON(http.StatusOK, V1Response{
		Links: V1Links{
			Categories:     url + "/categories",
			Transactions:   url + "/transactions",
			RecurringRules: url + "/recurring-rules",
			Profiles:       url + "/profiles",
		},
	})
}

// @Summary      Allowed HTTP verbs
// @Description  Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags         General
// @Success      204
// @Router       /v1 [options]
func OptionsV1(c *gin.Context) {
	httputil.OptionsGet(c)
}

// requestHost builds the external base URL of the API from the
// forwarding headers a reverse proxy sets.
func requestHost(c *gin.Context) string {
	scheme := "http"
	if c.Request.Header.Get("x-forwarded-proto") == "https" {
		scheme = "https"
	}

	host := c.Request.Host
	var forwardedPrefix string

	xForwardedHost := c.Request.Header.Get("x-forwarded-host")
	if xForwardedHost != "" {
		host = xForwardedHost

		forwardedPrefix = c.Request.Header.Get("x-forwarded-prefix")
		if forwardedPrefix == "" {
			forwardedPrefix = "/api"
		}
	}

	return scheme + "://" + host + forwardedPrefix
}
