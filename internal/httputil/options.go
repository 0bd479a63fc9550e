// Package httputil provides request binding and OPTIONS helpers shared
// by all controllers.
package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func OptionsGet(c *gin.Context) {
	c.Header("allow", "OPTIONS, GET")
	c.Status(http.StatusNoContent)
}

func OptionsPost(c *gin.Context) {
	c.Header("allow", "OPTIONS, POST")
	c.Status(http.StatusNoContent)
}

func OptionsGetPost(c *gin.Context) {
	c.Header("allow", "OPTIONS, GET, POST")
	c.Status(http.StatusNoContent)
}

func OptionsGetPatchDelete(c *gin.Context) {
	c.Header("allow", "OPTIONS, GET, PATCH, DELETE")
	c.Status(http.StatusNoContent)
}

func OptionsGetDelete(c *gin.Context) {
	c.Header("allow", "OPTIONS, GET, DELETE")
	c.Status(http.StatusNoContent)
}

func OptionsPatch(c *gin.Context) {
	c.Header("allow", "OPTIONS, PATCH")
	c.Status(http.StatusNoContent)
}
