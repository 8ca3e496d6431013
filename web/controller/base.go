// Package controller provides the HTTP handlers of authgate: the signup, login and
// logout flow, the pages behind it and a small JSON API.
package controller

import (
	"net/http"

	"github.com/authgate/authgate/logger"
	"github.com/authgate/authgate/web/locale"

	"github.com/gin-gonic/gin"
)

// BaseController provides helpers shared by all controllers.
type BaseController struct{}

// I18nWeb retrieves an internationalized message for the web interface based on the current locale.
func I18nWeb(c *gin.Context, name string, params ...string) string {
	return i18nFunc(c)(name, params...)
}

func i18nFunc(c *gin.Context) locale.I18nFunc {
	anyfunc, funcExists := c.Get("I18n")
	if !funcExists {
		logger.Warning("I18n function not exists in gin context!")
		return func(key string, _ ...string) string { return key }
	}
	return anyfunc.(locale.I18nFunc)
}

// RenderUnavailable writes the generic failure page used when a store cannot be reached.
func RenderUnavailable(c *gin.Context, err error) {
	logger.Error("request failed:", err)
	errorPage(c, http.StatusInternalServerError, "errors.unavailable")
}

func errorPage(c *gin.Context, status int, messageKey string) {
	htmlStatus(c, status, "error.html", "appName", gin.H{
		"status":  status,
		"message": I18nWeb(c, messageKey),
	})
}
