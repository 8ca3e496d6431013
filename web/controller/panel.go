package controller

import (
	"net/http"

	"github.com/authgate/authgate/web/middleware"
	"github.com/authgate/authgate/web/service"

	"github.com/gin-gonic/gin"
)

// PanelController serves the pages that need an authenticated visitor.
type PanelController struct {
	BaseController

	users *service.UserService
}

func NewPanelController(g *gin.RouterGroup, users *service.UserService) *PanelController {
	a := &PanelController{users: users}
	a.initRouter(g)
	return a
}

func (a *PanelController) initRouter(g *gin.RouterGroup) {
	g.GET("/admin", a.admin)
	g.GET("/profile", a.profile)
}

func (a *PanelController) admin(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	if !identity.Authenticated {
		errorPage(c, http.StatusUnauthorized, "errors.unauthorized")
		return
	}
	if !identity.IsAdmin {
		errorPage(c, http.StatusForbidden, "errors.forbidden")
		return
	}

	users, err := a.users.List(c.Request.Context())
	if err != nil {
		RenderUnavailable(c, err)
		return
	}
	html(c, "admin.html", "pages.admin.title", gin.H{"users": users})
}

func (a *PanelController) profile(c *gin.Context) {
	if !middleware.CurrentIdentity(c).Authenticated {
		errorPage(c, http.StatusUnauthorized, "errors.unauthorized")
		return
	}
	html(c, "profile.html", "pages.profile.title", nil)
}
