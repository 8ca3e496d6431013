package controller

import (
	"net/http"

	"github.com/authgate/authgate/web/entity"
	"github.com/authgate/authgate/web/middleware"
	"github.com/authgate/authgate/web/service"

	"github.com/gin-gonic/gin"
)

// APIController serves the JSON endpoints.
type APIController struct {
	BaseController

	users *service.UserService
}

func NewAPIController(g *gin.RouterGroup, users *service.UserService) *APIController {
	a := &APIController{users: users}
	a.initRouter(g)
	return a
}

func (a *APIController) initRouter(g *gin.RouterGroup) {
	g.GET("/health", a.health)

	api := g.Group("/api")
	api.GET("/me", a.me)

	admin := api.Group("/admin")
	admin.Use(middleware.AdminOnly())
	admin.GET("/users", a.listUsers)
}

func (a *APIController) health(c *gin.Context) {
	pureJsonMsg(c, http.StatusOK, true, "ok")
}

func (a *APIController) me(c *gin.Context) {
	jsonObj(c, middleware.CurrentIdentity(c), nil)
}

func (a *APIController) listUsers(c *gin.Context) {
	users, err := a.users.List(c.Request.Context())
	if err != nil {
		jsonMsgObj(c, "list users", nil, err)
		return
	}
	views := make([]entity.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, entity.UserView{
			Id:        u.Id,
			Email:     u.Email,
			IsAdmin:   u.IsAdmin,
			CreatedAt: u.CreatedAt.Unix(),
		})
	}
	jsonObj(c, views, nil)
}
