package controller

import (
	"errors"
	"net/http"

	"github.com/authgate/authgate/logger"
	"github.com/authgate/authgate/web/service"
	"github.com/authgate/authgate/web/session"

	"github.com/gin-gonic/gin"
)

// SignupForm represents the signup request structure.
type SignupForm struct {
	Email        string `form:"email"`
	ConfirmEmail string `form:"confirm-email"`
	Password     string `form:"password"`
}

// LoginForm represents the login request structure.
type LoginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

// SessionRenewer moves a session to a fresh ID on its next save.
type SessionRenewer interface {
	Renew(r *http.Request, name string) error
}

// IndexController handles the welcome page and the signup, login and logout flow.
type IndexController struct {
	BaseController

	auth       *service.AuthService
	renewer    SessionRenewer
	cookieName string
}

// NewIndexController creates a new IndexController and initializes its routes.
func NewIndexController(g *gin.RouterGroup, auth *service.AuthService, renewer SessionRenewer, cookieName string) *IndexController {
	a := &IndexController{auth: auth, renewer: renewer, cookieName: cookieName}
	a.initRouter(g)
	return a
}

func (a *IndexController) initRouter(g *gin.RouterGroup) {
	g.GET("/", a.index)
	g.GET("/signup", a.signupPage)
	g.POST("/signup", a.signup)
	g.GET("/login", a.loginPage)
	g.POST("/login", a.login)
	g.POST("/logout", a.logout)
}

func (a *IndexController) index(c *gin.Context) {
	html(c, "welcome.html", "pages.welcome.title", nil)
}

func (a *IndexController) signupPage(c *gin.Context) {
	a.formPage(c, session.FormSignup, "signup.html", "pages.signup.title")
}

func (a *IndexController) loginPage(c *gin.Context) {
	a.formPage(c, session.FormLogin, "login.html", "pages.login.title")
}

// formPage renders a form with the echo of the previous failed submission, if any.
// The echo is consumed: it is cleared and the session saved before rendering.
func (a *IndexController) formPage(c *gin.Context, form, name, title string) {
	st := session.Load(c)
	echo, dirty := st.PopFormEcho(form)
	if dirty {
		if err := session.Save(c, st); err != nil {
			RenderUnavailable(c, err)
			return
		}
	}
	if echo.HasError {
		echo.Message = I18nWeb(c, echo.Message)
	}
	html(c, name, title, gin.H{"echo": echo})
}

func (a *IndexController) signup(c *gin.Context) {
	var form SignupForm
	if err := c.ShouldBind(&form); err != nil {
		logger.Warning("bind signup form:", err)
	}

	err := a.auth.Signup(c.Request.Context(), form.Email, form.ConfirmEmail, form.Password)
	if err == nil {
		logger.Infof("signup succeeded for %s, IP: %s", form.Email, getRemoteIp(c))
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}
	if errors.Is(err, service.ErrStoreUnavailable) {
		RenderUnavailable(c, err)
		return
	}

	logger.Infof("signup rejected for %q, IP: %s: %v", form.Email, getRemoteIp(c), err)
	a.failForm(c, session.FormEcho{
		Form:         session.FormSignup,
		HasError:     true,
		Message:      "pages.signup.failed",
		Email:        form.Email,
		ConfirmEmail: form.ConfirmEmail,
	}, "/signup")
}

func (a *IndexController) login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		logger.Warning("bind login form:", err)
	}

	st := session.Load(c)
	err := a.auth.Login(c.Request.Context(), st, form.Email, form.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		logger.Warningf("failed login for %q, IP: %s", form.Email, getRemoteIp(c))
		a.failForm(c, session.FormEcho{
			Form:     session.FormLogin,
			HasError: true,
			Message:  "pages.login.failed",
			Email:    form.Email,
		}, "/login")
		return
	}
	if err != nil {
		RenderUnavailable(c, err)
		return
	}

	// A session that becomes authenticated never keeps its anonymous ID.
	if err := a.renewer.Renew(c.Request, a.cookieName); err != nil {
		RenderUnavailable(c, err)
		return
	}
	if err := session.Save(c, st); err != nil {
		RenderUnavailable(c, err)
		return
	}
	logger.Infof("%s logged in successfully, IP: %s", form.Email, getRemoteIp(c))
	c.Redirect(http.StatusSeeOther, "/admin")
}

func (a *IndexController) logout(c *gin.Context) {
	st := session.Load(c)
	if st.User != nil {
		logger.Infof("%s logged out", st.User.Email)
	}
	a.auth.Logout(st)
	if err := session.Save(c, st); err != nil {
		RenderUnavailable(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// failForm stores the echo and redirects back to the form once the session is saved.
func (a *IndexController) failForm(c *gin.Context, echo session.FormEcho, location string) {
	st := session.Load(c)
	st.SetFormEcho(echo)
	if err := session.Save(c, st); err != nil {
		RenderUnavailable(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, location)
}
