package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/authgate/authgate/web/sessionstore"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopFormEchoIsOneShot(t *testing.T) {
	st := &State{}
	st.SetFormEcho(FormEcho{Form: FormSignup, HasError: true, Message: "bad", Email: "a@x.com"})

	echo, dirty := st.PopFormEcho(FormSignup)
	assert.True(t, dirty)
	assert.True(t, echo.HasError)
	assert.Equal(t, "a@x.com", echo.Email)
	assert.Nil(t, st.PendingEcho)

	echo, dirty = st.PopFormEcho(FormSignup)
	assert.False(t, dirty)
	assert.Equal(t, FormEcho{Form: FormSignup}, echo)
}

func TestPopFormEchoOtherFormDiscards(t *testing.T) {
	st := &State{}
	st.SetFormEcho(FormEcho{Form: FormSignup, HasError: true})

	echo, dirty := st.PopFormEcho(FormLogin)
	assert.True(t, dirty)
	assert.False(t, echo.HasError)
	assert.Nil(t, st.PendingEcho)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := sessionstore.NewRedisStore(client, []byte("0123456789abcdef0123456789abcdef"))
	router := gin.New()
	router.Use(sessions.Sessions("authgate", store))
	router.POST("/login", func(c *gin.Context) {
		st := Load(c)
		st.User = &SessionUser{Id: 7, Email: "a@x.com"}
		st.IsAuthenticated = true
		if err := Save(c, st); err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	router.GET("/state", func(c *gin.Context) {
		st := Load(c)
		c.JSON(http.StatusOK, gin.H{"auth": st.IsAuthenticated, "user": st.User})
	})
	return router
}

func TestSaveThenLoadAcrossRequests(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.JSONEq(t, `{"auth":true,"user":{"Id":7,"Email":"a@x.com"}}`, rec.Body.String())
}

func TestLoadWithoutSessionIsEmpty(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))
	assert.JSONEq(t, `{"auth":false,"user":null}`, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies(), "reading alone must not issue a cookie")
}
