package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestDomainValidator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(DomainValidatorMiddleware("auth.example.com"), NoStore())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for host, want := range map[string]int{
		"auth.example.com":      http.StatusOK,
		"AUTH.example.com:8443": http.StatusOK,
		"evil.example.com":      http.StatusForbidden,
		"127.0.0.1:3000":        http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = host
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, host)
		if want == http.StatusOK {
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		}
	}
}
