package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(user, pass string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Logger(), Authorization(user, pass))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestAuthorization(t *testing.T) {
	r := newRouter("admin", "secret")

	testCases := []struct {
		name   string
		user   string
		pass   string
		noAuth bool
		status int
	}{
		{name: "valid credentials", user: "admin", pass: "secret", status: http.StatusOK},
		{name: "wrong password", user: "admin", pass: "nope", status: http.StatusUnauthorized},
		{name: "wrong user", user: "root", pass: "secret", status: http.StatusUnauthorized},
		{name: "missing header", noAuth: true, status: http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if !tc.noAuth {
				req.SetBasicAuth(tc.user, tc.pass)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), ErrUnauthorized.Error())
				assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestAuthorizationDisabled(t *testing.T) {
	r := newRouter("", "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}
