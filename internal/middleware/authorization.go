package middleware

import (
	"crypto/subtle"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ledgerlens/defi-insight/api"
)

var ErrUnauthorized = fmt.Errorf("invalid username or password")

// Authorization requires HTTP basic auth with the given credentials. With an
// empty username every request passes.
func Authorization(username, password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if username == "" {
			c.Next()
			return
		}
		user, pass, ok := c.Request.BasicAuth()
		if !ok || !validateCredentials(user, pass, username, password) {
			log.Warn().Str("path", c.Request.URL.Path).Str("ip", c.ClientIP()).Msg(ErrUnauthorized.Error())
			c.Header("WWW-Authenticate", `Basic realm="defi-insight"`)
			api.UnauthorizedErrorHandler(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func validateCredentials(user, pass, wantUser, wantPass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(wantPass)) == 1
	return userOK && passOK
}
