package signal

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// SessionTokenKey is where a login flow may stash the access token in the
// cookie session instead of a dedicated cookie.
const SessionTokenKey = "access_token"

// credential finds the access token for a connection attempt: the access
// cookie first, then a bearer header, then the gin session.
func (ctl *SignalWSController) credential(c *gin.Context) string {
	if tok, err := c.Cookie(ctl.Cfg.AccessCookie); err == nil && tok != "" {
		return tok
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if s, ok := c.Get(sessions.DefaultKey); ok && s != nil {
		if tok, ok := sessions.Default(c).Get(SessionTokenKey).(string); ok {
			return tok
		}
	}
	return ""
}
