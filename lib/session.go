package userdesk

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"userdesk/internal/models"
)

const (
	sessionName  = "userdesk_session"
	principalKey = "principal"
	stateKey     = "state"

	sessionMaxAge = 30 * 24 * 60 * 60 // seconds
)

// SessionMiddleware attaches a signed cookie session to every request.
func SessionMiddleware(c Config) gin.HandlerFunc {
	store := cookie.NewStore([]byte(c.SessionSecret()))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   c.SecureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(sessionName, store)
}

// CurrentPrincipal returns the authenticated caller of the request, or nil.
func CurrentPrincipal(ctx *gin.Context) *models.Principal {
	p, ok := sessions.Default(ctx).Get(principalKey).(models.Principal)
	if !ok || p.ID == "" {
		return nil
	}
	return &p
}

// BrowserGate sends unauthenticated browsers to the sign-in page. API clients
// pass through and receive 401 from the user operations themselves.
func BrowserGate(ctx *gin.Context) {
	if CurrentPrincipal(ctx) == nil && wantsHTML(ctx) {
		ctx.Redirect(http.StatusSeeOther, "/signin")
		ctx.Abort()
		return
	}
	ctx.Next()
}

func wantsHTML(ctx *gin.Context) bool {
	return strings.Contains(ctx.GetHeader("Accept"), "text/html")
}
