// Package middleware holds the echo middleware shared by the page and API
// routes: the session guard, access logging and error rendering.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/campussafety/safety-dashboard/internal/services"
)

const (
	SessionCookie = "sb_session"
	LoginPath     = "/login"

	userKey  = "admin_user"
	tokenKey = "access_token"
)

// Verifier checks an access token and returns the admin it belongs to.
type Verifier interface {
	Verify(token string) (*services.AdminUser, error)
}

// RequireSession guards HTML pages: a missing or expired session is sent to
// the login page before the handler runs.
func RequireSession(v Verifier) echo.MiddlewareFunc {
	return guard(v, func(c echo.Context) error {
		ClearSessionCookie(c, false)
		return c.Redirect(http.StatusFound, LoginPath)
	})
}

// RequireAPISession guards JSON and websocket routes with a 401.
func RequireAPISession(v Verifier) echo.MiddlewareFunc {
	return guard(v, func(c echo.Context) error {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": services.ErrUnauthorized.Error()})
	})
}

func guard(v Verifier, reject func(c echo.Context) error) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := TokenFromRequest(c.Request())
			if token == "" {
				return reject(c)
			}
			user, err := v.Verify(token)
			if err != nil {
				return reject(c)
			}
			c.Set(userKey, user)
			c.Set(tokenKey, token)
			return next(c)
		}
	}
}

// TokenFromRequest reads the session from the Authorization header, falling
// back to the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get(echo.HeaderAuthorization); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if ck, err := r.Cookie(SessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

// CurrentUser returns the admin set by the guard, or nil on unguarded routes.
func CurrentUser(c echo.Context) *services.AdminUser {
	u, _ := c.Get(userKey).(*services.AdminUser)
	return u
}

// Token returns the verified access token of the request.
func Token(c echo.Context) string {
	t, _ := c.Get(tokenKey).(string)
	return t
}

// SetSessionCookie stores the access token in an HttpOnly cookie that
// expires with the session.
func SetSessionCookie(c echo.Context, sess *services.Session, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    sess.AccessToken,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
