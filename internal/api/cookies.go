package api

import (
	"net/http"
	"strings"
	"time"
)

func (a *API) setRefreshCookie(
	w http.ResponseWriter,
	r *http.Request,
	value string,
	expires time.Time,
) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     a.options.RefreshCookie,
		Value:    value,
		Path:     a.options.AdminPath,
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   a.secure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearRefreshCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.options.RefreshCookie,
		Value:    "",
		Path:     a.options.AdminPath,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) refreshCookie(r *http.Request) string {
	cookie, err := r.Cookie(a.options.RefreshCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// secure is true only for production requests that arrived over TLS,
// directly or through a proxy that says so.
func (a *API) secure(r *http.Request) bool {
	if !a.options.Production {
		return false
	}
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
