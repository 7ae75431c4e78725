package api

import (
	"net/http"
	"net/url"
	"strings"

	"git.sr.ht/~jakintosh/ssobridge/internal/resources"
)

// SignOut is one hop of a browser sign-out chain. Revocation is best-effort;
// the page always clears local state and moves on to next.
func (a *API) SignOut() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		next := safeNext(query.Get("next"), a.options.AdminPath)

		// browsers only send the refresh cookie here when the admin path is "/"
		revoked := a.service.SignOut(query.Get("token"), a.refreshCookie(r))
		a.metrics.RecordRevoked("sign_out", revoked)
		a.metrics.RecordSignOut()

		a.clearRefreshCookie(w, r)
		noStore(w)
		a.renderPage(w, r, http.StatusOK, resources.SignOutPage, resources.SignOutData{
			StorageKeys: a.options.StorageKeys,
			Next:        next,
		})
	}
}

// safeNext accepts a rooted relative path or an absolute http(s) URL and
// returns fallback for anything else.
func safeNext(next string, fallback string) string {
	if next == "" {
		return fallback
	}
	if strings.HasPrefix(next, "/") {
		if strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
			return fallback
		}
		if _, err := url.Parse(next); err != nil {
			return fallback
		}
		return next
	}
	if isHTTPURL(next) {
		return next
	}
	return fallback
}

func isHTTPURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
