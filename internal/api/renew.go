package api

import (
	"net/http"

	"git.sr.ht/~jakintosh/ssobridge/internal/service"
)

type RenewResponse struct {
	AccessToken string `json:"accessToken"`
}

// Renew trades the refresh cookie for a new access credential. It is what
// "continue session" calls after an idle warning.
func (a *API) Renew() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refresh := a.refreshCookie(r)
		if refresh == "" {
			a.metrics.RecordRenewal("unauthorized")
			a.writeError(w, r, service.ErrCredentialInvalid)
			return
		}

		accessToken, err := a.service.Exchange(refresh)
		if err != nil {
			if statusFor(err) == http.StatusUnauthorized {
				a.metrics.RecordRenewal("unauthorized")
				a.clearRefreshCookie(w, r)
			} else {
				a.metrics.RecordRenewal("error")
			}
			a.writeError(w, r, err)
			return
		}

		a.metrics.RecordRenewal("ok")
		noStore(w)
		returnJson(&RenewResponse{AccessToken: accessToken.Encoded()}, w)
	}
}
