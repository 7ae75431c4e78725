package api

import (
	"encoding/json"
	"net/http"

	"git.sr.ht/~jakintosh/ssobridge/internal/resources"
	"git.sr.ht/~jakintosh/ssobridge/internal/service"
	"github.com/sirupsen/logrus"
)

// Callback exchanges a control plane token for a local session and serves
// the page that hands the access credential to the browser.
func (a *API) Callback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		token := query.Get("token")
		cp := query.Get("cp")
		pid := query.Get("pid")

		login, err := a.service.Login(r.Context(), token)
		a.metrics.RecordVerification("callback", service.Outcome(err))
		if err != nil {
			a.writeErrorPage(w, r, err)
			return
		}
		if login.Provisioned {
			a.metrics.RecordProvisioned()
		}
		a.metrics.RecordSessionIssued()

		// storage holds the JSON encoded credential
		jwtToken, err := json.Marshal(login.Session.AccessToken.Encoded())
		if err != nil {
			a.writeErrorPage(w, r, service.ErrSessionCreationFailed)
			return
		}

		data := resources.BootstrapData{
			JWTToken:  string(jwtToken),
			AdminPath: a.options.AdminPath,
		}
		if isHTTPURL(cp) {
			data.CPURL = cp
			if pid != "" {
				data.LoginURL = service.LoginURL(cp, pid)
			}
		}

		a.setRefreshCookie(w, r, login.Session.RefreshToken.Encoded(), login.Session.AbsoluteExpiry)
		a.log.WithFields(logrus.Fields{
			"email":       login.Identity.Email,
			"provisioned": login.Provisioned,
		}).Info("SSO: login succeeded")

		noStore(w)
		a.renderPage(w, r, http.StatusOK, resources.BootstrapPage, data)
	}
}
