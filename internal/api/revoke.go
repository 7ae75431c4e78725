package api

import (
	"net/http"
	"strings"

	"git.sr.ht/~jakintosh/ssobridge/internal/service"
)

type RevokeAllRequest struct {
	Token string `json:"token"`
}

type RevokeAllResponse struct {
	Success bool  `json:"success"`
	Revoked int64 `json:"revoked"`
}

// RevokeAll is called by the control plane to end every session of the
// identity named in the token. The token may come in the query string or
// a JSON body.
func (a *API) RevokeAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			req := RevokeAllRequest{}
			if ok := decodeRequest(&req, w, r, a.log); !ok {
				return
			}
			token = req.Token
		}

		revoked, err := a.service.RevokeAll(r.Context(), token)
		a.metrics.RecordVerification("revoke_all", service.Outcome(err))
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		a.metrics.RecordRevoked("revoke_all", revoked)

		a.clearRefreshCookie(w, r)
		returnJson(&RevokeAllResponse{Success: true, Revoked: revoked}, w)
	}
}
