package api

import (
	"net/http"
)

// Config tells a browser with no local credential where the control plane
// login lives.
func (a *API) Config() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := a.service.Config()
		if err != nil {
			returnJsonError(w, http.StatusNotFound, "SSO not configured")
			return
		}
		returnJson(cfg, w)
	}
}
