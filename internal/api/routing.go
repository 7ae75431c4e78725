package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	a.BuildRouter(r)
	return r
}

// BuildRouter registers the SSO routes on r.
func (a *API) BuildRouter(r *mux.Router) {
	r.Use(a.logRequests)

	r.HandleFunc("/sso/callback", a.Callback()).Methods(http.MethodGet)
	r.HandleFunc("/sso/revoke-all", a.RevokeAll()).Methods(http.MethodPost)
	r.HandleFunc("/sso/config", a.Config()).Methods(http.MethodGet)
	r.HandleFunc("/sso/sign-out", a.SignOut()).Methods(http.MethodGet)

	// the refresh cookie is only sent under the admin path
	r.HandleFunc(a.options.AdminPath+"/access-token", a.Renew()).Methods(http.MethodPost)

	r.HandleFunc("/healthz", a.Health()).Methods(http.MethodGet)
}

func (a *API) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		returnJson(map[string]string{"status": "ok"}, w)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Debug("request")
	})
}
