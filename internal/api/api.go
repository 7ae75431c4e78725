package api

import (
	"encoding/json"
	"net/http"

	"git.sr.ht/~jakintosh/ssobridge/internal/metrics"
	"git.sr.ht/~jakintosh/ssobridge/internal/resources"
	"git.sr.ht/~jakintosh/ssobridge/internal/service"
	"github.com/sirupsen/logrus"
)

const (
	DefaultRefreshCookie = "admin_refresh"
	DefaultAdminPath     = "/admin"
)

// DefaultStorageKeys are the client storage entries removed on sign-out.
var DefaultStorageKeys = []string{
	"jwtToken",
	"sso_cp_url",
	"sso_login_url",
	"nps_survey_settings",
}

type Options struct {
	RefreshCookie string
	AdminPath     string
	StorageKeys   []string
	// Production enables the Secure flag on cookies set over TLS.
	Production bool
}

func (o Options) withDefaults() Options {
	if o.RefreshCookie == "" {
		o.RefreshCookie = DefaultRefreshCookie
	}
	if o.AdminPath == "" {
		o.AdminPath = DefaultAdminPath
	}
	if o.StorageKeys == nil {
		o.StorageKeys = DefaultStorageKeys
	}
	return o
}

// API wraps the SSO service with HTTP handlers.
type API struct {
	service   *service.Service
	templates *resources.Templates
	metrics   *metrics.Metrics
	options   Options
	log       *logrus.Entry
}

// New creates an API. metrics may be nil.
func New(
	svc *service.Service,
	templates *resources.Templates,
	m *metrics.Metrics,
	options Options,
	log *logrus.Logger,
) *API {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &API{
		service:   svc,
		templates: templates,
		metrics:   m,
		options:   options.withDefaults(),
		log:       log.WithField("component", "api"),
	}
}

func decodeRequest[T any](req *T, w http.ResponseWriter, r *http.Request, log *logrus.Entry) bool {
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logApiErr(log, r, "bad json request")
		returnJsonError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func returnJson(data any, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func returnJsonError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

func logApiErr(log *logrus.Entry, r *http.Request, msg string) {
	log.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Warn(msg)
}

func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

func (a *API) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	page, err := a.templates.Render(name, data)
	if err != nil {
		logApiErr(a.log, r, "couldn't render template "+name+": "+err.Error())
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(page)
}
