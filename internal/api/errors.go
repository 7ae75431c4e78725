package api

import (
	"errors"
	"net/http"

	"git.sr.ht/~jakintosh/ssobridge/internal/resources"
	"git.sr.ht/~jakintosh/ssobridge/internal/service"
)

const loginFailedTitle = "SSO Login Failed"

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrMissingToken),
		errors.Is(err, service.ErrMalformedToken),
		errors.Is(err, service.ErrInvalidPayload),
		errors.Is(err, service.ErrMissingIdentity):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrInvalidSignature),
		errors.Is(err, service.ErrExpired),
		errors.Is(err, service.ErrReplayedToken):
		return http.StatusForbidden

	case errors.Is(err, service.ErrCredentialInvalid),
		errors.Is(err, service.ErrSessionNotFound):
		return http.StatusUnauthorized

	default:
		return http.StatusInternalServerError
	}
}

// messageFor is the client-facing text for a service error. Internal causes
// are never echoed.
func messageFor(err error) string {
	switch {
	case errors.Is(err, service.ErrMissingToken):
		return "Missing token"
	case errors.Is(err, service.ErrNotConfigured):
		return "SSO not configured"
	case errors.Is(err, service.ErrMalformedToken):
		return "Invalid token format"
	case errors.Is(err, service.ErrInvalidSignature):
		return "Invalid token signature"
	case errors.Is(err, service.ErrInvalidPayload):
		return "Invalid token payload"
	case errors.Is(err, service.ErrExpired):
		return "Token expired"
	case errors.Is(err, service.ErrReplayedToken):
		return "Token already used"
	case errors.Is(err, service.ErrMissingIdentity):
		return "Missing email in token"
	case errors.Is(err, service.ErrProvisioningUnavailable):
		return "Super admin role not found"
	case errors.Is(err, service.ErrProvisioningFailed):
		return "Failed to create admin account"
	case errors.Is(err, service.ErrSessionCreationFailed):
		return "Failed to create session"
	case errors.Is(err, service.ErrCredentialInvalid),
		errors.Is(err, service.ErrSessionNotFound):
		return "Invalid or expired session"
	default:
		return "Internal server error"
	}
}

// writeError answers a machine endpoint with a JSON error body.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	} else {
		logApiErr(a.log, r, err.Error())
	}
	returnJsonError(w, status, messageFor(err))
}

// writeErrorPage answers a browser endpoint with the branded error page.
func (a *API) writeErrorPage(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	} else {
		logApiErr(a.log, r, err.Error())
	}
	noStore(w)
	a.renderPage(w, r, status, resources.ErrorPage, resources.ErrorData{
		Title:     loginFailedTitle,
		Message:   messageFor(err),
		AdminPath: a.options.AdminPath,
	})
}
