package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"git.sr.ht/~jakintosh/ssobridge/internal/service"
)

func TestSafeNext(t *testing.T) {
	t.Parallel()

	cases := []struct {
		next string
		want string
	}{
		{"", "/admin"},
		{"/admin/auth/login", "/admin/auth/login"},
		{"https://cp.example.com/sign-out", "https://cp.example.com/sign-out"},
		{"http://other-admin.local/sso/sign-out?next=x", "http://other-admin.local/sso/sign-out?next=x"},
		{"javascript:alert(1)", "/admin"},
		{"//evil.example.com", "/admin"},
		{"/\\evil.example.com", "/admin"},
		{"relative/path", "/admin"},
		{"ftp://files.example.com", "/admin"},
		{"https://", "/admin"},
	}
	for _, tc := range cases {
		if got := safeNext(tc.next, "/admin"); got != tc.want {
			t.Errorf("safeNext(%q) = %q, want %q", tc.next, got, tc.want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{service.ErrMissingToken, http.StatusBadRequest},
		{service.ErrMalformedToken, http.StatusBadRequest},
		{fmt.Errorf("%w: bad json", service.ErrInvalidPayload), http.StatusBadRequest},
		{service.ErrMissingIdentity, http.StatusBadRequest},
		{service.ErrInvalidSignature, http.StatusForbidden},
		{service.ErrExpired, http.StatusForbidden},
		{service.ErrReplayedToken, http.StatusForbidden},
		{service.ErrCredentialInvalid, http.StatusUnauthorized},
		{service.ErrSessionNotFound, http.StatusUnauthorized},
		{service.ErrNotConfigured, http.StatusInternalServerError},
		{service.ErrProvisioningUnavailable, http.StatusInternalServerError},
		{service.ErrProvisioningFailed, http.StatusInternalServerError},
		{service.ErrSessionCreationFailed, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestMessageFor_HidesInternalCauses(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("%w: failed to delete sessions: disk I/O error", service.ErrInternal)
	if got := messageFor(err); got != "Internal server error" {
		t.Errorf("messageFor = %q", got)
	}
}
