package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordVerification(t *testing.T) {
	m := New()

	m.RecordVerification("callback", "accepted")
	m.RecordVerification("callback", "accepted")
	m.RecordVerification("callback", "replayed")
	m.RecordVerification("revoke_all", "expired")

	if got := testutil.ToFloat64(m.VerificationsTotal.WithLabelValues("callback", "accepted")); got != 2 {
		t.Errorf("callback/accepted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.VerificationsTotal.WithLabelValues("callback", "replayed")); got != 1 {
		t.Errorf("callback/replayed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.VerificationsTotal.WithLabelValues("revoke_all", "expired")); got != 1 {
		t.Errorf("revoke_all/expired = %v, want 1", got)
	}
}

func TestRecordRevoked_IgnoresZero(t *testing.T) {
	m := New()

	m.RecordRevoked("revoke_all", 0)
	m.RecordRevoked("revoke_all", 3)
	m.RecordRevoked("sign_out", 1)

	if got := testutil.ToFloat64(m.SessionsRevokedTotal.WithLabelValues("revoke_all")); got != 3 {
		t.Errorf("revoke_all = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.SessionsRevokedTotal.WithLabelValues("sign_out")); got != 1 {
		t.Errorf("sign_out = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	// none of these should panic
	m.RecordVerification("callback", "accepted")
	m.RecordProvisioned()
	m.RecordSessionIssued()
	m.RecordRevoked("sign_out", 1)
	m.RecordSignOut()
	m.RecordRenewal("ok")
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordProvisioned()
	m.RecordSignOut()
	m.RecordRenewal("ok")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{
		"ssobridge_admins_provisioned_total 1",
		"ssobridge_sign_outs_total 1",
		`ssobridge_session_renewals_total{status="ok"} 1`,
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("exposition missing %q", name)
		}
	}
}
