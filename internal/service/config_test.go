package service_test

import (
	"testing"

	"git.sr.ht/~jakintosh/ssobridge/internal/service"
	"git.sr.ht/~jakintosh/ssobridge/internal/testutil"
)

func TestConfig_Set(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t, func(o *service.Options) {
		o.CPURL = "https://cp.example.com/"
		o.ProjectPublicID = "proj_9"
	})

	cfg, err := env.Service.Config()
	if err != nil {
		t.Fatalf("Config failed: %v", err)
	}

	// trailing slash is trimmed
	if cfg.CPURL != "https://cp.example.com" {
		t.Errorf("CPURL = %s", cfg.CPURL)
	}
	if cfg.SSOLoginURL != "https://cp.example.com/api/projects/proj_9/sso" {
		t.Errorf("SSOLoginURL = %s", cfg.SSOLoginURL)
	}
}

func TestConfig_Unset(t *testing.T) {
	t.Parallel()

	cases := map[string]testutil.EnvOption{
		"no cp url":  func(o *service.Options) { o.CPURL = "" },
		"no project": func(o *service.Options) { o.ProjectPublicID = "" },
		"neither":    testutil.WithoutCP(),
	}
	for name, opt := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			env := testutil.SetupTestEnv(t, opt)
			if _, err := env.Service.Config(); err != service.ErrNotConfigured {
				t.Errorf("expected ErrNotConfigured, got %v", err)
			}
		})
	}
}

func TestLoginURL(t *testing.T) {
	t.Parallel()

	got := service.LoginURL("https://cp.example.com//", "abc")
	if got != "https://cp.example.com/api/projects/abc/sso" {
		t.Errorf("LoginURL = %s", got)
	}
}
