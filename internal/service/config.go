package service

import (
	"fmt"
	"strings"
)

// SSOConfig tells a browser without a local credential where to sign in.
type SSOConfig struct {
	CPURL           string `json:"cpUrl"`
	ProjectPublicID string `json:"projectPublicId"`
	SSOLoginURL     string `json:"ssoLoginUrl"`
}

func (s *Service) Config() (*SSOConfig, error) {
	cpURL := strings.TrimRight(s.options.CPURL, "/")
	if cpURL == "" || s.options.ProjectPublicID == "" {
		return nil, ErrNotConfigured
	}
	return &SSOConfig{
		CPURL:           cpURL,
		ProjectPublicID: s.options.ProjectPublicID,
		SSOLoginURL:     LoginURL(cpURL, s.options.ProjectPublicID),
	}, nil
}

// LoginURL builds the control plane's sign-in entry point for a project.
func LoginURL(cpURL string, projectID string) string {
	return fmt.Sprintf("%s/api/projects/%s/sso", strings.TrimRight(cpURL, "/"), projectID)
}
