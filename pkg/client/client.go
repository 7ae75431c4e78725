package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"git.sr.ht/~jakintosh/ssobridge/internal/api"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotConfigured = errors.New("sso not configured")
	ErrRejected      = errors.New("sso token rejected")
	ErrUnauthorized  = errors.New("session invalid or expired")
	ErrRequest       = errors.New("request failed")
	ErrResponse      = errors.New("invalid response")
)

// StorageKeys names the client storage entries the bridge uses.
type StorageKeys struct {
	AccessToken string
	CPURL       string
	LoginURL    string
	// Extra entries are only ever removed, on sign-out.
	Extra []string
}

func DefaultStorageKeys() StorageKeys {
	return StorageKeys{
		AccessToken: "jwtToken",
		CPURL:       "sso_cp_url",
		LoginURL:    "sso_login_url",
		Extra:       []string{"nps_survey_settings"},
	}
}

func (k StorageKeys) all() []string {
	keys := []string{k.AccessToken, k.CPURL, k.LoginURL}
	return append(keys, k.Extra...)
}

type Options struct {
	AdminPath   string
	StorageKeys *StorageKeys
	// HTTPClient must keep cookies for Renew to work. A client with a
	// fresh cookie jar is created when nil.
	HTTPClient *http.Client
	Storage    Storage
	Log        *logrus.Logger
}

// Client talks to one admin instance's SSO endpoints and keeps the
// browser-side state a page would: the access credential and the control
// plane location in Storage, the refresh cookie in the cookie jar.
type Client struct {
	baseURL    string
	adminPath  string
	keys       StorageKeys
	httpClient *http.Client
	storage    Storage
	log        *logrus.Entry
}

func New(
	baseURL string,
	options Options,
) (
	*Client,
	error,
) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}

	if options.AdminPath == "" {
		options.AdminPath = api.DefaultAdminPath
	}
	keys := DefaultStorageKeys()
	if options.StorageKeys != nil {
		keys = *options.StorageKeys
	}
	if options.HTTPClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		options.HTTPClient = &http.Client{Jar: jar}
	}
	if options.Storage == nil {
		options.Storage = NewMemoryStorage()
	}
	if options.Log == nil {
		options.Log = logrus.StandardLogger()
	}

	return &Client{
		baseURL:    strings.TrimRight(base.String(), "/"),
		adminPath:  "/" + strings.Trim(options.AdminPath, "/"),
		keys:       keys,
		httpClient: options.HTTPClient,
		storage:    options.Storage,
		log:        options.Log.WithField("component", "client"),
	}, nil
}

// FetchConfig asks the bridge where the control plane login is and
// remembers the answer.
func (c *Client) FetchConfig(ctx context.Context) (*SSOConfig, error) {
	res, err := c.do(ctx, http.MethodGet, "/sso/config", nil)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotConfigured
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrResponse, res.StatusCode)
	}

	cfg := new(SSOConfig)
	if err := json.NewDecoder(res.Body).Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponse, err)
	}

	c.storage.Set(c.keys.CPURL, cfg.CPURL)
	c.storage.Set(c.keys.LoginURL, cfg.SSOLoginURL)
	return cfg, nil
}

// LoginURL returns the remembered control plane login URL, fetching the
// bridge config the first time.
func (c *Client) LoginURL(ctx context.Context) (string, error) {
	if loginURL, ok := c.storage.Get(c.keys.LoginURL); ok && loginURL != "" {
		return loginURL, nil
	}
	cfg, err := c.FetchConfig(ctx)
	if err != nil {
		return "", err
	}
	return cfg.SSOLoginURL, nil
}

// Login presents a control plane token to the callback, the way a browser
// arriving from the control plane would, then exchanges the refresh cookie
// it receives for an access credential.
func (c *Client) Login(ctx context.Context, ssoToken string, cpURL string) error {
	query := url.Values{}
	query.Set("token", ssoToken)
	if cpURL != "" {
		query.Set("cp", cpURL)
	}

	res, err := c.do(ctx, http.MethodGet, "/sso/callback?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, res.Body)
	res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
	case res.StatusCode == http.StatusBadRequest || res.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrRejected, res.StatusCode)
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrResponse, res.StatusCode)
	}

	if cpURL != "" {
		c.storage.Set(c.keys.CPURL, cpURL)
	}
	c.log.Debug("callback accepted")
	return c.Renew(ctx)
}

// Renew trades the refresh cookie for a fresh access credential. A
// rejected refresh cookie clears the local credential.
func (c *Client) Renew(ctx context.Context) error {
	res, err := c.do(ctx, http.MethodPost, c.adminPath+"/access-token", nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		c.ClearCredential()
		return ErrUnauthorized
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrResponse, res.StatusCode)
	}

	renewal := new(RenewResponse)
	if err := json.NewDecoder(res.Body).Decode(renewal); err != nil {
		return fmt.Errorf("%w: %v", ErrResponse, err)
	}
	if renewal.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", ErrResponse)
	}

	c.storage.Set(c.keys.AccessToken, renewal.AccessToken)
	c.log.Debug("access token renewed")
	return nil
}

// SignOut visits the bridge's sign-out hop and clears every local storage
// key regardless of how the request went. ssoToken is optional.
func (c *Client) SignOut(ctx context.Context, ssoToken string, next string) error {
	defer c.clearStorage()

	query := url.Values{}
	if ssoToken != "" {
		query.Set("token", ssoToken)
	}
	if next != "" {
		query.Set("next", next)
	}
	path := "/sso/sign-out"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	res, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, res.Body)
	res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrResponse, res.StatusCode)
	}
	return nil
}

// AccessToken returns the stored access credential, if any.
func (c *Client) AccessToken() string {
	token, _ := c.storage.Get(c.keys.AccessToken)
	return token
}

func (c *Client) HasCredential() bool {
	return c.AccessToken() != ""
}

func (c *Client) ClearCredential() {
	c.storage.Remove(c.keys.AccessToken)
}

func (c *Client) clearStorage() {
	for _, key := range c.keys.all() {
		c.storage.Remove(key)
	}
}

func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body io.Reader,
) (
	*http.Response,
	error,
) {
	target := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}

	c.log.WithField("method", method).WithField("url", target).Debug("request")
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	return res, nil
}
