package api_test

import (
	"database/sql"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~jakintosh/ssobridge/internal/api"
	"git.sr.ht/~jakintosh/ssobridge/internal/service"
	"git.sr.ht/~jakintosh/ssobridge/internal/testutil"
)

func revokeURL(token string) string {
	return "/sso/revoke-all?" + url.Values{"token": {token}}.Encode()
}

func TestRevokeAll_Success(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup two sessions for alice and one for bob
	first := env.LoginTestAdmin(t, "alice@example.com")
	second := env.LoginTestAdmin(t, "alice@example.com")
	other := env.LoginTestAdmin(t, "bob@example.com")

	// revocation ends every session of alice
	var response api.RevokeAllResponse
	result := testutil.Post(env.Router, revokeURL(env.Token(t, "alice@example.com")), "", &response)
	testutil.ExpectStatus(t, http.StatusOK, result)
	assert.True(t, response.Success)
	assert.Equal(t, int64(2), response.Revoked)

	for _, login := range []*service.Login{first, second} {
		_, err := env.Service.Exchange(login.Session.RefreshToken.Encoded())
		assert.ErrorIs(t, err, service.ErrSessionNotFound)
	}

	// bob is untouched
	_, err := env.Service.Exchange(other.Session.RefreshToken.Encoded())
	assert.NoError(t, err)

	// the local refresh cookie is cleared
	cookie := testutil.FindCookie(result, api.DefaultRefreshCookie)
	require.NotNil(t, cookie)
	assert.Equal(t, "", cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestRevokeAll_JSONBody(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup
	login := env.LoginTestAdmin(t, "alice@example.com")

	// token may be sent in a JSON body
	body := `{"token": "` + env.Token(t, "alice@example.com") + `"}`
	var response api.RevokeAllResponse
	result := testutil.PostJSON(env.Router, "/sso/revoke-all", body, &response)
	testutil.ExpectStatus(t, http.StatusOK, result)
	assert.Equal(t, int64(1), response.Revoked)

	_, err := env.Service.Exchange(login.Session.RefreshToken.Encoded())
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestRevokeAll_BadJSONBody(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	result := testutil.PostJSON(env.Router, "/sso/revoke-all", "{not json", nil)
	testutil.ExpectStatus(t, http.StatusBadRequest, result)
}

func TestRevokeAll_UnknownEmail(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// an unknown identity revokes nothing and is not provisioned
	var response api.RevokeAllResponse
	result := testutil.Post(env.Router, revokeURL(env.Token(t, "ghost@example.com")), "", &response)
	testutil.ExpectStatus(t, http.StatusOK, result)
	assert.True(t, response.Success)
	assert.Equal(t, int64(0), response.Revoked)

	_, err := env.DB.GetIdentityByEmail("ghost@example.com")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestRevokeAll_Replay(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// a token accepted once cannot be used again
	token := env.Token(t, "alice@example.com")
	result := testutil.Post(env.Router, revokeURL(token), "", nil)
	testutil.ExpectStatus(t, http.StatusOK, result)

	var response struct {
		Error string `json:"error"`
	}
	result = testutil.Post(env.Router, revokeURL(token), "", &response)
	testutil.ExpectStatus(t, http.StatusForbidden, result)
	assert.Equal(t, "Token already used", response.Error)
}

func TestRevokeAll_SharesNoncesWithCallback(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// a token used for login cannot then be used for revocation
	token := env.Token(t, "alice@example.com")
	result := testutil.Get(env.Router, callbackURL(token), nil)
	testutil.ExpectStatus(t, http.StatusOK, result)

	result = testutil.Post(env.Router, revokeURL(token), "", nil)
	testutil.ExpectStatus(t, http.StatusForbidden, result)
}

func TestRevokeAll_Errors(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	expired, err := env.Minter.Expired("alice@example.com")
	require.NoError(t, err)

	cases := []struct {
		name    string
		url     string
		status  int
		message string
	}{
		{"missing token", "/sso/revoke-all", http.StatusBadRequest, "Missing token"},
		{"malformed", revokeURL("nodot"), http.StatusBadRequest, "Invalid token format"},
		{"expired", revokeURL(expired), http.StatusForbidden, "Token expired"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var response struct {
				Error string `json:"error"`
			}
			result := testutil.Post(env.Router, tc.url, "", &response)
			testutil.ExpectStatus(t, tc.status, result)
			assert.Equal(t, tc.message, response.Error)
			assert.Equal(t, "application/json", result.Headers.Get("Content-Type"))
		})
	}
}

func TestRevokeAll_NotConfigured(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t, testutil.WithoutSecret())

	var response struct {
		Error string `json:"error"`
	}
	result := testutil.Post(env.Router, revokeURL(env.Token(t, "alice@example.com")), "", &response)
	testutil.ExpectStatus(t, http.StatusInternalServerError, result)
	assert.Equal(t, "SSO not configured", response.Error)
}

func TestRevokeAll_GetNotAllowed(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	result := testutil.Get(env.Router, revokeURL(env.Token(t, "alice@example.com")), nil)
	testutil.ExpectStatus(t, http.StatusMethodNotAllowed, result)
}
