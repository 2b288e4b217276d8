package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2/endpoints"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name       string
		explicit   string
		configured string
		want       Strategy
		wantErr    bool
	}{
		{name: "default", want: Local},
		{name: "configured", configured: "google", want: Google},
		{name: "explicit wins", explicit: "facebook", configured: "google", want: Facebook},
		{name: "case insensitive", explicit: " Google ", want: Google},
		{name: "unknown explicit", explicit: "ldap", wantErr: true},
		{name: "unknown configured", configured: "ldap", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(tt.explicit, tt.configured)
			if tt.wantErr {
				var use *UnknownStrategyError
				require.ErrorAs(t, err, &use)
				assert.Contains(t, err.Error(), "ldap")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStrategy_Endpoint(t *testing.T) {
	ep, ok := Facebook.Endpoint()
	assert.True(t, ok)
	assert.Equal(t, endpoints.Facebook, ep)

	ep, ok = Google.Endpoint()
	assert.True(t, ok)
	assert.Equal(t, endpoints.Google.AuthURL, ep.AuthURL)

	_, ok = Local.Endpoint()
	assert.False(t, ok)
	assert.False(t, Local.IsOAuth())
	assert.True(t, Google.IsOAuth())
}

func TestStrategy_OAuthConfig(t *testing.T) {
	cfg, err := Google.OAuthConfig("id", "secret", "http://localhost/cb", "email")
	require.NoError(t, err)
	assert.Equal(t, "id", cfg.ClientID)
	assert.Equal(t, []string{"email"}, cfg.Scopes)
	assert.Equal(t, endpoints.Google.TokenURL, cfg.Endpoint.TokenURL)

	_, err = Local.OAuthConfig("id", "secret", "")
	assert.ErrorContains(t, err, "does not use OAuth")
}

func TestSecureUser(t *testing.T) {
	u := NewSecureUser(User{ID: "1", Name: "Ada"}, Google, true)
	assert.True(t, u.Authorized())
	assert.Equal(t, "Ada", u.Name)
	assert.False(t, NewSecureUser(User{ID: "2"}, Local, false).Authorized())
}

func TestSessionAuthorizer(t *testing.T) {
	store := sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
	auth := NewSessionAuthorizer(store, "")

	t.Run("no session is unauthorized", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.False(t, auth.Authorized(r))

		_, err := auth.User(r)
		assert.ErrorContains(t, err, "no user in session")
	})

	t.Run("login round trip", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/login", nil)
		require.NoError(t, auth.Login(w, r, NewSecureUser(User{ID: "42", Name: "Ada", Email: "ada@example.com"}, Facebook, true)))

		next := httptest.NewRequest(http.MethodGet, "/", nil)
		for _, c := range w.Result().Cookies() {
			next.AddCookie(c)
		}

		assert.True(t, auth.Authorized(next))
		u, err := auth.User(next)
		require.NoError(t, err)
		assert.Equal(t, "42", u.ID)
		assert.Equal(t, "ada@example.com", u.Email)
		assert.Equal(t, Facebook, u.Strategy)
		assert.True(t, u.Authorized())
	})

	t.Run("unauthorized login", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/login", nil)
		require.NoError(t, auth.Login(w, r, NewSecureUser(User{ID: "7"}, Local, false)))

		next := httptest.NewRequest(http.MethodGet, "/", nil)
		for _, c := range w.Result().Cookies() {
			next.AddCookie(c)
		}
		assert.False(t, auth.Authorized(next))
	})

	t.Run("logout clears", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/logout", nil)
		require.NoError(t, auth.Logout(w, r))

		cookies := w.Result().Cookies()
		require.NotEmpty(t, cookies)
		assert.Equal(t, DefaultSessionName, cookies[0].Name)
		assert.True(t, cookies[0].MaxAge < 0)
	})
}
