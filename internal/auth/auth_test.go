package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ruestzeit/anmeldung/internal/config"
	"github.com/ruestzeit/anmeldung/internal/database"
	"github.com/ruestzeit/anmeldung/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	return db
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.ErrorAs(t, err, &se)
	return se.GetStatus()
}

func TestCreateAdminAndAuthenticate(t *testing.T) {
	db := newTestDB(t)
	handler := NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db)

	admin, err := CreateAdmin(context.Background(), db, " Pfarrer@Example.org ", "Pfarrer Lehmann", "geheim123")
	require.NoError(t, err)
	assert.Equal(t, "pfarrer@example.org", admin.Email)
	assert.NotEqual(t, "geheim123", admin.PasswordHash)

	_, err = CreateAdmin(context.Background(), db, "pfarrer@example.org", "Doppelt", "geheim123")
	assert.ErrorIs(t, err, ErrAdminExists)

	got, err := handler.Authenticate(context.Background(), "PFARRER@example.org", "geheim123")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	_, err = handler.Authenticate(context.Background(), "pfarrer@example.org", "falsch")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = handler.Authenticate(context.Background(), "unbekannt@example.org", "geheim123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_SSOOnlyAccount(t *testing.T) {
	db := newTestDB(t)
	handler := NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db)

	_, err := CreateAdmin(context.Background(), db, "sso@example.org", "SSO", "")
	require.NoError(t, err)

	_, err = handler.Authenticate(context.Background(), "sso@example.org", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestHandleLogin(t *testing.T) {
	db := newTestDB(t)
	handler := NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db)
	_, err := CreateAdmin(context.Background(), db, "leitung@example.org", "Leitung", "geheim123")
	require.NoError(t, err)

	input := &LoginInput{}
	input.Body.Email = "leitung@example.org"
	input.Body.Password = "geheim123"

	out, err := handler.HandleLogin(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, CookieName, out.SetCookie.Name)
	assert.NotEmpty(t, out.SetCookie.Value)
	assert.Equal(t, "leitung@example.org", out.Body.Email)

	input.Body.Password = "falsch"
	_, err = handler.HandleLogin(context.Background(), input)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestHandleMe(t *testing.T) {
	db := newTestDB(t)
	handler := NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db)

	admin, err := CreateAdmin(context.Background(), db, "test@example.com", "testuser", "geheim123")
	require.NoError(t, err)

	t.Run("Authenticated", func(t *testing.T) {
		token, _ := handler.GenerateToken(admin.ID)
		input := &AuthInput{
			Cookie: "theme=dark; auth_token=" + token,
		}
		resp, err := handler.HandleMe(context.Background(), input)
		if err != nil {
			t.Fatalf("HandleMe returned error: %v", err)
		}

		if resp.Body.Name != admin.Name {
			t.Errorf("expected name %s, got %s", admin.Name, resp.Body.Name)
		}
		if resp.Body.Email != admin.Email {
			t.Errorf("expected email %s, got %s", admin.Email, resp.Body.Email)
		}
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		input := &AuthInput{}
		_, err := handler.HandleMe(context.Background(), input)
		if err == nil {
			t.Fatal("expected error for unauthenticated request, got nil")
		}
	})

	t.Run("ForeignSecret", func(t *testing.T) {
		other := NewAuthHandler(&config.Config{JWTSecret: "other-secret"}, db)
		token, _ := other.GenerateToken(admin.ID)
		_, err := handler.HandleMe(context.Background(), &AuthInput{Cookie: "auth_token=" + token})
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})
}

func TestHandleUpdateMe(t *testing.T) {
	db := newTestDB(t)
	handler := NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db)

	admin, err := CreateAdmin(context.Background(), db, "alt@example.org", "Alt", "geheim123")
	require.NoError(t, err)
	_, err = CreateAdmin(context.Background(), db, "belegt@example.org", "Belegt", "geheim123")
	require.NoError(t, err)
	token, _ := handler.GenerateToken(admin.ID)

	input := &UpdateMeInput{AuthInput: AuthInput{Cookie: "auth_token=" + token}}
	name, password := "Neu", "neuesPasswort"
	input.Body.Name = &name
	input.Body.Password = &password

	out, err := handler.HandleUpdateMe(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "Neu", out.Body.Name)

	_, err = handler.Authenticate(context.Background(), "alt@example.org", "neuesPasswort")
	assert.NoError(t, err)

	taken := "belegt@example.org"
	input = &UpdateMeInput{AuthInput: AuthInput{Cookie: "auth_token=" + token}}
	input.Body.Email = &taken
	_, err = handler.HandleUpdateMe(context.Background(), input)
	assert.Equal(t, http.StatusConflict, statusOf(t, err))
}

func TestHandleCreateAdmin(t *testing.T) {
	db := newTestDB(t)
	handler := NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db)
	admin, err := CreateAdmin(context.Background(), db, "erste@example.org", "Erste", "geheim123")
	require.NoError(t, err)
	token, _ := handler.GenerateToken(admin.ID)

	input := &CreateAdminInput{AuthInput: AuthInput{Cookie: "auth_token=" + token}}
	input.Body.Email = "zweite@example.org"
	input.Body.Name = "Zweite"
	input.Body.Password = "geheim123"

	out, err := handler.HandleCreateAdmin(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "zweite@example.org", out.Body.Email)

	_, err = handler.HandleCreateAdmin(context.Background(), input)
	assert.Equal(t, http.StatusConflict, statusOf(t, err))

	_, err = handler.HandleCreateAdmin(context.Background(), &CreateAdminInput{})
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func newSSOProvider(t *testing.T, email string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "provider-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"email": email, "name": "Leitung"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func ssoConfig(providerURL string) *config.Config {
	return &config.Config{
		JWTSecret:         "test-secret",
		OAuthClientID:     "client",
		OAuthClientSecret: "secret",
		OAuthAuthURL:      providerURL + "/authorize",
		OAuthTokenURL:     providerURL + "/token",
		OAuthUserInfoURL:  providerURL + "/userinfo",
		OAuthRedirectURL:  "http://127.0.0.1:8080/admin/auth/callback",
	}
}

func TestSSOLogin_RedirectsWithState(t *testing.T) {
	handler := NewAuthHandler(ssoConfig("https://sso.example.org"), nil)

	rr := httptest.NewRecorder()
	handler.HandleSSOLogin(rr, httptest.NewRequest(http.MethodGet, "/admin/auth/login", nil))

	require.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	location, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "sso.example.org", location.Host)

	var state string
	for _, c := range rr.Result().Cookies() {
		if c.Name == stateCookieName {
			state = c.Value
		}
	}
	require.NotEmpty(t, state)
	assert.Equal(t, state, location.Query().Get("state"))
}

func TestSSOCallback(t *testing.T) {
	db := newTestDB(t)
	provider := newSSOProvider(t, "Leitung@Example.org")
	handler := NewAuthHandler(ssoConfig(provider.URL), db)

	callback := func(state string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin/auth/callback?code=abc&state="+state, nil)
		req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "xyz"})
		rr := httptest.NewRecorder()
		handler.HandleSSOCallback(rr, req)
		return rr
	}

	t.Run("UnknownAdmin", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, callback("xyz").Code)
	})

	t.Run("StateMismatch", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, callback("other").Code)
	})

	t.Run("KnownAdmin", func(t *testing.T) {
		require.NoError(t, db.Create(&models.Admin{Email: "leitung@example.org", Name: "Leitung"}).Error)

		rr := callback("xyz")
		require.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/admin", rr.Header().Get("Location"))

		found := false
		for _, c := range rr.Result().Cookies() {
			if c.Name == CookieName && c.Value != "" {
				found = true
			}
		}
		assert.True(t, found, "expected a session cookie")
	})
}

func TestSSODisabled(t *testing.T) {
	handler := NewAuthHandler(&config.Config{}, nil)
	assert.False(t, handler.SSOEnabled())

	rr := httptest.NewRecorder()
	handler.HandleSSOLogin(rr, httptest.NewRequest(http.MethodGet, "/admin/auth/login", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
