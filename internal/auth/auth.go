package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ruestzeit/anmeldung/internal/config"
	"github.com/ruestzeit/anmeldung/internal/models"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const (
	CookieName      = "auth_token"
	stateCookieName = "oauth_state"
	TokenDuration   = 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAdminExists        = errors.New("admin with this email already exists")
	errMissingSecret      = errors.New("jwt secret is not configured")
)

type AuthHandler struct {
	oauthConfig *oauth2.Config
	db          *gorm.DB
	cfg         *config.Config
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB) *AuthHandler {
	h := &AuthHandler{db: db, cfg: cfg}
	if cfg.OAuthClientID != "" {
		h.oauthConfig = &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.OAuthAuthURL,
				TokenURL: cfg.OAuthTokenURL,
			},
		}
	}
	return h
}

// SSOEnabled reports whether an OAuth2 provider is configured.
func (h *AuthHandler) SSOEnabled() bool {
	return h.oauthConfig != nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CreateAdmin stores a new admin account. The password may be empty for accounts
// that only sign in through SSO.
func CreateAdmin(ctx context.Context, db *gorm.DB, email, name, password string) (*models.Admin, error) {
	admin := models.Admin{Email: normalizeEmail(email), Name: strings.TrimSpace(name)}
	if admin.Email == "" {
		return nil, errors.New("email is required")
	}

	var existing int64
	if err := db.WithContext(ctx).Model(&models.Admin{}).Where("email = ?", admin.Email).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrAdminExists
	}

	if password != "" {
		hash, err := HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		admin.PasswordHash = hash
	}

	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

// Authenticate checks an email and password against the stored admins.
func (h *AuthHandler) Authenticate(ctx context.Context, email, password string) (*models.Admin, error) {
	var admin models.Admin
	err := h.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if admin.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &admin, nil
}

func (h *AuthHandler) GenerateToken(adminID uint) (string, error) {
	if h.cfg.JWTSecret == "" {
		return "", errMissingSecret
	}
	claims := jwt.MapClaims{
		"admin_id": adminID,
		"exp":      time.Now().Add(TokenDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}

// SessionCookie wraps a session token into the auth cookie.
func SessionCookie(token string) http.Cookie {
	return http.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  time.Now().Add(TokenDuration),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	}
}

// ExpiredCookie clears the auth cookie.
func ExpiredCookie() http.Cookie {
	return http.Cookie{
		Name:     CookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	}
}

func (h *AuthHandler) HandleSSOLogin(w http.ResponseWriter, r *http.Request) {
	if h.oauthConfig == nil {
		http.Error(w, "SSO is not configured", http.StatusNotFound)
		return
	}

	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}
	state := hex.EncodeToString(stateBytes)

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/admin/auth",
	})

	url := h.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) HandleSSOCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauthConfig == nil {
		http.Error(w, "SSO is not configured", http.StatusNotFound)
		return
	}

	state, err := r.Cookie(stateCookieName)
	if err != nil || state.Value == "" || state.Value != r.URL.Query().Get("state") {
		http.Error(w, "Invalid login state", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Code not found", http.StatusBadRequest)
		return
	}

	token, err := h.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		log.Printf("SSO token exchange failed: %v", err)
		http.Error(w, "Failed to exchange token", http.StatusInternalServerError)
		return
	}

	client := h.oauthConfig.Client(r.Context(), token)
	resp, err := client.Get(h.cfg.OAuthUserInfoURL)
	if err != nil {
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		http.Error(w, "Failed to get user info", http.StatusBadGateway)
		return
	}

	var userInfo struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		http.Error(w, "Failed to decode user info", http.StatusInternalServerError)
		return
	}

	var admin models.Admin
	err = h.db.WithContext(r.Context()).Where("email = ?", normalizeEmail(userInfo.Email)).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "Access denied: no admin account for this email.", http.StatusForbidden)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	jwtToken, err := h.GenerateToken(admin.ID)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	cookie := SessionCookie(jwtToken)
	http.SetCookie(w, &cookie)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}
