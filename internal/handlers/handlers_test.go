package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/go-chi/chi/v5"
	"github.com/ruestzeit/anmeldung/internal/auth"
	"github.com/ruestzeit/anmeldung/internal/config"
	"github.com/ruestzeit/anmeldung/internal/database"
	"github.com/ruestzeit/anmeldung/internal/models"
	"github.com/ruestzeit/anmeldung/internal/registration"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type testEnv struct {
	db       *gorm.DB
	api      humatest.TestAPI
	router   *chi.Mux
	handlers Handlers
	admin    *models.Admin
	// cookie is the session header of admin, ready to pass to humatest.
	cookie string
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	cfg := &config.Config{JWTSecret: "test-secret", BypassToken: "bypass-token"}
	authHandler := auth.NewAuthHandler(cfg, db)
	service := registration.NewService(db)

	h := Handlers{
		Auth:          authHandler,
		Public:        NewPublicHandler(service, cfg.BypassToken),
		Events:        NewEventHandler(db, authHandler),
		CustomFields:  NewCustomFieldHandler(db, authHandler),
		Registrations: NewRegistrationHandler(db, authHandler, service),
		Locations:     NewLocationHandler(db, authHandler),
		APIKeys:       NewAPIKeyHandler(db, authHandler),
	}

	_, api := humatest.New(t, NewAPIConfig())
	RegisterAPI(api, h)

	router := chi.NewRouter()
	RegisterRoutes(router, h)

	admin, err := auth.CreateAdmin(context.Background(), db, "leitung@example.org", "Leitung", "geheim123")
	require.NoError(t, err)
	token, err := authHandler.GenerateToken(admin.ID)
	require.NoError(t, err)

	return &testEnv{
		db:       db,
		api:      api,
		router:   router,
		handlers: h,
		admin:    admin,
		cookie:   "Cookie: " + auth.CookieName + "=" + token,
		token:    token,
	}
}

// otherAdminCookie creates a second admin and returns its session header.
func (e *testEnv) otherAdminCookie(t *testing.T) string {
	t.Helper()
	other, err := auth.CreateAdmin(context.Background(), e.db, "andere@example.org", "Andere", "geheim123")
	require.NoError(t, err)
	token, err := e.handlers.Auth.GenerateToken(other.ID)
	require.NoError(t, err)
	return "Cookie: " + auth.CookieName + "=" + token
}

func (e *testEnv) createEvent(t *testing.T, event models.Event) *models.Event {
	t.Helper()
	if event.Title == "" {
		event.Title = "Sommerrüstzeit"
	}
	if event.AdminID == 0 {
		event.AdminID = e.admin.ID
	}
	require.NoError(t, e.db.Create(&event).Error)
	return &event
}

func (e *testEnv) createRegistration(t *testing.T, eventID uint, position int, fields models.RegistrationFields) *models.Registration {
	t.Helper()
	if fields.Status == "" {
		fields.Status = models.StatusActive
	}
	reg := models.Registration{EventID: eventID, RegistrationPosition: position, RegistrationFields: fields}
	require.NoError(t, e.db.Omit(clause.Associations).Create(&reg).Error)
	return &reg
}

// serve sends a request through the full chi router.
func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func strPtr(s string) *string { return &s }

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }
