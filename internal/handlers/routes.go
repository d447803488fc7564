package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ruestzeit/anmeldung/internal/auth"
)

// Handlers bundles everything served by the application.
type Handlers struct {
	Auth          *auth.AuthHandler
	Public        *PublicHandler
	Events        *EventHandler
	CustomFields  *CustomFieldHandler
	Registrations *RegistrationHandler
	Locations     *LocationHandler
	APIKeys       *APIKeyHandler
	// Metrics serves the prometheus scrape endpoint when set.
	Metrics http.Handler
}

func NewAPIConfig() huma.Config {
	config := huma.DefaultConfig("Rüstzeit Anmeldung", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.CookieName,
		},
		"apiKeyAuth": {
			Type: "apiKey",
			In:   "header",
			Name: "X-API-KEY",
		},
	}
	return config
}

func RegisterRoutes(r *chi.Mux, h Handlers) huma.API {
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	api := humachi.New(r, NewAPIConfig())

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}
	r.Get("/", h.Public.HandleForm)
	r.Post("/", h.Public.HandleSubmit)

	// Admin routes outside the JSON API
	r.Get("/admin", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/api/events", http.StatusFound)
	})
	r.Get("/admin/auth/login", h.Auth.HandleSSOLogin)
	r.Get("/admin/auth/callback", h.Auth.HandleSSOCallback)
	r.With(h.Auth.AuthMiddleware).Get("/admin/api/events/{id}/registrations.csv", h.Registrations.HandleExportCSV)

	RegisterAPI(api, h)
	return api
}

func secured(o *huma.Operation) {
	o.Security = []map[string][]string{{"cookieAuth": {}}, {"apiKeyAuth": {}}}
	o.Tags = append(o.Tags, "admin")
}

func created(o *huma.Operation) {
	o.DefaultStatus = http.StatusCreated
}

// RegisterAPI registers the JSON operations on api.
func RegisterAPI(api huma.API, h Handlers) {
	// Public API
	huma.Get(api, "/api/form", h.Public.HandleGetForm)
	huma.Post(api, "/api/registrations", h.Public.HandleSubmitRegistration, created)

	// Session
	huma.Post(api, "/admin/api/login", h.Auth.HandleLogin)
	huma.Post(api, "/admin/api/logout", h.Auth.HandleLogout)
	huma.Get(api, "/admin/api/me", h.Auth.HandleMe, secured)
	huma.Put(api, "/admin/api/me", h.Auth.HandleUpdateMe, secured)
	huma.Post(api, "/admin/api/admins", h.Auth.HandleCreateAdmin, secured, created)

	// Events
	huma.Get(api, "/admin/api/events", h.Events.HandleList, secured)
	huma.Post(api, "/admin/api/events", h.Events.HandleCreate, secured, created)
	huma.Get(api, "/admin/api/events/{id}", h.Events.HandleGet, secured)
	huma.Put(api, "/admin/api/events/{id}", h.Events.HandleUpdate, secured)
	huma.Post(api, "/admin/api/events/{id}/password", h.Events.HandleGeneratePassword, secured)

	// Custom fields
	huma.Get(api, "/admin/api/events/{id}/custom-fields", h.CustomFields.HandleList, secured)
	huma.Post(api, "/admin/api/events/{id}/custom-fields", h.CustomFields.HandleCreate, secured, created)
	huma.Put(api, "/admin/api/custom-fields/{id}", h.CustomFields.HandleUpdate, secured)
	huma.Delete(api, "/admin/api/custom-fields/{id}", h.CustomFields.HandleDelete, secured)

	// Registrations
	huma.Get(api, "/admin/api/events/{id}/registrations", h.Registrations.HandleList, secured)
	huma.Get(api, "/admin/api/registrations/{id}", h.Registrations.HandleGet, secured)
	huma.Put(api, "/admin/api/registrations/{id}", h.Registrations.HandleUpdate, secured)
	huma.Delete(api, "/admin/api/registrations/{id}", h.Registrations.HandleDelete, secured)
	huma.Get(api, "/admin/api/registrations/{id}/history", h.Registrations.HandleHistory, secured)

	// Locations
	huma.Get(api, "/admin/api/locations", h.Locations.HandleList, secured)
	huma.Post(api, "/admin/api/locations", h.Locations.HandleCreate, secured, created)

	// API keys
	huma.Get(api, "/admin/api/api-keys", h.APIKeys.HandleList, secured)
	huma.Post(api, "/admin/api/api-keys", h.APIKeys.HandleCreate, secured, created)
	huma.Delete(api, "/admin/api/api-keys/{id}", h.APIKeys.HandleDelete, secured)
}
