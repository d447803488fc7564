package handlers

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/ruestzeit/anmeldung/internal/form"
	"github.com/ruestzeit/anmeldung/internal/models"
	"github.com/ruestzeit/anmeldung/internal/registration"
)

//go:embed templates/*.html
var templateFS embed.FS

// descriptionPolicy limits event descriptions to the markup of user generated content.
var descriptionPolicy = bluemonday.UGCPolicy()

func sanitizeHTML(s string) template.HTML {
	return template.HTML(descriptionPolicy.Sanitize(s))
}

var pageTemplates = template.Must(template.New("").Funcs(template.FuncMap{
	"date":     formatDate,
	"safeHTML": sanitizeHTML,
	"value": func(values url.Values, key string) string {
		return values.Get(key)
	},
	"selected": func(values url.Values, key, option string) bool {
		for _, v := range values[key] {
			if v == option {
				return true
			}
		}
		return false
	},
	"inputType": func(t form.ValueType) string {
		switch t {
		case form.TypeEmail:
			return "email"
		case form.TypePhone:
			return "tel"
		case form.TypeDate:
			return "date"
		default:
			return "text"
		}
	},
}).ParseFS(templateFS, "templates/*.html"))

const flashCookieName = "flash"

const (
	msgNoEvent     = "Derzeit ist keine Rüstzeit ausgeschrieben."
	msgClosed      = "Die Anmeldung ist derzeit nicht geöffnet."
	msgFailed      = "Bei der Anmeldung ist ein Fehler aufgetreten. Bitte versuche es später erneut."
	msgBadRequest  = "Die Anfrage konnte nicht gelesen werden."
	msgUnavailable = "Die Anmeldung ist vorübergehend nicht erreichbar."
)

// PublicHandler serves the registration page of the current event.
type PublicHandler struct {
	service     *registration.Service
	bypassToken string
	now         func() time.Time
}

func NewPublicHandler(service *registration.Service, bypassToken string) *PublicHandler {
	return &PublicHandler{service: service, bypassToken: bypassToken, now: time.Now}
}

type formPage struct {
	Event    *models.Event
	Fields   []form.Field
	Open     bool
	Full     bool
	Password string
	Values   url.Values
	Errors   map[string]string
	Flash    string
	Message  string
}

func (h *PublicHandler) newPage(event *models.Event, access registration.Access, password string) formPage {
	return formPage{
		Event:    event,
		Fields:   h.service.Schema(event).Fields,
		Open:     access.Open,
		Full:     event.IsFull(int64(event.MemberCount)),
		Password: password,
		Values:   url.Values{},
		Errors:   map[string]string{},
	}
}

func render(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("Failed to render %s: %v", name, err)
		http.Error(w, msgUnavailable, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func renderError(w http.ResponseWriter, status int, message string) {
	render(w, status, "error.html", struct{ Message string }{message})
}

// popFlash returns the flash set by the previous submission and clears it.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookieName)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookieName, Path: "/", MaxAge: -1})
	return c.Value
}

func (h *PublicHandler) currentEvent(w http.ResponseWriter, r *http.Request) (*models.Event, bool) {
	event, err := h.service.CurrentEvent(r.Context(), h.now())
	if errors.Is(err, registration.ErrNoEvent) {
		renderError(w, http.StatusNotFound, msgNoEvent)
		return nil, false
	}
	if err != nil {
		log.Printf("Failed to load current event: %v", err)
		renderError(w, http.StatusInternalServerError, msgUnavailable)
		return nil, false
	}
	return event, true
}

func (h *PublicHandler) HandleForm(w http.ResponseWriter, r *http.Request) {
	event, ok := h.currentEvent(w, r)
	if !ok {
		return
	}

	password := r.URL.Query().Get("pw")
	page := h.newPage(event, registration.Gate(event, password, h.now(), h.bypassToken), password)
	page.Flash = popFlash(w, r)

	render(w, http.StatusOK, "index.html", page)
}

func (h *PublicHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	event, ok := h.currentEvent(w, r)
	if !ok {
		return
	}

	password := r.PostForm.Get("pw")
	if password == "" {
		password = r.URL.Query().Get("pw")
	}

	access := registration.Gate(event, password, h.now(), h.bypassToken)
	if !access.Open {
		page := h.newPage(event, access, password)
		page.Message = msgClosed
		render(w, http.StatusForbidden, "index.html", page)
		return
	}

	reg, err := h.service.Submit(r.Context(), event.ID, r.PostForm)
	var verr *form.ValidationError
	switch {
	case errors.As(err, &verr):
		page := h.newPage(event, access, password)
		page.Values = r.PostForm
		page.Errors = verr.Fields
		render(w, http.StatusUnprocessableEntity, "index.html", page)
		return
	case err != nil:
		log.Printf("Failed to submit registration for event %d: %v", event.ID, err)
		renderError(w, http.StatusInternalServerError, msgFailed)
		return
	}

	flash := "registered"
	if reg.Status == models.StatusWaitlist {
		flash = "waitlist"
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    flash,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	target := "/"
	if access.Bypass {
		target = "/?pw=" + url.QueryEscape(password)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
