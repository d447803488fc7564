package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruestzeit/anmeldung/internal/auth"
	"github.com/ruestzeit/anmeldung/internal/models"
	"gorm.io/gorm"
)

var csvHeader = []string{
	"Nr.", "Status", "Vorname", "Nachname", "Telefon", "E-Mail",
	"PLZ", "Ort", "Adresse", "Landkreis", "Geburtsdatum", "Schulklasse",
	"Unterbringung", "Doppelzimmer mit", "Eingeladen von", "Verpflegung",
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02.01.2006")
}

func statusLabel(s models.RegistrationStatus) string {
	if s == models.StatusWaitlist {
		return "Warteliste"
	}
	return "Teilnehmer"
}

// HandleExportCSV writes the filtered registrations of an event as a
// semicolon separated file for spreadsheet programs.
func (h *RegistrationHandler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	adminID, ok := auth.AdminIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	eventID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid event id", http.StatusBadRequest)
		return
	}

	var event models.Event
	err = h.db.WithContext(r.Context()).
		Preload("CustomFields", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped().Order("position ASC").Order("id ASC")
		}).
		Where("admin_id = ?", adminID).
		First(&event, uint(eventID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load event", http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	filter := RegistrationFilter{
		Status:      query.Get("status"),
		Landkreis:   query["landkreis"],
		LandkreisOp: query.Get("landkreis_op"),
	}
	if filter.Status != "" && filter.Status != string(models.StatusActive) && filter.Status != string(models.StatusWaitlist) {
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}

	registrations, err := h.list(r.Context(), event.ID, filter)
	if err != nil {
		http.Error(w, "Failed to list registrations", http.StatusInternalServerError)
		return
	}

	header := append([]string{}, csvHeader...)
	if event.HasAdditionalQuestion1() {
		header = append(header, event.AdditionalQuestion1)
	}
	header = append(header, "Anmerkungen")
	for _, cf := range event.CustomFields {
		header = append(header, cf.Title)
	}
	header = append(header, "Angemeldet am")

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="anmeldungen-%d.csv"`, event.ID))
	// Byte order mark so spreadsheet programs detect UTF-8.
	w.Write([]byte("\ufeff"))

	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(header); err != nil {
		log.Printf("Failed to write CSV export: %v", err)
		return
	}

	for _, reg := range registrations {
		landkreis := ""
		if reg.Landkreis != nil {
			landkreis = *reg.Landkreis
		}
		row := []string{
			strconv.Itoa(reg.RegistrationPosition),
			statusLabel(reg.Status),
			reg.Firstname,
			reg.Lastname,
			reg.Phone,
			reg.Email,
			reg.PostalCode,
			reg.City,
			reg.Address,
			landkreis,
			formatDate(reg.Birthdate),
			reg.SchoolClass,
			string(reg.RoomRequest),
			reg.Roommate,
			reg.Referer,
			string(reg.MealType),
		}
		if event.HasAdditionalQuestion1() {
			row = append(row, reg.AdditionalData1)
		}
		row = append(row, reg.Notes)
		for _, cf := range event.CustomFields {
			row = append(row, customAnswer(reg, cf.ID))
		}
		row = append(row, reg.CreatedAt.Local().Format("02.01.2006 15:04"))

		if err := cw.Write(row); err != nil {
			log.Printf("Failed to write CSV export: %v", err)
			return
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Printf("Failed to write CSV export: %v", err)
	}
}

func customAnswer(reg models.Registration, fieldID uint) string {
	value, ok := reg.CustomFieldData[strconv.FormatUint(uint64(fieldID), 10)]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(v, ", ")
	default:
		return fmt.Sprint(v)
	}
}
