// Package i18n resolves the German labels shown on the registration form.
//
// Labels are looked up by their German source text. Deployments override
// individual labels through the `labels` map of the config file.
package i18n

import "strings"

type Translator interface {
	Translate(key string) string
	TranslateDefault(key, def string) string
}

var defaults = map[string]string{
	"Rüstzeit":                  "Rüstzeit",
	"Vorname":                   "Vorname",
	"Nachname":                  "Nachname",
	"Telefon":                   "Telefon",
	"E-Mail":                    "E-Mail",
	"Postleitzahl":              "Postleitzahl",
	"Ort":                       "Ort",
	"Straße und Hausnummer":     "Straße und Hausnummer",
	"Geburtsdatum":              "Geburtsdatum",
	"Schulklasse":               "Schulklasse",
	"Wunsch der Unterbringung":  "Wunsch der Unterbringung",
	"Doppelzimmer mit":          "Doppelzimmer mit",
	"Eingeladen von":            "Eingeladen von",
	"Verpflegung":               "Verpflegung",
	"Anmerkungen":               "Anmerkungen",
	"Datenschutz":               "Ich habe die Datenschutzerklärung gelesen und stimme der Verarbeitung meiner Daten zu.",
	"AGB":                       "Ich akzeptiere die Teilnahmebedingungen.",
	"room.single":               "Einzelzimmer",
	"room.double":               "Doppelzimmer",
	"room.multi":                "Mehrbettzimmer",
	"meal.omnivore":             "Vollkost",
	"meal.vegetarian":           "Vegetarisch",
	"meal.vegan":                "Vegan",
	"error.required":            "Dieses Feld ist erforderlich.",
	"error.consent":             "Bitte stimme zu, um fortzufahren.",
	"error.email":               "Bitte gib eine gültige E-Mail-Adresse an.",
	"error.phone":               "Bitte gib eine gültige Telefonnummer an.",
	"error.date":                "Bitte gib ein Datum im Format TT.MM.JJJJ an.",
	"error.choice":              "Bitte wähle eine der angebotenen Möglichkeiten.",
	"error.length":              "Die Eingabe ist zu lang.",
	"error.event":               "Die gewählte Rüstzeit ist ungültig.",
}

// Catalog is a Translator backed by the built-in German labels plus overrides.
type Catalog struct {
	overrides map[string]string
}

// NewCatalog returns a catalog with the given overrides. Keys are matched
// case-insensitively because config files are read case-insensitively.
func NewCatalog(overrides map[string]string) *Catalog {
	c := &Catalog{overrides: make(map[string]string, len(overrides))}
	for k, v := range overrides {
		c.overrides[strings.ToLower(k)] = v
	}
	return c
}

// Translate returns the label for key, or key itself when none is known.
func (c *Catalog) Translate(key string) string {
	return c.TranslateDefault(key, key)
}

func (c *Catalog) TranslateDefault(key, def string) string {
	if c != nil {
		if v, ok := c.overrides[strings.ToLower(key)]; ok {
			return v
		}
	}
	if v, ok := defaults[key]; ok {
		return v
	}
	return def
}
