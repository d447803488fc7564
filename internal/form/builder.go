package form

import (
	"strconv"

	"github.com/ruestzeit/anmeldung/internal/i18n"
	"github.com/ruestzeit/anmeldung/internal/models"
)

// rule adds fields to the form when its flag is set on the event.
type rule struct {
	enabled func(e *models.Event) bool
	fields  func(e *models.Event, tr i18n.Translator) []Field
}

// conditionalRules are evaluated in order between the base fields and the notes.
var conditionalRules = []rule{
	{
		enabled: func(e *models.Event) bool { return e.ShowRegistrationAddress },
		fields: func(e *models.Event, tr i18n.Translator) []Field {
			return []Field{
				{Key: KeyPostalCode, Type: TypeText, Required: true, Label: tr.Translate("Postleitzahl")},
				{Key: KeyCity, Type: TypeText, Required: true, Label: tr.Translate("Ort")},
				{Key: KeyAddress, Type: TypeText, Required: true, Label: tr.Translate("Straße und Hausnummer")},
			}
		},
	},
	{
		enabled: func(e *models.Event) bool { return e.ShowBirthday },
		fields: func(e *models.Event, tr i18n.Translator) []Field {
			return []Field{{Key: KeyBirthdate, Type: TypeDate, Required: true, Label: tr.Translate("Geburtsdatum")}}
		},
	},
	{
		enabled: func(e *models.Event) bool { return e.AskSchoolClass },
		fields: func(e *models.Event, tr i18n.Translator) []Field {
			return []Field{{Key: KeySchoolClass, Type: TypeText, Required: true, Label: tr.Translate("Schulklasse")}}
		},
	},
	{
		enabled: func(e *models.Event) bool { return e.ShowRoomRequest },
		fields: func(e *models.Event, tr i18n.Translator) []Field {
			options := make([]Option, 0, len(models.RoomTypes))
			for _, rt := range models.RoomTypes {
				options = append(options, Option{Value: string(rt), Label: tr.Translate("room." + string(rt))})
			}
			return []Field{{
				Key:      KeyRoomRequest,
				Type:     TypeChoice,
				Required: true,
				Label:    tr.Translate("Wunsch der Unterbringung"),
				Help:     tr.TranslateDefault("Wunsch der Unterbringung Hilfe", ""),
				Options:  options,
			}}
		},
	},
	{
		enabled: func(e *models.Event) bool { return e.ShowRoommate },
		fields: func(e *models.Event, tr i18n.Translator) []Field {
			return []Field{{
				Key:   KeyRoommate,
				Type:  TypeText,
				Label: tr.Translate("Doppelzimmer mit"),
				Help:  tr.TranslateDefault("Doppelzimmer mit Hilfe", ""),
			}}
		},
	},
	{
		enabled: func(e *models.Event) bool { return e.ShowReferer },
		fields: func(e *models.Event, tr i18n.Translator) []Field {
			return []Field{{
				Key:   KeyReferer,
				Type:  TypeText,
				Label: tr.Translate("Eingeladen von"),
				Help:  tr.TranslateDefault("Eingeladen von Hilfe", ""),
			}}
		},
	},
	{
		enabled: func(e *models.Event) bool { return e.ShowMealType },
		fields: func(e *models.Event, tr i18n.Translator) []Field {
			options := make([]Option, 0, len(models.MealTypes))
			for _, mt := range models.MealTypes {
				options = append(options, Option{Value: string(mt), Label: tr.Translate("meal." + string(mt))})
			}
			return []Field{{Key: KeyMealType, Type: TypeChoice, Required: true, Label: tr.Translate("Verpflegung"), Options: options}}
		},
	},
	{
		enabled: func(e *models.Event) bool { return e.HasAdditionalQuestion1() },
		fields: func(e *models.Event, tr i18n.Translator) []Field {
			return []Field{{Key: KeyAdditionalData1, Type: TypeText, Label: e.AdditionalQuestion1}}
		},
	},
}

var customFieldTypes = map[models.CustomFieldType]ValueType{
	models.CustomFieldInput:    TypeText,
	models.CustomFieldTextarea: TypeTextarea,
	models.CustomFieldDate:     TypeDate,
	models.CustomFieldCheckbox: TypeMultiChoice,
	models.CustomFieldRadio:    TypeChoice,
}

// Build assembles the form of event. It reads the event's toggles and its custom
// fields in their stored order and has no side effects.
func Build(event *models.Event, tr i18n.Translator) *Schema {
	if tr == nil {
		tr = i18n.NewCatalog(nil)
	}

	s := &Schema{EventID: event.ID, tr: tr}

	s.Fields = append(s.Fields,
		Field{
			Key:      KeyEvent,
			Type:     TypeChoice,
			Required: true,
			Label:    tr.Translate("Rüstzeit"),
			Options:  []Option{{Value: strconv.FormatUint(uint64(event.ID), 10), Label: event.Title}},
		},
		Field{Key: KeyFirstname, Type: TypeText, Required: true, Label: tr.Translate("Vorname")},
		Field{Key: KeyLastname, Type: TypeText, Required: true, Label: tr.Translate("Nachname")},
		Field{Key: KeyPhone, Type: TypePhone, Required: true, Label: tr.Translate("Telefon")},
		Field{Key: KeyEmail, Type: TypeEmail, Required: true, Label: tr.Translate("E-Mail")},
	)

	for _, r := range conditionalRules {
		if r.enabled(event) {
			s.Fields = append(s.Fields, r.fields(event, tr)...)
		}
	}

	s.Fields = append(s.Fields, Field{Key: KeyNotes, Type: TypeTextarea, Label: tr.Translate("Anmerkungen")})

	for _, cf := range event.CustomFields {
		if f, ok := customField(cf); ok {
			s.Fields = append(s.Fields, f)
		}
	}

	s.Fields = append(s.Fields,
		Field{Key: KeyDsgvoAgree, Type: TypeConsent, Required: true, Label: tr.Translate("Datenschutz")},
		Field{Key: KeyAgbAgree, Type: TypeConsent, Required: true, Label: tr.Translate("AGB")},
	)

	return s
}

func customField(cf models.CustomField) (Field, bool) {
	valueType, ok := customFieldTypes[cf.Type]
	if !ok {
		return Field{}, false
	}

	f := Field{
		Key:           CustomFieldKey(cf.ID),
		Type:          valueType,
		Required:      !cf.Optional,
		Label:         cf.Title,
		CustomFieldID: cf.ID,
	}
	if cf.Type.HasOptions() {
		f.Options = make([]Option, 0, len(cf.Options))
		for _, o := range cf.Options {
			f.Options = append(f.Options, Option{Value: o, Label: o})
		}
	}
	return f, true
}
