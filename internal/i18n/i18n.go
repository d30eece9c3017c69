package i18n

import "fmt"

const DefaultLocale = "en-US"

// catalogs holds the user-facing strings per supported locale. Keys missing
// from a locale fall back to en-US.
var catalogs = map[string]map[string]string{
	"en-US": {
		"reminder.heading":    "🔔 **Reminder**",
		"reminder.from":       "👤 From: <@%s>",
		"reminder.jump":       "[Jump to message →](%s)",
		"reminder.attachment": "*Attachment/Media*",
	},
	"es-ES": {
		"reminder.heading":    "🔔 **Recordatorio**",
		"reminder.from":       "👤 De: <@%s>",
		"reminder.jump":       "[Ir al mensaje →](%s)",
		"reminder.attachment": "*Adjunto/Multimedia*",
	},
}

// T resolves a key in the given locale, formatting args into the template.
// Unknown locales fall back to en-US; unknown keys come back verbatim so a
// missing translation is visible instead of silent.
func T(locale, key string, args ...any) string {
	cat, ok := catalogs[locale]
	if !ok {
		cat = catalogs[DefaultLocale]
	}
	tmpl, ok := cat[key]
	if !ok {
		tmpl, ok = catalogs[DefaultLocale][key]
		if !ok {
			return key
		}
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

// Normalize maps platform locale tags onto a supported catalog locale.
func Normalize(tag string) string {
	switch tag {
	case "en-US", "es-ES":
		return tag
	case "en-GB":
		return "en-US"
	case "es-419":
		return "es-ES"
	}
	if len(tag) >= 2 {
		switch tag[:2] {
		case "en":
			return "en-US"
		case "es":
			return "es-ES"
		}
	}
	return DefaultLocale
}

// Supported reports whether the locale has its own catalog.
func Supported(locale string) bool {
	_, ok := catalogs[locale]
	return ok
}
