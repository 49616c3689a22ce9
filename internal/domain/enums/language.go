package enums

import "strings"

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
)

// ParseLanguage normalizes a language signal ("ar", "AR", "ar-EG") to a
// supported locale, defaulting to English.
func ParseLanguage(raw string) Language {
	tag := strings.ToLower(strings.TrimSpace(raw))
	if idx := strings.IndexAny(tag, "-_,;"); idx >= 0 {
		tag = tag[:idx]
	}
	if tag == string(LanguageArabic) {
		return LanguageArabic
	}
	return LanguageEnglish
}
