package dto

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
	"github.com/kirosamy12/otrade-backend/internal/domain/model"
)

// TranslationPayload is the normalized translation unit handed to the
// content service. "content" is the wire name for the body field.
type TranslationPayload struct {
	Language    string `json:"language"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

// TranslationsField accepts every translation wire shape legacy admin
// clients send: a plain array, a map keyed by language, or either of those
// JSON-encoded inside a string. Handlers only ever see the normalized list.
type TranslationsField []TranslationPayload

func (f *TranslationsField) UnmarshalJSON(data []byte) error {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 || string(data) == "null" {
		*f = nil
		return nil
	}

	// JSON-encoded string wrapping one of the other shapes.
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return fmt.Errorf("translations: %w", err)
		}
		inner = strings.TrimSpace(inner)
		if inner == "" {
			*f = nil
			return nil
		}
		return f.UnmarshalJSON([]byte(inner))
	}

	var list []TranslationPayload
	if err := json.Unmarshal(data, &list); err == nil {
		*f = list
		return nil
	}

	var byLanguage map[string]TranslationPayload
	if err := json.Unmarshal(data, &byLanguage); err == nil {
		languages := make([]string, 0, len(byLanguage))
		for language := range byLanguage {
			languages = append(languages, language)
		}
		sort.Strings(languages)

		list = make([]TranslationPayload, 0, len(byLanguage))
		for _, language := range languages {
			tr := byLanguage[language]
			if tr.Language == "" {
				tr.Language = language
			}
			list = append(list, tr)
		}
		*f = list
		return nil
	}

	return fmt.Errorf("translations: unsupported shape")
}

func (f TranslationsField) ToModel() []model.Translation {
	out := make([]model.Translation, 0, len(f))
	for _, tr := range f {
		out = append(out, model.Translation{
			Language:    enums.ParseLanguage(tr.Language),
			Title:       tr.Title,
			Description: tr.Description,
			Body:        tr.Content,
		})
	}
	return out
}
