package dto

import (
	"encoding/json"
	"testing"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
)

func TestTranslationsFieldArrayShape(t *testing.T) {
	raw := []byte(`[{"language":"en","title":"Scalping basics","content":"body"},{"language":"ar","title":"أساسيات"}]`)

	var field TranslationsField
	if err := json.Unmarshal(raw, &field); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(field) != 2 {
		t.Fatalf("expected 2 translations, got %d", len(field))
	}
	if field[0].Language != "en" || field[0].Content != "body" {
		t.Fatalf("unexpected first translation: %+v", field[0])
	}
}

func TestTranslationsFieldMapShape(t *testing.T) {
	raw := []byte(`{"en":{"title":"Risk management"},"ar":{"title":"إدارة المخاطر","language":"ar"}}`)

	var field TranslationsField
	if err := json.Unmarshal(raw, &field); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(field) != 2 {
		t.Fatalf("expected 2 translations, got %d", len(field))
	}
	// Map keys come back sorted, and a missing language field inherits the key.
	if field[0].Language != "ar" || field[1].Language != "en" {
		t.Fatalf("unexpected languages: %q %q", field[0].Language, field[1].Language)
	}
	if field[1].Title != "Risk management" {
		t.Fatalf("unexpected title: %q", field[1].Title)
	}
}

func TestTranslationsFieldStringWrappedShape(t *testing.T) {
	raw := []byte(`"[{\"language\":\"en\",\"title\":\"Webinar\"}]"`)

	var field TranslationsField
	if err := json.Unmarshal(raw, &field); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(field) != 1 || field[0].Title != "Webinar" {
		t.Fatalf("unexpected translations: %+v", field)
	}
}

func TestTranslationsFieldEmptyInputs(t *testing.T) {
	for _, raw := range []string{`null`, `""`, `"  "`} {
		var field TranslationsField
		if err := json.Unmarshal([]byte(raw), &field); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if field != nil {
			t.Fatalf("expected nil for %s, got %+v", raw, field)
		}
	}
}

func TestTranslationsFieldRejectsScalars(t *testing.T) {
	var field TranslationsField
	if err := json.Unmarshal([]byte(`42`), &field); err == nil {
		t.Fatal("expected error for numeric payload")
	}
}

func TestTranslationsFieldToModel(t *testing.T) {
	field := TranslationsField{
		{Language: "AR", Title: "عنوان", Content: "نص"},
		{Language: "unknown", Title: "fallback"},
	}

	models := field.ToModel()
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[0].Language != enums.LanguageArabic || models[0].Body != "نص" {
		t.Fatalf("unexpected arabic translation: %+v", models[0])
	}
	if models[1].Language != enums.LanguageEnglish {
		t.Fatalf("unknown language should default to english, got %q", models[1].Language)
	}
}
