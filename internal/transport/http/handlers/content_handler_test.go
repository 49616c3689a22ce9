package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
)

func TestLocaleFrom(t *testing.T) {
	cases := []struct {
		name   string
		lang   string
		header string
		want   enums.Language
	}{
		{name: "default english", want: enums.LanguageEnglish},
		{name: "query param", lang: "ar", want: enums.LanguageArabic},
		{name: "query param wins over header", lang: "en", header: "ar", want: enums.LanguageEnglish},
		{name: "accept language simple", header: "ar", want: enums.LanguageArabic},
		{name: "accept language with region", header: "ar-EG,ar;q=0.9,en;q=0.8", want: enums.LanguageArabic},
		{name: "accept language with weight", header: "en-US;q=0.9", want: enums.LanguageEnglish},
		{name: "unknown language falls back", header: "fr-FR", want: enums.LanguageEnglish},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target := "/courses"
			if tc.lang != "" {
				target += "?lang=" + tc.lang
			}
			req := httptest.NewRequest("GET", target, nil)
			if tc.header != "" {
				req.Header.Set("Accept-Language", tc.header)
			}
			if got := localeFrom(req); got != tc.want {
				t.Fatalf("localeFrom = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestContentHandlerNilServiceUnavailable(t *testing.T) {
	handler := NewContentHandler(nil, nil)

	req := httptest.NewRequest("GET", "/courses", nil)
	req = req.WithContext(withURLParam(req.Context(), "category", "courses"))
	rr := httptest.NewRecorder()

	handler.List(rr, req)

	if rr.Code != 500 {
		t.Fatalf("unexpected status: got %d want 500", rr.Code)
	}
}
