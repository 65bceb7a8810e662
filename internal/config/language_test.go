package config

import (
	"testing"

	"golang.org/x/text/language"
)

// TestParseLanguage tests ParseLanguage function
func TestParseLanguage(t *testing.T) {
	tests := []struct {
		name    string
		langTag string
		want    string
	}{
		{"English", "en", "en"},
		{"British English", "en-GB", "en-GB"},
		{"Uppercase tag", "EN", "en"},
		{"Empty defaults to English", "", "en"},
		{"Invalid defaults to English", "invalid-tag", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc, err := ParseLanguage(tt.langTag)
			if err != nil {
				t.Fatalf("ParseLanguage() error = %v", err)
			}
			if lc.String() != tt.want {
				t.Errorf("String() = %s, want %s", lc.String(), tt.want)
			}
		})
	}
}

func TestLanguageConfig_TagAndBase(t *testing.T) {
	lc, _ := ParseLanguage("fr-CA")
	if lc.Base() != "fr" {
		t.Errorf("Base() = %s, want fr", lc.Base())
	}

	en, _ := ParseLanguage("en")
	if en.Tag() != language.English {
		t.Errorf("Tag() = %v, want English", en.Tag())
	}
}

// TestDetectSystemLanguage tests detectSystemLanguage function
func TestDetectSystemLanguage(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		expect language.Tag
	}{
		{"LANG en_GB", map[string]string{"LANG": "en_GB.UTF-8"}, language.English},
		{"LANG de_DE", map[string]string{"LANG": "de_DE.UTF-8"}, language.German},
		{"LC_ALL wins over LANG", map[string]string{"LC_ALL": "ja_JP.UTF-8", "LANG": "de_DE.UTF-8"}, language.Japanese},
		{"POSIX locale ignored", map[string]string{"LANG": "C"}, language.English},
		{"nothing set", map[string]string{}, language.English},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"LANG", "LANGUAGE", "LC_ALL", "LC_MESSAGES"} {
				t.Setenv(key, "")
			}
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			base, _ := detectSystemLanguage().Base()
			want, _ := tt.expect.Base()
			if base != want {
				t.Errorf("detectSystemLanguage() base = %s, want %s", base, want)
			}
		})
	}
}

func TestReportConfig_GetLanguage(t *testing.T) {
	cfg := &ReportConfig{Language: "en-GB"}
	if got := cfg.GetLanguage().String(); got != "en-GB" {
		t.Errorf("GetLanguage() = %s, want en-GB", got)
	}

	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANGUAGE", "")
	t.Setenv("LANG", "es_ES.UTF-8")
	empty := &ReportConfig{}
	if got := empty.GetLanguage().Base(); got != "es" {
		t.Errorf("GetLanguage() with empty config = %s, want es from LANG", got)
	}
}
