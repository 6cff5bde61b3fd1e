package ai

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rootsreach/rootsreach-backend/pkg/config"
	pkgerrors "github.com/rootsreach/rootsreach-backend/pkg/errors"
	"github.com/rootsreach/rootsreach-backend/pkg/logger"
)

var testAIConfig = config.AIConfig{
	VoiceBaseURL:             "https://voice.rootsreach.test/",
	DefaultTranslateLanguage: "hi",
	DefaultVoiceLanguage:     "en",
}

func newTestService(t *testing.T, opts ...Option) Service {
	t.Helper()
	svc, err := NewService(testAIConfig, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}), opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestGenerateDescriptionUsesPickedTemplate(t *testing.T) {
	for idx, prefix := range []string{"This beautiful Basket", "Handmade with love and care, this Basket", "Experience the magic"} {
		idx := idx
		svc := newTestService(t, WithPicker(func(n int) int {
			if n != 3 {
				t.Fatalf("expected 3 templates, got %d", n)
			}
			return idx
		}))
		got, err := svc.GenerateDescription(context.Background(), DescriptionInput{Category: "Basket", Material: "bamboo"})
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !strings.HasPrefix(got.Description, prefix) {
			t.Fatalf("template %d: unexpected description %q", idx, got.Description)
		}
		if !strings.Contains(got.Description, "bamboo") {
			t.Fatalf("expected material in description")
		}
		if !strings.HasSuffix(got.Description, defaultCareText) {
			t.Fatalf("expected default care text, got %q", got.Description)
		}
	}
}

func TestGenerateDescriptionAppendsDetails(t *testing.T) {
	svc := newTestService(t, WithPicker(func(int) int { return 0 }))
	got, err := svc.GenerateDescription(context.Background(), DescriptionInput{
		Category:         "Rug",
		Material:         "wool",
		Dimensions:       "4x6 ft",
		Colors:           Colors{"indigo", "ochre"},
		CareInstructions: "Dry clean only.",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := " It measures approximately 4x6 ft. Available in indigo, ochre. Dry clean only."
	if !strings.HasSuffix(got.Description, want) {
		t.Fatalf("expected suffix %q, got %q", want, got.Description)
	}
}

func TestGenerateDescriptionRequiresCategoryAndMaterial(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GenerateDescription(context.Background(), DescriptionInput{Category: "Rug"})
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details := pkgerrors.As(err).Details().(map[string]string)
	if _, ok := details["material"]; !ok || len(details) != 1 {
		t.Fatalf("expected only material to be reported, got %v", details)
	}
}

func TestColorsAcceptStringOrArray(t *testing.T) {
	cases := map[string]Colors{
		`{"colors":["red"," blue ",""]}`:   {"red", "blue"},
		`{"colors":"[\"red\",\"green\"]"}`: {"red", "green"},
		`{"colors":"sunset orange"}`:       {"sunset orange"},
		`{"colors":""}`:                    nil,
	}
	for body, want := range cases {
		var input DescriptionInput
		if err := json.Unmarshal([]byte(body), &input); err != nil {
			t.Fatalf("%s: %v", body, err)
		}
		if strings.Join(input.Colors, "|") != strings.Join(want, "|") {
			t.Fatalf("%s: expected %v, got %v", body, want, input.Colors)
		}
	}

	var input DescriptionInput
	if err := json.Unmarshal([]byte(`{"colors":42}`), &input); err == nil {
		t.Fatal("expected numeric colors to be rejected")
	}
}

func TestTranslateDefaultsLanguage(t *testing.T) {
	svc := newTestService(t)
	got, err := svc.Translate(context.Background(), TranslateInput{Text: "Hand woven"})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if got.TranslatedText != "Hand woven [Translated to hi]" || got.Language != "hi" {
		t.Fatalf("unexpected translation %+v", got)
	}

	got, err = svc.Translate(context.Background(), TranslateInput{Text: "Hand woven", TargetLanguage: "ta"})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if got.TranslatedText != "Hand woven [Translated to ta]" {
		t.Fatalf("unexpected translation %q", got.TranslatedText)
	}

	if _, err := svc.Translate(context.Background(), TranslateInput{Text: "  "}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGenerateVoiceBuildsAudioURL(t *testing.T) {
	fixed := time.UnixMilli(1767225600123)
	svc := newTestService(t, WithClock(func() time.Time { return fixed }))

	got, err := svc.GenerateVoice(context.Background(), VoiceInput{Instructions: "Soak the reeds overnight"})
	if err != nil {
		t.Fatalf("voice: %v", err)
	}
	if got.AudioURL != "https://voice.rootsreach.test/audio/1767225600123.mp3" || got.Language != "en" {
		t.Fatalf("unexpected voice result %+v", got)
	}

	if _, err := svc.GenerateVoice(context.Background(), VoiceInput{}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewServiceValidatesConfig(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	if _, err := NewService(config.AIConfig{}, logg); err == nil {
		t.Fatal("expected missing voice base url to fail")
	}
	if _, err := NewService(testAIConfig, nil); err == nil {
		t.Fatal("expected missing logger to fail")
	}
}
